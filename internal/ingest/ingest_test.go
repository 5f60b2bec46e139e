package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demographic-map/internal/metrics"
	"demographic-map/internal/population"
	"demographic-map/internal/store"
)

type fakeSource struct{ err error }

func (f fakeSource) Wards(context.Context) ([]population.Ward, error) {
	return []population.Ward{{WardID: "1", DistID: "10"}, {WardID: "2", DistID: "10"}}, f.err
}

func (f fakeSource) YoungPop(context.Context) ([]population.YoungPop, error) {
	return []population.YoungPop{{DistID: "10"}}, nil
}

type fakeImporter struct {
	count    int64
	imported int
}

func (f *fakeImporter) CountWards(context.Context) (int64, error) { return f.count, nil }

func (f *fakeImporter) Import(_ context.Context, w []population.Ward, y []population.YoungPop) (store.ImportStats, error) {
	f.imported++
	f.count += int64(len(w))
	return store.ImportStats{Wards: len(w), Young: len(y)}, nil
}

func TestEnsureInitialized(t *testing.T) {
	ctx := context.Background()
	dst := &fakeImporter{}

	did, err := EnsureInitialized(ctx, dst, fakeSource{})
	require.NoError(t, err)
	assert.True(t, did)
	assert.Equal(t, int64(2), dst.count)

	did, err = EnsureInitialized(ctx, dst, fakeSource{})
	require.NoError(t, err)
	assert.False(t, did)
	assert.Equal(t, 1, dst.imported)
}

func TestImportFrom_SourceError(t *testing.T) {
	boom := errors.New("missing file")
	dst := &fakeImporter{}
	_, err := ImportFrom(context.Background(), dst, fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, dst.imported)
}

func TestRunOnce_CountsOutcome(t *testing.T) {
	ok := testutil.ToFloat64(metrics.DatasetReloadsTotal.WithLabelValues("ok"))
	bad := testutil.ToFloat64(metrics.DatasetReloadsTotal.WithLabelValues("error"))

	require.NoError(t, RunOnce(context.Background(), func(context.Context) error { return nil }))
	assert.Error(t, RunOnce(context.Background(), func(context.Context) error { return errors.New("boom") }))

	assert.Equal(t, ok+1, testutil.ToFloat64(metrics.DatasetReloadsTotal.WithLabelValues("ok")))
	assert.Equal(t, bad+1, testutil.ToFloat64(metrics.DatasetReloadsTotal.WithLabelValues("error")))
}

func TestStartPeriodic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := StartPeriodic(ctx, 5*time.Millisecond, func(context.Context) error {
		n.Add(1)
		return errors.New("keeps going")
	})

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStartPeriodic_Disabled(t *testing.T) {
	done := StartPeriodic(context.Background(), 0, func(context.Context) error {
		t.Fatal("reload must not run")
		return nil
	})
	_, open := <-done
	assert.False(t, open)
}
