package revgeo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demographic-map/internal/population"
)

func wards(t *testing.T) *population.Data {
	t.Helper()
	d, err := population.Build([]population.Ward{
		{WardID: "1", DistID: "10", City: "Ha Noi", District: "Quan Ba Dinh", Name: "Phuong Phuc Xa", Lat: 21.047, Lon: 105.847},
		{WardID: "2", DistID: "11", City: "Ha Noi", District: "Quan Hoan Kiem", Name: "Phuong Hang Bac", Lat: 21.034, Lon: 105.852},
		{WardID: "3", DistID: "20", City: "Ho Chi Minh", District: "Quan 1", Name: "Phuong Ben Nghe", Lat: 10.781, Lon: 106.703},
		{WardID: "4", DistID: "30", City: "Da Nang", District: "Quan Hai Chau", Name: "Phuong Thach Thang", Lat: 16.076, Lon: 108.222},
		{WardID: "5", DistID: "40", City: "Unknown", District: "Unknown", Name: "No Point"},
	}, nil)
	require.NoError(t, err)
	return d
}

func TestNearest(t *testing.T) {
	ix := NewIndex(wards(t).Wards, 0)

	hit, ok := ix.Nearest(21.035, 105.853)
	require.True(t, ok)
	assert.Equal(t, "2", hit.WardID)
	assert.Equal(t, "Quan Hoan Kiem", hit.District)
	assert.Less(t, hit.DistanceKm, 1.0)

	hit, ok = ix.Nearest(10.77, 106.70)
	require.True(t, ok)
	assert.Equal(t, "Ho Chi Minh", hit.City)

	// 南海海面，超出半径
	_, ok = ix.Nearest(12.0, 112.0)
	assert.False(t, ok)
}

func TestNearest_EmptyIndex(t *testing.T) {
	d, err := population.Build(nil, nil)
	require.NoError(t, err)
	_, ok := NewIndex(d.Wards, 10).Nearest(21, 105)
	assert.False(t, ok)

	var ix *Index
	_, ok = ix.Nearest(21, 105)
	assert.False(t, ok)
}

func TestNearest_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ps := make([]Point, 500)
	for i := range ps {
		ps[i] = Point{Lat: 8 + rng.Float64()*15, Lon: 102 + rng.Float64()*8, Row: i}
	}
	root := buildKD(append([]Point(nil), ps...), 0)

	for i := 0; i < 200; i++ {
		lat, lon := 8+rng.Float64()*15, 102+rng.Float64()*8
		want := math.MaxFloat64
		for _, p := range ps {
			want = math.Min(want, haversine(lat, lon, p.Lat, p.Lon))
		}
		_, got := nearest(root, lat, lon)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestHaversine(t *testing.T) {
	// 河内到胡志明市约 1140 千米
	d := haversine(21.0285, 105.8542, 10.8231, 106.6297)
	assert.InDelta(t, 1137, d, 15)
	assert.Equal(t, 0.0, haversine(1, 1, 1, 1))
}
