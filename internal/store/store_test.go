package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demographic-map/internal/population"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return AttachDB(db), mock
}

func TestWards(t *testing.T) {
	s, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"ward_id", "dist_id", "city", "district", "ward", "lat", "lon",
		"area_sqm", "total", "pop_density", "urban", "rural"}).
		AddRow("1", "10", "Ha Noi", "Quan Ba Dinh", "Phuong Phuc Xa", 21.04, 105.84, 1e6, 1000.0, 1000.0, 900.0, 100.0).
		AddRow("3", "20", "Ho Chi Minh", "Quan 1", "Phuong Ben Nghe", 10.7, 106.7, 2e6, 4000.0, 2000.0, 4000.0, 0.0)
	mock.ExpectQuery("FROM _vn_wards w JOIN _vn_population p").WillReturnRows(rows)

	wards, err := s.Wards(context.Background())
	require.NoError(t, err)
	require.Len(t, wards, 2)
	assert.Equal(t, population.Ward{
		WardID: "1", DistID: "10", City: "Ha Noi", District: "Quan Ba Dinh", Name: "Phuong Phuc Xa",
		AreaSqm: 1e6, Total: 1000, Density: 1000, Urban: 900, Rural: 100, Lat: 21.04, Lon: 105.84,
	}, wards[0])
	assert.Equal(t, "Quan 1", wards[1].District)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWards_QueryError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("connection refused")
	mock.ExpectQuery("FROM _vn_wards").WillReturnError(boom)

	_, err := s.Wards(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYoungPop(t *testing.T) {
	s, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"dist_id", "total_15_34", "dense_15_34", "urban_15_34", "rural_15_34"}).
		AddRow("10", 1200.0, 600.0, 1000.0, 200.0)
	mock.ExpectQuery("FROM _vn_youngpop").WillReturnRows(rows)

	young, err := s.YoungPop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []population.YoungPop{{DistID: "10", Total: 1200, Dense: 600, Urban: 1000, Rural: 200}}, young)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_IsSource(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("FROM _vn_wards").WillReturnRows(
		sqlmock.NewRows([]string{"ward_id", "dist_id", "city", "district", "ward", "lat", "lon",
			"area_sqm", "total", "pop_density", "urban", "rural"}).
			AddRow("1", "10", "Ha Noi", "Quan Ba Dinh", "Phuong Phuc Xa", 21.0, 105.8, 1e6, 1000.0, 1000.0, 1000.0, 0.0))
	mock.ExpectQuery("FROM _vn_youngpop").WillReturnRows(
		sqlmock.NewRows([]string{"dist_id", "total_15_34", "dense_15_34", "urban_15_34", "rural_15_34"}).
			AddRow("10", 300.0, 0.0, 300.0, 0.0))

	var src population.Source = s
	d, err := population.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Wards.Len())
	assert.Equal(t, 1, d.Districts.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport(t *testing.T) {
	s, mock := newMock(t)
	wards := []population.Ward{
		{WardID: "1", DistID: "10", City: "Ha Noi", District: "Quan Ba Dinh", Name: "Phuong Phuc Xa", AreaSqm: 1e6, Total: 1000, Density: 1000, Urban: 1000},
		{WardID: "2", DistID: "10", City: "Ha Noi", District: "Quan Ba Dinh", Name: "Phuong Truc Bach", AreaSqm: 1e6, Total: 3000, Density: 3000, Urban: 2000, Rural: 1000},
	}
	young := []population.YoungPop{{DistID: "10", Total: 1200}}

	mock.ExpectBegin()
	pw := mock.ExpectPrepare("INSERT INTO _vn_wards")
	pp := mock.ExpectPrepare("INSERT INTO _vn_population")
	for _, w := range wards {
		pw.ExpectExec().WithArgs(w.WardID, w.DistID, w.City, w.District, w.Name, w.Lat, w.Lon).
			WillReturnResult(sqlmock.NewResult(0, 1))
		pp.ExpectExec().WithArgs(w.WardID, w.AreaSqm, w.Total, w.Density, w.Urban, w.Rural).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
	mock.ExpectBegin()
	py := mock.ExpectPrepare("INSERT INTO _vn_youngpop")
	py.ExpectExec().WithArgs("10", 1200.0, 0.0, 0.0, 0.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	st, err := s.Import(context.Background(), wards, young)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Wards: 2, Young: 1}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImport_RollsBackFailedBatch(t *testing.T) {
	s, mock := newMock(t)
	wards := []population.Ward{{WardID: "1", DistID: "10"}}
	boom := errors.New("duplicate key")

	mock.ExpectBegin()
	pw := mock.ExpectPrepare("INSERT INTO _vn_wards")
	mock.ExpectPrepare("INSERT INTO _vn_population")
	pw.ExpectExec().WillReturnError(boom)
	mock.ExpectRollback()

	st, err := s.Import(context.Background(), wards, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, st.Wards)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountWards(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM _vn_wards`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(10599)))

	n, err := s.CountWards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10599), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
