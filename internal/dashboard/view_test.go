package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demographic-map/internal/filters"
	"demographic-map/internal/population"
	"demographic-map/internal/session"
)

var defaults = Defaults{Basemap: Basemaps[0], Population: PopulationViews[0]}

func fixture(t *testing.T) (*population.Data, *filters.Store) {
	t.Helper()
	wards := []population.Ward{
		{WardID: "1", DistID: "10", City: "Ha Noi", District: "Quan Ba Dinh", Name: "Phuong Phuc Xa", AreaSqm: 1e6, Total: 1000, Density: 1000, Urban: 1000, Lat: 21.0, Lon: 105.8},
		{WardID: "2", DistID: "10", City: "Ha Noi", District: "Quan Ba Dinh", Name: "Phuong Truc Bach", AreaSqm: 1e6, Total: 3000, Density: 3000, Urban: 2000, Rural: 1000, Lat: 21.2, Lon: 105.6},
		{WardID: "3", DistID: "11", City: "Ha Noi", District: "Quan Hoan Kiem", Name: "Phuong Hang Bac", AreaSqm: 1e6, Total: 3000, Density: 2500, Urban: 3000, Lat: 21.03, Lon: 105.85},
		{WardID: "4", DistID: "20", City: "Ho Chi Minh", District: "Quan 1", Name: "Phuong Ben Nghe", AreaSqm: 2e6, Total: 4000, Density: 2000, Urban: 4000, Lat: 10.7, Lon: 106.7},
	}
	young := []population.YoungPop{
		{DistID: "10", Total: 1200},
		{DistID: "11", Total: 500},
		{DistID: "20", Total: 1500},
	}
	data, err := population.Build(wards, young)
	require.NoError(t, err)
	fs, err := filters.New(data.Wards, session.NewMemory(), population.ColCity, population.ColDistrict, population.ColWard)
	require.NoError(t, err)
	return data, fs
}

func selectInto(t *testing.T, fs *filters.Store, input map[string][]string) *filters.State {
	t.Helper()
	res, err := fs.Settle(context.Background(), "s1", input)
	require.NoError(t, err)
	return res.State
}

func TestLookupBasemap(t *testing.T) {
	b, err := LookupBasemap("google map")
	require.NoError(t, err)
	assert.Equal(t, "ROADMAP", b.Tiles)

	b, err = LookupBasemap("Google Satellite with POIs")
	require.NoError(t, err)
	assert.Equal(t, "HYBRID", b.Tiles)

	_, err = LookupBasemap("Bing")
	assert.ErrorIs(t, err, ErrUnknownBasemap)
	assert.Len(t, Basemaps, 8)
}

func TestLookupPopulationView(t *testing.T) {
	p, err := LookupPopulationView("Population Density")
	require.NoError(t, err)
	assert.Equal(t, population.ColDensity, p.Column)

	p, err = LookupPopulationView("total")
	require.NoError(t, err)
	assert.Equal(t, "Total Population", p.Name)

	_, err = LookupPopulationView("households")
	assert.ErrorIs(t, err, ErrUnknownPopulationView)
}

func TestBuild_Unfiltered(t *testing.T) {
	data, fs := fixture(t)
	st := selectInto(t, fs, nil)

	v, err := Build(data, fs, st, defaults, Request{})
	require.NoError(t, err)

	assert.Equal(t, "district", v.Level)
	assert.Equal(t, population.ColDistID, v.IDColumn)
	assert.Equal(t, ZoomCountry, v.Zoom)
	assert.Equal(t, Center{Lat: DefaultLat, Lon: DefaultLon}, v.Center)
	assert.Equal(t, "CartoDB.Positron", v.Basemap.Tiles)
	assert.Equal(t, []string{"city", "district"}, v.Tooltip)

	require.Len(t, v.Features, 3)
	assert.Equal(t, "10", v.Features[0].ID)
	assert.Equal(t, 4000.0, v.Features[0].Value)
	assert.Equal(t, map[string]string{"city": "Ha Noi", "district": "Quan Ba Dinh"}, v.Features[0].Tooltip)

	assert.Equal(t, []string{
		"City: Ha Noi, Ho Chi Minh",
		"District: Quan 1, Quan Ba Dinh, Quan Hoan Kiem",
	}, v.Header)

	assert.Equal(t, Summary{
		Total:         11000,
		Urban:         10000,
		UrbanShare:    0.91,
		MedianDensity: 2000,
		Young:         3200,
		YoungShare:    0.29,
	}, v.Summary)
	assert.Nil(t, v.Breakdown)
}

func TestBuild_CitySelected(t *testing.T) {
	data, fs := fixture(t)
	st := selectInto(t, fs, map[string][]string{"city": {"Ha Noi"}})

	v, err := Build(data, fs, st, defaults, Request{Population: "Population Density", Basemap: "Google Terrain"})
	require.NoError(t, err)

	assert.Equal(t, "ward", v.Level)
	assert.Equal(t, ZoomCity, v.Zoom)
	assert.Equal(t, "TERRAIN", v.Basemap.Tiles)
	assert.InDelta(t, (21.0+21.2+21.03)/3, v.Center.Lat, 1e-9)
	assert.InDelta(t, (105.8+105.6+105.85)/3, v.Center.Lon, 1e-9)

	require.Len(t, v.Features, 3)
	assert.Equal(t, 1000.0, v.Features[0].Value)
	assert.Equal(t, "Phuong Phuc Xa", v.Features[0].Tooltip["ward"])

	assert.Equal(t, []string{
		"City: Ha Noi",
		"District: Quan Ba Dinh, Quan Hoan Kiem",
		"Ward: Phuong Hang Bac, Phuong Phuc Xa, Phuong Truc Bach",
	}, v.Header)
	assert.Equal(t, 7000.0, v.Summary.Total)
	assert.Equal(t, 2500.0, v.Summary.MedianDensity)
	assert.Equal(t, 1700.0, v.Summary.Young)

	require.Len(t, v.Breakdown, 1)
	b := v.Breakdown[0]
	assert.Equal(t, "Ha Noi", b.City)
	assert.Equal(t, 3000.0, b.MaxTotal)
	assert.Equal(t, 3000.0, b.MaxDensity)
	require.Len(t, b.Rows, 3)
	assert.Equal(t, "Phuong Truc Bach", b.Rows[0].Ward)
	assert.Equal(t, "Phuong Hang Bac", b.Rows[1].Ward)
	assert.Equal(t, "Phuong Phuc Xa", b.Rows[2].Ward)
	assert.InDelta(t, 67.0, b.Rows[0].UrbanPcnt, 1e-9)
}

func TestBuild_ZoomFollowsFinestSelection(t *testing.T) {
	data, fs := fixture(t)

	st := selectInto(t, fs, map[string][]string{"district": {"Quan Ba Dinh"}})
	v, err := Build(data, fs, st, defaults, Request{})
	require.NoError(t, err)
	assert.Equal(t, ZoomDistrict, v.Zoom)

	st = selectInto(t, fs, map[string][]string{"ward": {"Phuong Phuc Xa"}})
	v, err = Build(data, fs, st, defaults, Request{})
	require.NoError(t, err)
	assert.Equal(t, ZoomWard, v.Zoom)
	assert.InDelta(t, 21.0, v.Center.Lat, 1e-9)
}

func TestBuild_ManyValuesAreCounted(t *testing.T) {
	data, fs := fixture(t)
	st := selectInto(t, fs, map[string][]string{"city": {"Ha Noi", "Ho Chi Minh"}})

	v, err := Build(data, fs, st, defaults, Request{})
	require.NoError(t, err)
	assert.Equal(t, "City: Ha Noi, Ho Chi Minh", v.Header[0])
	assert.Equal(t, "District: Quan 1, Quan Ba Dinh, Quan Hoan Kiem", v.Header[1])
	assert.Equal(t, "4 selected Wards", v.Header[2])
	assert.Len(t, v.Breakdown, 2)
}

func TestBuild_Click(t *testing.T) {
	data, fs := fixture(t)
	st := selectInto(t, fs, map[string][]string{"city": {"Ha Noi"}})

	v, err := Build(data, fs, st, defaults, Request{Click: "2"})
	require.NoError(t, err)
	assert.Equal(t, "2", v.Clicked)
	assert.Len(t, v.Features, 3)
	assert.Equal(t, []string{"City: Ha Noi", "District: Quan Ba Dinh", "Ward: Phuong Truc Bach"}, v.Header)
	// 总量卡片仍汇总全部展示单元，青年人口只计被点击单元所在区县
	assert.Equal(t, 7000.0, v.Summary.Total)
	assert.Equal(t, 6000.0, v.Summary.Urban)
	assert.Equal(t, 2500.0, v.Summary.MedianDensity)
	assert.Equal(t, 1200.0, v.Summary.Young)
	assert.Equal(t, 0.17, v.Summary.YoungShare)

	_, err = Build(data, fs, st, defaults, Request{Click: "4"})
	assert.ErrorIs(t, err, ErrUnknownAdmin)
}

func TestBuild_BadOptions(t *testing.T) {
	data, fs := fixture(t)
	st := selectInto(t, fs, nil)

	_, err := Build(data, fs, st, defaults, Request{Basemap: "Bing"})
	assert.ErrorIs(t, err, ErrUnknownBasemap)
	_, err = Build(data, fs, st, defaults, Request{Population: "households"})
	assert.ErrorIs(t, err, ErrUnknownPopulationView)
}

func TestBuild_EmptyView(t *testing.T) {
	data, fs := fixture(t)
	st := &filters.State{
		Dimensions: []string{"city", "district", "ward"},
		Selections: map[string][]string{
			"city":     {"Ha Noi"},
			"district": {},
			"ward":     {"Phuong Ben Nghe"},
		},
	}

	v, err := Build(data, fs, st, defaults, Request{})
	require.NoError(t, err)
	assert.Equal(t, "ward", v.Level)
	assert.Empty(t, v.Features)
	assert.Empty(t, v.Header)
	assert.Equal(t, Center{Lat: DefaultLat, Lon: DefaultLon}, v.Center)
	assert.Equal(t, Summary{}, v.Summary)
}
