package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"demographic-map/internal/population"
)

var (
	ErrUnknownBasemap        = errors.New("unknown basemap")
	ErrUnknownPopulationView = errors.New("unknown population view")
)

// Basemap：底图名称与瓦片标识
type Basemap struct {
	Name  string `json:"name"`
	Tiles string `json:"tiles"`
}

// Basemaps：可选底图（固定枚举，顺序即界面顺序，第一个为默认）
var Basemaps = []Basemap{
	{Name: "CartoDB", Tiles: "CartoDB.Positron"},
	{Name: "Google Map", Tiles: "ROADMAP"},
	{Name: "OpenStreetMap", Tiles: "OpenStreetMap"},
	{Name: "Bus Map", Tiles: "OPNVKarte"},
	{Name: "ESRI Street Map", Tiles: "Esri.WorldStreetMap"},
	{Name: "Google Satellite", Tiles: "SATELLITE"},
	{Name: "Google Satellite with POIs", Tiles: "HYBRID"},
	{Name: "Google Terrain", Tiles: "TERRAIN"},
}

// LookupBasemap：按名称查找底图，大小写不敏感
func LookupBasemap(name string) (Basemap, error) {
	for _, b := range Basemaps {
		if strings.EqualFold(b.Name, strings.TrimSpace(name)) {
			return b, nil
		}
	}
	return Basemap{}, fmt.Errorf("%w: %q", ErrUnknownBasemap, name)
}

// PopulationView：地图着色所用的人口指标
type PopulationView struct {
	Name   string `json:"name"`
	Column string `json:"column"`
}

var PopulationViews = []PopulationView{
	{Name: "Total Population", Column: population.ColTotal},
	{Name: "Population Density", Column: population.ColDensity},
}

// LookupPopulationView：名称或列名均可
func LookupPopulationView(s string) (PopulationView, error) {
	s = strings.TrimSpace(s)
	for _, p := range PopulationViews {
		if strings.EqualFold(p.Name, s) || p.Column == s {
			return p, nil
		}
	}
	return PopulationView{}, fmt.Errorf("%w: %q", ErrUnknownPopulationView, s)
}
