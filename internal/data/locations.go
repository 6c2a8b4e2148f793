package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"energy-ml/internal/model"
)

// DefaultLocation is used when a city is not in the lookup table.
var DefaultLocation = City{Name: "Paris", Coordinates: model.Coordinates{Lat: 48.8588443, Lon: 2.2943506}}

// City is one row of the lookup table.
type City struct {
	Name string
	model.Coordinates
}

// CityTable maps city names to coordinates.
type CityTable struct {
	byName   map[string]City
	folded   map[string]City
	fallback City
}

// NewCityTable builds a table from cities; fallback answers unknown names.
func NewCityTable(cities []City, fallback City) *CityTable {
	t := &CityTable{
		byName:   make(map[string]City, len(cities)),
		folded:   make(map[string]City, len(cities)),
		fallback: fallback,
	}
	for _, c := range cities {
		// First occurrence wins, like a row filter taking iloc[0].
		if _, ok := t.byName[c.Name]; !ok {
			t.byName[c.Name] = c
		}
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if _, ok := t.folded[key]; !ok {
			t.folded[key] = c
		}
	}
	return t
}

// LoadCityTable reads a CSV with at least "city", "lat" and "lng" columns.
// A missing file yields an empty table, so every lookup uses the fallback.
func LoadCityTable(path string, fallback City) (*CityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCityTable(nil, fallback), nil
		}
		return nil, fmt.Errorf("failed to open cities file: %w", err)
	}
	defer f.Close()

	cities, err := ReadCities(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cities file: %w", err)
	}
	return NewCityTable(cities, fallback), nil
}

// ReadCities parses city rows from CSV.
func ReadCities(r io.Reader) ([]City, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	cols := indexHeader(header)
	for _, c := range []string{"city", "lat", "lng"} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing column %s", c)
		}
	}

	var out []City
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(c string) string {
			if i := cols[c]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		lat, err := strconv.ParseFloat(get("lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d lat: %w", line, err)
		}
		lon, err := strconv.ParseFloat(get("lng"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d lng: %w", line, err)
		}
		out = append(out, City{Name: get("city"), Coordinates: model.Coordinates{Lat: lat, Lon: lon}})
	}
}

// Lookup returns the coordinates for name. found is false when the
// fallback location was used.
func (t *CityTable) Lookup(name string) (City, bool) {
	if c, ok := t.byName[name]; ok {
		return c, true
	}
	if c, ok := t.folded[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c, true
	}
	return t.fallback, false
}

// Len is the number of distinct city names.
func (t *CityTable) Len() int { return len(t.byName) }
