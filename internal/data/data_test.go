package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-ml/internal/features"
	"energy-ml/internal/model"
)

func TestSyntheticFraud_Deterministic(t *testing.T) {
	a, err := NewSyntheticFraud().FraudDataset(context.Background())
	require.NoError(t, err)
	b, err := NewSyntheticFraud().FraudDataset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Records, 1000)
	require.NoError(t, a.Validate())
}

func TestSyntheticFraud_FraudRate(t *testing.T) {
	ds, err := (&SyntheticFraud{Samples: 2000, Seed: 7, FraudRate: 0.1}).FraudDataset(context.Background())
	require.NoError(t, err)

	frauds := 0
	for _, l := range ds.Labels {
		frauds += l
	}
	rate := float64(frauds) / float64(len(ds.Labels))
	assert.InDelta(t, 0.1, rate, 0.03)
}

func TestSyntheticFraud_PlantedSignal(t *testing.T) {
	ds, err := NewSyntheticFraud().FraudDataset(context.Background())
	require.NoError(t, err)

	for i, rec := range ds.Records {
		produced, _ := rec.Float(model.FieldEnergyProduced)
		sold, _ := rec.Float(model.FieldEnergySold)
		if ds.Labels[i] == 0 {
			assert.LessOrEqual(t, sold, produced+0.01, "row %d", i)
		} else {
			assert.Greater(t, sold, produced, "row %d", i)
		}
	}
}

func TestSyntheticFraud_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSyntheticFraud().FraudDataset(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyntheticEnergy_Shape(t *testing.T) {
	ds, err := (&SyntheticEnergy{Samples: 50, Seed: 1}).EnergyDataset(context.Background())
	require.NoError(t, err)

	require.Len(t, ds.X, 50)
	for i := range ds.X {
		assert.Len(t, ds.X[i], len(features.EnergyColumns))
		assert.GreaterOrEqual(t, ds.Solar[i], 0.0)
		assert.GreaterOrEqual(t, ds.Wind[i], 0.0)
	}
}

func TestFraudCSV_RoundTrip(t *testing.T) {
	ds, err := (&SyntheticFraud{Samples: 25, Seed: 3, FraudRate: 0.3}).FraudDataset(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "fraud.csv")
	require.NoError(t, WriteFraudCSV(path, ds))

	got, err := (&CSVFraud{Path: path}).FraudDataset(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Records, 25)
	assert.Equal(t, ds.Labels, got.Labels)
	for i := range ds.Records {
		for _, f := range model.NumericFields {
			want, _ := ds.Records[i].Float(f)
			have, _ := got.Records[i].Float(f)
			assert.Equal(t, want, have, "row %d field %s", i, f)
		}
		for _, f := range model.CategoricalFields {
			assert.Equal(t, ds.Records[i][f], got.Records[i][f])
		}
	}
}

func TestReadFraudCSV_MissingColumn(t *testing.T) {
	_, err := ReadFraudCSV(context.Background(), strings.NewReader("Energy_Produced_kWh,fraud\n1,0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestReadFraudCSV_BadLabel(t *testing.T) {
	header := strings.Join(append(model.RequiredFields(), FraudLabel), ",")
	row := "1,1,0.1,0.1,0,solar,direct,urban,normal,maybe"
	_, err := ReadFraudCSV(context.Background(), strings.NewReader(header+"\n"+row+"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fraud label")
}

func TestReadEnergyCSV(t *testing.T) {
	in := "a,b,c,d,e,f,g,h,solar,wind\n" +
		"1,2,3,4,5,6,7,8,9,10\n" +
		"0,0,0,0,0,0,0,0,0.5,1.5\n"
	ds, err := ReadEnergyCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, ds.X, 2)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, ds.X[0])
	assert.Equal(t, []float64{9, 0.5}, ds.Solar)
	assert.Equal(t, []float64{10, 1.5}, ds.Wind)
}

func TestReadEnergyCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no rows", "a,b,c,d,e,f,g,h,s,w\n"},
		{"short row", "h\n1,2,3\n"},
		{"not a number", "h,h,h,h,h,h,h,h,h,h\n1,2,3,4,5,6,7,x,9,10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEnergyCSV(context.Background(), strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestCityTable_Lookup(t *testing.T) {
	cities, err := ReadCities(strings.NewReader("city,lat,lng,country\nLyon,45.76,4.84,FR\nBerlin,52.52,13.40,DE\nLyon,0,0,XX\n"))
	require.NoError(t, err)
	table := NewCityTable(cities, DefaultLocation)
	assert.Equal(t, 2, table.Len())

	c, ok := table.Lookup("Lyon")
	assert.True(t, ok)
	assert.Equal(t, 45.76, c.Lat)

	c, ok = table.Lookup("  berlin ")
	assert.True(t, ok)
	assert.Equal(t, 13.40, c.Lon)

	c, ok = table.Lookup("Atlantis")
	assert.False(t, ok)
	assert.Equal(t, DefaultLocation, c)
}

func TestLoadCityTable_MissingFile(t *testing.T) {
	table, err := LoadCityTable(filepath.Join(t.TempDir(), "nope.csv"), DefaultLocation)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	c, ok := table.Lookup("Paris")
	assert.False(t, ok)
	assert.Equal(t, 48.8588443, c.Lat)
}

func TestReadCities_MissingColumn(t *testing.T) {
	_, err := ReadCities(strings.NewReader("city,lat\nLyon,45\n"))
	assert.Error(t, err)
}

func TestConditionsCache(t *testing.T) {
	c := NewConditionsCache(time.Minute)
	defer c.Close()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	cond := model.Conditions{Temperature: 21}
	c.Set(CacheKey(1, 2), cond)

	got, ok := c.Get(CacheKey(1.00001, 2.00001))
	assert.True(t, ok)
	assert.Equal(t, cond, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(CacheKey(1, 2))
	assert.False(t, ok)

	c.evictExpired()
	assert.Empty(t, c.store)
}

func TestConditionsCache_Nil(t *testing.T) {
	c := NewConditionsCache(0)
	assert.Nil(t, c)

	c.Set("k", model.Conditions{})
	_, ok := c.Get("k")
	assert.False(t, ok)
	c.Clear()
	c.Close()
}

func TestLoadRecordsJSON(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "one.json")
	many := filepath.Join(dir, "many.json")
	require.NoError(t, os.WriteFile(single, []byte(`{"Energy_Produced_kWh": 1.5, "Producer_Type": "solar"}`), 0o644))
	require.NoError(t, os.WriteFile(many, []byte(` [{"Energy_Sold_kWh": 2}, {"Energy_Sold_kWh": "3"}]`), 0o644))

	recs, err := LoadRecordsJSON(single)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v, ok := model.ToFloat(recs[0][model.FieldEnergyProduced])
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	recs, err = LoadRecordsJSON(many)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = LoadRecordsJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
