package features

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-ml/internal/model"
)

func record(produced, sold, price, total, dev float64, producer, grid, loc, weather string) model.Record {
	return model.Record{
		model.FieldEnergyProduced:     produced,
		model.FieldEnergySold:         sold,
		model.FieldPricePerKWh:        price,
		model.FieldTotalAmount:        total,
		model.FieldConsumptionDev:     dev,
		model.FieldProducerType:       producer,
		model.FieldGridConnectionType: grid,
		model.FieldLocationType:       loc,
		model.FieldWeatherConditions:  weather,
	}
}

func trainingRecords() []model.Record {
	return []model.Record{
		record(100, 90, 0.1, 9, -1, "wind", "direct", "urban", "normal"),
		record(200, 180, 0.2, 36, 0, "solar", "indirect", "rural", "extreme"),
		record(300, 270, 0.3, 81, 1, "hydro", "direct", "rural", "normal"),
		record(400, 360, 0.4, 144, 2, "solar", "indirect", "urban", "normal"),
	}
}

func TestFit_ColumnLayout(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)

	want := []string{
		"Energy_Produced_kWh", "Energy_Sold_kWh", "Price_per_kWh", "Total_Amount", "Energy_Consumption_Deviation",
		"Producer_Type=hydro", "Producer_Type=solar", "Producer_Type=wind",
		"Grid_Connection_Type=direct", "Grid_Connection_Type=indirect",
		"Location_Type=rural", "Location_Type=urban",
		"Weather_Conditions=extreme", "Weather_Conditions=normal",
	}
	assert.Equal(t, want, st.Columns())
	assert.Equal(t, len(want), st.Width())
	assert.InDelta(t, 250.0, st.Numeric.Mean[0], 1e-9)
}

func TestEncode_UsesFittedParameters(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)

	row, err := st.EncodeOne(record(250, 225, 0.25, 67.5, 0.5, "solar", "direct", "urban", "normal"))
	require.NoError(t, err)
	for j := 0; j < 5; j++ {
		assert.InDelta(t, 0, row[j], 1e-9, "column %d should sit at the training mean", j)
	}
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 0, 1, 0, 1}, row[5:])
}

func TestEncode_UnseenLevelKeepsWidth(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)

	row, err := st.EncodeOne(record(250, 225, 0.25, 67.5, 0.5, "geothermal", "direct", "urban", "normal"))
	require.NoError(t, err)
	assert.Len(t, row, st.Width())
	assert.Equal(t, []float64{0, 0, 0}, row[5:8])
}

func TestEncode_SingleAndBatchIdentical(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)

	recs := []model.Record{
		record(500, 480, 0.2, 96, 2, "solar", "direct", "urban", "normal"),
		record(12, 400, 0.45, 9000, -15, "wind", "indirect", "rural", "extreme"),
		record(70, 70, 0.05, 3.5, 0, "tidal", "direct", "urban", "normal"),
	}
	batch, err := st.Encode(recs)
	require.NoError(t, err)
	for i, r := range recs {
		one, err := st.EncodeOne(r)
		require.NoError(t, err)
		assert.Equal(t, batch[i], one)

		again, err := st.EncodeOne(r)
		require.NoError(t, err)
		assert.Equal(t, one, again)
	}
}

func TestEncode_BatchWithoutSomeLevelsHasSameWidth(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)

	rows, err := st.Encode([]model.Record{
		record(1, 1, 1, 1, 1, "solar", "direct", "urban", "normal"),
	})
	require.NoError(t, err)
	assert.Len(t, rows[0], st.Width())
}

func TestEncode_SchemaErrors(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)

	r := record(1, 1, 1, 1, 1, "solar", "direct", "urban", "normal")
	delete(r, model.FieldTotalAmount)
	_, err = st.Encode([]model.Record{trainingRecords()[0], r})
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, model.FieldTotalAmount, se.Column)

	r = record(1, 1, 1, 1, 1, "solar", "direct", "urban", "normal")
	r[model.FieldPricePerKWh] = "n/a"
	_, err = st.EncodeOne(r)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.FieldPricePerKWh, se.Column)

	r = record(1, 1, 1, 1, 1, "solar", "direct", "urban", "normal")
	delete(r, model.FieldLocationType)
	_, err = st.EncodeOne(r)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.FieldLocationType, se.Column)
}

func TestFit_Empty(t *testing.T) {
	_, err := Fit(FraudSchema(), nil)
	assert.Error(t, err)
}

func TestScaler_ZeroVariance(t *testing.T) {
	s, err := FitScaler([]string{"a", "b"}, [][]float64{{1, 5}, {1, 7}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Scale[0])
	assert.Equal(t, 1.0, s.Scale[1])
	require.NoError(t, s.Validate())

	out, err := s.Transform([][]float64{{1, 8}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, out[0])

	_, err = s.Transform([][]float64{{1}})
	assert.Error(t, err)
}

func TestEncoderState_ValidateRejectsUnsortedLevels(t *testing.T) {
	st, err := Fit(FraudSchema(), trainingRecords())
	require.NoError(t, err)
	require.NoError(t, st.Validate())

	st.Categorical[0].Levels = []string{"wind", "solar"}
	assert.Error(t, st.Validate())
}

func TestEnergyRow(t *testing.T) {
	row := EnergyRow(model.Conditions{
		Temperature:    10,
		Pressure:       1013,
		CloudCover:     50,
		WindSpeed:      4,
		SolarRadiation: 0,
	})
	require.Len(t, row, len(EnergyColumns))
	assert.Equal(t, []float64{0, 50, 4, 16, 10, 100, 1013, 0}, row)

	row = EnergyRow(model.Conditions{SolarRadiation: 99, CloudCover: 2})
	assert.InDelta(t, 4.60517, row[0], 1e-5)
	assert.InDelta(t, 9.21034, row[7], 1e-5)
	assert.Equal(t, fmt.Sprint(row[0]*2), fmt.Sprint(row[7]))
}
