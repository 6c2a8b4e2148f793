package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names of an energy transaction record.
// Keep these values stable; they are the JSON keys clients send.
const (
	FieldEnergyProduced     = "Energy_Produced_kWh"
	FieldEnergySold         = "Energy_Sold_kWh"
	FieldPricePerKWh        = "Price_per_kWh"
	FieldTotalAmount        = "Total_Amount"
	FieldConsumptionDev     = "Energy_Consumption_Deviation"
	FieldProducerType       = "Producer_Type"
	FieldGridConnectionType = "Grid_Connection_Type"
	FieldLocationType       = "Location_Type"
	FieldWeatherConditions  = "Weather_Conditions"
)

// NumericFields are standardized by the encoder, in this order.
var NumericFields = []string{
	FieldEnergyProduced,
	FieldEnergySold,
	FieldPricePerKWh,
	FieldTotalAmount,
	FieldConsumptionDev,
}

// CategoricalFields are one-hot expanded by the encoder, in this order.
var CategoricalFields = []string{
	FieldProducerType,
	FieldGridConnectionType,
	FieldLocationType,
	FieldWeatherConditions,
}

// RequiredFields returns every field a record must carry, in validation order.
func RequiredFields() []string {
	out := make([]string, 0, len(NumericFields)+len(CategoricalFields))
	out = append(out, NumericFields...)
	return append(out, CategoricalFields...)
}

// Record is one raw transaction as decoded from JSON.
type Record map[string]any

// Validate checks that every required field is present and that numeric
// fields parse. Categorical fields must be strings or numbers. It stops at
// the first problem, in RequiredFields order.
func (r Record) Validate() error {
	for _, f := range RequiredFields() {
		if _, ok := r[f]; !ok {
			return &ValidationError{Index: -1, Field: f, Reason: ReasonMissing}
		}
	}
	for _, f := range NumericFields {
		if _, ok := ToFloat(r[f]); !ok {
			return &ValidationError{Index: -1, Field: f, Reason: ReasonNotNumeric}
		}
	}
	for _, f := range CategoricalFields {
		v := r[f]
		if v == nil {
			return &ValidationError{Index: -1, Field: f, Reason: ReasonNull}
		}
		if !isLevel(v) {
			return &ValidationError{Index: -1, Field: f, Reason: ReasonInvalid}
		}
	}
	return nil
}

// isLevel reports whether v can name a categorical level. Objects, arrays
// and booleans cannot.
func isLevel(v any) bool {
	switch v.(type) {
	case string, json.Number, float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	default:
		return false
	}
}

// Float returns a numeric field coerced to float64.
func (r Record) Float(field string) (float64, error) {
	v, ok := r[field]
	if !ok {
		return 0, fmt.Errorf("field %s missing", field)
	}
	f, ok := ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("field %s: cannot parse %v as a number", field, v)
	}
	return f, nil
}

// Category returns a categorical field as a string level.
func (r Record) Category(field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", fmt.Errorf("field %s missing", field)
	}
	if v == nil {
		return "", fmt.Errorf("field %s is null", field)
	}
	return ToLevel(v), nil
}

// ToFloat coerces JSON-decoded values to float64. Strings are accepted when
// they parse as a number; booleans and nulls are not. NaN and Inf are rejected.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToLevel renders a categorical value as the string used for one-hot lookup.
func ToLevel(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
