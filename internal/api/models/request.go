package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EnergyRequest is the body of POST /predict_energy. The web form sends
// area and unit as strings, API clients send numbers; both are accepted.
type EnergyRequest struct {
	Location string  `json:"location"`
	Area     *Number `json:"area"`
	Unit     *Number `json:"unit"`
}

// Number is a float that may be encoded as a JSON number or a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("empty string is not a number")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%s is not a number", b)
	}
	*n = Number(f)
	return nil
}

// ModelQuery selects a model family on the info and retrain endpoints.
type ModelQuery struct {
	Model string `form:"model"`
}
