package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"energy-ml/internal/model"
)

// LoadRecordsJSON reads a single record object or an array of records.
// Numbers are kept as json.Number so they round-trip exactly.
func LoadRecordsJSON(path string) ([]model.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []model.Record
		if err := dec.Decode(&recs); err != nil {
			return nil, fmt.Errorf("failed to parse records: %w", err)
		}
		return recs, nil
	}
	var rec model.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return []model.Record{rec}, nil
}
