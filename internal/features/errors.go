package features

import "fmt"

// SchemaError reports data that does not fit the encoder's column layout.
type SchemaError struct {
	Index  int // row index, -1 when not row-specific
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "" && e.Index >= 0:
		return fmt.Sprintf("schema error at row %d, column %s: %s", e.Index, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("schema error in column %s: %s", e.Column, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("schema error at row %d: %s", e.Index, e.Reason)
	default:
		return "schema error: " + e.Reason
	}
}
