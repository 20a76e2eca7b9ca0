package ml

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrEmptyInput       = errors.New("empty input")
	ErrInvalidLabel     = errors.New("invalid label")
)

// Schema is the fixed, ordered set of numeric columns a feature table holds.
type Schema struct {
	Name    string
	Columns []string
}

var ApplicantSchema = Schema{
	Name: "applicant",
	Columns: []string{
		"no_of_dependents",
		"education",
		"self_employed",
		"income_annum",
		"loan_amount",
		"loan_term",
		"cibil_score",
		"residential_assets_value",
		"commercial_assets_value",
		"luxury_assets_value",
		"bank_asset_value",
	},
}

var IncomeLoanSchema = Schema{
	Name:    "income_loan",
	Columns: []string{"income_annum", "loan_amount"},
}

func (s Schema) Width() int {
	return len(s.Columns)
}

func (s Schema) Index(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Equal reports whether both schemas list the same columns in the same order.
func (s Schema) Equal(other []string) bool {
	if len(s.Columns) != len(other) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != other[i] {
			return false
		}
	}
	return true
}

// Check validates the row width and that encoded categorical columns hold 0 or 1.
func (s Schema) Check(row FeatureRow) error {
	if len(row) != s.Width() {
		return fmt.Errorf("%w: %s expects %d fields, got %d", ErrSchemaMismatch, s.Name, s.Width(), len(row))
	}
	for i, column := range s.Columns {
		if _, ok := categoricalEncoders[column]; ok && row[i] != 0 && row[i] != 1 {
			return fmt.Errorf("%w: %s field %s must be 0 or 1, got %v", ErrSchemaMismatch, s.Name, column, row[i])
		}
	}
	return nil
}

// Row builds a FeatureRow from named values. Every column is required.
func (s Schema) Row(values map[string]float64) (FeatureRow, error) {
	if len(values) != s.Width() {
		return nil, fmt.Errorf("%w: %s expects %d fields, got %d", ErrSchemaMismatch, s.Name, s.Width(), len(values))
	}
	row := make(FeatureRow, s.Width())
	for i, column := range s.Columns {
		v, ok := values[column]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %s", ErrSchemaMismatch, column)
		}
		row[i] = v
	}
	return row, nil
}

// SchemaByName resolves a schema from its configured name.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case ApplicantSchema.Name:
		return ApplicantSchema, nil
	case IncomeLoanSchema.Name:
		return IncomeLoanSchema, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q", name)
	}
}

// FeatureRow holds one record's values in schema order.
type FeatureRow []float64

func (r FeatureRow) Clone() FeatureRow {
	return append(FeatureRow(nil), r...)
}

// Batch is a set of rows sharing one schema.
type Batch struct {
	Schema Schema
	Rows   []FeatureRow
}

func (b Batch) Len() int {
	return len(b.Rows)
}

func (b Batch) Validate() error {
	for i, row := range b.Rows {
		if err := b.Schema.Check(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
