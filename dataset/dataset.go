package dataset

import (
	"errors"
	"fmt"

	"loandesk/ml"
)

var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownDataset  = errors.New("unknown dataset")
)

const DefaultLabelColumn = "loan_status"

// Dataset is a feature table and its label table. Row i of Rows and
// Labels describe the same record.
type Dataset struct {
	Name        string          `json:"name"`
	Schema      ml.Schema       `json:"-"`
	LabelColumn string          `json:"label_column"`
	Rows        []ml.FeatureRow `json:"rows"`
	Labels      []ml.Label      `json:"labels"`
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

func (d *Dataset) Row(index int) (ml.FeatureRow, ml.Label, error) {
	if index < 0 || index >= d.Len() {
		return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, d.Len())
	}
	return d.Rows[index].Clone(), d.Labels[index], nil
}

func (d *Dataset) Batch() ml.Batch {
	return ml.Batch{Schema: d.Schema, Rows: d.Rows}
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := *d
	out.Rows = make([]ml.FeatureRow, len(d.Rows))
	for i, row := range d.Rows {
		out.Rows[i] = row.Clone()
	}
	out.Labels = append([]ml.Label(nil), d.Labels...)
	return &out
}

func (d *Dataset) withAppended(row ml.FeatureRow, label ml.Label) *Dataset {
	out := *d
	out.Rows = make([]ml.FeatureRow, len(d.Rows), len(d.Rows)+1)
	copy(out.Rows, d.Rows)
	out.Rows = append(out.Rows, row.Clone())
	out.Labels = make([]ml.Label, len(d.Labels), len(d.Labels)+1)
	copy(out.Labels, d.Labels)
	out.Labels = append(out.Labels, label)
	return &out
}

func (d *Dataset) withRemoved(index int) (*Dataset, error) {
	if index < 0 || index >= d.Len() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, d.Len())
	}
	out := *d
	out.Rows = make([]ml.FeatureRow, 0, len(d.Rows)-1)
	out.Rows = append(out.Rows, d.Rows[:index]...)
	out.Rows = append(out.Rows, d.Rows[index+1:]...)
	out.Labels = make([]ml.Label, 0, len(d.Labels)-1)
	out.Labels = append(out.Labels, d.Labels[:index]...)
	out.Labels = append(out.Labels, d.Labels[index+1:]...)
	return &out, nil
}
