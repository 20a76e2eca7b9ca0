package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"loandesk/ml"
)

func TestFeatureTableRoundTrip(t *testing.T) {
	content := strings.Join([]string{
		strings.Join(ml.ApplicantSchema.Columns, ","),
		"2,1,0,9600000,29900000,12,778,2400000,17600000,22700000,8000000",
		"0,0,1,4100000,12200000,8,417,2700000,2200000,8800000,3300000",
		"",
	}, "\n")

	rows, err := ReadFeatureTable(strings.NewReader(content), ml.ApplicantSchema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteFeatureTable(&buf, ml.ApplicantSchema, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != content {
		t.Fatalf("round trip changed content:\n%s\nwant:\n%s", buf.String(), content)
	}
}

func TestLabelTableRoundTrip(t *testing.T) {
	content := "loan_status\n1\n0\n0\n1\n"
	column, labels, err := ReadLabelTable(strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteLabelTable(&buf, column, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != content {
		t.Fatalf("round trip changed content:\n%s", buf.String())
	}
}

func TestReadBatchKeepsUploadedHeader(t *testing.T) {
	batch, err := ReadBatch(strings.NewReader("\ufeffloan_amount,income_annum\n5,6\n"), "upload")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Schema.Columns[0] != "loan_amount" || batch.Schema.Columns[1] != "income_annum" {
		t.Fatalf("unexpected columns: %v", batch.Schema.Columns)
	}
	if batch.Len() != 1 || batch.Rows[0][0] != 5 {
		t.Fatalf("unexpected rows: %v", batch.Rows)
	}
}

func TestReadLabelTableAcceptsWords(t *testing.T) {
	_, labels, err := ReadLabelTable(strings.NewReader("label\nLolos\nTidak Lolos\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != ml.Approved || labels[1] != ml.Rejected {
		t.Fatalf("unexpected labels: %v", labels)
	}
	if _, _, err := ReadLabelTable(strings.NewReader("")); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}
