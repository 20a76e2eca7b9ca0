package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"loandesk/ml"
)

const byteOrderMark = "\ufeff"

// ReadFeatureTable reads a feature CSV whose header must list exactly the
// schema's columns in order.
func ReadFeatureTable(r io.Reader, schema ml.Schema) ([]ml.FeatureRow, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if !schema.Equal(header) {
		return nil, fmt.Errorf("%w: header %v does not match %s columns %v", ErrDataUnavailable, header, schema.Name, schema.Columns)
	}
	return rows, nil
}

// ReadBatch reads a feature CSV of any shape; the header becomes the batch
// schema and is checked later against whatever consumes the batch.
func ReadBatch(r io.Reader, name string) (ml.Batch, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return ml.Batch{}, err
	}
	return ml.Batch{Schema: ml.Schema{Name: name, Columns: header}, Rows: rows}, nil
}

// ReadLabelTable reads a single-column label CSV and returns its header.
func ReadLabelTable(r io.Reader) (string, []ml.Label, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return "", nil, malformed("label header", err)
	}
	if len(header) != 1 {
		return "", nil, fmt.Errorf("%w: label table has %d columns, want 1", ErrDataUnavailable, len(header))
	}
	column := strings.TrimPrefix(header[0], byteOrderMark)

	var labels []ml.Label
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, malformed("label table", err)
		}
		label, err := ml.ParseLabel(record[0])
		if err != nil {
			return "", nil, fmt.Errorf("%w: line %d: %v", ErrDataUnavailable, line, err)
		}
		labels = append(labels, label)
	}
	return column, labels, nil
}

func WriteFeatureTable(w io.Writer, schema ml.Schema, rows []ml.FeatureRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(schema.Columns); err != nil {
		return err
	}
	record := make([]string, schema.Width())
	for i, row := range rows {
		if err := schema.Check(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		for j, v := range row {
			record[j] = formatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteLabelTable(w io.Writer, column string, labels []ml.Label) error {
	if column == "" {
		column = DefaultLabelColumn
	}
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{column}); err != nil {
		return err
	}
	for _, label := range labels {
		if err := writer.Write([]string{strconv.Itoa(int(label))}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func readTable(r io.Reader) ([]string, []ml.FeatureRow, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, malformed("feature header", err)
	}
	header = append([]string(nil), header...)
	header[0] = strings.TrimPrefix(header[0], byteOrderMark)

	var rows []ml.FeatureRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, malformed("feature table", err)
		}
		row := make(ml.FeatureRow, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d column %s: %v", ErrDataUnavailable, line, header[i], err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	return reader
}

func malformed(what string, err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s missing", ErrDataUnavailable, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, what, err)
}

// formatValue writes integral values without a fraction, the way pandas
// writes integer columns.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
