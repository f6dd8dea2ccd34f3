package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/muchq/shac/go/shac/param"
)

// WriteCSV writes the dataset's tabular view: header row = parameter
// names (in schema order) + "score", one row per record in append
// order. This is the format persisted as dataset.csv.
func (d *Dataset) WriteCSV(w io.Writer) error {
	names := d.space.Names()
	cw := csv.NewWriter(w)

	header := append(append([]string{}, names...), "score")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("dataset: writing csv header: %w", err)
	}

	for _, r := range d.Snapshot() {
		row := make([]string, 0, len(names)+1)
		for _, n := range names {
			row = append(row, formatValue(r.Sample[n]))
		}
		row = append(row, strconv.FormatFloat(r.Score, 'g', -1, 64))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("dataset: writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ReadCSV rebuilds a Dataset from a dataset.csv document, validating that
// its header matches space's schema exactly (names, in order, plus a
// trailing "score" column). A mismatch is the SchemaMismatch error kind
// the caller (package checkpoint) surfaces as fatal.
func ReadCSV(r io.Reader, space *param.Space) (*Dataset, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading csv: %w", err)
	}
	if len(rows) == 0 {
		return New(space), nil
	}

	names := space.Names()
	header := rows[0]
	if len(header) != len(names)+1 {
		return nil, fmt.Errorf("dataset: csv header has %d columns, expected %d", len(header), len(names)+1)
	}
	for i, n := range names {
		if header[i] != n {
			return nil, fmt.Errorf("dataset: csv column %d is %q, expected %q", i, header[i], n)
		}
	}
	if header[len(names)] != "score" {
		return nil, fmt.Errorf("dataset: csv last column is %q, expected \"score\"", header[len(names)])
	}

	ds := New(space)
	params := space.Parameters()
	for rowIdx, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("dataset: csv row %d has %d columns, expected %d", rowIdx+1, len(row), len(header))
		}
		sample := make(param.Sample, len(names))
		for i, p := range params {
			v, err := parseValue(row[i], p)
			if err != nil {
				return nil, fmt.Errorf("dataset: csv row %d, column %q: %w", rowIdx+1, names[i], err)
			}
			sample[names[i]] = v
		}
		score, err := strconv.ParseFloat(row[len(names)], 64)
		if err != nil {
			return nil, fmt.Errorf("dataset: csv row %d: invalid score %q: %w", rowIdx+1, row[len(names)], err)
		}
		if err := ds.Append(sample, score); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func parseValue(s string, p param.Parameter) (any, error) {
	switch d := p.(type) {
	case *param.Discrete:
		switch d.ValueType() {
		case param.ValueInt:
			return strconv.ParseInt(s, 10, 64)
		case param.ValueReal:
			return strconv.ParseFloat(s, 64)
		default:
			return s, nil
		}
	default:
		return strconv.ParseFloat(s, 64)
	}
}
