package bclconvert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// table is a CSV report with a header row.
type table struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readTable(name string, r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty report", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t := &table{name: name, columns: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		t.columns[col] = i
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if blank(rec) {
			continue
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

func (t *table) has(col string) bool {
	_, ok := t.columns[col]
	return ok
}

// str returns the trimmed field of row in col, or "" when the row is short.
func (t *table) str(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) integer(line int, row []string, col string) (int64, error) {
	raw := t.str(row, col)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// some BCL Convert versions write counts as floats ("1234.0")
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%s row %d: column %s: invalid integer %q", t.name, line, col, raw)
		}
		return int64(f), nil
	}
	return v, nil
}

func (t *table) lane(line int, row []string) (int, error) {
	v, err := t.integer(line, row, "Lane")
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
