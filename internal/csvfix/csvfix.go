// Package csvfix inspects and normalises the column count of CSV files.
package csvfix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// Columns returns the number of fields in the first record of r, or 0 when r
// holds no records.
func Columns(r io.Reader) (int, error) {
	rec, err := newReader(r).Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(rec), nil
}

// Pad copies every record from r to w with exactly n fields: short records
// are padded with empty fields and long ones truncated. It returns the number
// of records written.
func Pad(r io.Reader, w io.Writer, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("column count must not be negative, got %d", n)
	}

	cr := newReader(r)
	cw := csv.NewWriter(w)
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, err
		}
		if err := cw.Write(Fit(rec, n)); err != nil {
			return rows, err
		}
		rows++
	}
	cw.Flush()
	return rows, cw.Error()
}

// Fit returns rec resized to exactly n fields.
func Fit(rec []string, n int) []string {
	if len(rec) >= n {
		return rec[:n]
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}
