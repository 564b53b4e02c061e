// Package output writes computed tables as tab-delimited text.
package output

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
)

// TabWriter writes rows of a fixed set of columns in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a tab-delimited writer for the given columns.
func NewTabWriter(w io.Writer, columns ...string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	return tw.WriteRow(tw.columns)
}

// WriteRow writes one line of already formatted values.
func (tw *TabWriter) WriteRow(values []string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatFloat renders v with four decimals, or "NA" when v is NaN.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}

// FormatInt renders an integer column.
func FormatInt[T int | int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

// FormatBool renders a boolean column as TRUE or FALSE.
func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func orNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}
