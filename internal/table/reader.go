// Package table provides header-indexed reading of delimited text tables
// (TSV and CSV) as produced by the barcode-counting and fitness pipelines.
package table

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Row is a single data line split into fields.
type Row []string

// Get returns the field at idx, or "" if idx is negative or out of range.
func (r Row) Get(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Reader reads rows from a delimited table with a header line.
type Reader struct {
	reader     *bufio.Reader
	gzipReader *gzip.Reader
	csvReader  *csv.Reader
	delim      byte
	lineNumber int
	header     []string
	index      map[string]int
}

// NewReader creates a tab-separated table reader.
// Gzip-compressed input is detected from the magic bytes.
func NewReader(r io.Reader) (*Reader, error) {
	return newReader(r, '\t')
}

// NewCSVReader creates a comma-separated table reader that honors quoted fields.
func NewCSVReader(r io.Reader) (*Reader, error) {
	return newReader(r, ',')
}

// NewReaderFor picks the delimiter from the file name: ".csv" (optionally
// gzipped) is comma-separated, everything else is tab-separated.
func NewReaderFor(name string, r io.Reader) (*Reader, error) {
	lower := strings.TrimSuffix(strings.ToLower(name), ".gz")
	if strings.HasSuffix(lower, ".csv") {
		return NewCSVReader(r)
	}
	return NewReader(r)
}

func newReader(r io.Reader, delim byte) (*Reader, error) {
	br := bufio.NewReader(r)
	t := &Reader{delim: delim}

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		t.gzipReader = gz
		br = bufio.NewReader(gz)
	}
	t.reader = br

	if err := t.parseHeader(); err != nil {
		t.Close()
		return nil, err
	}
	if delim == ',' {
		t.csvReader = csv.NewReader(t.reader)
		t.csvReader.FieldsPerRecord = -1
		t.csvReader.LazyQuotes = true
	}
	return t, nil
}

// parseHeader skips blank and comment lines and reads the header line.
func (t *Reader) parseHeader() error {
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{Line: t.lineNumber, Message: "no header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}
		t.lineNumber++

		line = strings.TrimPrefix(strings.TrimRight(line, "\r\n"), "\ufeff")
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return &ParseError{Line: t.lineNumber, Message: "no header line found"}
			}
			continue
		}

		t.header = t.split(line)
		t.index = make(map[string]int, len(t.header))
		for i, col := range t.header {
			name := strings.TrimSpace(col)
			t.header[i] = name
			if _, dup := t.index[name]; !dup {
				t.index[name] = i
			}
		}
		return nil
	}
}

func (t *Reader) split(line string) []string {
	if t.delim == ',' {
		cr := csv.NewReader(strings.NewReader(line))
		fields, err := cr.Read()
		if err == nil {
			return fields
		}
	}
	return strings.Split(line, string(t.delim))
}

// Header returns the column names in file order.
func (t *Reader) Header() []string {
	return t.header
}

// Index returns the position of the first column matching any of the given
// names (checked in order), or -1 if none is present.
func (t *Reader) Index(names ...string) int {
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			return i
		}
	}
	return -1
}

// Require is like Index but returns a ParseError naming the first alias
// when the column is missing.
func (t *Reader) Require(names ...string) (int, error) {
	if i := t.Index(names...); i >= 0 {
		return i, nil
	}
	return -1, &ParseError{
		Line:    t.lineNumber,
		Message: fmt.Sprintf("required column '%s' not found in header", names[0]),
	}
}

// Next reads the next data row. Returns nil, nil at end of input.
func (t *Reader) Next() (Row, error) {
	if t.csvReader != nil {
		return t.nextCSV()
	}
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read line %d: %w", t.lineNumber+1, err)
		}
		t.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return Row(strings.Split(line, "\t")), nil
	}
}

func (t *Reader) nextCSV() (Row, error) {
	for {
		fields, err := t.csvReader.Read()
		if err == io.EOF {
			return nil, nil
		}
		t.lineNumber++
		if err != nil {
			return nil, &ParseError{Line: t.lineNumber, Message: err.Error()}
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		return Row(fields), nil
	}
}

// LineNumber returns the number of the line most recently read.
func (t *Reader) LineNumber() int {
	return t.lineNumber
}

// Errorf builds a ParseError at the current line.
func (t *Reader) Errorf(format string, args ...any) error {
	return &ParseError{Line: t.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// Close releases the gzip reader if one was opened. It does not close the
// underlying io.Reader.
func (t *Reader) Close() error {
	if t.gzipReader != nil {
		return t.gzipReader.Close()
	}
	return nil
}

// ParseError represents an error during table parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table parse error at line %d: %s", e.Line, e.Message)
}

// IsMissing reports whether s is one of the missing-value spellings used by
// the upstream R and Perl tooling.
func IsMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NA", "NaN", "nan", "NULL", "-":
		return true
	}
	return false
}

// ParseFloat parses a numeric field, mapping missing values to NaN.
func ParseFloat(s string) (float64, error) {
	if IsMissing(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// ParseInt parses an integer field. Missing values are an error.
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
