// Package csvfile reads and writes the delimited tabular files both
// pipelines consume and produce: raw feed snapshots, and the cleaned
// case/policy tables with their leading index column.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/covid-policy-etl/internal/domain"
)

// Row is one data row with fields keyed by header name. Line is the
// 1-based line number in the source file, for error reporting.
type Row struct {
	Line   int
	fields map[string]string
}

// Get returns the trimmed value of the named column, or "" if absent.
func (r Row) Get(col string) string {
	return r.fields[col]
}

// Table is a parsed delimited file: an ordered header plus data rows.
type Table struct {
	Header []string
	Rows   []Row
}

// NewTable builds an in-memory table from a header and records, mirroring
// what ReadTable would produce for the equivalent file. Used by tests and
// by the acquisition adapter when converting API responses.
func NewTable(header []string, records [][]string) Table {
	t := Table{Header: header}
	for i, rec := range records {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(rec) {
				fields[h] = strings.TrimSpace(rec[j])
			}
		}
		t.Rows = append(t.Rows, Row{Line: i + 2, fields: fields})
	}
	return t
}

// Require verifies that every named column exists in the header, returning a
// MissingFieldError for the first absent one.
func (t Table) Require(dataset string, cols ...string) error {
	present := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		present[h] = true
	}
	for _, c := range cols {
		if !present[c] {
			return &domain.MissingFieldError{Dataset: dataset, Field: c}
		}
	}
	return nil
}

// ReadTable parses a delimited file into a Table. Header cells are trimmed
// and a UTF-8 BOM on the first cell is stripped. Rows may be ragged; short
// rows simply lack the trailing columns.
func ReadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("read %s: empty file", path)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return NewTable(header, records[1:]), nil
}

// WriteTable writes a header and records to path, creating parent
// directories as needed. The write is total: any existing file is replaced.
func WriteTable(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
