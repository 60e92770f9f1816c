package importparse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// RowSource streams a tabular source's rows (header first). The §5
// guarantee — acquire a file handle and release it on every exit path — is
// met by Close, which callers must invoke via defer.
type RowSource interface {
	Header() []string
	Next() ([]string, bool, error)
	Close() error
}

// OpenDelimited opens a delimited-text source. Parsing respects quoted
// fields with embedded delimiters and line breaks, which encoding/csv
// already implements to RFC 4180.
func OpenDelimited(path string, delimiter rune) (RowSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open delimited source: %w", err)
	}
	r := csv.NewReader(f)
	r.Comma = delimiter
	r.LazyQuotes = false

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	return &csvSource{f: f, r: r, header: header}, nil
}

type csvSource struct {
	f      *os.File
	r      *csv.Reader
	header []string
}

func (s *csvSource) Header() []string { return s.header }

func (s *csvSource) Next() ([]string, bool, error) {
	row, err := s.r.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read row: %w", err)
	}
	return row, true, nil
}

func (s *csvSource) Close() error { return s.f.Close() }

// OpenSpreadsheet opens a named sheet of a spreadsheet source; row 1 is the
// header.
func OpenSpreadsheet(path, sheetName string) (RowSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx == -1 {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %q has no rows", sheetName)
	}
	return &excelSource{f: f, header: rows[0], rows: rows[1:]}, nil
}

type excelSource struct {
	f      *excelize.File
	header []string
	rows   [][]string
	pos    int
}

func (s *excelSource) Header() []string { return s.header }

func (s *excelSource) Next() ([]string, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *excelSource) Close() error { return s.f.Close() }

// cell is a defensive accessor: rows from either source may be shorter than
// the header when trailing cells were blank.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
