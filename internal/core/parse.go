package core

// parse.go turns uploaded file bytes into ordered raw records.
//
// Two formats are accepted: delimited text (.csv) and spreadsheets (.xlsx).
// Both paths produce the same []RawRecord shape so normalization never has
// to care where the data came from. CSV parsing is deliberately lenient:
// lazy quotes, uneven record lengths, and invalid UTF-8 are all tolerated,
// because real exports from CRMs are rarely clean.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// MaxFileSize is the maximum allowed upload size (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

// ParseUpload parses an uploaded file into raw records based on its
// extension. The first non-empty row supplies the keys; subsequent rows
// become values keyed by those names. Cells beyond the header width are
// dropped, missing cells become empty strings.
func ParseUpload(fileName string, data []byte) ([]RawRecord, error) {
	if int64(len(data)) > MaxFileSize {
		return nil, fmt.Errorf("file too large: exceeds %dMB limit", MaxFileSize/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		records, err := parseCSV(sanitizeUTF8(data))
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		return recordsFromRows(records), nil
	case ".xlsx":
		rows, err := parseXLSX(data)
		if err != nil {
			return nil, err
		}
		return recordsFromRows(rows), nil
	default:
		return nil, &UnsupportedFileTypeError{Ext: ext}
	}
}

// parseCSV reads the whole file with a lenient reader configuration.
func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// parseXLSX reads the first sheet of a spreadsheet into string rows.
func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyDataset
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// recordsFromRows converts raw string rows into keyed records. The header
// is the first non-empty row; leading blank rows are skipped. Rows that
// are entirely empty are dropped.
func recordsFromRows(rows [][]string) []RawRecord {
	start := 0
	for start < len(rows) && isEmptyRow(rows[start]) {
		start++
	}
	rows = rows[start:]
	if len(rows) == 0 {
		return nil
	}

	header := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		header = append(header, CleanCell(h))
	}

	var records []RawRecord
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rec := RawRecord{
			Keys:   header,
			Values: make(map[string]string, len(header)),
		}
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(row) {
				rec.Values[key] = strings.TrimSpace(row[i])
			} else {
				rec.Values[key] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// CleanCell removes common artifacts from a cell value: surrounding
// whitespace, Excel formula prefixes (="..."), and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	s = strings.TrimPrefix(s, "\uFEFF")

	return strings.TrimSpace(s)
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement character so the CSV reader never chokes on bad encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
