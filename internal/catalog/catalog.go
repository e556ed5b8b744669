// Package catalog loads the universe of ticker symbols and display names
// from a CSV file.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one ticker in the universe.
type Entry struct {
	Code string // exchange-local security code, e.g. "7984"
	Name string // display name
}

// Symbol returns the feed symbol for the entry, e.g. "7984.T" for the
// Tokyo venue suffix.
func (e Entry) Symbol(suffix string) string {
	return e.Code + suffix
}

// Load reads the ticker catalog from a CSV file.
// Required columns: Ticker, CompanyName. Rows with either blank are skipped.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ticker file %s: %w", path, err)
	}
	return entries, nil
}

// Parse reads catalog entries from CSV data.
func Parse(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIdx := make(map[string]int)
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range []string{"ticker", "companyname"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var entries []Entry
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to read CSV record: %w", rowNum+1, err)
		}
		rowNum++

		code := strings.TrimSpace(record[colIdx["ticker"]])
		name := strings.TrimSpace(record[colIdx["companyname"]])
		if code == "" || name == "" {
			continue
		}

		entries = append(entries, Entry{Code: code, Name: name})
	}

	return entries, nil
}

// NamesByCode builds a lookup of company name by security code.
func NamesByCode(entries []Entry) map[string]string {
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		names[e.Code] = e.Name
	}
	return names
}
