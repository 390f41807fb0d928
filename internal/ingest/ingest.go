package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"careerscan-engine/internal/domain"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrMissingColumn     = errors.New("missing required column")
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// required header names, matched case-insensitively
const (
	colID      = "id"
	colName    = "name"
	colDomains = "domains"
)

// FormatFromName picks the input format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

func ReadFile(path string) ([]domain.Organization, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, format)
}

// Read parses a table with id, name and domains columns into organizations,
// in row order. A domains cell that cannot be parsed yields an organization
// with no domains rather than an error.
func Read(r io.Reader, format Format) ([]domain.Organization, error) {
	var records [][]string
	var err error
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func fromRecords(records [][]string) ([]domain.Organization, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
	}

	idx := map[string]int{}
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, c := range []string{colID, colName, colDomains} {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}

	cell := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	orgs := make([]domain.Organization, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		orgs = append(orgs, domain.Organization{
			ID:      strings.TrimSpace(cell(rec, colID)),
			Name:    strings.TrimSpace(cell(rec, colName)),
			Domains: ParseDomains(cell(rec, colDomains)),
		})
	}
	return orgs, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseDomains decodes a list cell written with single quotes, e.g.
// ['example.com', 'example.org']. Anything that is not a list of strings
// yields an empty slice.
func ParseDomains(cell string) []string {
	var out []string
	if err := json.Unmarshal([]byte(strings.ReplaceAll(cell, "'", `"`)), &out); err != nil {
		return []string{}
	}
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	if out == nil {
		return []string{}
	}
	return out
}
