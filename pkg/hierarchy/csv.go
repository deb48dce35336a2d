package hierarchy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	aerr "github.com/matzehuels/histatlas/pkg/errors"
)

// Column names of the hierarchy table.
const (
	ColIndex        = "index"
	ColName         = "name"
	ColAbbreviation = "abbreviation"
	ColHasSides     = "hasSides"
	ColFunction     = "function"
)

// ReadCSV parses a hierarchy table with a header row.
//
// Columns are located by header name, so their order does not matter and
// unknown columns are ignored. Every field is trimmed; hasSides is true only
// for "Y". The index and name columns are required.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, aerr.New(aerr.ErrCodeInvalidHierarchy, "empty hierarchy table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColIndex, ColName} {
		if _, ok := cols[required]; !ok {
			return nil, aerr.New(aerr.ErrCodeInvalidHierarchy, "missing %q column", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, Row{
			Index:        field(rec, ColIndex),
			Name:         field(rec, ColName),
			Abbreviation: field(rec, ColAbbreviation),
			HasSides:     field(rec, ColHasSides) == "Y",
			Function:     field(rec, ColFunction),
		})
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
