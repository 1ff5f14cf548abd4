package search

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var errEmptyTable = errors.New("no columns to parse from file")

// csvDoc is a fully loaded delimited table. The first record is the header.
type csvDoc struct {
	header []string
	rows   [][]string
	lower  [][]string
}

func openCSV(path string) (document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	// Command-line columns in exported event logs carry bare quotes.
	r.LazyQuotes = true

	head, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	d := &csvDoc{header: uniqueHeader(head)}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		if len(rec) > len(d.header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("tokenizing data: expected %d fields in line %d, saw %d", len(d.header), line, len(rec))
		}
		d.rows = append(d.rows, rec)
		d.lower = append(d.lower, lowerAll(rec))
	}
	return d, nil
}

// Match returns up to limit rows in which any cell contains query,
// ignoring case. Each row is a column-name to value mapping.
func (d *csvDoc) Match(query string, limit int) ([]any, error) {
	q := strings.ToLower(query)
	var out []any
	for i, cells := range d.lower {
		if !rowMatches(cells, q) {
			continue
		}
		out = append(out, rowMap(d.header, d.rows[i]))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (d *csvDoc) Close() error {
	d.rows, d.lower = nil, nil
	return nil
}
