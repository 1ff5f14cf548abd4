package search

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/perthro/internal/models"
)

type sheet struct {
	name   string
	header []string
	rows   [][]string
	lower  [][]string
}

// xlsxDoc is a workbook whose sheets are searched like delimited tables.
type xlsxDoc struct {
	f      *excelize.File
	sheets []sheet
}

func openXLSX(path string) (document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	d := &xlsxDoc{f: f}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		s := sheet{name: name, header: uniqueHeader(rows[0])}
		for _, r := range rows[1:] {
			s.rows = append(s.rows, r)
			s.lower = append(s.lower, lowerAll(r))
		}
		d.sheets = append(d.sheets, s)
	}
	return d, nil
}

// Match returns up to limit rows across all sheets, in sheet order.
func (d *xlsxDoc) Match(query string, limit int) ([]any, error) {
	q := strings.ToLower(query)
	var out []any
	for _, s := range d.sheets {
		for i, cells := range s.lower {
			if !rowMatches(cells, q) {
				continue
			}
			out = append(out, models.SheetRow{Sheet: s.name, Row: rowMap(s.header, s.rows[i])})
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (d *xlsxDoc) Close() error {
	d.sheets = nil
	return d.f.Close()
}
