package search

import (
	"fmt"
	"strconv"
	"strings"
)

// document is a parsed artifact owned by a single worker. Match may be
// called once per query; Close releases whatever the loader acquired.
type document interface {
	Match(query string, limit int) ([]any, error)
	Close() error
}

type opener func(path string) (document, error)

// uniqueHeader names columns the way analysts expect from spreadsheet tools:
// blank names become "Unnamed: i" and repeats get a ".n" suffix.
func uniqueHeader(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	count := make(map[string]int, len(raw))
	for i, name := range raw {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for used[candidate] {
			count[name]++
			candidate = fmt.Sprintf("%s.%d", name, count[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// rowMap pairs header names with cell values; short rows get empty cells.
func rowMap(header, cells []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(cells) {
			row[name] = cells[i]
		} else {
			row[name] = ""
		}
	}
	return row
}

// rowMatches reports whether any cell contains the lowered query.
func rowMatches(lowerCells []string, lowerQuery string) bool {
	for _, cell := range lowerCells {
		if strings.Contains(cell, lowerQuery) {
			return true
		}
	}
	return false
}

func lowerAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(c)
	}
	return out
}
