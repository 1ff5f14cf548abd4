package search

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/starford/perthro/internal/models"
)

// textDoc holds the lines of a plain-text artifact. Invalid UTF-8 is dropped.
type textDoc struct {
	lines []string
	lower []string
}

// maxLine bounds a single artifact line.
const maxLine = 16 << 20

func openText(path string) (document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d := &textDoc{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	sc.Split(scanLines)
	for sc.Scan() {
		line := strings.ToValidUTF8(sc.Text(), "")
		d.lines = append(d.lines, line)
		d.lower = append(d.lower, strings.ToLower(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return d, nil
}

// scanLines is a bufio.SplitFunc that ends a line at "\n", "\r\n" or a lone "\r".
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// "\r" at the buffer edge; wait to see if "\n" follows.
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Match returns up to limit 1-based line matches, stopping at the cap.
func (d *textDoc) Match(query string, limit int) ([]any, error) {
	q := strings.ToLower(query)
	var out []any
	for i, l := range d.lower {
		if !strings.Contains(l, q) {
			continue
		}
		out = append(out, models.LineMatch{LineNumber: i + 1, Content: strings.TrimSpace(d.lines[i])})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (d *textDoc) Close() error {
	d.lines, d.lower = nil, nil
	return nil
}
