package search

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// jsonDoc holds a parsed JSON document and its lowered serialization.
type jsonDoc struct {
	name    string
	data    any
	flat    string
	records bool
}

func openJSON(path string, records bool) (document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode: extra data after the top-level value")
	}

	var buf bytes.Buffer
	if err := writeSpaced(&buf, data); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}

	return &jsonDoc{
		name:    filepath.Base(path),
		data:    data,
		flat:    strings.ToLower(strings.TrimSpace(buf.String())),
		records: records,
	}, nil
}

// Match tests the query against the whole serialized document (see
// writeSpaced) and reports
// a single file-level entry. In record mode it returns the matching
// top-level records instead.
func (d *jsonDoc) Match(query string, limit int) ([]any, error) {
	q := strings.ToLower(query)
	if !strings.Contains(d.flat, q) {
		return nil, nil
	}
	if !d.records {
		return []any{"Match found in " + d.name}, nil
	}

	items, ok := d.data.([]any)
	if !ok {
		items = []any{d.data}
	}
	var out []any
	for _, rec := range items {
		if !leafContains(rec, q) {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (d *jsonDoc) Close() error {
	d.data = nil
	return nil
}

// leafContains reports whether any scalar inside v contains the lowered query.
func leafContains(v any, lowerQuery string) bool {
	switch x := v.(type) {
	case map[string]any:
		for _, child := range x {
			if leafContains(child, lowerQuery) {
				return true
			}
		}
	case []any:
		for _, child := range x {
			if leafContains(child, lowerQuery) {
				return true
			}
		}
	case string:
		return strings.Contains(strings.ToLower(x), lowerQuery)
	case json.Number:
		return strings.Contains(x.String(), lowerQuery)
	case bool:
		return strings.Contains(strconv.FormatBool(x), lowerQuery)
	}
	return false
}

// writeSpaced serializes v with ", " between items and ": " after keys.
// Object keys are written in sorted order and non-ASCII text is kept as is.
func writeSpaced(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := writeSpaced(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeSpaced(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeScalar(buf, x)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
