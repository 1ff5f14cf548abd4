// Package models defines the domain types for Perthro.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ScopeGlobal is the only scope currently assigned to indicators.
const ScopeGlobal = "global"

// IndicatorType identifies where an indicator came from and how it was derived.
type IndicatorType string

// Indicator types.
const (
	TypeManual        IndicatorType = "manual"
	TypeIOC           IndicatorType = "ioc"
	TypeReportFile    IndicatorType = "report_file_iocs"
	TypeReportNetwork IndicatorType = "report_network_iocs"
	TypeReportHash    IndicatorType = "report_hash_iocs"
)

// Indicator is a typed, queryable string of interest with provenance.
// Query is never empty or whitespace-only.
type Indicator struct {
	ID     string        `json:"id"`
	Source string        `json:"source"`
	Scope  string        `json:"scope"`
	Type   IndicatorType `json:"type"`
	Query  string        `json:"query"`
}

// ListedIndicator is a catalog entry after flattening. ID is re-indexed per
// group; SourceID keeps the per-file id and Origin the file path.
type ListedIndicator struct {
	ID       string        `json:"id"`
	Query    string        `json:"query"`
	Source   string        `json:"source"`
	Type     IndicatorType `json:"type"`
	Origin   string        `json:"origin"`
	SourceID string        `json:"source_id"`
}

// SourceError records a file that could not be processed.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Query is one search input: a bare query string or an indicator reference.
type Query struct {
	ID    string `json:"id,omitempty"`
	Query string `json:"query"`
}

// UnmarshalJSON accepts either a bare JSON string or an object with query
// and optional id.
func (q *Query) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		q.ID = ""
		return json.Unmarshal(data, &q.Query)
	}
	var obj struct {
		ID    json.RawMessage `json:"id"`
		Query string          `json:"query"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("query must be a string or an object: %w", err)
	}
	q.Query = obj.Query
	q.ID = rawID(obj.ID)
	return nil
}

// Queries is a search batch. Decoding keeps strings and objects with a
// non-empty query and drops every other entry.
type Queries []Query

// UnmarshalJSON decodes the batch entry by entry.
func (qs *Queries) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("queries must be an array: %w", err)
	}
	out := make(Queries, 0, len(raw))
	for _, item := range raw {
		var q Query
		if err := q.UnmarshalJSON(item); err != nil || q.Query == "" {
			continue
		}
		out = append(out, q)
	}
	*qs = out
	return nil
}

// rawID renders a string or numeric id; null and absent ids become "".
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// MatchRecord is the result of testing one query against one artifact file.
// Exactly one of Matches and Error is set.
type MatchRecord struct {
	AnomalyID string `json:"anomaly_id,omitempty"`
	Query     string `json:"query"`
	Artifact  string `json:"artifact"`
	Matches   []any  `json:"matches,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LineMatch is a plain-text match entry.
type LineMatch struct {
	LineNumber int    `json:"line_number"`
	Content    string `json:"content"`
}

// SheetRow is a spreadsheet match entry.
type SheetRow struct {
	Sheet string            `json:"sheet"`
	Row   map[string]string `json:"row"`
}

// ArtifactInfo describes a searchable artifact file.
type ArtifactInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_timestamp"`
	Checksum   string    `json:"sha256,omitempty"`
}
