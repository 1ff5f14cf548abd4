// Package format renders operation results as terminal or Markdown tables.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/perthro/internal/classify"
	"github.com/starford/perthro/internal/models"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps "markdown"/"md" to Markdown and anything else to ASCII.
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "markdown", "md":
		return Markdown
	default:
		return ASCII
	}
}

// matchWidth caps the rendered width of a match cell.
const matchWidth = 80

func newWriter() table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	return w
}

func render(w table.Writer, m Mode) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// Indicators renders the flattened catalog.
func Indicators(items []models.ListedIndicator, m Mode) string {
	w := newWriter()
	w.AppendHeader(table.Row{"ID", "Source", "Type", "Query", "Origin"})
	for _, it := range items {
		w.AppendRow(table.Row{it.ID, it.Source, it.Type, it.Query, it.Origin})
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: matchWidth}})
	w.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d indicators", len(items))})
	return render(w, m)
}

// SourceErrors renders per-source catalog failures.
func SourceErrors(errs []models.SourceError, m Mode) string {
	w := newWriter()
	w.AppendHeader(table.Row{"Source", "Error"})
	for _, e := range errs {
		w.AppendRow(table.Row{e.Source, e.Error})
	}
	return render(w, m)
}

// Matches renders one row per match so line numbers and rows stay readable.
func Matches(records []models.MatchRecord, m Mode) string {
	w := newWriter()
	w.AppendHeader(table.Row{"Anomaly", "Query", "Artifact", "Match"})
	for _, r := range records {
		id := r.AnomalyID
		if id == "" {
			id = "-"
		}
		if r.Error != "" {
			w.AppendRow(table.Row{id, r.Query, r.Artifact, "error: " + r.Error})
			continue
		}
		for _, match := range r.Matches {
			w.AppendRow(table.Row{id, r.Query, r.Artifact, describe(match)})
		}
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
		{Number: 4, WidthMax: matchWidth},
	})
	return render(w, m)
}

// Artifacts renders the artifact listing.
func Artifacts(items []models.ArtifactInfo, m Mode) string {
	w := newWriter()
	header := table.Row{"Name", "Path", "Size", "Modified"}
	withSum := false
	for _, it := range items {
		if it.Checksum != "" {
			withSum = true
			break
		}
	}
	if withSum {
		header = append(header, "SHA-256")
	}
	w.AppendHeader(header)

	var total int64
	for _, it := range items {
		row := table.Row{it.Name, it.Path, it.SizeBytes, it.ModifiedAt.Format("2006-01-02 15:04:05")}
		if withSum {
			row = append(row, it.Checksum)
		}
		w.AppendRow(row)
		total += it.SizeBytes
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight}})
	w.AppendFooter(table.Row{fmt.Sprintf("%d files", len(items)), "", total})
	return render(w, m)
}

// Classification renders classifier output grouped by category.
func Classification(r classify.Result, m Mode) string {
	w := newWriter()
	w.AppendHeader(table.Row{"Category", "Value"})
	for _, c := range []classify.Category{classify.CategoryFile, classify.CategoryHash, classify.CategoryNetwork} {
		for _, v := range r.Values(c) {
			w.AppendRow(table.Row{c, v})
		}
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	return render(w, m)
}

func describe(match any) string {
	switch v := match.(type) {
	case string:
		return v
	case models.LineMatch:
		return fmt.Sprintf("%d: %s", v.LineNumber, v.Content)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
