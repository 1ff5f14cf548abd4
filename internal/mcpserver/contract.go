package mcpserver

// CaseLayout describes the case directory layout the tools read.
const CaseLayout = `# Perthro Case Directory Layout

A case directory (base_dir) is a plain folder of evidence:

` + "```" + `
<base_dir>/
  anomalies/   *.txt   one manual indicator per non-empty file (whole content)
  ioc/         *.txt   one indicator per non-empty line
  reports/     *.pdf   threat reports; file names, hashes and network
                       indicators are extracted from their text
  ...          *.csv, *.json, *.txt artifacts anywhere below base_dir
` + "```" + `

## Workflow

1. Call ` + "`list_anomalies`" + ` to build the indicator catalog.
2. Pass the returned ` + "`{id, query}`" + ` pairs (or plain strings) to
   ` + "`search_anomalies`" + ` as the ` + "`anomalies`" + ` argument.
3. Use ` + "`list_artifacts`" + ` to pick artifact names for ` + "`artifact_types`" + `.

## Matching

- Matching is a case-insensitive substring test.
- CSV files return matching rows as column/value maps.
- JSON files return a single "Match found in <name>" entry per file.
- Text files return ` + "`{line_number, content}`" + ` per matching line.
- At most ` + "`max_results`" + ` (default 50) matches are returned per query and file.
- A file that cannot be parsed yields an ` + "`error`" + ` entry for that query and
  file; other files are still searched.
`
