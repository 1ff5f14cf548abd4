package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/perthro/internal/investigation"
)

func caseDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"ioc/feed.txt":       "evil.example.com\n",
		"logs/dns.txt":       "query evil.example.com A\nquery good.example.org A\n",
		"logs/prefetch.csv":  "host,file\nws01,EVIL.DLL\n",
		"anomalies/note.txt": "EVIL.DLL loaded from temp",
	}
	for rel, body := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)
	base := []string{"perthro", "--config", filepath.Join(t.TempDir(), "absent.yaml")}
	err := app.Run(context.Background(), append(base, args...))
	return out.String(), err
}

func TestIndicatorsJSON(t *testing.T) {
	dir := caseDir(t)
	out, err := runApp(t, "", "--base-dir", dir, "indicators", "--json")
	require.NoError(t, err)

	var res investigation.IndicatorsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Len(t, res.Anomalies, 2)
	assert.Equal(t, "manual_0", res.Anomalies[0].ID)
	assert.Equal(t, "ioc_0", res.Anomalies[1].ID)
}

func TestSearchCatalogJSON(t *testing.T) {
	dir := caseDir(t)
	out, err := runApp(t, "", "--base-dir", dir, "search", "--catalog", "--artifact", "dns.txt", "--json")
	require.NoError(t, err)

	var res investigation.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "ioc_0", res.Results[0].AnomalyID)
	assert.Len(t, res.Results[0].Matches, 1)
}

func TestSearchTable(t *testing.T) {
	dir := caseDir(t)
	out, err := runApp(t, "", "--base-dir", dir, "search", "--artifact", "prefetch.csv", "evil.dll")
	require.NoError(t, err)
	assert.Contains(t, out, "EVIL.DLL")
	assert.Contains(t, out, "prefetch.csv")
}

func TestSearchRequiresQueries(t *testing.T) {
	dir := caseDir(t)
	_, err := runApp(t, "", "--base-dir", dir, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no queries")
}

func TestArtifactsMissingBaseDir(t *testing.T) {
	dir := caseDir(t)
	out, err := runApp(t, "", "--base-dir", filepath.Join(dir, "gone"), "artifacts", "--json")
	require.Error(t, err)
	assert.Contains(t, out, `"success": false`)
}

func TestClassifyFromStdin(t *testing.T) {
	out, err := runApp(t, "beacon.ps1 talked to 192.168.1.20", "classify", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "beacon.ps1")
	assert.Contains(t, out, "192.168.1.20")
	assert.Contains(t, out, "| ")
}
