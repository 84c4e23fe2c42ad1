package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/insight"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/store"
)

type harness struct {
	t       *testing.T
	cfgPath string
	srcDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docinsight.yaml")
	yaml := fmt.Sprintf("data_dir: %q\nlog_level: error\nmax_results: 3\nmin_score: 0.05\n", filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	return &harness{t: t, cfgPath: cfgPath, srcDir: srcDir}
}

func (h *harness) file(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.srcDir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with fresh flag state and closes the app.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	collectJSON = false
	queryJSON, queryMaxResults = false, 0
	searchJSON, searchLimit = false, store.DefaultSearchLimit
	documentsJSON = false

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(append(args, "--config="+h.cfgPath))
	defer func() {
		rootCmd.SetArgs(nil)
		closeApp()
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"collect", "query", "search", "documents", "refresh", "tui", "watch", "mcp"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestCommandMetadata(t *testing.T) {
	assert.Equal(t, "collect [sources...]", collectCmd.Use)
	assert.Equal(t, "query [text]", queryCmd.Use)
	assert.Equal(t, "search [keywords]", searchCmd.Use)
	assert.Equal(t, "Start the MCP server", mcpServeCmd.Short)

	limit := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "n", limit.Shorthand)
	assert.Equal(t, "20", limit.DefValue)

	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)
}

func TestCollectCmd_RequiresSource(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("collect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestCollectThenQuery(t *testing.T) {
	h := newHarness(t)
	memo := h.file("memo.txt", "The wire transfer was approved by the controller.")

	out, err := h.run("collect", memo)
	require.NoError(t, err)
	assert.Contains(t, out, "stored")
	assert.Contains(t, out, "Collected and parsed 1 document(s).")

	out, err = h.run("collect", memo)
	require.NoError(t, err)
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "Collected and parsed 0 document(s).")

	out, err = h.run("query", "wire", "transfer")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] memo (")
	assert.Contains(t, out, "The wire transfer was approved by the controller.")

	out, err = h.run("query", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, insight.MsgNoResults)
}

func TestCollectCmd_ReportsFailures(t *testing.T) {
	h := newHarness(t)
	missing := filepath.Join(h.srcDir, "missing.txt")

	out, err := h.run("collect", missing)
	require.NoError(t, err)
	assert.Contains(t, out, "failed    "+missing)
	assert.Contains(t, out, "Collected and parsed 0 document(s).")
}

func TestCollectCmd_JSON(t *testing.T) {
	h := newHarness(t)
	memo := h.file("memo.txt", "Quarterly budget review notes.")

	out, err := h.run("collect", "--json", memo)
	require.NoError(t, err)

	var jobs []pipeline.JobSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, pipeline.StatusCompleted, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Progress.Stored)
}

func TestQueryCmd_JSONAndMaxResults(t *testing.T) {
	h := newHarness(t)
	a := h.file("a.txt", "The wire transfer was approved.")
	b := h.file("b.txt", "The wire transfer is still pending review.")
	_, err := h.run("collect", a, b)
	require.NoError(t, err)

	out, err := h.run("query", "--json", "wire transfer")
	require.NoError(t, err)
	var got queryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "wire transfer", got.Query)
	assert.Len(t, got.Insights, 2)
	assert.Empty(t, got.Message)

	out, err = h.run("query", "--json", "--max-results", "1", "wire transfer")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Insights, 1)
}

func TestQueryCmd_BlankQuery(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("query", "  ")
	require.NoError(t, err)
	assert.Contains(t, out, insight.MsgEmptyQuery)
}

func TestSearchCmd(t *testing.T) {
	h := newHarness(t)
	notes := h.file("notes.md", "# Budget\n\nThe budget was cut.\n\n# Travel\n\nTravel is frozen.\n")
	_, err := h.run("collect", notes)
	require.NoError(t, err)

	out, err := h.run("search", "BUDGET")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] notes | Budget (")
	assert.NotContains(t, out, "Travel is frozen.")

	out, err = h.run("search", "--json", "-n", "1", "e")
	require.NoError(t, err)
	var recs []doctree.SectionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	assert.Len(t, recs, 1)

	out, err = h.run("search", "nothing-like-this")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching sections.")

	_, err = h.run("search", "--limit", "0", "budget")
	assert.ErrorContains(t, err, "--limit must be at least 1")
}

func TestDocumentsAndRefresh(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("documents")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents stored.")

	memo := h.file("memo.txt", "Audit findings were reported to the board.")
	_, err = h.run("collect", memo)
	require.NoError(t, err)

	out, err = h.run("documents", "--json")
	require.NoError(t, err)
	var docs []doctree.DocumentInfo
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "memo", docs[0].Title)
	assert.Equal(t, 1, docs[0].SectionCount)

	out, err = h.run("refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Index rebuilt: 1 sections,")
}

func TestWatchCmd_RequiresDirectory(t *testing.T) {
	h := newHarness(t)
	t.Setenv("WATCH_DIR", "")
	_, err := h.run("watch")
	assert.ErrorContains(t, err, "WATCH_DIR is not set")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n b\t c", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "ünï", preview("ünï", 3))
}
