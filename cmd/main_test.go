package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		dryRun = false
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "rag:\n  in_memory: true\n  chunk_size: 100\n  chunk_overlap: 10\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestCmd_RequiresFiles(t *testing.T) {
	_, err := execute(t, "ingest", "--config", writeConfig(t))
	assert.Error(t, err)
}

func TestIngestCmd_DryRun(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte(strings.Repeat("a", 250)), 0o644))

	_, err := execute(t, "ingest", "--config", writeConfig(t), "--dry-run", doc)
	assert.NoError(t, err)
}

func TestIngestCmd_DryRunUnsupported(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "notes.docx")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))

	_, err := execute(t, "ingest", "--config", writeConfig(t), "--dry-run", doc)
	assert.Error(t, err)
}

func TestIndexStatsCmd(t *testing.T) {
	out, err := execute(t, "index", "stats", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "0 entries")
}

func TestIndexExportCmd_EmptyIndex(t *testing.T) {
	_, err := execute(t, "index", "export", "--config", writeConfig(t), filepath.Join(t.TempDir(), "out.chromem"))
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  chunk_size: 10\n  chunk_overlap: 10\n"), 0o644))

	_, err := execute(t, "index", "stats", "--config", path)
	assert.Error(t, err)
}

func TestIndexWritersDocumentReload(t *testing.T) {
	for _, c := range []*cobra.Command{ingestCmd, indexImportCmd, serveCmd} {
		assert.Contains(t, c.Long, "SIGHUP", c.Name())
	}
}
