package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	markerAt = ""

	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)

	require.NoError(t, rootCmd.ExecuteContext(t.Context()))

	return strings.TrimSpace(out.String())
}

func TestMarkerCommands(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  type: sqlite
  path: `+filepath.Join(root, "resumebot.db")+`
`), 0o644))

	assert.Equal(t, "not set", run(t, "--config", path, "marker", "get"))
	assert.Equal(t, "2024-01-02T03:04:05Z", run(t, "--config", path, "marker", "touch", "--at", "2024-01-02T03:04:05Z"))
	assert.Equal(t, "2024-01-02T03:04:05Z", run(t, "--config", path, "marker", "get"))

	run(t, "--config", path, "marker", "clear")
	assert.Equal(t, "not set", run(t, "--config", path, "marker", "get"))
}

func TestPeopleListsSources(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "resumes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "resumes", "Jane_Doe_resume.pdf"), []byte("%PDF"), 0o644))

	require.NoError(t, os.WriteFile(path, []byte(`
index:
  path: `+filepath.Join(root, "index")+`
`), 0o644))

	assert.Equal(t, "Jane Doe", run(t, "--config", path, "people"))
}
