package cliutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSuccessMarkerCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteSuccessMarker(dir))

	data, err := os.ReadFile(filepath.Join(dir, "success.txt"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestManifestWriteLogIncludesToolFlagsAndStages(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManifest("distmatrix", start, map[string]string{"tracts": "/a/b", "streams": "5000"})

	m.BeginStage("norm pre-pass")
	m.BeginStage("block (0,0)")
	m.EndStage()

	require.NoError(t, m.WriteLog(dir))

	data, err := os.ReadFile(filepath.Join(dir, "distmatrix_log.txt"))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "tool:     distmatrix")
	assert.Contains(t, content, m.RunID.String())
	assert.Contains(t, content, "tracts")
	assert.Contains(t, content, "/a/b")
	assert.Contains(t, content, "norm pre-pass")
	assert.Contains(t, content, "block (0,0)")
	assert.Contains(t, content, "elapsed:")
}

func TestManifestBeginStageClosesPreviousStage(t *testing.T) {
	m := NewManifest("tool", time.Now(), nil)
	m.BeginStage("first")
	m.BeginStage("second")
	require.Len(t, m.stages, 1)
	assert.Equal(t, "first", m.stages[0].Name)
	assert.Equal(t, "second", m.current.Name)
}
