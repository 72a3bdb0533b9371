package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunExecutesAGraphLiteralAndPrintsOutputs(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(`{
		"inputs": {},
		"tasks": [
			{"tick": [0, 1], "kind": "const", "value": 2},
			{"tick": [0, 2], "kind": "const", "value": 3},
			{"tick": [0, 3], "kind": "binop", "op": "Add"}
		],
		"connections": [
			{"source_tick": [0, 1], "source_port": "value", "dest_tick": [0, 3], "dest_port": "left"},
			{"source_tick": [0, 2], "source_port": "value", "dest_tick": [0, 3], "dest_port": "right"},
			{"source_tick": [0, 3], "source_port": "value", "dest_tick": "final", "dest_port": "sum"}
		]
	}`), 0o644))

	stdout, restore := captureStdout(t)
	code := run([]string{"run", graphPath})
	out := restore()

	require.Equal(t, 0, code)
	var outputs map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &outputs))
	require.Contains(t, outputs, "sum")
	require.JSONEq(t, "5", string(outputs["sum"]))
	_ = stdout
}

func TestRunReportsAFailureExitCodeForAMissingGraphFile(t *testing.T) {
	_, restore := captureStdout(t)
	code := run([]string{"run", filepath.Join(t.TempDir(), "missing.json")})
	restore()
	require.Equal(t, 1, code)
}

func TestRunWithNoArgumentsReportsUsage(t *testing.T) {
	_, restore := captureStdout(t)
	code := run(nil)
	restore()
	require.Equal(t, 1, code)
}

// captureStdout redirects os.Stdout to a pipe for the duration of a test
// and returns a function that restores it and returns everything written.
func captureStdout(t *testing.T) (*os.File, func() string) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w

	return r, func() string {
		os.Stdout = old
		w.Close()
		buf := make([]byte, 64*1024)
		n, _ := r.Read(buf)
		r.Close()
		return string(buf[:n])
	}
}
