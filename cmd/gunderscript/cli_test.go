package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it, letting tests observe sys_print output the
// same way a real CLI invocation's terminal would see it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestRunScriptPrintsLoopOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "loop.gxs")
	require.NoError(t, os.WriteFile(src, []byte(`
function exported main() {
  var i; i = 0;
  while (i < 3) { sys_print(i); i = i + 1; }
}`), 0644))

	out := captureStdout(t, func() {
		status := (&runScriptCmd{}).run("main", src)
		require.Equal(t, 0, status)
	})
	require.Equal(t, "0.0000001.0000002.000000", out)
}

func TestBuildScriptThenRunBytecodeMatchesRunScript(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ifelse.gxs")
	bc := filepath.Join(dir, "ifelse.gxb")
	require.NoError(t, os.WriteFile(src, []byte(`
function exported main() {
  if (2 == 2) { sys_print(true); } else { sys_print(false); }
}`), 0644))

	buildStatus := (&buildScriptCmd{}).run(src, bc)
	require.Equal(t, 0, buildStatus)

	scriptOut := captureStdout(t, func() {
		status := (&runScriptCmd{}).run("main", src)
		require.Equal(t, 0, status)
	})

	bytecodeOut := captureStdout(t, func() {
		status := (&runBytecodeCmd{}).run("main", bc)
		require.Equal(t, 0, status)
	})

	require.Equal(t, scriptOut, bytecodeOut)
	require.Equal(t, "true", scriptOut)
}

func TestRunScriptCompileErrorFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.gxs")
	require.NoError(t, os.WriteFile(src, []byte(`function exported main() { var x; var x; }`), 0644))

	status := (&runScriptCmd{}).run("main", src)
	require.Equal(t, 1, status)
}
