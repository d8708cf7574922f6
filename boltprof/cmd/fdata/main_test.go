package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"

	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

const lbrProfile = `1 main 10 1 main 20 0 7
1 main 24 1 foo.lto_priv.3 0 2 50
4 main 30 3 [heap] 7f00 12
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer func() {
		configPath, logLevel, forceNoLBR = "", "", false
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDumpCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.fdata", lbrProfile)

	out, err := run(t, "dump", "--log-level", "error", path)
	require.NoError(t, err)
	require.Contains(t, out, "main branches:\n")
	require.Contains(t, out, "foo.lto_priv.3 execution count: 50\n")
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.fdata", lbrProfile)
	b := writeFile(t, dir, "b.fdata", "no_lbr cycles\n1 main 10 5\n")

	out, err := run(t, "stats", "--log-level", "error", a, b)
	require.NoError(t, err)
	require.Contains(t, out, "CHECKSUM")
	require.Contains(t, out, "no_lbr")
	require.Contains(t, out, "cycles")
}

func TestLookupCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.fdata", lbrProfile)

	out, err := run(t, "lookup", "--log-level", "error", path, "foo.lto_priv.9")
	require.NoError(t, err)
	require.Contains(t, out, "foo.lto_priv.3: 0 branches in 0 edges, 1 entry edges, executed 50 times\n")

	out, err = run(t, "lookup", "--log-level", "error", path, "main")
	require.NoError(t, err)
	require.Contains(t, out, "main: 57 branches in 2 edges")
	require.Contains(t, out, "main: 12 memory events at 1 sites\n")

	_, err = run(t, "lookup", "--log-level", "error", path, "missing")
	require.ErrorIs(t, err, fdata.ErrNotFound)
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.fdata", lbrProfile)
	b := writeFile(t, dir, "b.fdata", "1 main 10 1 main 20 1 3\n")
	output := filepath.Join(dir, "merged.fdata")

	_, err := run(t, "merge", "--log-level", "error", "-o", output, a, b)
	require.NoError(t, err)

	merged, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t,
		"1 main 10 1 main 20 1 10\n1 main 24 1 foo.lto_priv.3 0 2 50\n4 main 30 3 [heap] 7f00 12\n",
		string(merged),
	)

	c := writeFile(t, dir, "c.fdata", "no_lbr\n1 main 10 5\n")
	_, err = run(t, "merge", "--log-level", "error", "-o", "-", a, c)
	require.ErrorContains(t, err, "cannot merge")
}

func TestPprofCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.fdata", lbrProfile)
	output := filepath.Join(dir, "a.pb.gz")

	_, err := run(t, "pprof", "--log-level", "error", "-o", output, path)
	require.NoError(t, err)

	file, err := os.Open(output)
	require.NoError(t, err)
	defer file.Close()

	prof, err := profile.Parse(file)
	require.NoError(t, err)
	require.Len(t, prof.Sample, 3)
}

func TestValidateConfigCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", "load:\n  concurrency: 2\n")
	bad := writeFile(t, dir, "bad.yaml", "lod: {}\n")

	out, err := run(t, "validate-config", "-c", good)
	require.NoError(t, err)
	require.Contains(t, out, "concurrency: 2\n")

	_, err = run(t, "validate-config", "-c", bad)
	require.ErrorContains(t, err, "invalid config")

	_, err = run(t, "validate-config")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
