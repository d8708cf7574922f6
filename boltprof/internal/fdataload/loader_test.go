package fdataload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yandex/boltprof/boltprof/internal/xmetrics"
	"github.com/yandex/boltprof/boltprof/pkg/fdata"
	"github.com/yandex/boltprof/boltprof/pkg/xlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const lbrProfile = "1 main 10 1 main 20 0 7\n1 main 24 1 foo 0 2 50\n0 [unknown] 0 1 main 0 0 1\n0 [unknown] 0 0 [unknown] 4 0 1\n"

const noLBRProfile = "no_lbr cycles\n1 main 10 5\n1 main 14 3\n"

func newLoader(t *testing.T, opts Options) *Loader {
	t.Helper()
	l, err := NewLoader(xlog.NewNop(), xmetrics.NewRegistry(), opts)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func writeFile(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestLoadFile(t *testing.T) {
	l := newLoader(t, Options{})
	path := writeFile(t, t.TempDir(), "main.fdata", []byte(lbrProfile))

	res, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, path, res.Name)
	require.Equal(t, "lbr", res.Mode())
	require.False(t, res.Compressed)
	require.Equal(t, uint64(len(lbrProfile)), res.Size)
	require.Equal(t, xxhash.Sum64String(lbrProfile), res.Checksum)
	require.NotEqual(t, [16]byte{}, [16]byte(res.LoadID))

	d, err := res.Reader.GetFuncBranchData([]string{"main"})
	require.NoError(t, err)
	require.Equal(t, int64(1), d.ExecutionCount)

	require.Equal(t, 1.0, testutil.ToFloat64(l.metrics.files.WithLabelValues("lbr", "ok")))
	require.Equal(t, 4.0, testutil.ToFloat64(l.metrics.records.WithLabelValues("branch")))
	require.Equal(t, 1.0, testutil.ToFloat64(l.metrics.skipped.WithLabelValues("branch")))
}

func TestLoadCompressed(t *testing.T) {
	l := newLoader(t, Options{})
	path := writeFile(t, t.TempDir(), "main.fdata.zst", compress(t, []byte(noLBRProfile)))

	res, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.True(t, res.Compressed)
	require.Equal(t, "no_lbr", res.Mode())
	require.Equal(t, uint64(len(noLBRProfile)), res.Size)
	require.True(t, res.Reader.UsesEvent("cycles"))
	require.Equal(t, float64(len(noLBRProfile)), testutil.ToFloat64(l.metrics.bytes.WithLabelValues("zstd")))
}

func TestLoadForceNoLBR(t *testing.T) {
	l := newLoader(t, Options{ForceNoLBR: true})

	res, err := l.LoadBytes(context.Background(), "samples", []byte("1 main 10 5\n"))
	require.NoError(t, err)
	require.False(t, res.Reader.HasLBR())

	samples, err := res.Reader.GetFuncSampleData([]string{"main"})
	require.NoError(t, err)
	require.Equal(t, int64(5), samples.TotalHits())
}

func TestLoadMalformed(t *testing.T) {
	l := newLoader(t, Options{})

	_, err := l.LoadBytes(context.Background(), "broken", []byte("1 main 10 1 main 20 0 x\n"))
	require.ErrorIs(t, err, fdata.ErrMalformed)
	require.ErrorContains(t, err, "broken")
	require.Equal(t, 1.0, testutil.ToFloat64(l.metrics.files.WithLabelValues("lbr", "error")))

	_, err = l.LoadBytes(context.Background(), "corrupt", append([]byte{0x28, 0xb5, 0x2f, 0xfd}, "garbage"...))
	require.ErrorContains(t, err, "failed to decompress")
}

func TestLoadTooLarge(t *testing.T) {
	l := newLoader(t, Options{MaxFileSize: 16})
	dir := t.TempDir()

	_, err := l.LoadFile(context.Background(), writeFile(t, dir, "big.fdata", []byte(lbrProfile)))
	require.ErrorIs(t, err, ErrFileTooLarge)

	_, err = l.LoadFile(context.Background(), filepath.Join(dir, "missing.fdata"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAll(t *testing.T) {
	l := newLoader(t, Options{Concurrency: 3, MaxInFlightBytes: 64})
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("1 f%d 0 1 f%d 4 0 %d\n", i, i, i+1)
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("%d.fdata", i), []byte(content)))
	}

	results, err := l.LoadAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))
	for i, res := range results {
		require.Equal(t, paths[i], res.Name)
		d, err := res.Reader.GetFuncBranchData([]string{fmt.Sprintf("f%d", i)})
		require.NoError(t, err)
		require.Equal(t, int64(i+1), d.TotalBranches())
	}
	require.Equal(t, 10.0, testutil.ToFloat64(l.metrics.files.WithLabelValues("lbr", "ok")))
}

func TestLoadAllFailure(t *testing.T) {
	l := newLoader(t, Options{Concurrency: 2})
	dir := t.TempDir()

	paths := []string{
		writeFile(t, dir, "good.fdata", []byte(lbrProfile)),
		writeFile(t, dir, "bad.fdata", []byte("garbage\n")),
		writeFile(t, dir, "other.fdata", []byte(noLBRProfile)),
	}

	results, err := l.LoadAll(context.Background(), paths)
	require.Error(t, err)
	require.Nil(t, results)
}

func TestLoadFromMemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/profiles/a.fdata", []byte(lbrProfile), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/profiles/b.fdata", compress(t, []byte(noLBRProfile)), 0o644))

	l := newLoader(t, Options{FS: fs, Concurrency: 2, MaxInFlightBytes: 1})

	results, err := l.LoadAll(context.Background(), []string{"/profiles/a.fdata", "/profiles/b.fdata"})
	require.NoError(t, err)
	require.Equal(t, "lbr", results[0].Mode())
	require.Equal(t, "no_lbr", results[1].Mode())
	require.True(t, results[1].Compressed)

	_, err = l.LoadAll(context.Background(), []string{"/profiles/missing.fdata"})
	require.ErrorIs(t, err, os.ErrNotExist)
}
