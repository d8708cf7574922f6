package pprofexport

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"

	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

func parse(t *testing.T, input string) *fdata.Profile {
	t.Helper()
	r := fdata.NewReader([]byte(input), nil)
	require.NoError(t, r.Parse())
	return r.Profile()
}

func sampleTypes(p *profile.Profile) []string {
	var res []string
	for _, st := range p.SampleType {
		res = append(res, st.Type)
	}
	return res
}

func TestConvertLBR(t *testing.T) {
	p := parse(t, "1 main 10 1 main 20 1 7\n1 main 24 1 foo 0 2 50\n1 main 30 0 /lib/libc.so 100 0 3\n4 main 30 3 [heap] 7f00 12\n")

	prof, err := Convert(p)
	require.NoError(t, err)
	require.Equal(t, []string{"branches", "mispredicts", "mem-loads"}, sampleTypes(prof))
	require.Len(t, prof.Sample, 4)
	require.Len(t, prof.Function, 2)
	require.Len(t, prof.Mapping, 2)

	call := prof.Sample[1]
	require.Equal(t, []int64{50, 2, 0}, call.Value)
	require.Equal(t, []string{"call"}, call.Label["kind"])
	require.Equal(t, "foo", call.Location[0].Line[0].Function.Name)
	require.Equal(t, "main", call.Location[1].Line[0].Function.Name)
	require.Equal(t, uint64(0x24), call.Location[1].Address)

	mem := prof.Sample[3]
	require.Equal(t, []int64{0, 0, 12}, mem.Value)
	require.Equal(t, "[heap]", mem.Location[0].Mapping.File)
	require.Equal(t, uint64(0x7f00), mem.Location[0].Address)
}

func TestConvertNoLBR(t *testing.T) {
	p := parse(t, "no_lbr cycles\n1 main 10 5\n1 main 10 3\n1 foo 4 1\n")

	prof, err := Convert(p)
	require.NoError(t, err)
	require.Equal(t, []string{"samples", "mem-loads"}, sampleTypes(prof))
	require.Equal(t, []string{"event: cycles"}, prof.Comments)
	require.Len(t, prof.Sample, 2)
	require.Equal(t, []int64{1, 0}, prof.Sample[0].Value)
	require.Equal(t, []int64{8, 0}, prof.Sample[1].Value)
}

func TestWriteParses(t *testing.T) {
	p := parse(t, "1 main 10 1 main 20 0 7\n1 main 24 1 foo 0 2 50\n")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p))

	prof, err := profile.Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, "branches", prof.DefaultSampleType)

	var total int64
	for _, s := range prof.Sample {
		total += s.Value[0]
	}
	require.Equal(t, int64(57), total)
}
