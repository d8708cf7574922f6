package fdata_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

func reparse(t *testing.T, p *fdata.Profile) *fdata.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fdata.Encode(&buf, p))
	return parse(t, buf.String())
}

func TestEncodeRoundTripLBR(t *testing.T) {
	r := parse(t, lbrProfile)
	again := reparse(t, r.Profile())

	require.Equal(t, r.Profile().Stats(), again.Profile().Stats())
	for name, d := range r.AllFuncsBranchData() {
		other, err := again.GetFuncBranchData([]string{name})
		require.NoError(t, err, name)
		require.Empty(t, cmp.Diff(d.Data, other.Data), name)
		require.Empty(t, cmp.Diff(d.EntryData, other.EntryData), name)
		require.Equal(t, d.ExecutionCount, other.ExecutionCount, name)
	}
	for name, d := range r.AllFuncsMemData() {
		other, err := again.GetFuncMemData([]string{name})
		require.NoError(t, err, name)
		require.Empty(t, cmp.Diff(d.Data, other.Data), name)
	}
}

func TestEncodeRoundTripNoLBR(t *testing.T) {
	r := parse(t, "no_lbr instructions cycles\n1 main 10 5\n1 main 8 1\n1 foo 0 2\n4 main 10 3 [heap] 10 2\n")

	var buf bytes.Buffer
	require.NoError(t, fdata.Encode(&buf, r.Profile()))
	require.Equal(t,
		"no_lbr cycles instructions\n1 foo 0 2\n1 main 8 1\n1 main 10 5\n4 main 10 3 [heap] 10 2\n",
		buf.String(),
	)

	again := parse(t, buf.String())
	require.False(t, again.HasLBR())
	require.Empty(t, cmp.Diff(
		r.AllFuncsSampleData()["main"].Data,
		again.AllFuncsSampleData()["main"].Data,
		cmpopts.EquateEmpty(),
	))
}
