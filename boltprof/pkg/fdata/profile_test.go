package fdata_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

func TestProfileMergeFrom(t *testing.T) {
	a := parse(t, "1 main 10 1 main 20 0 3\n1 main 24 1 foo 0 0 4\n").Profile()
	b := parse(t, "1 main 10 1 main 20 1 2\n1 bar 0 1 foo 0 0 1\n4 main 30 3 [heap] 10 1\n").Profile()

	require.NoError(t, a.MergeFrom(b))

	main, err := a.GetFuncBranchData([]string{"main"})
	require.NoError(t, err)
	bi, err := main.GetBranch(0x10, 0x20)
	require.NoError(t, err)
	require.Equal(t, int64(5), bi.Branches)
	require.Equal(t, int64(1), bi.Mispreds)

	foo, err := a.GetFuncBranchData([]string{"foo"})
	require.NoError(t, err)
	require.Equal(t, int64(5), foo.ExecutionCount)
	require.Len(t, foo.EntryData, 2)

	_, err = a.GetFuncMemData([]string{"main"})
	require.NoError(t, err)

	require.Equal(t, fdata.Stats{
		BranchFunctions: 3,
		MemFunctions:    1,
		BranchRecords:   3,
		EntryRecords:    2,
		MemRecords:      1,
		TotalBranches:   10,
		TotalMispreds:   1,
		TotalMemEvents:  1,
	}, a.Stats())
}

func TestProfileMergeModeMismatch(t *testing.T) {
	lbr := parse(t, "1 main 10 1 main 20 0 3\n").Profile()
	noLBR := parse(t, "no_lbr\n1 main 10 3\n").Profile()
	require.Error(t, lbr.MergeFrom(noLBR))
}
