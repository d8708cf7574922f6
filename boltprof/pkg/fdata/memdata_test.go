package fdata_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/boltprof/boltprof/pkg/fdata"
)

func TestFuncMemDataUpdate(t *testing.T) {
	d := fdata.NewFuncMemData("foo")
	heap := fdata.Location{IsSymbol: false, Name: fdata.HeapName, Offset: 0x7f00}

	d.Update(sym("foo", 0x10), heap)
	d.Update(sym("foo", 0x10), heap)
	d.Update(sym("foo", 0x4), sym("global_var", 0x8))
	d.Update(sym("foo", 0x10), sym("global_var", 0x0))

	require.Len(t, d.Data, 3)

	rng := d.GetMemInfoRange(0x10)
	require.Len(t, rng, 2)
	require.Equal(t, heap, rng[0].Addr)
	require.Equal(t, uint64(2), rng[0].Count)
	require.Equal(t, sym("global_var", 0), rng[1].Addr)

	rng = d.GetMemInfoRange(0x4)
	require.Len(t, rng, 1)
	require.Equal(t, uint64(1), rng[0].Count)

	require.Empty(t, d.GetMemInfoRange(0x8))
	require.Equal(t, uint64(4), d.TotalCount())
}

func TestFuncMemDataAppendFrom(t *testing.T) {
	d := fdata.NewFuncMemData("outer")
	d.Update(sym("outer", 0x0), sym("g", 0))

	other := fdata.NewFuncMemData("inner")
	other.Update(sym("inner", 0x4), sym("g", 0))
	other.Update(sym("inner", 0x4), sym("g", 0))

	d.AppendFrom(other, 0x20)

	rng := d.GetMemInfoRange(0x24)
	require.Len(t, rng, 1)
	require.Equal(t, sym("outer", 0x24), rng[0].Offset)
	require.Equal(t, uint64(2), rng[0].Count)
}

func TestMemInfoPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	mi := fdata.MemInfo{Offset: sym("foo", 0x10), Addr: fdata.NewDSOLocation(0x7f00), Count: 3}
	require.NoError(t, mi.PrettyPrint(&buf))
	require.Equal(t, "foo+0x10 -> 0x7f00 (3)", buf.String())

	buf.Reset()
	require.NoError(t, mi.Print(&buf))
	require.Equal(t, "4 foo 10 3 [unknown] 7f00 3\n", buf.String())
}
