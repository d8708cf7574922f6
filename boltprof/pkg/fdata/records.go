package fdata

import (
	"fmt"
	"io"
)

// BranchInfo aggregates all executions of one directed edge.
type BranchInfo struct {
	From     Location
	To       Location
	Mispreds int64
	Branches int64
}

func (b *BranchInfo) Equal(other *BranchInfo) bool {
	return b.From.Equal(other.From) && b.To.Equal(other.To)
}

func (b *BranchInfo) Compare(other *BranchInfo) int {
	if c := b.From.Compare(other.From); c != 0 {
		return c
	}
	return b.To.Compare(other.To)
}

func (b *BranchInfo) Less(other *BranchInfo) bool {
	return b.Compare(other) < 0
}

// MergeWith adds branch and misprediction counts of other to b.
func (b *BranchInfo) MergeWith(other *BranchInfo) {
	b.Branches += other.Branches
	b.Mispreds += other.Mispreds
}

func (b *BranchInfo) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s %d %d\n", b.From, b.To, b.Mispreds, b.Branches)
	return err
}

// MemInfo is a memory load from Addr performed by the instruction at Offset.
type MemInfo struct {
	Offset Location
	Addr   Location
	Count  uint64
}

func (m *MemInfo) Equal(other *MemInfo) bool {
	return m.Offset.Equal(other.Offset) && m.Addr.Equal(other.Addr)
}

func (m *MemInfo) Compare(other *MemInfo) int {
	if c := m.Offset.Compare(other.Offset); c != 0 {
		return c
	}
	return m.Addr.Compare(other.Addr)
}

func (m *MemInfo) Less(other *MemInfo) bool {
	return m.Compare(other) < 0
}

func (m *MemInfo) MergeWith(other *MemInfo) {
	m.Count += other.Count
}

func (m *MemInfo) Print(w io.Writer) error {
	_, err := fmt.Fprintf(
		w, "%d %s %x %d %s %x %d\n",
		boolToInt(m.Offset.IsSymbol)+3, m.Offset.Name, m.Offset.Offset,
		boolToInt(m.Addr.IsSymbol)+3, m.Addr.Name, m.Addr.Offset,
		m.Count,
	)
	return err
}

// PrettyPrint writes the event in the human readable form used by dumps.
func (m *MemInfo) PrettyPrint(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s -> %s (%d)", prettyLocation(m.Offset), prettyLocation(m.Addr), m.Count)
	return err
}

func prettyLocation(l Location) string {
	if l.IsSymbol {
		return fmt.Sprintf("%s+%#x", l.Name, l.Offset)
	}
	return fmt.Sprintf("%#x", l.Offset)
}

// SampleInfo counts instruction pointer samples that hit Loc.
type SampleInfo struct {
	Loc  Location
	Hits int64
}

func (s *SampleInfo) Equal(other *SampleInfo) bool {
	return s.Loc.Equal(other.Loc)
}

func (s *SampleInfo) Compare(other *SampleInfo) int {
	return s.Loc.Compare(other.Loc)
}

func (s *SampleInfo) Less(other *SampleInfo) bool {
	return s.Compare(other) < 0
}

func (s *SampleInfo) MergeWith(other *SampleInfo) {
	s.Hits += other.Hits
}

func (s *SampleInfo) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %d\n", s.Loc, s.Hits)
	return err
}
