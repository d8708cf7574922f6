package fdata

import (
	"cmp"
	"fmt"
	"strings"
)

const (
	UnknownName = "[unknown]"
	HeapName    = "[heap]"
)

// Location is a program point: either an offset from an ELF symbol or an offset from a
// DSO load address. All heap locations are equal regardless of their offsets.
type Location struct {
	IsSymbol bool
	Name     string
	Offset   uint64
}

func NewDSOLocation(offset uint64) Location {
	return Location{IsSymbol: false, Name: UnknownName, Offset: offset}
}

func (l Location) Equal(other Location) bool {
	return l.IsSymbol == other.IsSymbol &&
		l.Name == other.Name &&
		(l.Name == HeapName || l.Offset == other.Offset)
}

func (l Location) Less(other Location) bool {
	return l.Compare(other) < 0
}

func (l Location) Compare(other Location) int {
	if l.IsSymbol != other.IsSymbol {
		if !l.IsSymbol {
			return -1
		}
		return 1
	}
	if c := strings.Compare(l.Name, other.Name); c != 0 {
		return c
	}
	if l.Name == HeapName {
		return 0
	}
	return cmp.Compare(l.Offset, other.Offset)
}

func (l Location) String() string {
	return fmt.Sprintf("%d %s %x", boolToInt(l.IsSymbol), l.Name, l.Offset)
}

// LocationPair is a single taken branch of a branch history.
type LocationPair struct {
	From Location
	To   Location
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
