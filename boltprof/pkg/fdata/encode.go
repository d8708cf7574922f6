package fdata

import (
	"bufio"
	"io"
	"strings"
)

// Encode writes p in the fdata text format accepted by Reader.
//
// Only the Data records of branch containers are written: entry records and execution
// counts are derived from them again when the output is parsed. Local and global symbols
// are both written as global symbols.
func Encode(w io.Writer, p *Profile) error {
	bw := bufio.NewWriter(w)

	if p.NoLBR {
		if _, err := bw.WriteString(noLBRMarker); err != nil {
			return err
		}
		if len(p.EventNames) > 0 {
			_, _ = bw.WriteString(" ")
			_, _ = bw.WriteString(strings.Join(p.SortedEventNames(), " "))
		}
		_, _ = bw.WriteString("\n")

		for _, name := range sortedKeys(p.Samples) {
			for i := range p.Samples[name].Data {
				if err := p.Samples[name].Data[i].Print(bw); err != nil {
					return err
				}
			}
		}
	} else {
		for _, name := range sortedKeys(p.Branches) {
			for i := range p.Branches[name].Data {
				if err := p.Branches[name].Data[i].Print(bw); err != nil {
					return err
				}
			}
		}
	}

	for _, name := range sortedKeys(p.Mem) {
		for i := range p.Mem[name].Data {
			if err := p.Mem[name].Data[i].Print(bw); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}
