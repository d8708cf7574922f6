package fdata

import (
	"bufio"
	"fmt"
	"io"
)

// Dump writes a human readable description of every container to w.
// Functions are listed in name order.
func (p *Profile) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, name := range sortedKeys(p.Branches) {
		d := p.Branches[name]
		fmt.Fprintf(bw, "%s branches:\n", name)
		for _, bi := range d.Data {
			fmt.Fprintf(bw, "%s %x %s %x %d %d\n", bi.From.Name, bi.From.Offset, bi.To.Name, bi.To.Offset, bi.Mispreds, bi.Branches)
		}
		fmt.Fprintf(bw, "%s entry points:\n", name)
		for _, bi := range d.EntryData {
			fmt.Fprintf(bw, "%s %x %s %x %d %d\n", bi.From.Name, bi.From.Offset, bi.To.Name, bi.To.Offset, bi.Mispreds, bi.Branches)
		}
		if d.ExecutionCount != 0 {
			fmt.Fprintf(bw, "%s execution count: %d\n", name, d.ExecutionCount)
		}
	}

	for _, event := range p.SortedEventNames() {
		fmt.Fprintf(bw, "Data was collected with event: %s\n", event)
	}

	for _, name := range sortedKeys(p.Samples) {
		fmt.Fprintf(bw, "%s samples:\n", name)
		for _, si := range p.Samples[name].Data {
			fmt.Fprintf(bw, "%s %x %d\n", si.Loc.Name, si.Loc.Offset, si.Hits)
		}
	}

	for _, name := range sortedKeys(p.Mem) {
		fmt.Fprintf(bw, "Memory events for %s", name)
		var last *Location
		for i := range p.Mem[name].Data {
			mi := &p.Mem[name].Data[i]
			if last != nil && mi.Offset.Equal(*last) {
				fmt.Fprintf(bw, ", %s (%d)", prettyLocation(mi.Addr), mi.Count)
			} else {
				fmt.Fprint(bw, "\n")
				_ = mi.PrettyPrint(bw)
			}
			last = &mi.Offset
		}
		fmt.Fprint(bw, "\n")
	}

	return bw.Flush()
}
