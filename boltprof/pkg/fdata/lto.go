package fdata

import (
	"strings"
)

// LTO-generated function names take a form:
//
//	<function_name>.lto_priv.<decimal_number>
//	<function_name>.constprop.<decimal_number>
//	<function_name>.lto_priv.<decimal_number1>.lto_priv.<decimal_number2>
//
// The decimal number is a counter global to the whole program, so a tiny change in the
// program may rename many LTO functions. Exact name matching would leave all of them
// without a profile. Instead, every split variant is reduced to a common name, and all
// profiles sharing it are offered to the caller, who picks the best match.
var ltoMarkers = []string{".lto_priv.", ".constprop."}

// LTOCommonName returns the common LTO name of name, or false if name carries no LTO
// suffix. The reduction is applied until no marker remains.
func LTOCommonName(name string) (string, bool) {
	common, found := name, false
	for {
		prefix, ok := stripLTOSuffix(common)
		if !ok {
			return common, found
		}
		common, found = prefix, true
	}
}

// stripLTOSuffix cuts name at the first LTO marker followed by a decimal digit.
func stripLTOSuffix(name string) (string, bool) {
	first := -1
	for _, marker := range ltoMarkers {
		for from := 0; from < len(name); {
			idx := strings.Index(name[from:], marker)
			if idx == -1 {
				break
			}
			idx += from
			end := idx + len(marker)
			if end < len(name) && isDecimalDigit(name[end]) {
				if first == -1 || idx < first {
					first = idx
				}
				break
			}
			from = idx + 1
		}
	}
	if first <= 0 {
		return "", false
	}
	return name[:first], true
}

func isDecimalDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (p *Profile) buildLTONameMaps() {
	p.ltoBranches = make(map[string][]*FuncBranchData)
	p.ltoMem = make(map[string][]*FuncMemData)

	for _, name := range sortedKeys(p.Branches) {
		if common, ok := LTOCommonName(name); ok {
			p.ltoBranches[common] = append(p.ltoBranches[common], p.Branches[name])
		}
	}
	for _, name := range sortedKeys(p.Mem) {
		if common, ok := LTOCommonName(name); ok {
			p.ltoMem[common] = append(p.ltoMem[common], p.Mem[name])
		}
	}
}

func (p *Profile) ensureLTONameMaps() {
	if p.ltoBranches == nil || p.ltoMem == nil {
		p.buildLTONameMaps()
	}
}

func lookupRegex[T any](m map[string]*T, common map[string][]*T, names []string) []*T {
	if d, err := lookup(m, names); err == nil {
		return []*T{d}
	}

	var res []*T
	seen := make(map[*T]struct{})
	for i := len(names) - 1; i >= 0; i-- {
		name, ok := LTOCommonName(normalizeName(names[i]))
		if !ok {
			continue
		}
		for _, d := range common[name] {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			res = append(res, d)
		}
	}
	return res
}

// GetFuncBranchDataRegex returns all branch data matching names. An exact match is
// returned alone; otherwise every profile sharing the LTO common name of a candidate is
// returned.
func (p *Profile) GetFuncBranchDataRegex(names []string) []*FuncBranchData {
	p.ensureLTONameMaps()
	return lookupRegex(p.Branches, p.ltoBranches, names)
}

// GetFuncMemDataRegex is GetFuncBranchDataRegex for memory events.
func (p *Profile) GetFuncMemDataRegex(names []string) []*FuncMemData {
	p.ensureLTONameMaps()
	return lookupRegex(p.Mem, p.ltoMem, names)
}
