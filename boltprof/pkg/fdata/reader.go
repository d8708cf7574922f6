package fdata

import (
	"io"
)

type State int

const (
	StateUnstarted State = iota
	StateModeDetected
	StateParsing
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateModeDetected:
		return "mode-detected"
	case StateParsing:
		return "parsing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStats counts records seen by a Reader.
type ParseStats struct {
	BranchRecords int
	MemRecords    int
	SampleRecords int

	SkippedBranches int
	SkippedMem      int
	SkippedSamples  int
}

// Reader parses profile data written by perf2bolt and stores it for lookups by the
// binary layout optimizer.
//
// The expected format of LBR profiles is
//
//	<is symbol?> <closest elf symbol or DSO name> <relative FROM address>
//	<is symbol?> <closest elf symbol or DSO name> <relative TO address>
//	<number of mispredictions> <number of branches>
//
// all on one line. <is symbol?> is 0 for a DSO load address, 1 for a global symbol and
// 2 for a local symbol. Example:
//
//	1 main 3fb 0 /lib/ld-2.21.so 12 4 221
//
// records branches from main+0x3fb to ld-2.21.so+0x12, with 4 mispredictions out of 221.
//
// Memory load events use kinds 3, 4 and 5 instead and carry a single count:
//
//	4 main 1a 3 [heap] 7f00 12
//
// When the first line is `no_lbr [event...]`, the rest of the file holds flat samples:
//
//	no_lbr cycles:u
//	1 BZ2_compressBlock 466c 3
//
// A Reader is single use: one successful or failed parse pass per buffer.
type Reader struct {
	parser  parser
	profile *Profile
	state   State
	stats   ParseStats
}

// NewReader creates a reader over buf. Grammar errors are written to diag, one line each.
// diag may be nil.
func NewReader(buf []byte, diag io.Writer) *Reader {
	return &Reader{
		parser:  newParser(string(buf), diag),
		profile: NewProfile(),
		state:   StateUnstarted,
	}
}

func (r *Reader) State() State {
	return r.state
}

func (r *Reader) Stats() ParseStats {
	return r.stats
}

// Profile returns the parsed store. After a failed parse it is partially populated
// and must not be relied upon.
func (r *Reader) Profile() *Profile {
	return r.profile
}

////////////////////////////////////////////////////////////////////////////////

// Parse detects the grammar from the first line and parses the whole buffer.
func (r *Reader) Parse() error {
	if r.state != StateUnstarted {
		return ErrAlreadyParsed
	}

	noLBR, err := r.detectMode()
	if err != nil {
		return r.fail(err)
	}
	if noLBR {
		return r.parseNoLBR()
	}
	return r.parseLBR()
}

// ParseInNoLBRMode parses the buffer as flat samples. A leading no_lbr header is
// consumed if present.
func (r *Reader) ParseInNoLBRMode() error {
	switch r.state {
	case StateUnstarted:
		if _, err := r.detectMode(); err != nil {
			return r.fail(err)
		}
	case StateModeDetected:
	default:
		return ErrAlreadyParsed
	}
	return r.parseNoLBR()
}

func (r *Reader) detectMode() (bool, error) {
	noLBR, events, err := r.parser.maybeParseNoLBRFlag()
	if err != nil {
		return false, err
	}
	for _, event := range events {
		r.profile.addEvent(event)
	}
	r.profile.NoLBR = noLBR
	r.state = StateModeDetected
	return noLBR, nil
}

func (r *Reader) parseLBR() error {
	r.state = StateParsing
	p := &r.parser

	for {
		p.skipBlankLines()
		switch {
		case p.eof():
			return r.complete()
		case p.hasBranchData():
			bi, err := p.parseBranchInfo()
			if err != nil {
				return r.fail(err)
			}
			r.stats.BranchRecords++
			if !r.profile.addBranch(bi) {
				r.stats.SkippedBranches++
			}
		case p.hasMemData():
			if err := r.parseMem(); err != nil {
				return r.fail(err)
			}
		default:
			return r.fail(p.reportError("expected branch or memory event record"))
		}
	}
}

func (r *Reader) parseNoLBR() error {
	r.state = StateParsing
	r.profile.NoLBR = true
	p := &r.parser

	for {
		p.skipBlankLines()
		switch {
		case p.eof():
			return r.complete()
		case p.hasBranchData():
			si, err := p.parseSampleInfo()
			if err != nil {
				return r.fail(err)
			}
			r.stats.SampleRecords++
			if !r.profile.addSample(si) {
				r.stats.SkippedSamples++
			}
		case p.hasMemData():
			if err := r.parseMem(); err != nil {
				return r.fail(err)
			}
		default:
			return r.fail(p.reportError("expected sample or memory event record"))
		}
	}
}

func (r *Reader) parseMem() error {
	mi, err := r.parser.parseMemInfo()
	if err != nil {
		return err
	}
	r.stats.MemRecords++
	if !r.profile.addMem(mi) {
		r.stats.SkippedMem++
	}
	return nil
}

func (r *Reader) complete() error {
	r.profile.Finalize()
	r.state = StateComplete
	return nil
}

func (r *Reader) fail(err error) error {
	r.state = StateFailed
	return err
}

////////////////////////////////////////////////////////////////////////////////

func (r *Reader) GetFuncBranchData(names []string) (*FuncBranchData, error) {
	return r.profile.GetFuncBranchData(names)
}

func (r *Reader) GetFuncMemData(names []string) (*FuncMemData, error) {
	return r.profile.GetFuncMemData(names)
}

func (r *Reader) GetFuncSampleData(names []string) (*FuncSampleData, error) {
	return r.profile.GetFuncSampleData(names)
}

func (r *Reader) GetFuncBranchDataRegex(names []string) []*FuncBranchData {
	return r.profile.GetFuncBranchDataRegex(names)
}

func (r *Reader) GetFuncMemDataRegex(names []string) []*FuncMemData {
	return r.profile.GetFuncMemDataRegex(names)
}

func (r *Reader) AllFuncsBranchData() map[string]*FuncBranchData {
	return r.profile.Branches
}

func (r *Reader) AllFuncsMemData() map[string]*FuncMemData {
	return r.profile.Mem
}

func (r *Reader) AllFuncsSampleData() map[string]*FuncSampleData {
	return r.profile.Samples
}

func (r *Reader) HasLocalsWithFileName() bool {
	return r.profile.HasLocalsWithFileName()
}

func (r *Reader) HasLBR() bool {
	return r.profile.HasLBR()
}

func (r *Reader) UsesEvent(name string) bool {
	return r.profile.UsesEvent(name)
}

func (r *Reader) EventNames() map[string]struct{} {
	return r.profile.EventNames
}

// Dump writes all parsed data structures to w.
func (r *Reader) Dump(w io.Writer) error {
	return r.profile.Dump(w)
}
