package fdata

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	fieldSeparator = ' '
	noLBRMarker    = "no_lbr"
)

// parser is a cursor over the text of an fdata file.
// Names returned by the parser are substrings of buf and share its storage.
type parser struct {
	buf  string
	line int
	col  int
	diag io.Writer

	// Scratch space for branch histories, reused across records.
	history []LocationPair
}

func newParser(buf string, diag io.Writer) parser {
	return parser{
		buf:  buf,
		line: 1,
		col:  0,
		diag: diag,
	}
}

func (p *parser) reportError(msg string) error {
	err := &ParseError{Line: p.line, Col: p.col, Msg: msg}
	if p.diag != nil {
		_, _ = fmt.Fprintf(p.diag, "error reading profile data: line %d, column %d: %s\n", p.line, p.col, msg)
	}
	return err
}

func (p *parser) eof() bool {
	return len(p.buf) == 0
}

func (p *parser) advance(n int) {
	p.buf = p.buf[n:]
	p.col += n
}

func (p *parser) expectAndConsumeFS() error {
	if p.eof() || p.buf[0] != fieldSeparator {
		return p.reportError("expected field separator")
	}
	p.advance(1)
	return nil
}

func (p *parser) consumeAllRemainingFS() {
	for !p.eof() && p.buf[0] == fieldSeparator {
		p.advance(1)
	}
}

func (p *parser) checkAndConsumeNewLine() bool {
	if p.eof() || p.buf[0] != '\n' {
		return false
	}
	p.buf = p.buf[1:]
	p.line++
	p.col = 0
	return true
}

func (p *parser) atEndOfRecord() bool {
	return p.eof() || p.buf[0] == '\n'
}

// consumeEndOfRecord accepts a newline, or the end of the buffer for the last record.
func (p *parser) consumeEndOfRecord() error {
	if p.eof() || p.checkAndConsumeNewLine() {
		return nil
	}
	return p.reportError("expected end of line")
}

func (p *parser) skipBlankLines() {
	for p.checkAndConsumeNewLine() {
	}
}

// parseString consumes a field terminated by endChar. If endNl is set, a newline or the
// end of the buffer terminates the field as well and is left unconsumed.
func (p *parser) parseString(endChar byte, endNl bool) (string, error) {
	end := strings.IndexAny(p.buf, string([]byte{endChar, '\n'}))
	if end == -1 {
		if !endNl {
			return "", p.reportError(fmt.Sprintf("expected %q before end of file", endChar))
		}
		end = len(p.buf)
	} else if p.buf[end] != endChar && !endNl {
		return "", p.reportError(fmt.Sprintf("expected %q before end of line", endChar))
	}
	if end == 0 {
		return "", p.reportError("malformed field")
	}

	str := p.buf[:end]
	if end < len(p.buf) && p.buf[end] == endChar {
		p.advance(end + 1)
		if endChar == '\n' {
			p.line++
			p.col = 0
		}
	} else {
		p.advance(end)
	}
	return str, nil
}

func (p *parser) parseNumberField(endChar byte, endNl bool) (int64, error) {
	str, err := p.parseString(endChar, endNl)
	if err != nil {
		return 0, err
	}
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, p.reportError(fmt.Sprintf("expected decimal number, found %q", str))
	}
	return num, nil
}

func (p *parser) parseHexField(endChar byte, endNl bool) (uint64, error) {
	str, err := p.parseString(endChar, endNl)
	if err != nil {
		return 0, err
	}
	num, err := strconv.ParseUint(str, 16, 64)
	if err != nil {
		return 0, p.reportError(fmt.Sprintf("expected hexadecimal number, found %q", str))
	}
	return num, nil
}

// parseLocation parses `<kind> <name> <hex offset>`.
// Branch and sample locations use kinds 0 (DSO), 1 (global symbol) and 2 (local symbol).
// Memory event locations use the same kinds shifted by 3.
func (p *parser) parseLocation(endChar byte, endNl bool, expectMemLoc bool) (Location, error) {
	if p.eof() {
		return Location{}, p.reportError("expected location")
	}

	var isSymbol bool
	switch kind := p.buf[0]; {
	case !expectMemLoc && kind == '0', expectMemLoc && kind == '3':
		isSymbol = false
	case !expectMemLoc && (kind == '1' || kind == '2'), expectMemLoc && (kind == '4' || kind == '5'):
		isSymbol = true
	case expectMemLoc:
		return Location{}, p.reportError("expected 3, 4 or 5")
	default:
		return Location{}, p.reportError("expected 0, 1 or 2")
	}
	p.advance(1)

	if err := p.expectAndConsumeFS(); err != nil {
		return Location{}, err
	}
	p.consumeAllRemainingFS()

	name, err := p.parseString(fieldSeparator, false)
	if err != nil {
		return Location{}, err
	}
	p.consumeAllRemainingFS()

	offset, err := p.parseHexField(endChar, endNl)
	if err != nil {
		return Location{}, err
	}

	return Location{IsSymbol: isSymbol, Name: name, Offset: offset}, nil
}

func (p *parser) hasBranchData() bool {
	return !p.eof() && (p.buf[0] == '0' || p.buf[0] == '1' || p.buf[0] == '2')
}

func (p *parser) hasMemData() bool {
	return !p.eof() && (p.buf[0] == '3' || p.buf[0] == '4' || p.buf[0] == '5')
}

// parseBranchInfo parses one LBR record:
//
//	<from location> <to location> <mispreds> <branches> [<number of histories>]
//
// optionally followed by the announced number of history blocks:
//
//	<mispreds> <branches> <history length>
//	<from location> <to location>    (history length times)
//
// Histories are validated and dropped. Their counts are folded into the edge totals, which
// never become smaller than the sum over the histories.
func (p *parser) parseBranchInfo() (BranchInfo, error) {
	from, err := p.parseLocation(fieldSeparator, false, false)
	if err != nil {
		return BranchInfo{}, err
	}
	p.consumeAllRemainingFS()

	to, err := p.parseLocation(fieldSeparator, false, false)
	if err != nil {
		return BranchInfo{}, err
	}
	p.consumeAllRemainingFS()

	mispreds, err := p.parseNumberField(fieldSeparator, false)
	if err != nil {
		return BranchInfo{}, err
	}
	p.consumeAllRemainingFS()

	branches, err := p.parseNumberField(fieldSeparator, true)
	if err != nil {
		return BranchInfo{}, err
	}
	p.consumeAllRemainingFS()

	bi := BranchInfo{From: from, To: to, Mispreds: mispreds, Branches: branches}
	if p.atEndOfRecord() {
		return bi, p.consumeEndOfRecord()
	}

	numHistories, err := p.parseNumberField(fieldSeparator, true)
	if err != nil {
		return BranchInfo{}, err
	}
	if numHistories < 0 {
		return BranchInfo{}, p.reportError("negative number of histories")
	}
	p.consumeAllRemainingFS()
	if err := p.consumeEndOfRecord(); err != nil {
		return BranchInfo{}, err
	}

	var historyMispreds, historyBranches int64
	for i := int64(0); i < numHistories; i++ {
		m, b, err := p.parseBranchHistory()
		if err != nil {
			return BranchInfo{}, err
		}
		historyMispreds += m
		historyBranches += b
	}
	bi.Mispreds = max(bi.Mispreds, historyMispreds)
	bi.Branches = max(bi.Branches, historyBranches)

	return bi, nil
}

func (p *parser) parseBranchHistory() (mispreds int64, branches int64, err error) {
	p.consumeAllRemainingFS()
	mispreds, err = p.parseNumberField(fieldSeparator, false)
	if err != nil {
		return 0, 0, err
	}
	p.consumeAllRemainingFS()
	branches, err = p.parseNumberField(fieldSeparator, false)
	if err != nil {
		return 0, 0, err
	}
	p.consumeAllRemainingFS()
	length, err := p.parseNumberField(fieldSeparator, true)
	if err != nil {
		return 0, 0, err
	}
	if length < 0 {
		return 0, 0, p.reportError("negative history length")
	}
	p.consumeAllRemainingFS()
	if err = p.consumeEndOfRecord(); err != nil {
		return 0, 0, err
	}

	p.history = p.history[:0]
	for j := int64(0); j < length; j++ {
		p.consumeAllRemainingFS()
		from, err := p.parseLocation(fieldSeparator, false, false)
		if err != nil {
			return 0, 0, err
		}
		p.consumeAllRemainingFS()
		to, err := p.parseLocation(fieldSeparator, true, false)
		if err != nil {
			return 0, 0, err
		}
		p.consumeAllRemainingFS()
		if err := p.consumeEndOfRecord(); err != nil {
			return 0, 0, err
		}
		p.history = append(p.history, LocationPair{From: from, To: to})
	}

	return mispreds, branches, nil
}

// parseSampleInfo parses `<location> <count>`.
func (p *parser) parseSampleInfo() (SampleInfo, error) {
	loc, err := p.parseLocation(fieldSeparator, false, false)
	if err != nil {
		return SampleInfo{}, err
	}
	p.consumeAllRemainingFS()

	hits, err := p.parseNumberField(fieldSeparator, true)
	if err != nil {
		return SampleInfo{}, err
	}
	p.consumeAllRemainingFS()
	if err := p.consumeEndOfRecord(); err != nil {
		return SampleInfo{}, err
	}

	return SampleInfo{Loc: loc, Hits: hits}, nil
}

// parseMemInfo parses `<instruction location> <address location> <count>`.
func (p *parser) parseMemInfo() (MemInfo, error) {
	offset, err := p.parseLocation(fieldSeparator, false, true)
	if err != nil {
		return MemInfo{}, err
	}
	p.consumeAllRemainingFS()

	addr, err := p.parseLocation(fieldSeparator, false, true)
	if err != nil {
		return MemInfo{}, err
	}
	p.consumeAllRemainingFS()

	count, err := p.parseNumberField(fieldSeparator, true)
	if err != nil {
		return MemInfo{}, err
	}
	if count < 0 {
		return MemInfo{}, p.reportError("negative memory event count")
	}
	p.consumeAllRemainingFS()
	if err := p.consumeEndOfRecord(); err != nil {
		return MemInfo{}, err
	}

	return MemInfo{Offset: offset, Addr: addr, Count: uint64(count)}, nil
}

// maybeParseNoLBRFlag consumes the `no_lbr [event...]` header if the buffer starts with it.
func (p *parser) maybeParseNoLBRFlag() (bool, []string, error) {
	if !strings.HasPrefix(p.buf, noLBRMarker) {
		return false, nil, nil
	}
	if rest := p.buf[len(noLBRMarker):]; rest != "" && rest[0] != fieldSeparator && rest[0] != '\n' {
		return false, nil, nil
	}
	p.advance(len(noLBRMarker))
	p.consumeAllRemainingFS()

	var events []string
	for !p.atEndOfRecord() {
		event, err := p.parseString(fieldSeparator, true)
		if err != nil {
			return false, nil, err
		}
		events = append(events, event)
		p.consumeAllRemainingFS()
	}

	if err := p.consumeEndOfRecord(); err != nil {
		return false, nil, err
	}
	return true, events, nil
}
