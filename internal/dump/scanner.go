package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrUnterminatedTuple is returned when the input ends before the closing
	// parenthesis of a tuple. The dump violates the format assumptions and
	// the scan cannot continue.
	ErrUnterminatedTuple = errors.New("unterminated tuple")

	errNotInsert = errors.New("not an insert statement")
)

// ScanStats counts what the Scanner saw while streaming a dump.
type ScanStats struct {
	// Statements is the number of INSERT statements recognised.
	Statements int `json:"statements"`
	// SkippedStatements is the number of INSERT statements for other tables.
	SkippedStatements int `json:"skipped_statements"`
	// MalformedStatements is the number of statements abandoned because of
	// unexpected bytes between tuples.
	MalformedStatements int `json:"malformed_statements"`
	// Tuples is the number of tuples emitted.
	Tuples int `json:"tuples"`
}

// Scanner streams INSERT tuples for a set of tables out of a dump.
// Only the tuple being decoded is held in memory.
//
//	sc := dump.NewScanner(r, "wp_posts")
//	for sc.Next() {
//		t := sc.Tuple()
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	r      *bufio.Reader
	tables map[string]struct{}

	offset int64
	last   byte

	table  string
	inStmt bool
	first  bool

	buf   []byte
	tuple Tuple
	err   error
	done  bool
	stats ScanStats
}

// NewScanner returns a Scanner reading r. With no tables every INSERT
// statement is emitted.
func NewScanner(r io.Reader, tables ...string) *Scanner {
	s := &Scanner{
		r:      bufio.NewReaderSize(r, 64*1024),
		tables: make(map[string]struct{}, len(tables)),
		buf:    make([]byte, 0, 4096),
	}
	for _, t := range tables {
		s.tables[t] = struct{}{}
	}
	return s
}

// Next advances to the next tuple. It returns false at the end of the input
// or on error; Err tells them apart.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	for {
		if !s.inStmt {
			table, err := s.seekStatement()
			if errors.Is(err, io.EOF) {
				s.done = true
				return false
			}
			if err != nil {
				s.fail(err)
				return false
			}
			s.table = table
			s.inStmt = true
			s.first = true
		}

		ok, err := s.nextTuple()
		if err != nil {
			s.fail(err)
			return false
		}
		if ok {
			s.stats.Tuples++
			return true
		}
		s.inStmt = false
	}
}

// Tuple returns the tuple produced by the last call to Next.
func (s *Scanner) Tuple() Tuple {
	return s.tuple
}

// Err returns the first non-EOF error met by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// Stats returns the counters collected so far.
func (s *Scanner) Stats() ScanStats {
	return s.stats
}

func (s *Scanner) fail(err error) {
	s.err = err
	s.done = true
}

func (s *Scanner) wants(table string) bool {
	if len(s.tables) == 0 {
		return true
	}
	_, ok := s.tables[table]
	return ok
}

func (s *Scanner) readByte() (byte, error) {
	c, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.offset++
	s.last = c
	return c, nil
}

func (s *Scanner) peekByte() (byte, bool) {
	b, err := s.r.Peek(1)
	if err != nil || len(b) == 0 {
		return 0, false
	}
	return b[0], true
}

func (s *Scanner) skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.readByte(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) skipSpace() {
	for {
		c, ok := s.peekByte()
		if !ok || !isSpace(c) {
			return
		}
		_, _ = s.readByte()
	}
}

// acceptKeyword consumes word (case-insensitive) if it is next in the input
// and is not followed by another identifier byte.
func (s *Scanner) acceptKeyword(word string) bool {
	return s.atKeyword(word) && s.skip(len(word)) == nil
}

// seekStatement advances to the next INSERT statement for a wanted table and
// returns the table name with the input positioned after VALUES.
func (s *Scanner) seekStatement() (string, error) {
	for {
		before := s.last
		c, err := s.readByte()
		if err != nil {
			return "", err
		}
		if (c != 'I' && c != 'i') || isIdentByte(before) {
			continue
		}
		if !s.acceptKeyword("NSERT") {
			continue
		}

		table, err := s.readHeader()
		if errors.Is(err, errNotInsert) {
			continue
		}
		if err != nil {
			return "", err
		}

		s.stats.Statements++
		if s.wants(table) {
			return table, nil
		}
		s.stats.SkippedStatements++
		if err := s.skipStatement(); err != nil {
			return "", err
		}
	}
}

// readHeader parses `[IGNORE] INTO <ident> [(<columns>)] VALUES` after the
// INSERT keyword.
func (s *Scanner) readHeader() (string, error) {
	s.skipSpace()
	if s.acceptKeyword("IGNORE") {
		s.skipSpace()
	}
	if !s.acceptKeyword("INTO") {
		return "", errNotInsert
	}
	s.skipSpace()

	table, err := s.readIdent()
	if err != nil {
		return "", err
	}
	if c, ok := s.peekByte(); ok && c == '.' {
		_, _ = s.readByte()
		if table, err = s.readIdent(); err != nil {
			return "", err
		}
	}
	s.skipSpace()

	if c, ok := s.peekByte(); ok && c == '(' {
		if err := s.skipColumnList(); err != nil {
			return "", err
		}
		s.skipSpace()
	}

	if !s.acceptKeyword("VALUES") && !s.acceptKeyword("VALUE") {
		return "", errNotInsert
	}
	return table, nil
}

func (s *Scanner) readIdent() (string, error) {
	c, ok := s.peekByte()
	if !ok {
		return "", io.EOF
	}

	var name []byte
	if c == '`' || c == '"' {
		quote := c
		_, _ = s.readByte()
		for {
			b, err := s.readByte()
			if err != nil {
				return "", err
			}
			if b == quote {
				break
			}
			name = append(name, b)
		}
	} else {
		for {
			b, ok := s.peekByte()
			if !ok || !isIdentByte(b) {
				break
			}
			_, _ = s.readByte()
			name = append(name, b)
		}
	}

	if len(name) == 0 {
		return "", errNotInsert
	}
	return string(name), nil
}

func (s *Scanner) skipColumnList() error {
	depth := 0
	for {
		c, err := s.readByte()
		if err != nil {
			return err
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}

// skipStatement consumes input up to the statement's unquoted semicolon.
func (s *Scanner) skipStatement() error {
	var lx lexer
	for {
		c, err := s.readByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if lx.feed(c) == classPlain && !lx.inQuote && c == ';' {
			return nil
		}
	}
}

// skipMalformed abandons the current statement. It stops after an unquoted
// semicolon or right before the next unquoted INSERT keyword, so a statement
// missing its terminator does not take the following one with it.
func (s *Scanner) skipMalformed() error {
	var lx lexer
	for {
		c, ok := s.peekByte()
		if !ok {
			return nil
		}
		if !lx.inQuote && !lx.escapeNext && (c == 'I' || c == 'i') && !isIdentByte(s.last) && s.atKeyword("INSERT") {
			return nil
		}
		if _, err := s.readByte(); err != nil {
			return err
		}
		if lx.feed(c) == classPlain && !lx.inQuote && c == ';' {
			return nil
		}
	}
}

// atKeyword reports whether word is next in the input without consuming it.
func (s *Scanner) atKeyword(word string) bool {
	b, _ := s.r.Peek(len(word) + 1)
	if len(b) < len(word) || !strings.EqualFold(string(b[:len(word)]), word) {
		return false
	}
	return len(b) == len(word) || !isIdentByte(b[len(word)])
}

// nextTuple reads the next tuple of the current statement. It returns false
// without error once the statement has ended.
func (s *Scanner) nextTuple() (bool, error) {
	s.skipSpace()
	c, ok := s.peekByte()
	if !ok {
		return false, nil
	}

	if c == ';' {
		_, err := s.readByte()
		return false, err
	}
	if !s.first && c == ',' {
		if _, err := s.readByte(); err != nil {
			return false, err
		}
		s.skipSpace()
		if c, ok = s.peekByte(); !ok {
			return false, fmt.Errorf("%w: input ends after ',' at offset %d", ErrUnterminatedTuple, s.offset)
		}
	}
	if c != '(' {
		s.stats.MalformedStatements++
		return false, s.skipMalformed()
	}
	if _, err := s.readByte(); err != nil {
		return false, err
	}
	s.first = false

	start := s.offset - 1
	s.buf = s.buf[:0]
	var lx lexer
	depth := 1
	for {
		c, err := s.readByte()
		if errors.Is(err, io.EOF) {
			return false, fmt.Errorf("%w: tuple of %s at offset %d", ErrUnterminatedTuple, s.table, start)
		}
		if err != nil {
			return false, err
		}
		if lx.feed(c) == classPlain && !lx.inQuote {
			if c == '(' {
				depth++
			} else if c == ')' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		s.buf = append(s.buf, c)
	}

	s.tuple = Tuple{
		Table:  s.table,
		Values: Tokenize(string(s.buf)),
		Offset: start,
	}
	return true, nil
}
