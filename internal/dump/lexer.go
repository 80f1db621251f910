package dump

// charClass reports how the lexer consumed a single byte.
type charClass int

const (
	// classPlain is an ordinary byte. Callers check lexer.inQuote to know
	// whether it sits inside a quoted string.
	classPlain charClass = iota
	// classQuote is an unescaped single quote; it toggled the string state.
	classQuote
	// classEscape is a backslash that escapes the following byte.
	classEscape
	// classEscaped is the byte that followed a backslash.
	classEscaped
)

// lexer is the quote/escape automaton shared by Tokenize and the Scanner's
// tuple balancing, so both agree on what counts as "inside a string".
type lexer struct {
	inQuote    bool
	escapeNext bool
}

func (l *lexer) feed(c byte) charClass {
	switch {
	case l.escapeNext:
		l.escapeNext = false
		return classEscaped
	case c == '\\':
		l.escapeNext = true
		return classEscape
	case c == '\'':
		l.inQuote = !l.inQuote
		return classQuote
	}
	return classPlain
}

// unescape maps the byte following a backslash to the byte it stands for.
func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0':
		return 0
	}
	return c
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
