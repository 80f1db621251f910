package dump

// Value is one scalar of a tuple. Null is set for the unquoted NULL keyword.
type Value struct {
	Str  string
	Null bool
}

// String returns the textual value, or "NULL" for a null value.
func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	return v.Str
}

// Tuple is one parenthesized row of an INSERT statement.
type Tuple struct {
	Table  string  // Table named by the INSERT statement
	Values []Value // Positional values in source order
	Offset int64   // Byte offset of the opening parenthesis
}

// Tokenize splits the text between the outer parentheses of one value tuple
// into its values. Quotes are dropped, backslash escapes are decoded and
// commas inside quoted strings are kept. Whitespace outside quotes is
// trimmed. An unterminated quote ends at the end of input.
func Tokenize(raw string) []Value {
	var (
		lx     lexer
		values []Value
		quoted bool
		keep   int // bytes of buf that must survive trimming
	)
	buf := make([]byte, 0, 64)

	closeValue := func() {
		end := len(buf)
		for end > keep && isSpace(buf[end-1]) {
			end--
		}
		text := string(buf[:end])
		if !quoted && text == "NULL" {
			values = append(values, Value{Null: true})
		} else {
			values = append(values, Value{Str: text})
		}
		buf = buf[:0]
		quoted = false
		keep = 0
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch lx.feed(c) {
		case classEscape:
		case classEscaped:
			buf = append(buf, unescape(c))
			keep = len(buf)
		case classQuote:
			quoted = true
			keep = len(buf)
		default:
			if lx.inQuote {
				buf = append(buf, c)
				keep = len(buf)
				continue
			}
			if c == ',' {
				closeValue()
				continue
			}
			if isSpace(c) && len(buf) == 0 && !quoted {
				continue
			}
			buf = append(buf, c)
		}
	}
	if len(values) == 0 && len(buf) == 0 && !quoted {
		return nil
	}
	closeValue()
	return values
}
