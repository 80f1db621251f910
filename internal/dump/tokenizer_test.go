package dump

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func str(s string) Value { return Value{Str: s} }

var null = Value{Null: true}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Value
	}{
		{
			name: "escaped quotes and comma inside string",
			raw:  `1,'He said \'hi\', then left',NULL`,
			want: []Value{str("1"), str("He said 'hi', then left"), null},
		},
		{
			name: "control escapes",
			raw:  `'a\nb\rc\td\0e'`,
			want: []Value{str("a\nb\rc\td\x00e")},
		},
		{
			name: "unknown escape is literal",
			raw:  `'C:\\dir\q'`,
			want: []Value{str(`C:\dirq`)},
		},
		{
			name: "quoted NULL stays a string",
			raw:  `'NULL',NULL`,
			want: []Value{str("NULL"), null},
		},
		{
			name: "whitespace outside quotes trimmed",
			raw:  ` 7 ,  'x' , NULL `,
			want: []Value{str("7"), str("x"), null},
		},
		{
			name: "whitespace inside quotes kept",
			raw:  `' padded '`,
			want: []Value{str(" padded ")},
		},
		{
			name: "empty string value",
			raw:  `1,'',2`,
			want: []Value{str("1"), str(""), str("2")},
		},
		{
			name: "parenthesis inside string",
			raw:  `1,'a) b'`,
			want: []Value{str("1"), str("a) b")},
		},
		{
			name: "unterminated quote ends at input end",
			raw:  `1,'never closed, really`,
			want: []Value{str("1"), str("never closed, really")},
		},
		{
			name: "multibyte text",
			raw:  `'café',5`,
			want: []Value{str("café"), str("5")},
		},
		{
			name: "empty input",
			raw:  ``,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestTokenize_EmbeddedPunctuation(t *testing.T) {
	// Every generated value must come back as a single value, whatever mix
	// of commas, quotes, backslashes and parentheses it contains.
	pieces := []string{",", "'", `\`, ")", "(", ";", " ", "x", "NULL"}
	for i := 0; i < len(pieces); i++ {
		for j := 0; j < len(pieces); j++ {
			original := "v" + pieces[i] + pieces[j] + "w"
			raw := "42," + quote(original) + ",NULL"

			got := Tokenize(raw)
			want := []Value{str("42"), str(original), null}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", raw, diff)
			}
		}
	}
}

// quote renders s the way a dump writer would.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func TestValue_String(t *testing.T) {
	if got := null.String(); got != "NULL" {
		t.Errorf("Value.String() = %v, want NULL", got)
	}
	if got := str("x").String(); got != "x" {
		t.Errorf("Value.String() = %v, want x", got)
	}
}
