package csvfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Swift", want: "Swift"},
		{name: "empty", input: "", want: ""},
		{name: "comma", input: "a,b", want: `"a,b"`},
		{name: "quote", input: `say "hi"`, want: `"say ""hi"""`},
		{name: "newline", input: "line1\nline2", want: "\"line1\nline2\""},
		{name: "carriage return inside", input: "a\rb", want: "\"a\rb\""},
		{name: "formula", input: "=cmd|'/c calc'", want: `"'=cmd|'/c calc'"`},
		{name: "plus", input: "+1", want: `"'+1"`},
		{name: "minus", input: "-1", want: `"'-1"`},
		{name: "at", input: "@user", want: `"'@user"`},
		{name: "tab", input: "\tx", want: "\"'\tx\""},
		{name: "leading apostrophe untouched", input: "'quoted", want: "'quoted"},
		{name: "formula with quote", input: `=A1&"x"`, want: `"'=A1&""x"""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeField(tt.input))
		})
	}
}

func TestStripInjectionPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "'=cmd", want: "=cmd"},
		{input: "'+1", want: "+1"},
		{input: "'@x", want: "@x"},
		{input: "'\tx", want: "\tx"},
		{input: "'hello", want: "'hello"},
		{input: "'", want: "'"},
		{input: "plain", want: "plain"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, StripInjectionPrefix(tt.input))
		})
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want []string
	}{
		{name: "quoted comma", row: `"hello,world",next`, want: []string{"hello,world", "next"}},
		{name: "doubled quote", row: `a,"b""c",`, want: []string{"a", `b"c`, ""}},
		{name: "empty row", row: "", want: []string{""}},
		{name: "embedded newline", row: "\"x\ny\",z", want: []string{"x\ny", "z"}},
		{name: "empty fields", row: ",,", want: []string{"", "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRow(tt.row))
		})
	}
}

func TestSplitRecords(t *testing.T) {
	got := splitRecords("a\r\nb\n\"x\ny\",z\n\nlast")

	want := []record{
		{line: 1, raw: "a"},
		{line: 2, raw: "b"},
		{line: 3, raw: "\"x\ny\",z"},
		{line: 5, raw: ""},
		{line: 6, raw: "last"},
	}
	assert.Equal(t, want, got)
}
