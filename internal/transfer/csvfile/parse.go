package csvfile

import "strings"

// record is one logical CSV record. Quoted fields may span several lines.
type record struct {
	line int
	raw  string
}

func (r record) blank() bool { return strings.TrimSpace(r.raw) == "" }

// splitRecords cuts text at line breaks that are outside quoted spans.
// CRLF counts as a single break.
func splitRecords(text string) []record {
	var (
		out      []record
		inQuotes bool
		start    int
		line     = 1
		startAt  = 1
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == '\n' || c == '\r':
			if inQuotes {
				if c == '\n' {
					line++
				}
				continue
			}
			out = append(out, record{line: startAt, raw: text[start:i]})
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			line++
			start = i + 1
			startAt = line
		}
	}
	if start < len(text) {
		out = append(out, record{line: startAt, raw: text[start:]})
	}
	return out
}

// ParseRow splits a single record into fields. Quoted spans may contain
// commas and line breaks; a doubled quote inside a quoted span is a literal
// quote.
func ParseRow(row string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(row); i++ {
		c := row[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(row) && row[i+1] == '"' {
					current.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			current.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inQuotes = true
		case ',':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(fields, current.String())
}
