package csvfile

import "strings"

// injectionPrefixes start a formula in common spreadsheet applications.
const injectionPrefixes = "=+-@\t\r"

func isInjectionPrefix(c byte) bool {
	return strings.IndexByte(injectionPrefixes, c) >= 0
}

// EscapeField renders one CSV field. A value that a spreadsheet would treat
// as a formula gets a leading apostrophe and is always quoted; otherwise the
// value is quoted only when it holds a comma, quote or line break.
func EscapeField(value string) string {
	guarded := false
	if value != "" && isInjectionPrefix(value[0]) {
		value = "'" + value
		guarded = true
	}
	if guarded || strings.ContainsAny(value, ",\"\n\r") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// StripInjectionPrefix undoes the apostrophe added by EscapeField. A leading
// apostrophe is kept unless the next character is a formula prefix.
func StripInjectionPrefix(value string) string {
	if len(value) >= 2 && value[0] == '\'' && isInjectionPrefix(value[1]) {
		return value[1:]
	}
	return value
}

func joinFields(fields ...string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeField(f)
	}
	return strings.Join(escaped, ",")
}
