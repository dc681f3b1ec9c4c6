package config

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFileNameBytes keeps generated names well below file system limits,
// long titles leave room for extension and duplicates suffixes.
const maxFileNameBytes = 200

// CleanFileName removes characters not allowed in file names on current
// platform together with control characters, leading dots and trailing
// spaces and dots. Result is never empty.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if sym == 0 || unicode.IsControl(sym) || strings.ContainsRune(badFileNameChars, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimRight(strings.TrimLeft(out, ". "), ". ")
	if len(out) > maxFileNameBytes {
		cut := maxFileNameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimRight(out[:cut], ". ")
	}
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
