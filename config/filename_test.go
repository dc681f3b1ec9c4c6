package config

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Harbor Lights", "Harbor Lights"},
		{"separator", "Act 1/Scene 2", "Act 1Scene 2"},
		{"leading dots", "..hidden", "hidden"},
		{"trailing dots and spaces", "Dusk... ", "Dusk"},
		{"control characters", "Line\tone\nline two", "Lineoneline two"},
		{"only bad", "/./", "_bad_file_name_"},
		{"empty", "", "_bad_file_name_"},
		{"unicode kept", "Мост через реку", "Мост через реку"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanFileName_Long(t *testing.T) {
	got := CleanFileName(strings.Repeat("ж", 150))
	if len(got) > maxFileNameBytes {
		t.Errorf("len = %d, want at most %d", len(got), maxFileNameBytes)
	}
	if !utf8.ValidString(got) {
		t.Errorf("CleanFileName() cut rune in half: %q", got)
	}
}
