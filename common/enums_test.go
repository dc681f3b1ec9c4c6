package common

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"markdown", FormatMarkdown},
		{"DOCX", FormatDocx},
		{"Epub", FormatEpub},
		{"pdf", FormatPdf},
		{"text", FormatText},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseFormat("rtf"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseFormat(rtf) error = %v, want ErrInvalidFormat", err)
	}
}

func TestFormatProperties(t *testing.T) {
	tests := []struct {
		f      Format
		binary bool
		export bool
		ext    string
	}{
		{FormatMarkdown, false, true, ".md"},
		{FormatDocx, true, true, ".docx"},
		{FormatEpub, true, true, ".epub"},
		{FormatPdf, true, true, ".pdf"},
		{FormatText, false, false, ".txt"},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := tt.f.Binary(); got != tt.binary {
				t.Errorf("Binary() = %v, want %v", got, tt.binary)
			}
			if got := tt.f.CanExport(); got != tt.export {
				t.Errorf("CanExport() = %v, want %v", got, tt.export)
			}
			if got := tt.f.Ext(); got != tt.ext {
				t.Errorf("Ext() = %v, want %v", got, tt.ext)
			}
			if tt.f.MimeType() == "" {
				t.Error("MimeType() is empty")
			}
		})
	}
	if Format(42).CanExport() {
		t.Error("invalid format must not be exportable")
	}
}

func TestEnumTextRoundTrip(t *testing.T) {
	var m ImportMode
	if err := m.UnmarshalText([]byte("Replace")); err != nil || m != ImportModeReplace {
		t.Errorf("UnmarshalText() = %v, %v", m, err)
	}
	var s SceneBreakMode
	if err := s.UnmarshalText([]byte("bogus")); !errors.Is(err, ErrInvalidSceneBreakMode) {
		t.Errorf("UnmarshalText(bogus) error = %v", err)
	}
	if got, _ := OutcomeCancelled.MarshalText(); string(got) != "cancelled" {
		t.Errorf("MarshalText() = %s", got)
	}
	if got := Outcome(7).String(); got != "Outcome(7)" {
		t.Errorf("String() = %s", got)
	}
}

func TestNames(t *testing.T) {
	if got := strings.Join(FormatNames(), ","); got != "markdown,docx,epub,pdf,text" {
		t.Errorf("FormatNames() = %q", got)
	}
	if got := strings.Join(ImportModeNames(), ","); got != "append,replace" {
		t.Errorf("ImportModeNames() = %q", got)
	}
	// returned slice is a copy
	names := FormatNames()
	names[0] = "changed"
	if FormatNames()[0] != "markdown" {
		t.Error("FormatNames() exposes internal slice")
	}
}
