package parse

import (
	"context"
	"errors"
	"testing"
)

func TestReflow(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"CHAPTER ONE\n\nShe walked\ninto the room.\n", "CHAPTER ONE\n\nShe walked into the room."},
		{"a long hyphen-\nated word", "a long hyphenated word"},
		{"dash at end -\nnext", "dash at end - next"},
		{"  indented\r\n  lines  ", "indented lines"},
	}
	for _, tt := range tests {
		if got := reflow(tt.in); got != tt.want {
			t.Errorf("reflow(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPdfMalformed(t *testing.T) {
	_, err := NewPdf(nil).Parse(context.Background(), []byte("%PDF-1.4 not really"), "bad.pdf")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse() error = %v, want ErrMalformed", err)
	}
}
