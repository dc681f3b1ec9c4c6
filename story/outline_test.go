package story

import (
	"errors"
	"strings"
	"testing"
)

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "test", nil, "test\n"},
		{"depth 1", 1, "indented", nil, "  indented\n"},
		{"depth 2", 2, "double indent", nil, "    double indent\n"},
		{"with formatting", 1, "value: %d, name: %s", []any{42, "test"}, "  value: 42, name: test\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			NewTreeWriter(&sb).Line(tt.depth, tt.format, tt.args...)
			if got := sb.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Field(t *testing.T) {
	var sb strings.Builder
	tw := NewTreeWriter(&sb)
	tw.Field(1, "synopsis", "Two \"friends\"\nmeet")
	tw.Field(0, "empty", "")
	want := "  synopsis: \"Two \\\"friends\\\"\\nmeet\"\nempty: \n"
	if sb.String() != want {
		t.Errorf("Field() = %q, want %q", sb.String(), want)
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestTreeWriter_StopsOnError(t *testing.T) {
	w := &failingWriter{}
	tw := NewTreeWriter(w)
	tw.Line(0, "one")
	tw.Line(0, "two")
	if tw.Err() == nil {
		t.Error("Err() = nil, want write error")
	}
	if w.calls != 1 {
		t.Errorf("writer called %d times, want 1", w.calls)
	}
}

func TestOutline(t *testing.T) {
	var sb strings.Builder
	if err := Outline(NewTreeWriter(&sb), Build(sampleDocs()), 0); err != nil {
		t.Fatalf("Outline() error = %v", err)
	}
	want := "c1 [chapter, 0 words] c1\n" +
		"  s1 [scene, 0 words] s1\n" +
		"  s2 [scene, 0 words] s2\n" +
		"c2 [chapter, 0 words] c2\n" +
		"  s3 [scene, 0 words] s3\n"
	if sb.String() != want {
		t.Errorf("Outline() =\n%s\nwant\n%s", sb.String(), want)
	}
}
