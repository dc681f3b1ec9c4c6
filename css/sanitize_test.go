package css

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestSanitize(t *testing.T) {
	src := `@charset "utf-8";
@import url("fonts.css");
/* body text */
@font-face {
  font-family: "Literata";
  src: url(fonts/literata.ttf);
}
body { font-family: serif; background: url("paper.png") repeat; }
h1, h2 { text-align: center; }
@media screen and (min-width: 40em) {
  p { margin: 0 2em; }
}
p.note { font-style: italic; --accent: #333; }
`
	res, err := Sanitize([]byte(src), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	out := string(res.Data)

	for _, gone := range []string{"@import", "@charset", "@font-face", "url(", "Literata", "paper.png", "body text"} {
		if strings.Contains(out, gone) {
			t.Errorf("Sanitize() output should not contain %q:\n%s", gone, out)
		}
	}
	for _, kept := range []string{"font-family: serif;", "text-align: center;", "@media", "margin: 0 2em;", "font-style: italic;", "p.note", "h1"} {
		if !strings.Contains(out, kept) {
			t.Errorf("Sanitize() output should contain %q:\n%s", kept, out)
		}
	}
	if len(res.Removed) != 4 {
		t.Errorf("Removed = %d entries %q, want 4", len(res.Removed), res.Removed)
	}
	if strings.Count(out, "{") != strings.Count(out, "}") {
		t.Errorf("unbalanced braces in output:\n%s", out)
	}
}

func TestSanitize_Empty(t *testing.T) {
	res, err := Sanitize(nil, nil)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if len(res.Data) != 0 || len(res.Removed) != 0 {
		t.Errorf("Sanitize(nil) = %q, %v, want empty", res.Data, res.Removed)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	first, err := Sanitize([]byte(`a { color: blue; } @import "x.css"; em { font-weight: bold }`), nil)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	second, err := Sanitize(first.Data, nil)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if string(first.Data) != string(second.Data) {
		t.Errorf("second pass changed output:\n%s\n---\n%s", first.Data, second.Data)
	}
	if len(second.Removed) != 0 {
		t.Errorf("second pass removed %v", second.Removed)
	}
}
