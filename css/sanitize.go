// Package css prepares user supplied stylesheets for packaging into EPUB.
// Packages produced by the program carry no fonts or images, so rules
// pointing to external resources are removed.
package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Result is sanitized stylesheet with the list of things removed from it.
type Result struct {
	Data    []byte
	Removed []string
}

// Sanitize parses stylesheet and writes it back without @import and
// @font-face rules and without declarations referencing url() resources.
func Sanitize(data []byte, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("css")

	s := &sanitizer{
		p:   css.NewParser(parse.NewInput(bytes.NewReader(data)), false),
		out: new(bytes.Buffer),
	}
	if err := s.run(); err != nil {
		return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
	}
	for _, r := range s.removed {
		log.Debug("Removed from stylesheet", zap.String("what", r))
	}
	return &Result{Data: s.out.Bytes(), Removed: s.removed}, nil
}

type sanitizer struct {
	p       *css.Parser
	out     *bytes.Buffer
	removed []string
}

func (s *sanitizer) run() error {
	for {
		gt, _, data := s.p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := s.p.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil

		case css.CommentGrammar:

		case css.AtRuleGrammar:
			name := strings.ToLower(string(data))
			if name == "@import" || name == "@charset" {
				s.removed = append(s.removed, name+" "+tokensString(s.p.Values()))
				continue
			}
			s.writeAtRule(data)
			s.out.WriteString(";\n")

		case css.BeginAtRuleGrammar:
			if strings.EqualFold(string(data), "@font-face") {
				s.removed = append(s.removed, "@font-face")
				s.skipBlock()
				continue
			}
			s.writeAtRule(data)
			s.out.WriteString(" {\n")

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			s.out.WriteString("}\n")

		case css.QualifiedRuleGrammar:
			s.out.WriteString(strings.TrimSpace(tokensString(s.p.Values())))
			s.out.WriteString(", ")

		case css.BeginRulesetGrammar:
			s.out.WriteString(strings.TrimSpace(tokensString(s.p.Values())))
			s.out.WriteString(" {\n")

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			values := s.p.Values()
			if hasURL(values) {
				s.removed = append(s.removed, string(data)+": "+tokensString(values))
				continue
			}
			s.out.WriteString("  ")
			s.out.Write(data)
			s.out.WriteString(": ")
			s.out.WriteString(strings.TrimSpace(tokensString(values)))
			s.out.WriteString(";\n")

		case css.TokenGrammar:
			s.out.Write(data)
		}
	}
}

func (s *sanitizer) writeAtRule(name []byte) {
	s.out.Write(name)
	if v := strings.TrimSpace(tokensString(s.p.Values())); v != "" {
		s.out.WriteByte(' ')
		s.out.WriteString(v)
	}
}

// skipBlock consumes tokens up to the end of current block including nested
// ones.
func (s *sanitizer) skipBlock() {
	for depth := 1; depth > 0; {
		switch gt, _, _ := s.p.Next(); gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func tokensString(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return sb.String()
}

func hasURL(tokens []css.Token) bool {
	for _, t := range tokens {
		switch {
		case t.TokenType == css.URLToken:
			return true
		case t.TokenType == css.FunctionToken && strings.EqualFold(string(t.Data), "url("):
			return true
		}
	}
	return false
}
