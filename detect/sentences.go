package detect

import (
	"iter"
	"regexp"
	"strings"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Splitter breaks text into sentences. Trained tokenizer is only available
// for English, other languages use punctuation based splitting.
type Splitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewSplitter(lang language.Tag, log *zap.Logger) *Splitter {
	if log == nil {
		log = zap.NewNop()
	}
	base, _ := lang.Base()
	if base.String() != "en" {
		log.Debug("No trained sentence tokenizer for language, using punctuation", zap.Stringer("language", lang))
		return &Splitter{}
	}
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("Unable to load sentences tokenizer data", zap.Stringer("tag", lang), zap.Error(err))
		return &Splitter{}
	}
	return &Splitter{tokenizer: tokenizer}
}

var reSentenceEnd = regexp.MustCompile(`[.!?…]+["'”’»)]*\s+`)

// Sentences returns an iterator over trimmed non-empty sentences.
func (s *Splitter) Sentences(in string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for para := range strings.SplitSeq(in, "\n") {
			var parts []string
			if s != nil && s.tokenizer != nil {
				for _, sentence := range s.tokenizer.Tokenize(para) {
					parts = append(parts, sentence.Text)
				}
			} else {
				last := 0
				for _, loc := range reSentenceEnd.FindAllStringIndex(para, -1) {
					parts = append(parts, para[last:loc[1]])
					last = loc[1]
				}
				parts = append(parts, para[last:])
			}
			for _, p := range parts {
				if p = strings.TrimSpace(p); p == "" {
					continue
				}
				if !yield(p) {
					return
				}
			}
		}
	}
}

// Words returns an iterator over words of a sentence with surrounding
// punctuation removed. Apostrophes and hyphens inside words are kept.
func Words(in string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, w := range strings.FieldsFunc(in, isSeparator) {
			w = strings.TrimFunc(w, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			w = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "’s")
			if w == "" {
				continue
			}
			if !yield(w) {
				return
			}
		}
	}
}

func isSeparator(r rune) bool {
	if r == '\'' || r == '’' || r == '-' {
		return false
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
