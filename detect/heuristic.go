package detect

import (
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"folio/project"
)

// MinMentions is how many times a proper name has to appear before heuristic
// detector reports it.
const MinMentions = 2

// words which are capitalized for reasons other than being names
var stopWords = map[string]bool{
	"i": true, "i'm": true, "i'll": true, "i'd": true, "i've": true,
	"mr": true, "mrs": true, "ms": true, "dr": true, "sir": true, "lady": true, "lord": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true, "july": true,
	"august": true, "september": true, "october": true, "november": true, "december": true,
	"chapter": true, "part": true, "book": true, "scene": true, "the": true, "a": true, "an": true,
	"ok": true, "okay": true, "yes": true, "no": true, "oh": true,
}

// prepositions which usually precede place names
var placeWords = map[string]bool{
	"in": true, "at": true, "to": true, "from": true, "into": true, "near": true,
	"through": true, "toward": true, "towards": true, "across": true, "of": true,
}

// Heuristic detects capitalized names repeated through the text without any
// network access. Names mostly following place prepositions are reported as
// locations, the rest as characters.
type Heuristic struct {
	splitter *Splitter
	log      *zap.Logger
}

func NewHeuristic(lang language.Tag, log *zap.Logger) *Heuristic {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("detect")
	return &Heuristic{splitter: NewSplitter(lang, log), log: log}
}

type mention struct {
	name   string
	count  int
	places int
	first  int
}

func (h *Heuristic) Detect(ctx context.Context, text string, types []string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wantCharacters := len(types) == 0 || slices.Contains(types, project.EntityCharacter)
	wantLocations := len(types) == 0 || slices.Contains(types, project.EntityLocation)
	if !wantCharacters && !wantLocations {
		return nil, nil
	}

	mentions := make(map[string]*mention)
	order := 0
	for sentence := range h.splitter.Sentences(text) {
		var words []string
		for w := range Words(sentence) {
			words = append(words, w)
		}
		for i := 1; i < len(words); i++ {
			if !isName(words[i]) {
				continue
			}
			j := i
			for j+1 < len(words) && isName(words[j+1]) {
				j++
			}
			name := strings.Join(words[i:j+1], " ")
			key := strings.ToLower(name)
			m, ok := mentions[key]
			if !ok {
				order++
				m = &mention{name: name, first: order}
				mentions[key] = m
			}
			m.count++
			if placeWords[strings.ToLower(words[i-1])] {
				m.places++
			}
			i = j
		}
	}

	var found []*mention
	for _, m := range mentions {
		if m.count >= MinMentions {
			found = append(found, m)
		}
	}
	slices.SortFunc(found, func(a, b *mention) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return a.first - b.first
	})

	var out []Candidate
	for _, m := range found {
		typ := project.EntityCharacter
		if m.places*2 > m.count {
			typ = project.EntityLocation
		}
		if (typ == project.EntityCharacter && !wantCharacters) || (typ == project.EntityLocation && !wantLocations) {
			continue
		}
		out = append(out, Candidate{Name: m.name, Type: typ})
	}
	h.log.Debug("Heuristic detection complete", zap.Int("names", len(mentions)), zap.Int("entities", len(out)))
	return normalize(out, types), nil
}

func isName(w string) bool {
	if stopWords[strings.ToLower(w)] {
		return false
	}
	r, _ := utf8.DecodeRuneInString(w)
	if !unicode.IsUpper(r) {
		return false
	}
	// all caps words are usually emphasis or acronyms
	return strings.ContainsFunc(w, unicode.IsLower)
}
