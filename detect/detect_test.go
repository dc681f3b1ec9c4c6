package detect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"
)

const story = `Mara walked into Kestrel Harbor at dawn. She looked for Tomas near the docks.
Tomas waved from the pier. Later Mara and Tomas left Kestrel Harbor together.
In the evening they came back to Kestrel Harbor.`

func TestHeuristic(t *testing.T) {
	h := NewHeuristic(language.English, zaptest.NewLogger(t))

	tests := []struct {
		name  string
		types []string
		want  []Candidate
	}{
		{"all types", nil, []Candidate{
			{Name: "Kestrel Harbor", Type: "location"},
			{Name: "Tomas", Type: "character"},
		}},
		{"characters only", []string{"character"}, []Candidate{
			{Name: "Tomas", Type: "character"},
		}},
		{"unsupported types", []string{"item", "faction"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Detect(context.Background(), story, tt.types)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHeuristicCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristic(language.English, nil).Detect(ctx, story, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Detect() error = %v, want context.Canceled", err)
	}
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		lang language.Tag
		in   string
		want []string
	}{
		{"english", language.English, "One two. Three four! Five?", []string{"One two.", "Three four!", "Five?"}},
		{"fallback", language.German, "Eins zwei. Drei vier!\n\nFünf?", []string{"Eins zwei.", "Drei vier!", "Fünf?"}},
		{"empty", language.English, "  \n ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(tt.lang, zaptest.NewLogger(t))
			got := slices.Collect(s.Sentences(tt.in))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Sentences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWords(t *testing.T) {
	got := slices.Collect(Words(`"Well," said Mary-Jane, "that is Tom's hat..."`))
	want := []string{"Well", "said", "Mary-Jane", "that", "is", "Tom", "hat"}
	if !slices.Equal(got, want) {
		t.Errorf("Words() = %q, want %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	in := []Candidate{
		{Name: " Mara ", Type: "Character", Aliases: []string{"mara", "Captain"}},
		{Name: "", Type: "character"},
		{Name: "Starship", Type: "vehicle"},
		{Name: "MARA", Type: "character", Aliases: []string{"captain", "Red"}, Description: "Pilot."},
	}
	want := []Candidate{
		{Name: "Mara", Type: "character", Aliases: []string{"Captain", "Red"}, Description: "Pilot."},
	}
	got := normalize(in, []string{"character", "location"})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalize() = %+v, want %+v", got, want)
	}
}

func TestClient(t *testing.T) {
	answer := "```json\n" + `[{"name":"Mara","type":"Character","aliases":["The Captain"]},{"name":"Blob","type":"spaceship"}]` + "\n```"

	var gotReq request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("x-api-key = %q, want %q", r.Header.Get("x-api-key"), "secret")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("anthropic-version header is missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": answer}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "secret", 0, zaptest.NewLogger(t))
	defer c.Close()

	got, err := c.Detect(context.Background(), "Mara flew.", []string{"character", "location"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	want := []Candidate{{Name: "Mara", Type: "character", Aliases: []string{"The Captain"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect() = %+v, want %+v", got, want)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 1 {
		t.Fatalf("request = %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[0].Content, "character, location") {
		t.Errorf("prompt does not list entity types: %q", gotReq.Messages[0].Content)
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "m", "", 0, nil).Detect(context.Background(), "text", nil)
	if !errors.Is(err, ErrNoKey) {
		t.Errorf("Detect() without key error = %v, want ErrNoKey", err)
	}

	_, err = NewClient(srv.URL, "m", "key", 0, nil).Detect(context.Background(), "text", nil)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Detect() error = %v, want status 503", err)
	}

	got, err := NewClient(srv.URL, "m", "key", 0, nil).Detect(context.Background(), "   ", nil)
	if err != nil || got != nil {
		t.Errorf("Detect() on blank text = %v, %v, want nil, nil", got, err)
	}
}
