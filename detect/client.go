package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultTimeout  = 60 * time.Second

	apiVersion = "2023-06-01"
	maxTokens  = 4096
	// MaxInput limits amount of text sent for detection.
	MaxInput = 60000
)

var ErrNoKey = errors.New("detection API key is not configured")

// Client calls messages API of a hosted language model to extract entities.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(endpoint, model, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.Named("detect"),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You extract story entities from fiction manuscripts.
Answer with JSON array only, no commentary. Every element is an object with
fields "name", "type", "aliases" (array of strings) and "description" (one
sentence). Use only the entity types you are given.`

func prompt(text string, types []string) string {
	var sb strings.Builder
	sb.WriteString("Entity types: ")
	sb.WriteString(strings.Join(types, ", "))
	sb.WriteString("\n\nManuscript:\n")
	sb.WriteString(text)
	return sb.String()
}

func (c *Client) Detect(ctx context.Context, text string, types []string) ([]Candidate, error) {
	if c.apiKey == "" {
		return nil, ErrNoKey
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if runes := []rune(text); len(runes) > MaxInput {
		c.log.Debug("Detection input truncated", zap.Int("runes", len(runes)), zap.Int("limit", MaxInput))
		text = string(runes[:MaxInput])
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt(text, types)}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("Detection response received", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("detection error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return nil, errors.New("empty detection response")
	}

	answer := stripCodeBlock(apiResp.Content[0].Text)
	var candidates []Candidate
	if err := json.Unmarshal([]byte(answer), &candidates); err != nil {
		return nil, fmt.Errorf("parse entities json: %w (raw: %s)", err, truncate(answer, 200))
	}
	return normalize(candidates, types), nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
