package openrouter

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

	"github.com/forPelevin/reelcut/internal/ports"
)

const (
	defaultModel = "anthropic/claude-3.5-sonnet"
	providerName = "openrouter"
	bodyLimit    = 400
)

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client
}

type Option func(*Adapter)

// WithHTTPClient replaces the default client, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func New(apiKey, baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		key:     apiKey,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// Complete sends one chat completion and returns the first choice's text.
// Callers bound the request with ctx; the adapter never retries.
func (a *Adapter) Complete(ctx context.Context, r ports.OracleRequest) (string, error) {
	model := r.Model
	if model == "" {
		model = defaultModel
	}
	payload := chatRequest{
		Model:       model,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxOutputTokens,
	}
	if r.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: r.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: r.User})

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", context.DeadlineExceeded
		}
		return "", fmt.Errorf("openrouter request (model=%s): %s", model, redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &ports.OracleStatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       truncate(redactSecrets(string(rb), a.key), bodyLimit),
		}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", errors.New("openrouter: response has no choices")
	}
	return messageContentToString(raw.Choices[0].Message.Content)
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}

var _ ports.Oracle = (*Adapter)(nil)
