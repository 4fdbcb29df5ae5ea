// Package openaisdk talks to OpenAI-compatible chat endpoints through the
// official SDK.
package openaisdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/forPelevin/reelcut/internal/ports"
)

const (
	defaultModel = "gpt-4o-mini"
	providerName = "openai"
)

type Adapter struct {
	client openai.Client
}

// New builds a client. An empty baseURL keeps the SDK default. The SDK's own
// retries are disabled so a single attempt maps to a single request.
func New(apiKey, baseURL string, extra ...option.RequestOption) *Adapter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &Adapter{client: openai.NewClient(opts...)}
}

func (a *Adapter) Complete(ctx context.Context, r ports.OracleRequest) (string, error) {
	model := r.Model
	if model == "" {
		model = defaultModel
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if r.System != "" {
		msgs = append(msgs, openai.SystemMessage(r.System))
	}
	msgs = append(msgs, openai.UserMessage(r.User))

	params := openai.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       model,
		Temperature: openai.Float(r.Temperature),
	}
	if r.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(r.MaxOutputTokens))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", context.DeadlineExceeded
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &ports.OracleStatusError{
				Provider:   providerName,
				StatusCode: apiErr.StatusCode,
				Body:       truncate(apiErr.Message, 400),
			}
		}
		return "", fmt.Errorf("openai request (model=%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ ports.Oracle = (*Adapter)(nil)
