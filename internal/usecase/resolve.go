package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/timedtext"
	"github.com/forPelevin/reelcut/internal/ports"
)

const (
	MaxHighlightsLimit = 20

	defaultTemperature     = 0.7
	defaultMaxOutputTokens = 6000
)

// Constraints bound what the oracle is asked for.
type Constraints struct {
	MaxHighlights int
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

// Validate must pass before the oracle is called.
func (c Constraints) Validate() error {
	switch {
	case c.MaxHighlights < 1 || c.MaxHighlights > MaxHighlightsLimit:
		return &ConfigError{Kind: InvalidConstraints, Reason: fmt.Sprintf("max highlights must be between 1 and %d, got %d", MaxHighlightsLimit, c.MaxHighlights)}
	case c.MinDuration <= 0:
		return &ConfigError{Kind: InvalidConstraints, Reason: fmt.Sprintf("min duration must be > 0, got %s", c.MinDuration)}
	case c.MaxDuration < c.MinDuration:
		return &ConfigError{Kind: InvalidConstraints, Reason: fmt.Sprintf("max duration %s is below min duration %s", c.MaxDuration, c.MinDuration)}
	}
	return nil
}

// DurationPolicy decides what happens to highlights whose length falls
// outside the constraints or whose range is empty.
type DurationPolicy string

const (
	PolicyIgnore DurationPolicy = "ignore"
	PolicyWarn   DurationPolicy = "warn"
	PolicyReject DurationPolicy = "reject"
)

func ParseDurationPolicy(s string) (DurationPolicy, error) {
	switch p := DurationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyWarn, nil
	case PolicyIgnore, PolicyWarn, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duration policy %q (want ignore, warn or reject)", s)
	}
}

type ResolverOptions struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	Policy          DurationPolicy
}

// Resolver asks the oracle for highlights and validates the answer.
type Resolver struct {
	oracle ports.Oracle
	opts   ResolverOptions
	log    *slog.Logger
}

func NewResolver(oracle ports.Oracle, opts ResolverOptions, log *slog.Logger) *Resolver {
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	if opts.Policy == "" {
		opts.Policy = PolicyWarn
	}
	return &Resolver{oracle: oracle, opts: opts, log: orDiscard(log)}
}

// Resolve makes exactly one oracle call. It does not retry.
func (r *Resolver) Resolve(ctx context.Context, entries []timedtext.Entry, synopsis string, c Constraints) ([]highlights.Spec, error) {
	req := ports.OracleRequest{
		Model:           r.opts.Model,
		System:          systemPrompt,
		User:            buildUserPrompt(entries, synopsis, c),
		Temperature:     r.opts.Temperature,
		MaxOutputTokens: r.opts.MaxOutputTokens,
	}

	callCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	r.log.Info("asking oracle for highlights", "entries", len(entries), "model", r.opts.Model)
	reply, err := r.oracle.Complete(callCtx, req)
	if err != nil {
		return nil, classifyOracleError(callCtx, err)
	}
	r.log.Debug("oracle replied", "chars", len(reply))

	raw, err := extractJSONArray(reply)
	if err != nil {
		return nil, &ResolverError{Kind: MalformedResponse, Detail: err.Error(), Err: err}
	}
	specs, err := highlights.Decode([]byte(raw))
	if err != nil {
		return nil, &ResolverError{Kind: MalformedResponse, Detail: err.Error(), Err: err}
	}

	specs = r.applyPolicy(specs, c)
	if len(specs) > c.MaxHighlights {
		r.log.Warn("oracle returned more highlights than asked", "got", len(specs), "max", c.MaxHighlights)
	}
	r.log.Info("highlights resolved", "count", len(specs))
	return specs, nil
}

func (r *Resolver) applyPolicy(specs []highlights.Spec, c Constraints) []highlights.Spec {
	if r.opts.Policy == PolicyIgnore {
		return specs
	}
	out := specs[:0:0]
	for i, s := range specs {
		if s.ValidRange() && s.WithinBounds(c.MinDuration, c.MaxDuration) {
			out = append(out, s)
			continue
		}
		attrs := []any{"highlight", i + 1, "title", s.Title, "start", s.Start, "end", s.End, "duration", s.Duration()}
		if r.opts.Policy == PolicyReject {
			r.log.Warn("dropping highlight outside duration window", attrs...)
			continue
		}
		r.log.Warn("highlight outside duration window", attrs...)
		out = append(out, s)
	}
	return out
}

func classifyOracleError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ResolverError{Kind: OracleTimeout, Detail: err.Error(), Err: err}
	}
	var se *ports.OracleStatusError
	if errors.As(err, &se) {
		return &ResolverError{Kind: Transport, StatusCode: se.StatusCode, Detail: se.Body, Err: err}
	}
	return &ResolverError{Kind: Transport, Detail: err.Error(), Err: err}
}

// extractJSONArray returns the text from the first '[' to the last ']'.
// Commentary around the array is tolerated.
func extractJSONArray(s string) (string, error) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON array in reply: %q", truncate(strings.TrimSpace(s), 200))
	}
	return s[start : end+1], nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
