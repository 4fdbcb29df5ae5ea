//go:build integration

package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/usecase"
)

func InitializeAnalyzeScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^the subtitles:$`, theSubtitles)
	ctx.Step(`^the oracle replies with:$`, theOracleRepliesWith)
	ctx.Step(`^the oracle answers with status (\d+)$`, theOracleAnswersWithStatus)
	ctx.Step(`^out-of-window highlights are (ignored|warned about|rejected)$`, outOfWindowHighlightsAre)
	ctx.Step(`^I analyze for at most (\d+) highlights between (\d+) and (\d+) seconds$`, iAnalyze)
	ctx.Step(`^(\d+) highlights? (?:is|are) resolved$`, highlightsAreResolved)
	ctx.Step(`^highlight (\d+) is titled "([^"]*)"$`, highlightIsTitled)
	ctx.Step(`^the oracle was asked (\d+) times?$`, theOracleWasAsked)
	ctx.Step(`^the prompt mentions "([^"]*)"$`, thePromptMentions)
	ctx.Step(`^the run fails with "([^"]*)"$`, theRunFailsWith)
}

func theSubtitles(doc *godog.DocString) error {
	state().subtitles = doc.Content
	return nil
}

func theOracleRepliesWith(doc *godog.DocString) error {
	state().oracle.reply = doc.Content
	return nil
}

func theOracleAnswersWithStatus(code int) error {
	state().oracle.err = &ports.OracleStatusError{Provider: "openrouter", StatusCode: code, Body: "rate limited"}
	return nil
}

func outOfWindowHighlightsAre(mode string) error {
	switch mode {
	case "ignored":
		state().policy = usecase.PolicyIgnore
	case "rejected":
		state().policy = usecase.PolicyReject
	default:
		state().policy = usecase.PolicyWarn
	}
	return nil
}

func iAnalyze(maxHighlights, minSec, maxSec int) error {
	s := state()
	s.analysis, s.err = s.usecase().Analyze(context.Background(), usecase.AnalyzeInput{
		Document: s.subtitles,
		Constraints: usecase.Constraints{
			MaxHighlights: maxHighlights,
			MinDuration:   time.Duration(minSec) * time.Second,
			MaxDuration:   time.Duration(maxSec) * time.Second,
		},
	})
	return nil
}

func highlightsAreResolved(n int) error {
	s := state()
	if s.err != nil {
		return fmt.Errorf("unexpected error: %s", usecase.Explain(s.err))
	}
	if got := len(s.analysis.Highlights); got != n {
		return fmt.Errorf("expected %d highlights, got %d", n, got)
	}
	return nil
}

func highlightIsTitled(ordinal int, title string) error {
	hs := state().analysis.Highlights
	if ordinal < 1 || ordinal > len(hs) {
		return fmt.Errorf("highlight %d does not exist (have %d)", ordinal, len(hs))
	}
	if got := hs[ordinal-1].Title; got != title {
		return fmt.Errorf("highlight %d: expected title %q, got %q", ordinal, title, got)
	}
	return nil
}

func theOracleWasAsked(n int) error {
	if got := len(state().oracle.calls); got != n {
		return fmt.Errorf("expected %d oracle calls, got %d", n, got)
	}
	return nil
}

func thePromptMentions(text string) error {
	calls := state().oracle.calls
	if len(calls) == 0 {
		return fmt.Errorf("the oracle was never asked")
	}
	if !strings.Contains(calls[0].User, text) {
		return fmt.Errorf("expected prompt to mention %q", text)
	}
	return nil
}

func theRunFailsWith(prefix string) error {
	s := state()
	if s.err == nil {
		return fmt.Errorf("expected an error starting with %q", prefix)
	}
	if got := usecase.Explain(s.err); !strings.HasPrefix(got, prefix) {
		return fmt.Errorf("expected error starting with %q, got %q", prefix, got)
	}
	return nil
}
