//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/usecase"
)

func InitializeExecuteScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^a source video "([^"]*)"$`, aSourceVideo)
	ctx.Step(`^the media tool fails on cut (\d+)$`, theMediaToolFailsOnCut)
	ctx.Step(`^I process highlights "([^"]*)" from "([^"]*)"$`, iProcessHighlightsFrom)
	ctx.Step(`^I process all highlights from "([^"]*)"$`, iProcessAllHighlightsFrom)
	ctx.Step(`^the clips are cut as:$`, theClipsAreCutAs)
	ctx.Step(`^the compilation joins (\d+) clips in order$`, theCompilationJoinsClipsInOrder)
	ctx.Step(`^no compilation is made$`, noCompilationIsMade)
	ctx.Step(`^the execution sheet lists "([^"]*)" before "([^"]*)"$`, theExecutionSheetListsBefore)
	ctx.Step(`^progress ends at (\d+)%$`, progressEndsAt)
}

func aSourceVideo(name string) error {
	s := state()
	p := filepath.Join(s.dir, name)
	if err := os.WriteFile(p, []byte("video"), 0o644); err != nil {
		return err
	}
	s.files.mark(p)
	return nil
}

func theMediaToolFailsOnCut(n int) error {
	state().media.failAt = n
	return nil
}

func iProcessHighlightsFrom(selection, source string) error {
	s := state()
	if len(s.analysis.Highlights) == 0 {
		return errNoAnalysis
	}
	sel, err := timeline.ParseSelection(selection, len(s.analysis.Highlights))
	if err != nil {
		return fmt.Errorf("selection %q: %w", selection, err)
	}
	s.execute(source, sel)
	return nil
}

func iProcessAllHighlightsFrom(source string) error {
	s := state()
	if len(s.analysis.Highlights) == 0 {
		return errNoAnalysis
	}
	s.execute(source, timeline.All(len(s.analysis.Highlights)))
	return nil
}

func (s *scenarioState) execute(source string, sel []int) {
	s.result, s.err = s.usecase().Execute(context.Background(), usecase.ExecuteInput{
		Source:  filepath.Join(s.dir, source),
		Plan:    timeline.Plan(s.analysis.Highlights, sel),
		OutDir:  s.outDir(),
		Entries: s.analysis.Entries,
		OnProgress: func(p usecase.Progress) {
			s.progress = append(s.progress, p)
		},
	})
}

func theClipsAreCutAs(table *godog.Table) error {
	s := state()
	if s.err != nil {
		return fmt.Errorf("unexpected error: %s", usecase.Explain(s.err))
	}
	rows := table.Rows[1:]
	if len(rows) != len(s.media.cuts) {
		return fmt.Errorf("expected %d cuts, got %d", len(rows), len(s.media.cuts))
	}
	for i, row := range rows {
		cut := s.media.cuts[i]
		wantStart, wantDur, wantFile := row.Cells[0].Value, row.Cells[1].Value, row.Cells[2].Value
		if got := fmt.Sprintf("%.3f", cut.Start.Seconds()); got != wantStart {
			return fmt.Errorf("cut %d: expected start %s, got %s", i+1, wantStart, got)
		}
		if got := fmt.Sprintf("%.3f", cut.Duration.Seconds()); got != wantDur {
			return fmt.Errorf("cut %d: expected duration %s, got %s", i+1, wantDur, got)
		}
		if got := filepath.Base(cut.Output); got != wantFile {
			return fmt.Errorf("cut %d: expected file %s, got %s", i+1, wantFile, got)
		}
	}
	return nil
}

func theCompilationJoinsClipsInOrder(n int) error {
	s := state()
	if s.err != nil {
		return fmt.Errorf("unexpected error: %s", usecase.Explain(s.err))
	}
	if len(s.media.concats) != 1 {
		return fmt.Errorf("expected one concat, got %d", len(s.media.concats))
	}
	joined := s.media.joined[0]
	if len(joined) != n {
		return fmt.Errorf("expected %d concat inputs, got %d", n, len(joined))
	}
	for i, in := range joined {
		want, err := filepath.Abs(s.result.Clips[i])
		if err != nil {
			return err
		}
		if in != want {
			return fmt.Errorf("concat input %d is %s, want %s", i+1, in, want)
		}
	}
	if _, err := os.Stat(s.result.Compilation); err != nil {
		return fmt.Errorf("compilation missing: %w", err)
	}
	return nil
}

func noCompilationIsMade() error {
	s := state()
	if len(s.media.concats) != 0 {
		return fmt.Errorf("concat must not run, got %d calls", len(s.media.concats))
	}
	if s.result.Compilation != "" {
		return fmt.Errorf("no result expected, got %+v", s.result)
	}
	matches, _ := filepath.Glob(filepath.Join(s.outDir(), "*_compilation.mp4"))
	if len(matches) != 0 {
		return fmt.Errorf("unexpected compilation files %v", matches)
	}
	return nil
}

func theExecutionSheetListsBefore(first, second string) error {
	s := state()
	b, err := os.ReadFile(s.result.Sheet)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}
	text := string(b)
	i, j := strings.Index(text, first), strings.Index(text, second)
	if i < 0 || j < 0 {
		return fmt.Errorf("sheet is missing %q or %q", first, second)
	}
	if i > j {
		return fmt.Errorf("%q appears after %q", first, second)
	}
	return nil
}

func progressEndsAt(pct int) error {
	p := state().progress
	if len(p) == 0 {
		return fmt.Errorf("no progress reported")
	}
	if got := p[len(p)-1].Percent(); got != pct {
		return fmt.Errorf("expected final progress %d%%, got %d%%", pct, got)
	}
	return nil
}
