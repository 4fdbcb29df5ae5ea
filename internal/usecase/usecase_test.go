package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/sheet"
	"github.com/forPelevin/reelcut/internal/domain/timedtext"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/ports"
)

const threeEntrySRT = `1
00:00:10,000 --> 00:00:14,000
Where were you last night?

2
00:00:15,000 --> 00:00:19,500
I was at the office.

3
00:01:00,000 --> 00:01:05,000
You're lying.
`

func hlJSON(title, start, end string) string {
	return fmt.Sprintf(`{
  "title": %q,
  "hook_subtitle": "hook for %s",
  "start_time": %q,
  "end_time": %q,
  "cut_sequence": "linear",
  "scene_descriptions": ["scene one"],
  "subtitle_strategy": {"original_subtitles": ["line"]},
  "editing_direction": "tight cuts",
  "reason": "strong moment"
}`, title, title, start, end)
}

type fakeOracle struct {
	reply string
	err   error
	block bool

	calls   int
	lastReq ports.OracleRequest
}

func (f *fakeOracle) Complete(ctx context.Context, req ports.OracleRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type fakeMedia struct {
	mu        sync.Mutex
	cuts      []ports.CutRequest
	concats   []ports.ConcatRequest
	manifests []string

	failCutN int // 1-based cut call that fails; 0 never fails
	cutErr   error
	block    bool

	concatErr   error
	blockConcat bool
	delay    func(req ports.CutRequest) time.Duration
}

func (f *fakeMedia) Cut(ctx context.Context, req ports.CutRequest) error {
	f.mu.Lock()
	f.cuts = append(f.cuts, req)
	n := len(f.cuts)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.delay != nil {
		select {
		case <-time.After(f.delay(req)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failCutN != 0 && n == f.failCutN {
		return f.cutErr
	}
	return nil
}

func (f *fakeMedia) Concat(ctx context.Context, req ports.ConcatRequest) error {
	b, err := os.ReadFile(req.Manifest)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.concats = append(f.concats, req)
	f.manifests = append(f.manifests, string(b))
	f.mu.Unlock()

	if f.blockConcat {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.concatErr
}

type fakeFiles struct{ missing map[string]bool }

func (f fakeFiles) Exists(path string) bool { return !f.missing[path] }

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func newTestUsecase(oracle ports.Oracle, media ports.MediaCutter, opts Options) Usecase {
	return New(Deps{Oracle: oracle, Media: media, Files: fakeFiles{}, Now: fixedNow}, opts)
}

func defaultConstraints() Constraints {
	return Constraints{MaxHighlights: 5, MinDuration: 8 * time.Second, MaxDuration: 15 * time.Second}
}

func makePlan(t *testing.T, ranges ...[2]string) timeline.CutPlan {
	t.Helper()
	var parts []string
	for i, r := range ranges {
		parts = append(parts, hlJSON(fmt.Sprintf("H%d", i+1), r[0], r[1]))
	}
	specs, err := highlights.Decode([]byte("[" + strings.Join(parts, ",") + "]"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return timeline.Plan(specs, timeline.All(len(specs)))
}

func TestEndToEnd_AnalyzeThenExecute(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{reply: "Sure, here are the highlights:\n[" +
		hlJSON("First reveal", "00:00:10,000", "00:00:20,000") + "," +
		hlJSON("The lie", "00:01:00,000", "00:01:12,000") + "]\nEnjoy!"}
	media := &fakeMedia{}
	uc := newTestUsecase(oracle, media, Options{})

	an, err := uc.Analyze(context.Background(), AnalyzeInput{
		Document:    threeEntrySRT,
		Synopsis:    "test",
		Constraints: defaultConstraints(),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if oracle.calls != 1 {
		t.Fatalf("expected 1 oracle call, got %d", oracle.calls)
	}
	if !strings.Contains(oracle.lastReq.User, "[00:00:10,000 - 00:00:14,000] Where were you last night?") {
		t.Fatalf("prompt does not render subtitle lines:\n%s", oracle.lastReq.User)
	}
	if oracle.lastReq.Temperature != 0.7 || oracle.lastReq.MaxOutputTokens != 6000 {
		t.Fatalf("unexpected sampling settings: %+v", oracle.lastReq)
	}
	if an.Stats.EntryCount != 3 || an.Stats.TotalDurationSeconds != 65 {
		t.Fatalf("unexpected stats: %+v", an.Stats)
	}
	if len(an.Highlights) != 2 {
		t.Fatalf("expected 2 highlights, got %d", len(an.Highlights))
	}

	outDir := t.TempDir()
	var events []Progress
	res, err := uc.Execute(context.Background(), ExecuteInput{
		Source:     "/videos/episode.mp4",
		Plan:       timeline.Plan(an.Highlights, []int{0, 1}),
		BaseName:   "episode",
		OutDir:     outDir,
		OnProgress: func(p Progress) { events = append(events, p) },
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(media.cuts) != 2 {
		t.Fatalf("expected 2 cuts, got %d", len(media.cuts))
	}
	wantDur := []time.Duration{10 * time.Second, 12 * time.Second}
	wantStart := []time.Duration{10 * time.Second, 60 * time.Second}
	for i, c := range media.cuts {
		if c.Duration != wantDur[i] || c.Start != wantStart[i] {
			t.Fatalf("cut %d: start %v duration %v, want %v %v", i, c.Start, c.Duration, wantStart[i], wantDur[i])
		}
		if c.Output != res.Clips[i] {
			t.Fatalf("cut %d output %q does not match result clip %q", i, c.Output, res.Clips[i])
		}
	}
	if want := filepath.Join(outDir, "clips", "episode_clip01_00-00-10,000_00-00-20,000.mp4"); res.Clips[0] != want {
		t.Fatalf("unexpected clip path %q, want %q", res.Clips[0], want)
	}

	if len(media.concats) != 1 {
		t.Fatalf("expected 1 concat, got %d", len(media.concats))
	}
	wantManifest := "file '" + res.Clips[0] + "'\nfile '" + res.Clips[1] + "'\n"
	if media.manifests[0] != wantManifest {
		t.Fatalf("manifest = %q, want %q", media.manifests[0], wantManifest)
	}
	if res.Compilation != filepath.Join(outDir, "episode_compilation.mp4") || media.concats[0].Output != res.Compilation {
		t.Fatalf("unexpected compilation path %q", res.Compilation)
	}

	b, err := os.ReadFile(res.Sheet)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	s := string(b)
	first, second := strings.Index(s, "First reveal"), strings.Index(s, "The lie")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("sheet should list both titles in order:\n%s", s)
	}
	if !strings.Contains(s, sheet.ComplianceStatement) {
		t.Fatalf("sheet missing compliance statement")
	}
	if !strings.Contains(s, "Source video: episode.mp4") {
		t.Fatalf("sheet should default the source label to the file name")
	}

	if len(events) != 4 || events[len(events)-1].Percent() != 100 {
		t.Fatalf("unexpected progress events: %+v", events)
	}
	if events[0].Stage != StageCut || events[0].Ordinal != 1 || events[2].Stage != StageConcat {
		t.Fatalf("unexpected progress order: %+v", events)
	}
}

func TestExecute_CutFailureAbortsBeforeConcat(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{
		failCutN: 2,
		cutErr:   &ports.ToolError{Tool: "ffmpeg", ExitCode: 1, Diagnostic: "Invalid data found when processing input"},
	}
	uc := newTestUsecase(&fakeOracle{}, media, Options{})
	plan := makePlan(t,
		[2]string{"00:00:10,000", "00:00:20,000"},
		[2]string{"00:00:30,000", "00:00:40,000"},
		[2]string{"00:00:50,000", "00:01:00,000"},
	)

	res, err := uc.Execute(context.Background(), ExecuteInput{Source: "in.mp4", Plan: plan, OutDir: t.TempDir()})
	var ce *CutterError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CutterError, got %v", err)
	}
	if ce.Kind != ToolFailure || ce.Ordinal != 2 || ce.Detail != "Invalid data found when processing input" {
		t.Fatalf("unexpected cutter error: %+v", ce)
	}
	var te *ports.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("cutter error should wrap the tool error")
	}
	if len(media.cuts) != 2 {
		t.Fatalf("expected the third cut to be skipped, got %d cuts", len(media.cuts))
	}
	if len(media.concats) != 0 {
		t.Fatalf("concat must not run after a failed cut, got %d calls", len(media.concats))
	}
	if res.Compilation != "" || res.Clips != nil {
		t.Fatalf("no partial result may be returned: %+v", res)
	}
	if msg := Explain(err); !strings.HasPrefix(msg, "media tool failed on clip 2") {
		t.Fatalf("unexpected explanation %q", msg)
	}
}

func TestExecute_ConcatFailureReturnsNoResult(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		media    *fakeMedia
		timeout  time.Duration
		wantKind CutterErrorKind
		wantText string
	}{
		{
			name: "tool failure",
			media: &fakeMedia{concatErr: &ports.ToolError{
				Tool: "ffmpeg", ExitCode: 1, Diagnostic: "Non-monotonous DTS in output stream",
			}},
			wantKind: ToolFailure,
			wantText: "Non-monotonous DTS",
		},
		{
			name:     "deadline",
			media:    &fakeMedia{blockConcat: true},
			timeout:  20 * time.Millisecond,
			wantKind: ToolTimeout,
			wantText: "20ms",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			outDir := t.TempDir()
			uc := newTestUsecase(&fakeOracle{}, tc.media, Options{ConcatTimeout: tc.timeout})
			res, err := uc.Execute(context.Background(), ExecuteInput{
				Source:   "in.mp4",
				Plan:     makePlan(t, [2]string{"00:00:10,000", "00:00:20,000"}, [2]string{"00:01:00,000", "00:01:10,000"}),
				BaseName: "ep",
				OutDir:   outDir,
			})

			var ce *ConcatError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConcatError, got %v", err)
			}
			if ce.Kind != tc.wantKind {
				t.Fatalf("kind = %v, want %v", ce.Kind, tc.wantKind)
			}
			if !strings.Contains(ce.Error(), tc.wantText) {
				t.Fatalf("error %q should mention %q", ce.Error(), tc.wantText)
			}
			if res.Compilation != "" || res.Sheet != "" || res.Clips != nil {
				t.Fatalf("expected zero result, got %+v", res)
			}
			if len(tc.media.cuts) != 2 || len(tc.media.concats) != 1 {
				t.Fatalf("expected 2 cuts and 1 concat, got %d and %d", len(tc.media.cuts), len(tc.media.concats))
			}
			if _, err := os.Stat(filepath.Join(outDir, "ep_execution_sheet.txt")); !os.IsNotExist(err) {
				t.Fatalf("execution sheet must not be written, stat err=%v", err)
			}
			if !strings.HasPrefix(Explain(err), "media tool failed") {
				t.Fatalf("unexpected explanation %q", Explain(err))
			}
		})
	}
}

func TestExecute_RejectsBaseNameOutsideOutDir(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"../escaped", "a/b", "..", `dir\name`} {
		media := &fakeMedia{}
		uc := newTestUsecase(&fakeOracle{}, media, Options{})
		_, err := uc.Execute(context.Background(), ExecuteInput{
			Source:   "in.mp4",
			Plan:     makePlan(t, [2]string{"00:00:10,000", "00:00:20,000"}),
			BaseName: base,
			OutDir:   t.TempDir(),
		})
		if !errors.Is(err, ErrInvalidBaseName) {
			t.Fatalf("base %q: expected ErrInvalidBaseName, got %v", base, err)
		}
		if len(media.cuts) != 0 {
			t.Fatalf("base %q: nothing should be cut", base)
		}
	}
}

func TestAnalyze_InvalidConstraintsNeverCallOracle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    Constraints
	}{
		{"max below min", Constraints{MaxHighlights: 5, MinDuration: 15 * time.Second, MaxDuration: 8 * time.Second}},
		{"zero highlights", Constraints{MaxHighlights: 0, MinDuration: 8 * time.Second, MaxDuration: 15 * time.Second}},
		{"too many highlights", Constraints{MaxHighlights: 21, MinDuration: 8 * time.Second, MaxDuration: 15 * time.Second}},
		{"zero min", Constraints{MaxHighlights: 3, MinDuration: 0, MaxDuration: 15 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{reply: "[]"}
			uc := newTestUsecase(oracle, &fakeMedia{}, Options{})
			_, err := uc.Analyze(context.Background(), AnalyzeInput{Document: threeEntrySRT, Constraints: tt.c})
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Kind != InvalidConstraints {
				t.Fatalf("expected InvalidConstraints, got %v", err)
			}
			if oracle.calls != 0 {
				t.Fatalf("oracle must not be called, got %d calls", oracle.calls)
			}
		})
	}
}

func TestAnalyze_EmptyDocument(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{reply: "[]"}
	uc := newTestUsecase(oracle, &fakeMedia{}, Options{})
	_, err := uc.Analyze(context.Background(), AnalyzeInput{Document: "nothing here", Constraints: defaultConstraints()})
	if !errors.Is(err, ErrParseEmpty) {
		t.Fatalf("expected ErrParseEmpty, got %v", err)
	}
	if oracle.calls != 0 {
		t.Fatalf("oracle must not be called for an empty document")
	}
}

func TestAnalyze_StrictRejectsSkippedBlocks(t *testing.T) {
	t.Parallel()

	doc := threeEntrySRT + "\nbroken\nblock\n"
	uc := newTestUsecase(&fakeOracle{reply: "[]"}, &fakeMedia{}, Options{})

	_, err := uc.Analyze(context.Background(), AnalyzeInput{Document: doc, Constraints: defaultConstraints(), Strict: true})
	var se *StrictParseError
	if !errors.As(err, &se) || len(se.Skipped) != 1 {
		t.Fatalf("expected StrictParseError with one skip, got %v", err)
	}

	an, err := uc.Analyze(context.Background(), AnalyzeInput{Document: doc, Constraints: defaultConstraints()})
	if err != nil {
		t.Fatalf("lenient analyze: %v", err)
	}
	if len(an.Skipped) != 1 || len(an.Entries) != 3 {
		t.Fatalf("unexpected lenient result: %d entries, %d skipped", len(an.Entries), len(an.Skipped))
	}
}

func TestResolve_ExtractsBracketedArray(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{reply: "Here you go: [" + hlJSON("Only one", "00:00:10,000", "00:00:20,000") + "] Hope this helps!"}
	r := NewResolver(oracle, ResolverOptions{}, nil)
	specs, err := r.Resolve(context.Background(), timedtext.Parse(threeEntrySRT), "", defaultConstraints())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(specs) != 1 || specs[0].Title != "Only one" {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	if !strings.Contains(oracle.lastReq.User, "no synopsis provided") {
		t.Fatalf("empty synopsis should be called out in the prompt")
	}
}

func TestResolve_PromptKeepsFractionalSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		min, max time.Duration
		want     string
	}{
		{"fractional min", 7500 * time.Millisecond, 15 * time.Second, "between 7.5 and 15 seconds"},
		{"sub-second bounds", 500 * time.Millisecond, 2250 * time.Millisecond, "between 0.5 and 2.25 seconds"},
		{"whole seconds", 8 * time.Second, 15 * time.Second, "between 8 and 15 seconds"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			oracle := &fakeOracle{reply: "[]"}
			r := NewResolver(oracle, ResolverOptions{}, nil)
			c := Constraints{MaxHighlights: 3, MinDuration: tt.min, MaxDuration: tt.max}
			if _, err := r.Resolve(context.Background(), timedtext.Parse(threeEntrySRT), "", c); err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !strings.Contains(oracle.lastReq.User, tt.want) {
				t.Fatalf("prompt should say %q:\n%s", tt.want, oracle.lastReq.User)
			}
		})
	}
}

func TestResolve_MalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
	}{
		{"no brackets", "I could not find anything worth cutting."},
		{"reversed brackets", "] nothing ["},
		{"invalid json", "[ {title: nope} ]"},
		{"missing required field", `[{"title": "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeOracle{reply: tt.reply}, ResolverOptions{}, nil)
			specs, err := r.Resolve(context.Background(), nil, "", defaultConstraints())
			var re *ResolverError
			if !errors.As(err, &re) || re.Kind != MalformedResponse {
				t.Fatalf("expected MalformedResponse, got %v", err)
			}
			if specs != nil {
				t.Fatalf("expected no specs, got %+v", specs)
			}
			if !strings.HasPrefix(Explain(err), "no highlights found") {
				t.Fatalf("malformed responses should read as nothing found, got %q", Explain(err))
			}
		})
	}
}

func TestResolve_OracleFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		oracle   *fakeOracle
		timeout  time.Duration
		wantKind ResolverErrorKind
		wantCode int
		wantHint string
	}{
		{"unauthorized", &fakeOracle{err: &ports.OracleStatusError{Provider: "openrouter", StatusCode: 401}}, 0, Transport, 401, "API key"},
		{"rate limited", &fakeOracle{err: &ports.OracleStatusError{Provider: "openrouter", StatusCode: 429}}, 0, Transport, 429, "rate limit"},
		{"server error", &fakeOracle{err: &ports.OracleStatusError{Provider: "openai", StatusCode: 502}}, 0, Transport, 502, "server error"},
		{"network", &fakeOracle{err: errors.New("dial tcp: lookup openrouter.ai: no such host")}, 0, Transport, 0, "could not be reached"},
		{"timeout", &fakeOracle{block: true}, 10 * time.Millisecond, OracleTimeout, 0, "did not answer in time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.oracle, ResolverOptions{Timeout: tt.timeout}, nil)
			_, err := r.Resolve(context.Background(), nil, "", defaultConstraints())
			var re *ResolverError
			if !errors.As(err, &re) {
				t.Fatalf("expected ResolverError, got %v", err)
			}
			if re.Kind != tt.wantKind || re.StatusCode != tt.wantCode {
				t.Fatalf("got kind %v code %d, want %v %d", re.Kind, re.StatusCode, tt.wantKind, tt.wantCode)
			}
			if !strings.Contains(re.Hint(), tt.wantHint) {
				t.Fatalf("hint %q should mention %q", re.Hint(), tt.wantHint)
			}
			if tt.oracle.calls != 1 {
				t.Fatalf("expected exactly one attempt, got %d", tt.oracle.calls)
			}
		})
	}
}

func TestResolve_DurationPolicy(t *testing.T) {
	t.Parallel()

	reply := "[" +
		hlJSON("ok", "00:00:10,000", "00:00:20,000") + "," +
		hlJSON("too long", "00:00:10,000", "00:01:10,000") + "," +
		hlJSON("inverted", "00:00:20,000", "00:00:10,000") + "]"

	tests := []struct {
		policy DurationPolicy
		want   int
	}{
		{PolicyIgnore, 3},
		{PolicyWarn, 3},
		{PolicyReject, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			r := NewResolver(&fakeOracle{reply: reply}, ResolverOptions{Policy: tt.policy}, nil)
			specs, err := r.Resolve(context.Background(), nil, "", defaultConstraints())
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if len(specs) != tt.want {
				t.Fatalf("policy %s kept %d highlights, want %d", tt.policy, len(specs), tt.want)
			}
		})
	}
}

func TestParseDurationPolicy(t *testing.T) {
	t.Parallel()

	if p, err := ParseDurationPolicy(""); err != nil || p != PolicyWarn {
		t.Fatalf("empty policy should default to warn, got %q %v", p, err)
	}
	if p, err := ParseDurationPolicy(" Reject "); err != nil || p != PolicyReject {
		t.Fatalf("expected reject, got %q %v", p, err)
	}
	if _, err := ParseDurationPolicy("drop"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestCutter_FailsFastWithoutCallingTool(t *testing.T) {
	t.Parallel()

	plan := makePlan(t, [2]string{"00:00:20,000", "00:00:20,000"})

	media := &fakeMedia{}
	c := NewCutter(media, fakeFiles{}, ports.CodecOptions{}, 0, t.TempDir(), nil)
	_, err := c.Cut(context.Background(), "in.mp4", plan[0], "base")
	var ce *CutterError
	if !errors.As(err, &ce) || ce.Kind != InvalidRange {
		t.Fatalf("expected InvalidRange, got %v", err)
	}

	c = NewCutter(media, fakeFiles{missing: map[string]bool{"gone.mp4": true}}, ports.CodecOptions{}, 0, t.TempDir(), nil)
	_, err = c.Cut(context.Background(), "gone.mp4", plan[0], "base")
	if !errors.As(err, &ce) || ce.Kind != SourceNotFound {
		t.Fatalf("expected SourceNotFound, got %v", err)
	}

	if len(media.cuts) != 0 {
		t.Fatalf("tool must not be invoked, got %d calls", len(media.cuts))
	}
}

func TestCutter_Timeout(t *testing.T) {
	t.Parallel()

	plan := makePlan(t, [2]string{"00:00:10,000", "00:00:20,000"})
	c := NewCutter(&fakeMedia{block: true}, fakeFiles{}, ports.CodecOptions{}, 10*time.Millisecond, t.TempDir(), nil)
	_, err := c.Cut(context.Background(), "in.mp4", plan[0], "base")
	var ce *CutterError
	if !errors.As(err, &ce) || ce.Kind != ToolTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestExecute_ParallelKeepsPlanOrder(t *testing.T) {
	t.Parallel()

	// later clips finish first
	media := &fakeMedia{delay: func(req ports.CutRequest) time.Duration {
		return time.Duration(100-req.Start/time.Second) * time.Millisecond
	}}
	uc := newTestUsecase(&fakeOracle{}, media, Options{Parallelism: 3})
	plan := makePlan(t,
		[2]string{"00:00:10,000", "00:00:20,000"},
		[2]string{"00:00:30,000", "00:00:40,000"},
		[2]string{"00:00:50,000", "00:01:00,000"},
	)

	res, err := uc.Execute(context.Background(), ExecuteInput{Source: "in.mp4", Plan: plan, BaseName: "ep", OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i, clip := range res.Clips {
		if !strings.Contains(filepath.Base(clip), fmt.Sprintf("_clip%02d_", i+1)) {
			t.Fatalf("clip %d out of order: %s", i, clip)
		}
	}
	var want strings.Builder
	for _, clip := range res.Clips {
		want.WriteString("file '" + clip + "'\n")
	}
	if media.manifests[0] != want.String() {
		t.Fatalf("manifest not in plan order:\n%s", media.manifests[0])
	}
}

func TestExecute_SubtitleSidecars(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		opts     Options
		wantSubs bool
		wantBurn bool
	}{
		{name: "disabled", opts: Options{}},
		{name: "sidecar only", opts: Options{Subtitles: true}, wantSubs: true},
		{name: "burned", opts: Options{BurnSubtitles: true}, wantSubs: true, wantBurn: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			outDir := t.TempDir()
			media := &fakeMedia{}
			uc := newTestUsecase(&fakeOracle{}, media, tc.opts)
			res, err := uc.Execute(context.Background(), ExecuteInput{
				Source:  "in.mp4",
				Plan:    makePlan(t, [2]string{"00:00:10,000", "00:00:20,000"}),
				OutDir:  outDir,
				Entries: timedtext.Parse(threeEntrySRT),
			})
			if err != nil {
				t.Fatalf("execute: %v", err)
			}

			burn := media.cuts[0].BurnSubtitles
			if !tc.wantSubs {
				if res.Subtitles != nil || burn != "" {
					t.Fatalf("expected no subtitles, got %v / %q", res.Subtitles, burn)
				}
				if _, err := os.Stat(filepath.Join(outDir, "subtitles")); !os.IsNotExist(err) {
					t.Fatalf("expected no subtitles dir, stat err=%v", err)
				}
				return
			}

			if len(res.Subtitles) != 1 {
				t.Fatalf("expected one sidecar, got %v", res.Subtitles)
			}
			b, err := os.ReadFile(res.Subtitles[0])
			if err != nil {
				t.Fatalf("read sidecar: %v", err)
			}
			if !strings.Contains(string(b), "{\\k") || !strings.Contains(string(b), "office") {
				t.Fatalf("sidecar should carry the overlapping subtitle text:\n%s", b)
			}
			if tc.wantBurn != (burn == res.Subtitles[0]) {
				t.Fatalf("burn path = %q, want burn=%v", burn, tc.wantBurn)
			}
		})
	}
}

func TestExecute_EmptyPlan(t *testing.T) {
	t.Parallel()

	uc := newTestUsecase(&fakeOracle{}, &fakeMedia{}, Options{})
	if _, err := uc.Execute(context.Background(), ExecuteInput{Source: "in.mp4", OutDir: t.TempDir()}); !errors.Is(err, ErrEmptyPlan) {
		t.Fatalf("expected ErrEmptyPlan, got %v", err)
	}
}

func TestBuildConcatList_EscapesQuotes(t *testing.T) {
	t.Parallel()

	got, err := buildConcatList([]string{"/tmp/it's here.mp4", "/tmp/b.mp4"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "file '/tmp/it'\\''s here.mp4'\nfile '/tmp/b.mp4'\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExplain_DistinguishesFailureClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{ErrParseEmpty, "no subtitles found"},
		{fmt.Errorf("analyze: %w", &ResolverError{Kind: MalformedResponse}), "no highlights found"},
		{&ResolverError{Kind: Transport, StatusCode: 429}, "highlight service failed"},
		{&CutterError{Kind: ToolFailure, Ordinal: 3}, "media tool failed on clip 3"},
		{&ConcatError{Kind: ToolFailure}, "media tool failed"},
		{&ConfigError{Kind: InvalidConstraints, Reason: "bad"}, "invalid constraints"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := Explain(tt.err); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Explain(%v) = %q, want prefix %q", tt.err, got, tt.want)
		}
	}
}
