//go:build integration

package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cucumber/godog"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/usecase"
)

// scriptedOracle answers every request with a fixed reply.
type scriptedOracle struct {
	reply string
	err   error
	calls []ports.OracleRequest
}

func (o *scriptedOracle) Complete(_ context.Context, req ports.OracleRequest) (string, error) {
	o.calls = append(o.calls, req)
	if o.err != nil {
		return "", o.err
	}
	return o.reply, nil
}

// mockMedia records cut and concat calls and writes placeholder outputs.
type mockMedia struct {
	mu      sync.Mutex
	cuts    []ports.CutRequest
	concats []ports.ConcatRequest
	joined  [][]string // clip paths read back from each concat manifest
	failAt  int // 1-based cut attempt that fails; 0 never fails
	files   *mockFileChecker
}

func (m *mockMedia) Cut(_ context.Context, req ports.CutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cuts = append(m.cuts, req)
	if m.failAt == len(m.cuts) {
		return &ports.ToolError{Tool: "ffmpeg", ExitCode: 1, Diagnostic: "Invalid data found when processing input"}
	}
	if err := os.WriteFile(req.Output, []byte("clip"), 0o644); err != nil {
		return err
	}
	m.files.mark(req.Output)
	return nil
}

func (m *mockMedia) Concat(_ context.Context, req ports.ConcatRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concats = append(m.concats, req)
	b, err := os.ReadFile(req.Manifest)
	if err != nil {
		return err
	}
	var clips []string
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		clips = append(clips, strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'"))
	}
	m.joined = append(m.joined, clips)
	return os.WriteFile(req.Output, []byte("compilation"), 0o644)
}

type mockFileChecker struct {
	mu       sync.Mutex
	existing map[string]bool
}

func (m *mockFileChecker) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[path]
}

func (m *mockFileChecker) mark(path string) {
	m.mu.Lock()
	m.existing[path] = true
	m.mu.Unlock()
}

// scenarioState holds everything one scenario touches.
type scenarioState struct {
	dir       string
	subtitles string
	oracle    *scriptedOracle
	media     *mockMedia
	files     *mockFileChecker
	policy    usecase.DurationPolicy

	analysis usecase.Analysis
	result   usecase.ProcessingResult
	progress []usecase.Progress
	err      error
}

func (s *scenarioState) usecase() usecase.Usecase {
	return usecase.New(usecase.Deps{
		Oracle: s.oracle,
		Media:  s.media,
		Files:  s.files,
	}, usecase.Options{
		Resolver:    usecase.ResolverOptions{Policy: s.policy},
		Parallelism: 1,
	})
}

// SharedState is reset before each scenario.
var SharedState *scenarioState

func state() *scenarioState {
	return SharedState
}

func InitializeStateHooks(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "reelcut-features-*")
		if err != nil {
			return c, err
		}
		files := &mockFileChecker{existing: make(map[string]bool)}
		SharedState = &scenarioState{
			dir:    dir,
			oracle: &scriptedOracle{},
			media:  &mockMedia{files: files},
			files:  files,
			policy: usecase.PolicyWarn,
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedState != nil {
			_ = os.RemoveAll(SharedState.dir)
		}
		SharedState = nil
		return c, nil
	})
}

func (s *scenarioState) outDir() string {
	return filepath.Join(s.dir, "out")
}

var errNoAnalysis = errors.New("no highlights were resolved in an earlier step")
