package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/timedtext"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelcut/internal/ports/adapters/localstore"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openaisdk"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/reelcut/internal/ports/adapters/throttle"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
)

const (
	highlightsFile   = "highlights.json"
	analysisFile     = "analysis.json"
	previewSheetFile = "preview_execution_sheet.txt"
	manifestFile     = "manifest.json"
)

// Deps are the adapters a Pipeline drives. Nil Files and Store fall back to
// the local filesystem.
type Deps struct {
	Oracle ports.Oracle
	Media  ports.MediaCutter
	Files  ports.FileChecker
	Store  ports.UploadStore
	Now    func() time.Time
}

type Pipeline struct {
	cfg       config.Config
	d         Deps
	uc        usecase.Usecase
	log       *slog.Logger
	oracleErr error
}

// verifier is implemented by media adapters that can check their tool
// before any work starts.
type verifier interface {
	VerifyInstalled(ctx context.Context) error
}

// New wires the production adapters. A missing API key is only reported
// when an oracle call is attempted.
func New(cfg config.Config, log *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	store, err := localstore.New(cfg.Paths.UploadsDir)
	if err != nil {
		return nil, err
	}
	d := Deps{
		Media: ffmpeg.New(ffmpeg.WithFFmpegPath(cfg.Media.FFmpegPath)),
		Files: localstore.FileChecker{},
		Store: store,
	}
	oracleErr := cfg.RequireAPIKey()
	if oracleErr == nil {
		d.Oracle = throttle.New(newOracle(cfg.Oracle), cfg.Oracle.RequestsPerMinute)
	}
	p := NewWithDeps(cfg, d, log)
	p.oracleErr = oracleErr
	return p, nil
}

func newOracle(c config.OracleConfig) ports.Oracle {
	if c.Provider == config.ProviderOpenAI {
		return openaisdk.New(c.APIKey, c.BaseURL)
	}
	return openrouter.New(c.APIKey, c.BaseURL)
}

// NewWithDeps builds a Pipeline over caller-provided adapters.
func NewWithDeps(cfg config.Config, d Deps, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Files == nil {
		d.Files = localstore.FileChecker{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	uc := usecase.New(usecase.Deps{
		Oracle: d.Oracle,
		Media:  d.Media,
		Files:  d.Files,
		Logger: log,
		Now:    d.Now,
	}, cfg.UsecaseOptions())
	return &Pipeline{cfg: cfg, d: d, uc: uc, log: log}
}

type AnalyzeRequest struct {
	Subtitles   string // path or upload handle
	Synopsis    string
	Constraints usecase.Constraints
	Strict      bool

	// RunDir reuses an existing run directory. Empty creates a new one.
	RunDir string
}

type AnalyzeResult struct {
	RunDir       string
	Highlights   string
	PreviewSheet string
	Summary      string
	Analysis     usecase.Analysis
}

// Analyze parses the subtitles, resolves highlights and writes
// highlights.json, analysis.json and a preview execution sheet.
func (p *Pipeline) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	if p.oracleErr != nil {
		return AnalyzeResult{}, p.oracleErr
	}
	subsPath, err := p.ResolveInput(req.Subtitles)
	if err != nil {
		return AnalyzeResult{}, err
	}
	doc, err := os.ReadFile(subsPath)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("read subtitles: %w", err)
	}

	a, err := p.uc.Analyze(ctx, usecase.AnalyzeInput{
		Document:    string(doc),
		Synopsis:    req.Synopsis,
		Constraints: req.Constraints,
		Strict:      req.Strict,
	})
	if err != nil {
		return AnalyzeResult{}, err
	}

	runDir, err := p.runDir(req.RunDir, subsPath)
	if err != nil {
		return AnalyzeResult{}, err
	}
	res := AnalyzeResult{
		RunDir:       runDir,
		Highlights:   filepath.Join(runDir, highlightsFile),
		PreviewSheet: filepath.Join(runDir, previewSheetFile),
		Summary:      filepath.Join(runDir, analysisFile),
		Analysis:     a,
	}

	hb, err := highlights.Encode(a.Highlights)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("encode highlights: %w", err)
	}
	if err := os.WriteFile(res.Highlights, hb, 0o644); err != nil {
		return AnalyzeResult{}, err
	}
	sheet := p.uc.RenderSheet(a.Highlights, filepath.Base(subsPath))
	if err := os.WriteFile(res.PreviewSheet, []byte(sheet), 0o644); err != nil {
		return AnalyzeResult{}, err
	}
	summary := types.AnalysisSummary{
		Subtitles:      subsPath,
		EntryCount:     a.Stats.EntryCount,
		DurationSec:    a.Stats.TotalDurationSeconds,
		SkippedBlocks:  len(a.Skipped),
		HighlightCount: len(a.Highlights),
		HighlightsFile: res.Highlights,
		PreviewSheet:   res.PreviewSheet,
	}
	if err := writeJSON(res.Summary, summary); err != nil {
		return AnalyzeResult{}, err
	}
	p.log.Info("analysis written", "highlights", len(a.Highlights), "run_dir", runDir)
	return res, nil
}

type ProcessRequest struct {
	Source     string // path or upload handle
	Highlights []highlights.Spec
	Selected   []int // 0-based; nil selects every highlight

	// Entries feed per-clip subtitle sidecars. When nil and Subtitles is set,
	// the file is parsed leniently.
	Entries   []timedtext.Entry
	Subtitles string

	BaseName   string
	RunDir     string
	OnProgress func(usecase.Progress)
}

type ProcessResult struct {
	usecase.ProcessingResult
	RunDir   string
	Manifest string
}

// Process cuts the selected highlights, joins them and writes the execution
// sheet and manifest.json into the run directory.
func (p *Pipeline) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	source, err := p.ResolveInput(req.Source)
	if err != nil {
		return ProcessResult{}, err
	}
	selected := req.Selected
	if selected == nil {
		selected = timeline.All(len(req.Highlights))
	}
	if err := timeline.ValidateSelection(selected, len(req.Highlights)); err != nil {
		return ProcessResult{}, err
	}
	plan := timeline.Plan(req.Highlights, selected)

	entries := req.Entries
	if entries == nil && req.Subtitles != "" {
		subsPath, err := p.ResolveInput(req.Subtitles)
		if err != nil {
			return ProcessResult{}, err
		}
		doc, err := os.ReadFile(subsPath)
		if err != nil {
			return ProcessResult{}, fmt.Errorf("read subtitles: %w", err)
		}
		entries = timedtext.Parse(string(doc))
	}

	if v, ok := p.d.Media.(verifier); ok {
		if err := v.VerifyInstalled(ctx); err != nil {
			return ProcessResult{}, err
		}
	}

	runDir, err := p.runDir(req.RunDir, source)
	if err != nil {
		return ProcessResult{}, err
	}
	p.log.Info("processing", "source", source, "clips", len(plan), "run_dir", runDir)

	// Output names must stay inside the run directory.
	base := normalizePathSegment(req.BaseName)
	if base == "" {
		base = normalizePathSegment(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
	}
	if base == "" {
		base = "input"
	}

	out, err := p.uc.Execute(ctx, usecase.ExecuteInput{
		Source:      source,
		Plan:        plan,
		BaseName:    base,
		OutDir:      runDir,
		SourceLabel: filepath.Base(source),
		Entries:     entries,
		OnProgress:  req.OnProgress,
	})
	if err != nil {
		return ProcessResult{}, err
	}

	manifest := types.NewManifest(source, out.Compilation, out.Sheet, plan, out.Clips, out.Subtitles)
	manifestPath := filepath.Join(runDir, manifestFile)
	if err := writeJSON(manifestPath, manifest); err != nil {
		return ProcessResult{}, err
	}
	p.log.Info("manifest written", "clips", len(manifest.Clips), "path", manifestPath)
	return ProcessResult{ProcessingResult: out, RunDir: runDir, Manifest: manifestPath}, nil
}

// Sheet renders an execution sheet without cutting anything.
func (p *Pipeline) Sheet(hs []highlights.Spec, sourceLabel string) string {
	return p.uc.RenderSheet(hs, sourceLabel)
}

// Upload copies a local file into the upload store.
func (p *Pipeline) Upload(path string) (ports.Handle, error) {
	if p.d.Store == nil {
		return "", errors.New("no upload store configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := p.d.Store.Store(f, filepath.Base(path))
	if err != nil {
		return "", err
	}
	p.log.Info("stored upload", "handle", h)
	return h, nil
}

// ResolveInput accepts an existing file path or an upload handle and
// returns a path to read from.
func (p *Pipeline) ResolveInput(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.New("input is empty")
	}
	if p.d.Files.Exists(s) {
		return filepath.Abs(s)
	}
	if p.d.Store != nil {
		path, err := p.d.Store.Path(ports.Handle(s))
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ports.ErrInvalidHandle) {
			return "", fmt.Errorf("input %q is neither a file nor a known upload: %w", s, err)
		}
	}
	return "", fmt.Errorf("input %q not found", s)
}

// LoadHighlights reads a highlights.json written by Analyze.
func LoadHighlights(path string) ([]highlights.Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read highlights: %w", err)
	}
	hs, err := highlights.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return hs, nil
}

func (p *Pipeline) runDir(existing, input string) (string, error) {
	dir := existing
	if dir == "" {
		outRoot := p.cfg.Paths.OutputDir
		if outRoot == "" {
			outRoot = "out"
		}
		dir = buildRunOutDir(outRoot, input, p.d.Now().UTC())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, b, 0o644)
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.MediaCutter = (*ffmpeg.Adapter)(nil)
var _ ports.Oracle = (*openrouter.Adapter)(nil)
var _ ports.Oracle = (*openaisdk.Adapter)(nil)
var _ ports.UploadStore = (*localstore.Store)(nil)
var _ verifier = (*ffmpeg.Adapter)(nil)
