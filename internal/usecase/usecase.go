package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/sheet"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/domain/timedtext"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/ports"
)

type Deps struct {
	Oracle ports.Oracle
	Media  ports.MediaCutter
	Files  ports.FileChecker
	Logger *slog.Logger

	// Now stamps execution sheets. Defaults to time.Now.
	Now func() time.Time
}

type Options struct {
	Resolver      ResolverOptions
	Codec         ports.CodecOptions
	CutTimeout    time.Duration
	ConcatTimeout time.Duration

	// Parallelism > 1 cuts clips concurrently. Output order is unaffected.
	Parallelism int

	// Subtitles writes an ASS sidecar per clip; BurnSubtitles also renders
	// it into the picture.
	Subtitles     bool
	BurnSubtitles bool
}

type Usecase struct {
	d    Deps
	opts Options
	log  *slog.Logger
}

func New(d Deps, opts Options) Usecase {
	if d.Now == nil {
		d.Now = time.Now
	}
	if opts.BurnSubtitles {
		opts.Subtitles = true
	}
	return Usecase{d: d, opts: opts, log: orDiscard(d.Logger)}
}

type AnalyzeInput struct {
	Document    string
	Synopsis    string
	Constraints Constraints

	// Strict fails on any skipped subtitle block instead of ignoring it.
	Strict bool
}

type Analysis struct {
	Entries    []timedtext.Entry
	Stats      timedtext.Statistics
	Skipped    []timedtext.Skipped
	Highlights []highlights.Spec
}

// Analyze parses the subtitles and resolves highlights. Constraints are
// validated before the oracle is contacted.
func (u Usecase) Analyze(ctx context.Context, in AnalyzeInput) (Analysis, error) {
	if err := in.Constraints.Validate(); err != nil {
		return Analysis{}, err
	}

	entries, skipped := timedtext.ParseWithDiagnostics(in.Document)
	for _, s := range skipped {
		u.log.Debug("skipped subtitle block", "block", s.Block, "reason", s.Reason)
	}
	if in.Strict && len(skipped) > 0 {
		return Analysis{}, &StrictParseError{Skipped: skipped}
	}
	if len(entries) == 0 {
		return Analysis{}, ErrParseEmpty
	}
	stats := timedtext.Stats(entries)
	u.log.Info("subtitles parsed", "entries", stats.EntryCount, "duration_sec", stats.TotalDurationSeconds, "skipped", len(skipped))

	r := NewResolver(u.d.Oracle, u.opts.Resolver, u.log)
	hs, err := r.Resolve(ctx, entries, in.Synopsis, in.Constraints)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{Entries: entries, Stats: stats, Skipped: skipped, Highlights: hs}, nil
}

type Stage string

const (
	StageCut    Stage = "cut"
	StageConcat Stage = "concat"
	StageSheet  Stage = "sheet"
)

// Progress is reported after each step of Execute. Done counts finished
// steps out of Total (one per clip, plus concat and sheet).
type Progress struct {
	Stage   Stage
	Done    int
	Total   int
	Ordinal int // the clip just cut, for StageCut
}

func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Done * 100 / p.Total
}

type ExecuteInput struct {
	Source   string
	Plan     timeline.CutPlan
	BaseName string
	OutDir   string

	// SourceLabel names the source in the sheet. Defaults to the source file name.
	SourceLabel string

	// Entries feed the per-clip subtitle sidecars.
	Entries []timedtext.Entry

	OnProgress func(Progress)
}

// ProcessingResult only exists when every clip, the compilation and the
// sheet were written.
type ProcessingResult struct {
	Clips       []string
	Compilation string
	Sheet       string
	Subtitles   []string
}

// Execute cuts every plan item, joins the clips in plan order and writes the
// execution sheet. Any failure aborts the run and no result is returned.
func (u Usecase) Execute(ctx context.Context, in ExecuteInput) (ProcessingResult, error) {
	if len(in.Plan) == 0 {
		return ProcessingResult{}, ErrEmptyPlan
	}
	base := in.BaseName
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(in.Source), filepath.Ext(in.Source))
	}
	if base == "" {
		base = "input"
	}
	if !singleSegment(base) {
		return ProcessingResult{}, fmt.Errorf("%w: %q", ErrInvalidBaseName, base)
	}
	label := in.SourceLabel
	if label == "" {
		label = filepath.Base(in.Source)
	}

	clipsDir := filepath.Join(in.OutDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return ProcessingResult{}, err
	}
	subsDir := ""
	if u.opts.Subtitles && len(in.Entries) > 0 {
		subsDir = filepath.Join(in.OutDir, "subtitles")
		if err := os.MkdirAll(subsDir, 0o755); err != nil {
			return ProcessingResult{}, err
		}
	}

	total := len(in.Plan) + 2
	report := progressReporter(in.OnProgress)
	cutter := NewCutter(u.d.Media, u.d.Files, u.opts.Codec, u.opts.CutTimeout, clipsDir, u.log)

	clips := make([]string, len(in.Plan))
	subs := make([]string, len(in.Plan))
	var (
		mu   sync.Mutex
		done int
	)
	cutOne := func(ctx context.Context, i int, item timeline.Item) error {
		u.log.Info("cutting clip", "ordinal", item.Ordinal, "of", len(in.Plan), "title", item.Highlight.Title)
		ass := ""
		if subsDir != "" {
			p, err := writeSidecar(subsDir, cutter.ClipPath(item, base), item.Highlight, in.Entries)
			if err != nil {
				return err
			}
			subs[i] = p
			if u.opts.BurnSubtitles {
				ass = p
			}
		}
		out, err := cutter.cut(ctx, in.Source, item, base, ass)
		if err != nil {
			return err
		}
		clips[i] = out

		mu.Lock()
		done++
		report(Progress{Stage: StageCut, Done: done, Total: total, Ordinal: item.Ordinal})
		mu.Unlock()
		return nil
	}

	if u.opts.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(u.opts.Parallelism)
		for i, item := range in.Plan {
			i, item := i, item
			g.Go(func() error { return cutOne(gctx, i, item) })
		}
		if err := g.Wait(); err != nil {
			return ProcessingResult{}, err
		}
	} else {
		for i, item := range in.Plan {
			if err := cutOne(ctx, i, item); err != nil {
				return ProcessingResult{}, err
			}
		}
	}

	compilation := filepath.Join(in.OutDir, base+"_compilation.mp4")
	concat := NewConcatenator(u.d.Media, u.opts.Codec, u.opts.ConcatTimeout, in.OutDir, u.log)
	if err := concat.Concatenate(ctx, clips, compilation); err != nil {
		return ProcessingResult{}, err
	}
	report(Progress{Stage: StageConcat, Done: total - 1, Total: total})

	hs := make([]highlights.Spec, 0, len(in.Plan))
	for _, it := range in.Plan {
		hs = append(hs, it.Highlight)
	}
	sheetPath := filepath.Join(in.OutDir, base+"_execution_sheet.txt")
	if err := os.WriteFile(sheetPath, []byte(u.RenderSheet(hs, label)), 0o644); err != nil {
		return ProcessingResult{}, fmt.Errorf("write execution sheet: %w", err)
	}
	report(Progress{Stage: StageSheet, Done: total, Total: total})

	res := ProcessingResult{Clips: clips, Compilation: compilation, Sheet: sheetPath}
	if subsDir != "" {
		res.Subtitles = subs
	}
	return res, nil
}

// RenderSheet renders the execution sheet for hs. It does not need any clip
// to exist.
func (u Usecase) RenderSheet(hs []highlights.Spec, sourceLabel string) string {
	return sheet.Render(hs, sourceLabel, u.d.Now())
}

func writeSidecar(dir, clipPath string, h highlights.Spec, entries []timedtext.Entry) (string, error) {
	name := strings.TrimSuffix(filepath.Base(clipPath), filepath.Ext(clipPath)) + ".ass"
	p := filepath.Join(dir, name)
	ass := subtitles.RenderClipASS(h, entries)
	if err := os.WriteFile(p, []byte(ass), 0o644); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return p, nil
}

func singleSegment(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func progressReporter(fn func(Progress)) func(Progress) {
	if fn == nil {
		return func(Progress) {}
	}
	return fn
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
