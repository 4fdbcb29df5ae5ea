package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/ports"
)

// Cutter executes single cuts of a plan into clipsDir.
type Cutter struct {
	media    ports.MediaCutter
	files    ports.FileChecker
	codec    ports.CodecOptions
	timeout  time.Duration
	clipsDir string
	log      *slog.Logger
}

func NewCutter(media ports.MediaCutter, files ports.FileChecker, codec ports.CodecOptions, timeout time.Duration, clipsDir string, log *slog.Logger) *Cutter {
	return &Cutter{
		media:    media,
		files:    files,
		codec:    codec,
		timeout:  timeout,
		clipsDir: clipsDir,
		log:      orDiscard(log),
	}
}

// ClipPath is where item's clip is written.
func (c *Cutter) ClipPath(item timeline.Item, baseName string) string {
	h := item.Highlight
	name := fmt.Sprintf("%s_clip%02d_%s_%s.mp4", baseName, item.Ordinal, h.Start.FileSafe(), h.End.FileSafe())
	return filepath.Join(c.clipsDir, name)
}

// Cut writes one clip and returns its path.
func (c *Cutter) Cut(ctx context.Context, source string, item timeline.Item, baseName string) (string, error) {
	return c.cut(ctx, source, item, baseName, "")
}

func (c *Cutter) cut(ctx context.Context, source string, item timeline.Item, baseName, burnASS string) (string, error) {
	h := item.Highlight
	if !c.files.Exists(source) {
		return "", &CutterError{Kind: SourceNotFound, Ordinal: item.Ordinal, Detail: source}
	}
	dur := h.Duration()
	if dur <= 0 {
		return "", &CutterError{
			Kind:    InvalidRange,
			Ordinal: item.Ordinal,
			Detail:  fmt.Sprintf("%s - %s", h.Start, h.End),
		}
	}

	out := c.ClipPath(item, baseName)
	cutCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		cutCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.Debug("cutting clip", "ordinal", item.Ordinal, "start", h.Start, "duration", dur, "output", out)
	err := c.media.Cut(cutCtx, ports.CutRequest{
		Source:        source,
		Start:         h.Start.Duration(),
		Duration:      dur,
		Output:        out,
		Codec:         c.codec,
		BurnSubtitles: burnASS,
	})
	if err != nil {
		if errors.Is(cutCtx.Err(), context.DeadlineExceeded) {
			return "", &CutterError{Kind: ToolTimeout, Ordinal: item.Ordinal, Detail: c.timeout.String(), Err: err}
		}
		return "", &CutterError{Kind: ToolFailure, Ordinal: item.Ordinal, Detail: toolDetail(err), Err: err}
	}
	return out, nil
}

func toolDetail(err error) string {
	var te *ports.ToolError
	if errors.As(err, &te) && te.Diagnostic != "" {
		return te.Diagnostic
	}
	return err.Error()
}
