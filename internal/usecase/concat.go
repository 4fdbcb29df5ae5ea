package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/reelcut/internal/ports"
)

const manifestName = "concat_list.txt"

// Concatenator joins clips into one compilation, in the order given.
type Concatenator struct {
	media   ports.MediaCutter
	codec   ports.CodecOptions
	timeout time.Duration
	workDir string
	log     *slog.Logger
}

func NewConcatenator(media ports.MediaCutter, codec ports.CodecOptions, timeout time.Duration, workDir string, log *slog.Logger) *Concatenator {
	return &Concatenator{media: media, codec: codec, timeout: timeout, workDir: workDir, log: orDiscard(log)}
}

// Concatenate writes the concat manifest into the work dir and re-encodes
// the clips into output.
func (c *Concatenator) Concatenate(ctx context.Context, clips []string, output string) error {
	if len(clips) == 0 {
		return ErrEmptyPlan
	}
	list, err := buildConcatList(clips)
	if err != nil {
		return err
	}
	manifest := filepath.Join(c.workDir, manifestName)
	if err := os.WriteFile(manifest, []byte(list), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}

	concatCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		concatCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.Info("joining clips", "count", len(clips), "output", output)
	err = c.media.Concat(concatCtx, ports.ConcatRequest{Manifest: manifest, Output: output, Codec: c.codec})
	if err != nil {
		if errors.Is(concatCtx.Err(), context.DeadlineExceeded) {
			return &ConcatError{Kind: ToolTimeout, Detail: c.timeout.String(), Err: err}
		}
		return &ConcatError{Kind: ToolFailure, Detail: toolDetail(err), Err: err}
	}
	return nil
}

// buildConcatList renders the concat demuxer list: one "file '<abs>'" line
// per clip, with single quotes escaped as '\''.
func buildConcatList(clips []string) (string, error) {
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return "", fmt.Errorf("resolve clip path %q: %w", clip, err)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String(), nil
}
