package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/reelcut/internal/ports"
)

const (
	defaultVideoCodec = "libx264"
	defaultAudioCodec = "aac"
	defaultPreset     = "fast"

	diagnosticLines = 8
)

// CommandRunner runs external commands. Tests swap it for a fake.
type CommandRunner interface {
	// Run returns the command's stderr alongside any error.
	Run(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

type Adapter struct {
	ffmpeg string
	runner CommandRunner
}

type Option func(*Adapter)

func WithFFmpegPath(path string) Option {
	return func(a *Adapter) {
		if path != "" {
			a.ffmpeg = path
		}
	}
}

func WithCommandRunner(r CommandRunner) Option {
	return func(a *Adapter) { a.runner = r }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{ffmpeg: "ffmpeg", runner: ExecRunner{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Cut re-encodes [Start, Start+Duration) of the source. Stream copy is never
// used because cut points rarely land on keyframes.
func (a *Adapter) Cut(ctx context.Context, req ports.CutRequest) error {
	if req.Duration <= 0 {
		return fmt.Errorf("ffmpeg cut: non-positive duration %s", req.Duration)
	}
	args := []string{
		"-y",
		"-ss", fmtSeconds(req.Start),
		"-i", req.Source,
		"-t", fmtSeconds(req.Duration),
	}
	if req.BurnSubtitles != "" {
		args = append(args, "-vf", "subtitles="+escapeFilterPath(req.BurnSubtitles))
	}
	args = append(args, codecArgs(req.Codec)...)
	args = append(args, "-avoid_negative_ts", "make_zero", req.Output)
	return a.run(ctx, args)
}

// Concat joins the files listed in a concat demuxer manifest, re-encoding
// with the same codecs as Cut.
func (a *Adapter) Concat(ctx context.Context, req ports.ConcatRequest) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", req.Manifest,
	}
	args = append(args, codecArgs(req.Codec)...)
	args = append(args, req.Output)
	return a.run(ctx, args)
}

// VerifyInstalled checks that ffmpeg can be executed.
func (a *Adapter) VerifyInstalled(ctx context.Context) error {
	if _, err := a.runner.Run(ctx, a.ffmpeg, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable (%s): %w", a.ffmpeg, err)
	}
	return nil
}

func (a *Adapter) run(ctx context.Context, args []string) error {
	stderr, err := a.runner.Run(ctx, a.ffmpeg, args...)
	if err == nil {
		return nil
	}
	te := &ports.ToolError{Tool: "ffmpeg", ExitCode: -1, Diagnostic: diagnostic(stderr), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	return te
}

func codecArgs(c ports.CodecOptions) []string {
	return []string{
		"-c:v", orDefault(c.VideoCodec, defaultVideoCodec),
		"-preset", orDefault(c.Preset, defaultPreset),
		"-c:a", orDefault(c.AudioCodec, defaultAudioCodec),
	}
}

// diagnostic keeps the last few non-empty stderr lines, where ffmpeg puts
// the actual error.
func diagnostic(stderr []byte) string {
	var lines []string
	for _, l := range strings.Split(string(stderr), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > diagnosticLines {
		lines = lines[len(lines)-diagnosticLines:]
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

var _ ports.MediaCutter = (*Adapter)(nil)
