package ports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Oracle answers a single chat-style prompt with free text.
type Oracle interface {
	Complete(ctx context.Context, req OracleRequest) (string, error)
}

type OracleRequest struct {
	Model           string
	System          string
	User            string
	Temperature     float64
	MaxOutputTokens int
}

// OracleStatusError is returned by Oracle adapters when the provider
// answers with a non-2xx status.
type OracleStatusError struct {
	Provider   string
	StatusCode int
	Body       string // redacted and truncated
}

func (e *OracleStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// MediaCutter cuts and joins video files.
type MediaCutter interface {
	Cut(ctx context.Context, req CutRequest) error
	Concat(ctx context.Context, req ConcatRequest) error
}

type CodecOptions struct {
	VideoCodec string
	AudioCodec string
	Preset     string
}

type CutRequest struct {
	Source   string
	Start    time.Duration
	Duration time.Duration
	Output   string
	Codec    CodecOptions

	// BurnSubtitles is an ASS file to render into the picture, if set.
	BurnSubtitles string
}

type ConcatRequest struct {
	Manifest string // concat demuxer list file
	Output   string
	Codec    CodecOptions
}

// ToolError is a media tool that ran and exited non-zero.
type ToolError struct {
	Tool       string
	ExitCode   int
	Diagnostic string // tail of stderr
	Err        error
}

func (e *ToolError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Diagnostic)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Handle names a stored upload. It is always a single path segment.
type Handle string

var ErrInvalidHandle = errors.New("invalid upload handle")

// UploadStore keeps uploaded source files under opaque handles.
type UploadStore interface {
	Store(r io.Reader, originalName string) (Handle, error)
	Retrieve(h Handle) ([]byte, error)
	Path(h Handle) (string, error)
}

// FileChecker reports whether a path exists.
type FileChecker interface {
	Exists(path string) bool
}
