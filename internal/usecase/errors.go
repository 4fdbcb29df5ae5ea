package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/reelcut/internal/domain/timedtext"
)

var (
	// ErrParseEmpty means the subtitle document had no recognizable cues.
	ErrParseEmpty = errors.New("no subtitle entries recognized")

	ErrEmptyPlan = errors.New("cut plan is empty")

	// ErrInvalidBaseName means an output base name is not a single path segment.
	ErrInvalidBaseName = errors.New("base name must be a single path segment")
)

// StrictParseError is returned by Analyze in strict mode when the parser
// skipped any block.
type StrictParseError struct {
	Skipped []timedtext.Skipped
}

func (e *StrictParseError) Error() string {
	first := e.Skipped[0]
	return fmt.Sprintf("%d subtitle block(s) skipped; first at block %d: %s", len(e.Skipped), first.Block, first.Reason)
}

func (e *StrictParseError) Hint() string {
	return "fix the listed subtitle blocks or run without --strict to skip them"
}

type ResolverErrorKind int

const (
	MalformedResponse ResolverErrorKind = iota + 1
	Transport
	OracleTimeout
)

func (k ResolverErrorKind) String() string {
	switch k {
	case MalformedResponse:
		return "malformed response"
	case Transport:
		return "transport"
	case OracleTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ResolverError is a failed highlight resolution.
type ResolverError struct {
	Kind       ResolverErrorKind
	StatusCode int // Transport only; 0 means the request never got an answer
	Detail     string
	Err        error
}

func (e *ResolverError) Error() string {
	msg := "resolve highlights: " + e.Kind.String()
	if e.Kind == Transport && e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ResolverError) Unwrap() error { return e.Err }

func (e *ResolverError) Hint() string {
	switch e.Kind {
	case MalformedResponse:
		return "the model could not identify highlight segments; try a longer synopsis, a wider duration window or fewer highlights"
	case OracleTimeout:
		return "the model did not answer in time; retry or raise oracle.timeout"
	}
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return "the API key is invalid, expired or out of credit; check OPENROUTER_API_KEY / OPENAI_API_KEY"
	case e.StatusCode == 429:
		return "rate limit or quota exceeded; check the account balance and retry in a few minutes"
	case e.StatusCode >= 500:
		return "the model provider had a server error; retry later and check the provider status page"
	case e.StatusCode == 0:
		return "the model provider could not be reached; check the network and oracle.base_url"
	default:
		return "the model provider rejected the request; check oracle.model and oracle.base_url"
	}
}

type CutterErrorKind int

const (
	SourceNotFound CutterErrorKind = iota + 1
	InvalidRange
	ToolFailure
	ToolTimeout
)

func (k CutterErrorKind) String() string {
	switch k {
	case SourceNotFound:
		return "source not found"
	case InvalidRange:
		return "invalid range"
	case ToolFailure:
		return "tool failure"
	case ToolTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// CutterError is a failed clip cut. It aborts the rest of the plan.
type CutterError struct {
	Kind    CutterErrorKind
	Ordinal int
	Detail  string
	Err     error
}

func (e *CutterError) Error() string {
	msg := fmt.Sprintf("cut clip %d: %s", e.Ordinal, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *CutterError) Unwrap() error { return e.Err }

func (e *CutterError) Hint() string {
	switch e.Kind {
	case SourceNotFound:
		return "the source video does not exist; check the path or upload handle"
	case InvalidRange:
		return "the highlight ends before it starts; edit highlights.json or deselect it"
	case ToolTimeout:
		return "ffmpeg took too long; raise media.cut_timeout"
	default:
		return "ffmpeg failed; check that it is installed with libx264 and aac and that the source is a readable video"
	}
}

// ConcatError is a failed compilation. Kind is ToolFailure or ToolTimeout.
type ConcatError struct {
	Kind   CutterErrorKind
	Detail string
	Err    error
}

func (e *ConcatError) Error() string {
	msg := "concatenate clips: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConcatError) Unwrap() error { return e.Err }

func (e *ConcatError) Hint() string {
	if e.Kind == ToolTimeout {
		return "ffmpeg took too long to join the clips; raise media.concat_timeout"
	}
	return "ffmpeg could not join the clips; check that it is installed and the clips are readable"
}

type ConfigErrorKind int

const (
	InvalidConstraints ConfigErrorKind = iota + 1
)

// ConfigError rejects caller input before any work starts.
type ConfigError struct {
	Kind   ConfigErrorKind
	Reason string
}

func (e *ConfigError) Error() string { return "invalid constraints: " + e.Reason }

func (e *ConfigError) Hint() string {
	return "use 1-20 highlights and a duration window with 0 < min <= max"
}

// Explain turns an error into one actionable line for the user.
func Explain(err error) string {
	if err == nil {
		return ""
	}
	var (
		re *ResolverError
		ce *CutterError
		ke *ConcatError
		fe *ConfigError
		se *StrictParseError
	)
	switch {
	case errors.Is(err, ErrParseEmpty):
		return "no subtitles found: the file has no valid SRT blocks (index, HH:MM:SS,mmm --> HH:MM:SS,mmm, text)"
	case errors.As(err, &re) && re.Kind == MalformedResponse:
		return "no highlights found: " + re.Hint()
	case errors.As(err, &re):
		return "highlight service failed: " + re.Hint()
	case errors.As(err, &ce):
		return fmt.Sprintf("media tool failed on clip %d: %s", ce.Ordinal, ce.Hint())
	case errors.As(err, &ke):
		return "media tool failed: " + ke.Hint()
	case errors.As(err, &fe):
		return fe.Error() + ": " + fe.Hint()
	case errors.As(err, &se):
		return se.Error() + ": " + se.Hint()
	}
	return strings.TrimSpace(err.Error())
}
