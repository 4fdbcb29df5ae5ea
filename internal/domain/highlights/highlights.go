// Package highlights holds the highlight specifications proposed by the oracle.
package highlights

import (
	"time"

	"github.com/forPelevin/reelcut/internal/domain/timedtext"
)

// Optional marks a field the oracle may leave out. The zero value is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{value: v, ok: true} }

func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

func (o Optional[T]) Present() bool { return o.ok }

// Or returns the value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// SubtitlePlan describes on-screen text for one highlight.
type SubtitlePlan struct {
	OriginalLines     []string
	InfoCaptions      Optional[[]string]
	EmphasisElements  Optional[[]string]
	FallbackVoiceover Optional[string]
}

// Spec is one highlight as accepted from the oracle. It is treated as an
// immutable value: selection may drop specs but never edits them.
type Spec struct {
	Title             string
	HookLine          string
	Start             timedtext.Timestamp
	End               timedtext.Timestamp
	CutSequence       string
	SceneDescriptions []string
	SubtitlePlan      SubtitlePlan
	EditingRationale  string
	SelectionReason   string

	VoiceoverScript     Optional[string]
	VoiceoverStyle      Optional[string]
	OriginalityElements Optional[[]string]
	TargetEmotion       Optional[string]
}

// Duration is End-Start; it is non-positive for inverted ranges.
func (s Spec) Duration() time.Duration { return s.End.Sub(s.Start) }

// ValidRange reports whether Start is strictly before End.
func (s Spec) ValidRange() bool { return s.Start.Before(s.End) }

// WithinBounds reports whether the duration falls inside [min, max].
func (s Spec) WithinBounds(min, max time.Duration) bool {
	d := s.Duration()
	return d >= min && d <= max
}

// Voiceover returns the explicit script, falling back to the subtitle plan's
// voiceover text.
func (s Spec) Voiceover() (string, bool) {
	if v, ok := s.VoiceoverScript.Get(); ok && v != "" {
		return v, true
	}
	if v, ok := s.SubtitlePlan.FallbackVoiceover.Get(); ok && v != "" {
		return v, true
	}
	return "", false
}
