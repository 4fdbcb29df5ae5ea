package highlights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/forPelevin/reelcut/internal/domain/timedtext"
)

// Wire is the JSON shape exchanged with the oracle and stored in
// highlights.json. Every field is a pointer or slice so absence can be told
// apart from an empty value.
type Wire struct {
	Title               *string           `json:"title,omitempty"`
	HookSubtitle        *string           `json:"hook_subtitle,omitempty"`
	StartTime           *WireTime         `json:"start_time,omitempty"`
	EndTime             *WireTime         `json:"end_time,omitempty"`
	CutSequence         *string           `json:"cut_sequence,omitempty"`
	SceneDescriptions   []string          `json:"scene_descriptions"`
	SubtitleStrategy    *WireSubtitlePlan `json:"subtitle_strategy,omitempty"`
	VoiceoverScript     *string           `json:"voiceover_script,omitempty"`
	VoiceoverStyle      *string           `json:"voiceover_style,omitempty"`
	EditingDirection    *string           `json:"editing_direction,omitempty"`
	OriginalityElements []string          `json:"originality_elements,omitempty"`
	TargetEmotion       *string           `json:"target_emotion,omitempty"`
	Reason              *string           `json:"reason,omitempty"`
}

type WireSubtitlePlan struct {
	OriginalSubtitles     []string `json:"original_subtitles"`
	InfoCaptions          []string `json:"info_captions,omitempty"`
	EmphasisElements      []string `json:"emphasis_elements,omitempty"`
	NewSubtitlesVoiceover *string  `json:"new_subtitles_voiceover,omitempty"`
}

// WireTime is a timestamp that decodes from "HH:MM:SS,mmm" strings or from a
// number of seconds, and always encodes as a string.
type WireTime struct {
	timedtext.Timestamp
}

// TimeError is a start_time or end_time value that is not a timestamp.
type TimeError struct {
	Value string
	Err   error
}

func (e *TimeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("timestamp must be a string or a number of seconds, got %s", e.Value)
}

func (e *TimeError) Unwrap() error { return e.Err }

func (w *WireTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return &TimeError{Value: string(b), Err: err}
		}
		ts, err := timedtext.ParseTimestamp(s)
		if err != nil {
			return &TimeError{Value: s, Err: err}
		}
		w.Timestamp = ts
		return nil
	}
	sec, err := strconv.ParseFloat(string(b), 64)
	if err != nil || sec < 0 {
		return &TimeError{Value: string(b)}
	}
	w.Timestamp = timedtext.FromSeconds(sec)
	return nil
}

func (w WireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Timestamp.String())
}

// ErrNotArray is returned by Decode when the payload is not a JSON array.
var ErrNotArray = errors.New("highlights: payload is not a JSON array")

// FieldError reports a structurally invalid highlight element.
type FieldError struct {
	Index   int // 0-based element index
	Field   string
	Problem string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("highlight %d: %s: %s", e.Index+1, e.Field, e.Problem)
}

// Decode parses a JSON array of highlights and checks that each element
// carries the required fields with the right shapes.
func Decode(data []byte) ([]Spec, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, err
	}

	out := make([]Spec, 0, len(raw))
	for i, r := range raw {
		if t := bytes.TrimSpace(r); len(t) == 0 || t[0] != '{' {
			return nil, &FieldError{Index: i, Field: "(element)", Problem: "must be a JSON object"}
		}
		var w Wire
		if err := json.Unmarshal(r, &w); err != nil {
			field := "(element)"
			var (
				typeErr *json.UnmarshalTypeError
				timeErr *TimeError
			)
			switch {
			case errors.As(err, &timeErr):
				field = badTimeField(r)
			case errors.As(err, &typeErr) && typeErr.Field != "":
				field = typeErr.Field
			}
			return nil, &FieldError{Index: i, Field: field, Problem: err.Error()}
		}
		s, err := FromWire(i, w)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// badTimeField names the first time field of element r that does not decode.
func badTimeField(r json.RawMessage) string {
	var times struct {
		Start json.RawMessage `json:"start_time"`
		End   json.RawMessage `json:"end_time"`
	}
	if err := json.Unmarshal(r, &times); err != nil {
		return "(element)"
	}
	for _, f := range []struct {
		name string
		raw  json.RawMessage
	}{{"start_time", times.Start}, {"end_time", times.End}} {
		if len(f.raw) == 0 || string(f.raw) == "null" {
			continue
		}
		var w WireTime
		if err := w.UnmarshalJSON(f.raw); err != nil {
			return f.name
		}
	}
	return "(element)"
}

// FromWire validates presence of the required fields and builds a Spec.
func FromWire(i int, w Wire) (Spec, error) {
	missing := func(field string) error {
		return &FieldError{Index: i, Field: field, Problem: "required field is missing"}
	}
	switch {
	case w.Title == nil:
		return Spec{}, missing("title")
	case w.HookSubtitle == nil:
		return Spec{}, missing("hook_subtitle")
	case w.StartTime == nil:
		return Spec{}, missing("start_time")
	case w.EndTime == nil:
		return Spec{}, missing("end_time")
	case w.CutSequence == nil:
		return Spec{}, missing("cut_sequence")
	case w.SceneDescriptions == nil:
		return Spec{}, missing("scene_descriptions")
	case w.SubtitleStrategy == nil:
		return Spec{}, missing("subtitle_strategy")
	case w.SubtitleStrategy.OriginalSubtitles == nil:
		return Spec{}, missing("subtitle_strategy.original_subtitles")
	case w.EditingDirection == nil:
		return Spec{}, missing("editing_direction")
	case w.Reason == nil:
		return Spec{}, missing("reason")
	}

	sp := w.SubtitleStrategy
	return Spec{
		Title:             *w.Title,
		HookLine:          *w.HookSubtitle,
		Start:             w.StartTime.Timestamp,
		End:               w.EndTime.Timestamp,
		CutSequence:       *w.CutSequence,
		SceneDescriptions: w.SceneDescriptions,
		SubtitlePlan: SubtitlePlan{
			OriginalLines:     sp.OriginalSubtitles,
			InfoCaptions:      optList(sp.InfoCaptions),
			EmphasisElements:  optList(sp.EmphasisElements),
			FallbackVoiceover: optString(sp.NewSubtitlesVoiceover),
		},
		EditingRationale:    *w.EditingDirection,
		SelectionReason:     *w.Reason,
		VoiceoverScript:     optString(w.VoiceoverScript),
		VoiceoverStyle:      optString(w.VoiceoverStyle),
		OriginalityElements: optList(w.OriginalityElements),
		TargetEmotion:       optString(w.TargetEmotion),
	}, nil
}

// ToWire converts a Spec back into its JSON shape.
func ToWire(s Spec) Wire {
	start := WireTime{s.Start}
	end := WireTime{s.End}
	scenes := s.SceneDescriptions
	if scenes == nil {
		scenes = []string{}
	}
	lines := s.SubtitlePlan.OriginalLines
	if lines == nil {
		lines = []string{}
	}
	return Wire{
		Title:             ptr(s.Title),
		HookSubtitle:      ptr(s.HookLine),
		StartTime:         &start,
		EndTime:           &end,
		CutSequence:       ptr(s.CutSequence),
		SceneDescriptions: scenes,
		SubtitleStrategy: &WireSubtitlePlan{
			OriginalSubtitles:     lines,
			InfoCaptions:          listOrNil(s.SubtitlePlan.InfoCaptions),
			EmphasisElements:      listOrNil(s.SubtitlePlan.EmphasisElements),
			NewSubtitlesVoiceover: stringOrNil(s.SubtitlePlan.FallbackVoiceover),
		},
		VoiceoverScript:     stringOrNil(s.VoiceoverScript),
		VoiceoverStyle:      stringOrNil(s.VoiceoverStyle),
		EditingDirection:    ptr(s.EditingRationale),
		OriginalityElements: listOrNil(s.OriginalityElements),
		TargetEmotion:       stringOrNil(s.TargetEmotion),
		Reason:              ptr(s.SelectionReason),
	}
}

// Encode renders specs as an indented JSON array that Decode accepts.
func Encode(specs []Spec) ([]byte, error) {
	ws := make([]Wire, 0, len(specs))
	for _, s := range specs {
		ws = append(ws, ToWire(s))
	}
	return json.MarshalIndent(ws, "", "  ")
}

func optString(p *string) Optional[string] {
	if p == nil {
		return None[string]()
	}
	return Some(*p)
}

func optList(l []string) Optional[[]string] {
	if l == nil {
		return None[[]string]()
	}
	return Some(l)
}

func stringOrNil(o Optional[string]) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

func listOrNil(o Optional[[]string]) []string {
	v, _ := o.Get()
	return v
}

func ptr(s string) *string { return &s }
