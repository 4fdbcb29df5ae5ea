// Package subtitles renders the per-clip ASS subtitle track of a highlight.
package subtitles

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/timedtext"
)

const (
	styleDialogue = "Reel"
	styleHook     = "Hook"
	styleInfo     = "Info"

	// The hook line stays on screen for the opening of every clip.
	hookSpan = 2500 * time.Millisecond

	// Per-line limits for a 1080px wide vertical frame.
	charBudget = 28
	wordBudget = 6
)

type event struct {
	Start time.Duration
	End   time.Duration
	Style string
	Text  string
}

type word struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []word
}

// RenderClipASS renders the subtitle track for one highlight clip with
// clip-local timing: the hook line at the top, info captions spread over
// the rest of the clip, and karaoke dialogue from the subtitle entries that
// overlap the highlight. Without overlapping entries the highlight's
// original subtitle lines fill the whole clip.
func RenderClipASS(h highlights.Spec, entries []timedtext.Entry) string {
	start, end := h.Start.Duration(), h.End.Duration()
	clip := end - start

	var events []event
	if hook := sanitizeASS(h.HookLine); hook != "" && clip > 0 {
		events = append(events, event{Start: 0, End: min(hookSpan, clip), Style: styleHook, Text: wrapText(hook)})
	}
	events = append(events, infoEvents(h.SubtitlePlan.InfoCaptions.Or(nil), clip)...)

	dialogue := dialogueEvents(entries, start, end)
	if len(dialogue) == 0 && clip > 0 {
		if text := sanitizeASS(strings.Join(h.SubtitlePlan.OriginalLines, " ")); text != "" {
			dialogue = append(dialogue, event{Start: 0, End: clip, Style: styleDialogue, Text: wrapText(text)})
		}
	}
	events = append(events, dialogue...)

	slices.SortStableFunc(events, func(a, b event) int { return cmp.Compare(a.Start, b.Start) })
	return renderASS(events)
}

// infoEvents shares the time after the hook equally between the captions.
func infoEvents(captions []string, clip time.Duration) []event {
	var texts []string
	for _, c := range captions {
		if t := sanitizeASS(c); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 || clip <= 0 {
		return nil
	}
	from := time.Duration(0)
	if clip > hookSpan {
		from = hookSpan
	}
	slot := (clip - from) / time.Duration(len(texts))
	out := make([]event, len(texts))
	for i, t := range texts {
		out[i] = event{
			Start: from + time.Duration(i)*slot,
			End:   from + time.Duration(i+1)*slot,
			Style: styleInfo,
			Text:  t,
		}
	}
	out[len(out)-1].End = clip
	return out
}

func dialogueEvents(entries []timedtext.Entry, start, end time.Duration) []event {
	var out []event
	for _, e := range entries {
		es, ee := e.Start.Duration(), e.End.Duration()
		if ee <= start || es >= end {
			continue
		}
		var words []word
		for _, w := range spreadWords(e.Text, es, ee) {
			if w.End <= start || w.Start >= end {
				continue
			}
			w.Start = max(w.Start, start) - start
			w.End = min(w.End, end) - start
			words = append(words, w)
		}
		if len(words) == 0 {
			continue
		}
		// Lines never span two entries.
		for _, ln := range packWords(words) {
			out = append(out, event{Start: ln.Start, End: ln.End, Style: styleDialogue, Text: karaoke(ln.Words)})
		}
	}
	return out
}

// spreadWords splits text into words and gives each a share of [from, to)
// proportional to its rune count. Entries carry no per-word timing.
func spreadWords(text string, from, to time.Duration) []word {
	fields := strings.Fields(text)
	if len(fields) == 0 || to <= from {
		return nil
	}
	totalRunes := 0
	for _, f := range fields {
		totalRunes += len([]rune(f))
	}
	span := to - from
	out := make([]word, 0, len(fields))
	cursor := from
	seen := 0
	for i, f := range fields {
		seen += len([]rune(f))
		wEnd := from + time.Duration(int64(span)*int64(seen)/int64(totalRunes))
		if i == len(fields)-1 {
			wEnd = to
		}
		out = append(out, word{Start: cursor, End: wEnd, Text: sanitizeASS(f)})
		cursor = wEnd
	}
	return out
}

func packWords(words []word) []line {
	var out []line
	var cur line
	curLen := 0
	for _, w := range words {
		wl := len([]rune(w.Text))
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || curLen+1+wl > charBudget) {
			out = append(out, cur)
			cur, curLen = line{}, 0
		}
		if len(cur.Words) == 0 {
			cur.Start = w.Start
		} else {
			curLen++
		}
		cur.Words = append(cur.Words, w)
		cur.End = w.End
		curLen += wl
	}
	if len(cur.Words) > 0 {
		out = append(out, cur)
	}
	return out
}

func karaoke(words []word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		cs := max(int((w.End-w.Start)/(10*time.Millisecond)), 1)
		parts[i] = fmt.Sprintf("{\\k%d}%s", cs, w.Text)
	}
	return strings.Join(parts, " ")
}

// wrapText breaks text into lines of at most charBudget runes joined by
// the ASS hard line break.
func wrapText(text string) string {
	var lines []string
	cur := ""
	for _, f := range strings.Fields(text) {
		if cur != "" && len([]rune(cur))+1+len([]rune(f)) > charBudget {
			lines = append(lines, cur)
			cur = ""
		}
		if cur != "" {
			cur += " "
		}
		cur += f
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return strings.Join(lines, `\N`)
}

func renderASS(events []event) string {
	var b strings.Builder
	b.WriteString(assHeader)
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, e := range events {
		layer := 0
		if e.Style != styleDialogue {
			layer = 1
		}
		fmt.Fprintf(&b, "Dialogue: %d,%s,%s,%s,,0,0,0,,%s\n", layer, assTime(e.Start), assTime(e.End), e.Style, e.Text)
	}
	return b.String()
}

const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Reel, Inter, 78, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,2,2, 80,80,85,1
Style: Hook, Inter, 92, &H0000D7FF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,7,2,8, 60,60,220,1
Style: Info, Inter, 54, &H00FFFFFF, &H00FFFFFF, &H00000000, &HA0000000, 0,1,0,0,100,100,0,0,3,2,0,7, 60,60,420,1`

func assTime(d time.Duration) string {
	d = max(d, 0)
	cs := int64(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
