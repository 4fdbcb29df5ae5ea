package usecase

import (
	"fmt"
	"strings"

	"github.com/forPelevin/reelcut/internal/domain/timedtext"
)

const systemPrompt = "You are a professional short-form video editor who produces transformative re-edits " +
	"and knows platform originality policies well. Every reel plan you write must include a unique " +
	"voiceover analysis, creative editing techniques, informational captions and new information. " +
	"Output strictly the requested JSON format and make sure every plan passes an originality self-check."

// renderSubtitles renders entries as "[start - end] text" lines in order.
func renderSubtitles(entries []timedtext.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s - %s] %s", e.Start, e.End, e.Text)
	}
	return b.String()
}

func buildUserPrompt(entries []timedtext.Entry, synopsis string, c Constraints) string {
	synopsis = strings.TrimSpace(synopsis)
	if synopsis == "" {
		synopsis = "(no synopsis provided; infer the story from the subtitles)"
	}
	var b strings.Builder
	b.WriteString("Plot synopsis:\n")
	b.WriteString(synopsis)
	b.WriteString("\n\nTimed subtitles:\n")
	b.WriteString(renderSubtitles(entries))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Task: pick at most %d highlight moments for short vertical reels. ", c.MaxHighlights)
	fmt.Fprintf(&b, "Each highlight must last between %g and %g seconds ", c.MinDuration.Seconds(), c.MaxDuration.Seconds())
	b.WriteString("and start and end on the subtitle timestamps above.\n\n")
	b.WriteString(`Requirements for every highlight:
1. A hook line that stops the scroll in the first two seconds.
2. A creative cut sequence (non-linear order, contrast, suspense), not a plain excerpt.
3. Concrete scene descriptions an editor can find in the footage.
4. A voiceover script that adds analysis or context, not a translation of the dialogue.
5. Info captions (character labels, inner thoughts, relationships) that add new information.
6. A list of the originality elements used.

Format:
- Answer with a single JSON array and nothing else. No markdown, no code fences.
- Timestamps use HH:MM:SS,mmm exactly as in the subtitles.
- Required fields: title, hook_subtitle, start_time, end_time, cut_sequence, scene_descriptions,
  subtitle_strategy.original_subtitles, editing_direction, reason.

Example:
[
  {
    "title": "The moment he finds out",
    "hook_subtitle": "He had no idea who was listening",
    "start_time": "00:12:04,500",
    "end_time": "00:12:17,000",
    "cut_sequence": "reaction shot -> the reveal line -> slow push-in on the reaction",
    "scene_descriptions": ["close-up of his face as the door opens", "wide shot of the room going silent"],
    "subtitle_strategy": {
      "original_subtitles": ["You knew all along?"],
      "info_captions": ["His brother. 20 years of trust."],
      "emphasis_elements": ["freeze frame on the glance"],
      "new_subtitles_voiceover": "This is the second he realizes the plan was never his."
    },
    "voiceover_script": "Watch his hands, not his face. He already knows.",
    "voiceover_style": "calm, low, deliberate",
    "editing_direction": "open on the reaction to create a question, then answer it with the line",
    "originality_elements": ["analysis voiceover", "non-linear order", "info captions"],
    "target_emotion": "shock",
    "reason": "the turning point of the episode with a clear emotional payoff"
  }
]`)
	return b.String()
}
