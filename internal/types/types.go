package types

import (
	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
)

// Manifest is written as manifest.json next to the clips of a processed run.
type Manifest struct {
	Input       string         `json:"input"`
	Compilation string         `json:"compilation"`
	Sheet       string         `json:"sheet"`
	Clips       []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	Ordinal   int     `json:"ordinal"`
	Title     string  `json:"title"`
	HookLine  string  `json:"hook_line"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	File      string  `json:"file"`
	Subtitles string  `json:"subtitles,omitempty"`
}

// AnalysisSummary is written as analysis.json by analyze runs.
type AnalysisSummary struct {
	Subtitles      string  `json:"subtitles"`
	EntryCount     int     `json:"entry_count"`
	DurationSec    float64 `json:"total_duration_seconds"`
	SkippedBlocks  int     `json:"skipped_blocks"`
	HighlightCount int     `json:"highlight_count"`
	HighlightsFile string  `json:"highlights_file"`
	PreviewSheet   string  `json:"preview_sheet"`
}

// NewManifest pairs plan items with the files produced for them. clips and
// subs are indexed like plan; subs may be nil.
func NewManifest(input, compilation, sheet string, plan timeline.CutPlan, clips, subs []string) Manifest {
	m := Manifest{Input: input, Compilation: compilation, Sheet: sheet}
	for i, it := range plan {
		m.Clips = append(m.Clips, manifestClip(it.Ordinal, it.Highlight, clips[i], at(subs, i)))
	}
	return m
}

func manifestClip(ordinal int, h highlights.Spec, file, subs string) ManifestClip {
	return ManifestClip{
		Ordinal:   ordinal,
		Title:     h.Title,
		HookLine:  h.HookLine,
		Start:     h.Start.String(),
		End:       h.End.String(),
		StartSec:  h.Start.Seconds(),
		EndSec:    h.End.Seconds(),
		File:      file,
		Subtitles: subs,
	}
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
