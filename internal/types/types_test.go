package types

import (
	"testing"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/timedtext"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
)

func TestNewManifest(t *testing.T) {
	all := []highlights.Spec{
		{Title: "A", Start: timedtext.MustParseTimestamp("00:00:10,000"), End: timedtext.MustParseTimestamp("00:00:20,500")},
		{Title: "B", Start: timedtext.MustParseTimestamp("00:01:00,000"), End: timedtext.MustParseTimestamp("00:01:12,000")},
		{Title: "C", Start: timedtext.MustParseTimestamp("00:02:00,000"), End: timedtext.MustParseTimestamp("00:02:10,000")},
	}
	plan := timeline.Plan(all, []int{0, 2})

	m := NewManifest("in.mp4", "all.mp4", "sheet.txt", plan, []string{"c1.mp4", "c2.mp4"}, nil)
	if len(m.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(m.Clips))
	}
	first, second := m.Clips[0], m.Clips[1]
	if first.Ordinal != 1 || first.Title != "A" || first.File != "c1.mp4" || first.EndSec != 20.5 || first.Start != "00:00:10,000" {
		t.Fatalf("unexpected first clip %+v", first)
	}
	if second.Ordinal != 2 || second.Title != "C" || second.Subtitles != "" {
		t.Fatalf("unexpected second clip %+v", second)
	}
}
