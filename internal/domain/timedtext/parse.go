// Package timedtext parses SRT subtitle documents into timed entries.
//
// Parsing is lenient: blocks that do not look like an SRT cue are skipped
// without error, because partially broken subtitle files are common and a
// partial result is more useful than none. ParseWithDiagnostics reports what
// was skipped for callers that want to be strict.
package timedtext

import (
	"regexp"
	"strconv"
	"strings"
)

// Entry is one subtitle cue.
type Entry struct {
	Index int
	Start Timestamp
	End   Timestamp
	Text  string
}

// Statistics summarizes a parsed document.
type Statistics struct {
	EntryCount           int     `json:"entry_count"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// Skipped describes a block that Parse ignored.
type Skipped struct {
	Block  int // 1-based block number in the document
	Reason string
}

const (
	ReasonNoIndex       = "first line is not a cue index"
	ReasonNoTiming      = "second line is not a HH:MM:SS,mmm --> HH:MM:SS,mmm timing line"
	ReasonNoText        = "cue has no text lines"
	ReasonEmptyRange    = "cue end is not after its start"
	ReasonIndexNotAfter = "cue index does not increase"
)

var (
	timingRE = regexp.MustCompile(`^(\d{2,6}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2,6}:\d{2}:\d{2},\d{3})(?:\s.*)?$`)
	tagRE    = regexp.MustCompile(`<[^>]+>`)
	spaceRE  = regexp.MustCompile(`\s+`)
)

// Parse returns the cues of doc in document order. Malformed blocks are skipped.
func Parse(doc string) []Entry {
	entries, _ := ParseWithDiagnostics(doc)
	return entries
}

// ParseWithDiagnostics is Parse plus a record of every skipped block.
func ParseWithDiagnostics(doc string) ([]Entry, []Skipped) {
	entries := make([]Entry, 0, 64)
	var skipped []Skipped

	lastIndex := 0
	for n, block := range splitBlocks(doc) {
		e, reason := parseBlock(block)
		if reason == "" && e.Index <= lastIndex {
			reason = ReasonIndexNotAfter
		}
		if reason != "" {
			skipped = append(skipped, Skipped{Block: n + 1, Reason: reason})
			continue
		}
		lastIndex = e.Index
		entries = append(entries, e)
	}
	return entries, skipped
}

// Stats derives statistics from the last entry's end. Entries are assumed to
// be chronological; they are not re-sorted.
func Stats(entries []Entry) Statistics {
	if len(entries) == 0 {
		return Statistics{}
	}
	return Statistics{
		EntryCount:           len(entries),
		TotalDurationSeconds: entries[len(entries)-1].End.Seconds(),
	}
}

func splitBlocks(doc string) [][]string {
	doc = strings.TrimPrefix(doc, "\ufeff")
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")

	var (
		blocks [][]string
		cur    []string
	)
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func parseBlock(lines []string) (Entry, string) {
	idx, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || idx < 1 {
		return Entry{}, ReasonNoIndex
	}
	if len(lines) < 2 {
		return Entry{}, ReasonNoTiming
	}
	m := timingRE.FindStringSubmatch(strings.TrimSpace(lines[1]))
	if m == nil {
		return Entry{}, ReasonNoTiming
	}
	if len(lines) < 3 {
		return Entry{}, ReasonNoText
	}
	start, err := ParseTimestamp(m[1])
	if err != nil {
		return Entry{}, ReasonNoTiming
	}
	end, err := ParseTimestamp(m[2])
	if err != nil {
		return Entry{}, ReasonNoTiming
	}
	if !start.Before(end) {
		return Entry{}, ReasonEmptyRange
	}
	return Entry{
		Index: idx,
		Start: start,
		End:   end,
		Text:  cleanText(strings.Join(lines[2:], " ")),
	}, ""
}

func cleanText(s string) string {
	s = tagRE.ReplaceAllString(s, "")
	s = spaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
