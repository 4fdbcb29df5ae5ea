package timedtext

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Timestamp is a subtitle time position with millisecond precision.
type Timestamp struct {
	ms int64
}

// timestampRE accepts HH:MM:SS with an optional ",mmm" or ".mmm" fraction.
// Hours may exceed two digits so every String() result parses back.
var timestampRE = regexp.MustCompile(`^(\d{1,6}):(\d{2}):(\d{2})(?:[,.](\d{1,3}))?$`)

// ParseTimestamp parses "HH:MM:SS,mmm", "HH:MM:SS.mmm" or "HH:MM:SS".
func ParseTimestamp(s string) (Timestamp, error) {
	m := timestampRE.FindStringSubmatch(s)
	if m == nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: expected HH:MM:SS,mmm", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if mi > 59 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: minutes must be 0-59", s)
	}
	if sec > 59 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: seconds must be 0-59", s)
	}
	ms := 0
	if frac := m[4]; frac != "" {
		// "5" means 500ms, "05" means 50ms.
		for len(frac) < 3 {
			frac += "0"
		}
		ms, _ = strconv.Atoi(frac)
	}
	total := int64(h)*3_600_000 + int64(mi)*60_000 + int64(sec)*1000 + int64(ms)
	return Timestamp{ms: total}, nil
}

// MustParseTimestamp is ParseTimestamp for literals known to be valid.
func MustParseTimestamp(s string) Timestamp {
	t, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSeconds converts fractional seconds, rounding to the nearest millisecond.
func FromSeconds(sec float64) Timestamp {
	if sec < 0 {
		sec = 0
	}
	return Timestamp{ms: int64(math.Round(sec * 1000))}
}

// FromMilliseconds builds a timestamp from a millisecond offset.
func FromMilliseconds(ms int64) Timestamp {
	if ms < 0 {
		ms = 0
	}
	return Timestamp{ms: ms}
}

// String renders the SRT form HH:MM:SS,mmm.
func (t Timestamp) String() string {
	ms := t.ms
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FileSafe renders the timestamp with colons replaced so it can be embedded in a file name.
func (t Timestamp) FileSafe() string {
	s := []byte(t.String())
	for i := range s {
		if s[i] == ':' {
			s[i] = '-'
		}
	}
	return string(s)
}

func (t Timestamp) Milliseconds() int64 { return t.ms }

func (t Timestamp) Seconds() float64 { return float64(t.ms) / 1000 }

func (t Timestamp) Duration() time.Duration { return time.Duration(t.ms) * time.Millisecond }

func (t Timestamp) Before(other Timestamp) bool { return t.ms < other.ms }

func (t Timestamp) After(other Timestamp) bool { return t.ms > other.ms }

func (t Timestamp) IsZero() bool { return t.ms == 0 }

// Sub returns t-other.
func (t Timestamp) Sub(other Timestamp) time.Duration {
	return time.Duration(t.ms-other.ms) * time.Millisecond
}
