// Package timeline turns a human selection over resolved highlights into an
// ordered cut plan.
package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
)

// Item is one highlight scheduled for cutting. Ordinal is its 1-based
// position in the plan.
type Item struct {
	Highlight highlights.Spec
	Ordinal   int
}

// CutPlan is the ordered list of highlights to cut.
type CutPlan []Item

// Plan keeps the highlights of all whose index is in selected, in the order
// they appear in all (not the order of selected), and numbers them 1..k.
// Indices outside [0, len(all)) are ignored.
func Plan(all []highlights.Spec, selected []int) CutPlan {
	keep := make(map[int]struct{}, len(selected))
	for _, i := range selected {
		keep[i] = struct{}{}
	}

	plan := make(CutPlan, 0, len(keep))
	for i, h := range all {
		if _, ok := keep[i]; !ok {
			continue
		}
		plan = append(plan, Item{Highlight: h, Ordinal: len(plan) + 1})
	}
	return plan
}

// All returns every index of n highlights.
func All(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// ValidateSelection checks that every index is within [0, n).
func ValidateSelection(selected []int, n int) error {
	if len(selected) == 0 {
		return fmt.Errorf("no highlights selected")
	}
	for _, i := range selected {
		if i < 0 || i >= n {
			return fmt.Errorf("highlight %d does not exist (have %d)", i+1, n)
		}
	}
	return nil
}

// ParseSelection parses a 1-based selection like "1,3-4" over n highlights
// and returns sorted, de-duplicated 0-based indices. "all" selects everything.
func ParseSelection(s string, n int) ([]int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return All(n), nil
	}
	if s == "" {
		return nil, fmt.Errorf("empty selection")
	}

	seen := map[int]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		for v := lo; v <= hi; v++ {
			if v < 1 || v > n {
				return nil, fmt.Errorf("selection %q: %d is out of range 1-%d", part, v, n)
			}
			seen[v-1] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("empty selection")
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

func parseRange(part string) (int, int, error) {
	a, b, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("selection %q: not a number", part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("selection %q: not a number", part)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("selection %q: range is reversed", part)
	}
	return lo, hi, nil
}
