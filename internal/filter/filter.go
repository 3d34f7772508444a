// Package filter narrows an ideas table to the user's current selection.
package filter

import (
	"sort"
	"strings"
	"time"

	"tablero/internal/core"
	"tablero/internal/loader"
)

// Sentinel selections meaning "no constraint".
const (
	AllAreas        = "Todas"
	AllFacilitators = "Todos"
)

// Criteria is the conjunction of the three user selections. Empty strings
// and the sentinels disable the corresponding predicate; a nil Range
// disables the date predicate.
type Criteria struct {
	Area        string
	Facilitator string
	Range       *core.DateRange
}

func (c Criteria) areaActive() bool {
	a := strings.TrimSpace(c.Area)
	return a != "" && a != AllAreas
}

func (c Criteria) facilitatorActive() bool {
	f := strings.TrimSpace(c.Facilitator)
	return f != "" && f != AllFacilitators
}

func (c Criteria) rangeActive() bool {
	return c.Range != nil && c.Range.Validate() == nil
}

// IsZero reports whether the criteria select the whole table.
func (c Criteria) IsZero() bool {
	return !c.areaActive() && !c.facilitatorActive() && !c.rangeActive()
}

// Match reports whether a single idea satisfies every active predicate.
// Undated ideas only fail when a valid range is active.
func (c Criteria) Match(i core.Idea) bool {
	if c.areaActive() && i.Area != strings.TrimSpace(c.Area) {
		return false
	}
	if c.facilitatorActive() && i.Facilitator != strings.TrimSpace(c.Facilitator) {
		return false
	}
	if c.rangeActive() && (!i.HasDate || !c.Range.Contains(i.Date)) {
		return false
	}
	return true
}

// Apply returns a fresh table with the ideas matching c. The input is
// never modified; with no active predicate the result is a full copy.
func Apply(t *core.Table, c Criteria) *core.Table {
	if t == nil {
		return core.NewTable(nil)
	}
	return t.Subset(c.Match)
}

// ParseRange builds a date range from user input. Exactly two parseable
// dates with from <= to form a range; anything else means no constraint.
func ParseRange(values ...string) *core.DateRange {
	var dates []time.Time
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		d, ok := loader.ParseDate(v)
		if !ok {
			return nil
		}
		dates = append(dates, d)
	}
	if len(dates) != 2 {
		return nil
	}
	r, err := core.NewDateRange(dates[0], dates[1])
	if err != nil {
		return nil
	}
	return &r
}

// Options lists the choices offered by the filter controls.
type Options struct {
	Areas        []string  `json:"areas"`
	Facilitators []string  `json:"facilitators"`
	MinDate      time.Time `json:"min_date,omitempty"`
	MaxDate      time.Time `json:"max_date,omitempty"`
	HasDates     bool      `json:"has_dates"`
}

// OptionsFor derives the selectable values from the unfiltered table: each
// list starts with its sentinel followed by the sorted distinct values.
func OptionsFor(t *core.Table) Options {
	areas := map[string]struct{}{}
	facs := map[string]struct{}{}
	if t != nil {
		for _, i := range t.Ideas {
			if i.Area != "" {
				areas[i.Area] = struct{}{}
			}
			if i.Facilitator != "" {
				facs[i.Facilitator] = struct{}{}
			}
		}
	}
	opts := Options{
		Areas:        append([]string{AllAreas}, sortedKeys(areas)...),
		Facilitators: append([]string{AllFacilitators}, sortedKeys(facs)...),
	}
	if t != nil {
		opts.MinDate, opts.MaxDate, opts.HasDates = t.DateBounds()
	}
	return opts
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
