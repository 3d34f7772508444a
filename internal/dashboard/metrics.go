// Package dashboard computes the dashboard result tables from a filtered
// ideas table. Every function is pure and returns a zero-shaped result for
// an empty table.
package dashboard

import (
	"tablero/internal/core"
)

// DefaultTopN is the length of the author and support rankings.
const DefaultTopN = 5

// IdeasPerArea counts ideas per area, most ideas first. Ideas without an
// area are left out.
func IdeasPerArea(t *core.Table) Series {
	c := counter{}
	for _, i := range ideas(t) {
		if i.Area != "" {
			c[i.Area]++
		}
	}
	return c.descending()
}

// ViableTrend counts viable ideas per calendar month, always as 12 bins
// from Jan to Dec. Undated ideas fall in no bin.
func ViableTrend(t *core.Table) Series {
	var bins [12]int
	for _, i := range ideas(t) {
		if i.Viability != core.Viable {
			continue
		}
		if m := core.MonthIndex(i.MonthShort); m >= 0 {
			bins[m]++
		}
	}
	out := make(Series, 12)
	for m, label := range core.MonthOrder {
		out[m] = Point{Label: label, Value: float64(bins[m])}
	}
	return out
}

// ImplementationRate is, per calendar month, the share of ideas marked as
// implemented in percent. Months without ideas report 0.
func ImplementationRate(t *core.Table) Series {
	var total, done [12]int
	for _, i := range ideas(t) {
		m := core.MonthIndex(i.MonthShort)
		if m < 0 {
			continue
		}
		total[m]++
		if i.Implemented == core.True {
			done[m]++
		}
	}
	out := make(Series, 12)
	for m, label := range core.MonthOrder {
		out[m] = Point{Label: label, Value: percent(done[m], total[m])}
	}
	return out
}

// TopAuthors ranks individual authors by credited ideas. An idea with
// several authors counts once for each of them.
func TopAuthors(t *core.Table, n int) Series {
	c := counter{}
	if t != nil {
		for _, a := range t.Authorships {
			c[a.Author]++
		}
	}
	return c.top(n)
}

// TopSupport ranks facilitators by the number of viable ideas they support.
func TopSupport(t *core.Table, n int) Series {
	c := counter{}
	for _, i := range ideas(t) {
		if i.Viability == core.Viable && i.Facilitator != "" {
			c[i.Facilitator]++
		}
	}
	return c.top(n)
}

// StatusBreakdown counts ideas per exclusive review status, in the
// precedence order of core.Statuses. Its values always sum to the total.
func StatusBreakdown(t *core.Table) Series {
	c := counter{}
	for _, i := range ideas(t) {
		c[string(i.Status())]++
	}
	out := make(Series, len(core.Statuses))
	for k, s := range core.Statuses {
		out[k] = Point{Label: string(s), Value: float64(c[string(s)])}
	}
	return out
}

func ideas(t *core.Table) []core.Idea {
	if t == nil {
		return nil
	}
	return t.Ideas
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}
