package dashboard

import "sort"

// Point is one labelled bar of a chart.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is an ordered result table ready for display.
type Series []Point

func (s Series) Labels() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Label
	}
	return out
}

func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Sum adds every value of the series.
func (s Series) Sum() float64 {
	var total float64
	for _, p := range s {
		total += p.Value
	}
	return total
}

// counter accumulates counts per label.
type counter map[string]int

// descending orders labels by count, highest first, ties by label.
func (c counter) descending() Series {
	out := make(Series, 0, len(c))
	for label, n := range c {
		out = append(out, Point{Label: label, Value: float64(n)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// top keeps the n highest labels and returns them lowest first, the
// order horizontal bar charts draw from the bottom up.
func (c counter) top(n int) Series {
	ranked := c.descending()
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}
	return ranked
}
