package dashboard

import "tablero/internal/core"

// KPIs are the summary tiles. ToReview is the residual bucket, so
// Total == Implemented + ViablePending + NotViable + Approved + Rejected + ToReview
// holds for every table even though ToReview may go negative when the
// other buckets overlap.
type KPIs struct {
	Total             int     `json:"total"`
	Implemented       int     `json:"implemented"`
	ViablePending     int     `json:"viable_pending"`
	NotViable         int     `json:"not_viable"`
	Approved          int     `json:"approved"`
	Rejected          int     `json:"rejected"`
	ToReview          int     `json:"to_review"`
	ImplementationPct float64 `json:"implementation_pct"`
}

func ComputeKPIs(t *core.Table) KPIs {
	var k KPIs
	for _, i := range ideas(t) {
		k.Total++
		if i.Implemented == core.True {
			k.Implemented++
		}
		if i.Viability == core.Viable && i.Implemented == core.False {
			k.ViablePending++
		}
		if i.Viability == core.NotViable {
			k.NotViable++
		}
		if i.FirstFilter == core.Approved && i.Viability == core.ViabilityEmpty {
			k.Approved++
		}
		if i.FirstFilter == core.Rejected {
			k.Rejected++
		}
	}
	k.ToReview = k.Total - k.Implemented - k.Approved - k.NotViable - k.Rejected - k.ViablePending
	k.ImplementationPct = percent(k.Implemented, k.Total)
	return k
}

// Overlapping reports whether any idea was counted in more than one bucket,
// which is exactly when the residual differs from the exclusive status count.
func (k KPIs) Overlapping(statuses Series) bool {
	for _, p := range statuses {
		if p.Label == string(core.StatusToReview) {
			return int(p.Value) != k.ToReview
		}
	}
	return false
}
