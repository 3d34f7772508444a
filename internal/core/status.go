package core

// Status is the exclusive review stage of an idea. Each idea has exactly one.
type Status string

const (
	StatusImplemented   Status = "implemented"
	StatusViablePending Status = "viable_pending"
	StatusNotViable     Status = "not_viable"
	StatusRejected      Status = "rejected"
	StatusApproved      Status = "approved"
	StatusToReview      Status = "to_review"
)

// Statuses lists every status in precedence order.
var Statuses = []Status{
	StatusImplemented,
	StatusViablePending,
	StatusNotViable,
	StatusRejected,
	StatusApproved,
	StatusToReview,
}

// Status classifies the idea. When an idea matches several KPI buckets the
// later review stage wins: implementation, then viability, then first filter.
func (i Idea) Status() Status {
	switch {
	case i.Implemented == True:
		return StatusImplemented
	case i.Viability == Viable && i.Implemented == False:
		return StatusViablePending
	case i.Viability == NotViable:
		return StatusNotViable
	case i.FirstFilter == Rejected:
		return StatusRejected
	case i.FirstFilter == Approved && i.Viability == ViabilityEmpty:
		return StatusApproved
	default:
		return StatusToReview
	}
}
