package core

import "time"

// MonthOrder lists the short month labels in calendar order.
var MonthOrder = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthIndex returns the zero-based calendar position of a short month label, or -1.
func MonthIndex(short string) int {
	for i, m := range MonthOrder {
		if m == short {
			return i
		}
	}
	return -1
}

// DateRange is an inclusive range compared at day granularity.
type DateRange struct {
	From time.Time
	To   time.Time
}

func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: truncateDay(from), To: truncateDay(to)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether t falls on or between From and To.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(r.From)) && !d.After(truncateDay(r.To))
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
