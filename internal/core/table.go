package core

import (
	"time"
)

// Table is an immutable snapshot of the ideas dataset.
// Filtering produces new tables; nothing mutates a Table after load.
type Table struct {
	Version   string // unique per load
	Source    string // source identity the snapshot was loaded from
	Origin    string // human readable note, e.g. the fallback cause
	Synthetic bool
	LoadedAt  time.Time
	Skipped   int // rows dropped because every mapped cell was blank

	Ideas       []Idea
	Authorships []Authorship
}

// NewTable builds a table and derives the authorship relation from each idea's Authors.
func NewTable(ideas []Idea) *Table {
	t := &Table{Ideas: ideas, LoadedAt: time.Now()}
	for _, idea := range ideas {
		for _, a := range idea.Authors {
			t.Authorships = append(t.Authorships, Authorship{IdeaID: idea.ID, Author: a})
		}
	}
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Ideas)
}

// Subset returns a fresh table holding the ideas accepted by keep, in the
// original order, together with their authorships. Snapshot metadata is kept.
func (t *Table) Subset(keep func(Idea) bool) *Table {
	out := &Table{
		Version:   t.Version,
		Source:    t.Source,
		Origin:    t.Origin,
		Synthetic: t.Synthetic,
		LoadedAt:  t.LoadedAt,
		Ideas:     make([]Idea, 0, len(t.Ideas)),
	}
	ids := make(map[int]struct{}, len(t.Ideas))
	for _, idea := range t.Ideas {
		if keep(idea) {
			out.Ideas = append(out.Ideas, idea)
			ids[idea.ID] = struct{}{}
		}
	}
	for _, a := range t.Authorships {
		if _, ok := ids[a.IdeaID]; ok {
			out.Authorships = append(out.Authorships, a)
		}
	}
	return out
}

// DateBounds returns the earliest and latest dated idea. ok is false when no idea has a date.
func (t *Table) DateBounds() (first, last time.Time, ok bool) {
	for _, idea := range t.Ideas {
		if !idea.HasDate {
			continue
		}
		if !ok || idea.Date.Before(first) {
			first = idea.Date
		}
		if !ok || idea.Date.After(last) {
			last = idea.Date
		}
		ok = true
	}
	return first, last, ok
}
