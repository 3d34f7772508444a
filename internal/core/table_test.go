package core

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewTableBuildsAuthorships(t *testing.T) {
	tbl := NewTable([]Idea{
		{ID: 1, Authors: []string{"Ana", "Beto"}},
		{ID: 2, Authors: []string{"Ana"}},
		{ID: 3},
	})
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 ideas, got %d", tbl.Len())
	}
	if len(tbl.Authorships) != 3 {
		t.Fatalf("expected 3 authorships, got %v", tbl.Authorships)
	}
}

func TestSubsetDoesNotMutateSource(t *testing.T) {
	src := NewTable([]Idea{
		{ID: 1, Area: "IT", Authors: []string{"Ana"}},
		{ID: 2, Area: "HR", Authors: []string{"Beto", "Carla"}},
	})
	src.Version = "v1"

	sub := src.Subset(func(i Idea) bool { return i.Area == "HR" })
	if sub.Len() != 1 || sub.Ideas[0].ID != 2 {
		t.Fatalf("unexpected subset: %+v", sub.Ideas)
	}
	if len(sub.Authorships) != 2 {
		t.Fatalf("expected authorships of idea 2 only, got %v", sub.Authorships)
	}
	if sub.Version != "v1" {
		t.Fatalf("subset should keep snapshot version")
	}

	sub.Ideas[0].Area = "changed"
	if src.Ideas[1].Area != "HR" {
		t.Fatalf("subset must not share backing storage with the source")
	}
	if src.Len() != 2 || len(src.Authorships) != 3 {
		t.Fatalf("source mutated: %+v", src)
	}
}

func TestDateBounds(t *testing.T) {
	var a, b, c Idea
	a.SetDate(day(2024, 5, 2))
	b.SetDate(time.Time{})
	c.SetDate(day(2023, 1, 9))
	first, last, ok := NewTable([]Idea{a, b, c}).DateBounds()
	if !ok || !first.Equal(day(2023, 1, 9)) || !last.Equal(day(2024, 5, 2)) {
		t.Fatalf("unexpected bounds %v %v %v", first, last, ok)
	}

	if _, _, ok := NewTable([]Idea{b}).DateBounds(); ok {
		t.Fatalf("undated table should have no bounds")
	}
}

func TestDateRange(t *testing.T) {
	r, err := NewDateRange(day(2024, 1, 1), time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inside := []time.Time{day(2024, 1, 1), time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC), day(2024, 1, 15)}
	for _, d := range inside {
		if !r.Contains(d) {
			t.Fatalf("%v should be inside %+v", d, r)
		}
	}
	for _, d := range []time.Time{day(2023, 12, 31), day(2024, 2, 1)} {
		if r.Contains(d) {
			t.Fatalf("%v should be outside %+v", d, r)
		}
	}

	if _, err := NewDateRange(day(2024, 2, 1), day(2024, 1, 1)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for reversed range, got %v", err)
	}
	if _, err := NewDateRange(time.Time{}, day(2024, 1, 1)); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange for open range, got %v", err)
	}
}

func TestMonthIndex(t *testing.T) {
	if MonthIndex("Jan") != 0 || MonthIndex("Dec") != 11 || MonthIndex("unknown") != -1 {
		t.Fatalf("unexpected month index")
	}
	if len(MonthOrder) != 12 {
		t.Fatalf("expected 12 months")
	}
}
