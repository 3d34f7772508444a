package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Unknown Tristate = iota
	True
	False
)

const (
	ViabilityEmpty Viability = iota
	Viable
	NotViable
	ViabilityOther
)

const (
	FilterEmpty FirstFilter = iota
	Approved
	Rejected
	FilterOther
)

// UnknownPeriod labels derived calendar fields of ideas without a usable date.
const UnknownPeriod = "unknown"

type (
	// Tristate is the normalized form of the "¿Implementado?" column.
	Tristate int

	Viability int

	FirstFilter int

	// Idea is one row of the source table after normalization.
	Idea struct {
		ID             int
		Date           time.Time
		HasDate        bool
		DateRaw        string // cell as read, kept when it does not parse
		Area           string
		Facilitator    string // "Soporte procesos"
		Names          string // raw multi-line author cell
		Authors        []string
		Title          string
		Implemented    Tristate
		ImplementedRaw string
		Viability      Viability
		ViabilityRaw   string
		FirstFilter    FirstFilter
		FirstFilterRaw string

		Period     string // "2006-01" or UnknownPeriod
		MonthShort string // "Jan".."Dec" or UnknownPeriod
		MonthLong  string // "January".."December" or UnknownPeriod
	}

	// Authorship credits one author with one idea.
	Authorship struct {
		IdeaID int
		Author string
	}
)

var (
	ErrNoData        = errors.New("no data rows")
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownColumn = errors.New("unknown column")
	ErrInvalidRange  = errors.New("invalid date range")
)

var (
	truthy = map[string]bool{"VERDADERO": true, "TRUE": true, "1": true, "1.0": true}
	falsy  = map[string]bool{"FALSO": true, "FALSE": true, "0": true, "0.0": true}
)

// ParseTristate maps a raw cell onto True, False or Unknown regardless of casing.
func ParseTristate(raw string) Tristate {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case truthy[v]:
		return True
	case falsy[v]:
		return False
	default:
		return Unknown
	}
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// ParseViability recognizes exactly "Viable" and "No viable" after trimming;
// blank cells are empty.
func ParseViability(raw string) Viability {
	switch strings.TrimSpace(raw) {
	case "":
		return ViabilityEmpty
	case "Viable":
		return Viable
	case "No viable":
		return NotViable
	default:
		return ViabilityOther
	}
}

func (v Viability) String() string {
	switch v {
	case Viable:
		return "Viable"
	case NotViable:
		return "No viable"
	case ViabilityOther:
		return "other"
	default:
		return ""
	}
}

func ParseFirstFilter(raw string) FirstFilter {
	switch strings.TrimSpace(raw) {
	case "":
		return FilterEmpty
	case "Aprobado":
		return Approved
	case "Rechazado":
		return Rejected
	default:
		return FilterOther
	}
}

func (f FirstFilter) String() string {
	switch f {
	case Approved:
		return "Aprobado"
	case Rejected:
		return "Rechazado"
	case FilterOther:
		return "other"
	default:
		return ""
	}
}

// SetDate stores the date and derives Period, MonthShort and MonthLong.
// A zero time marks the idea as undated.
func (i *Idea) SetDate(t time.Time) {
	if t.IsZero() {
		i.Date = time.Time{}
		i.HasDate = false
		i.Period = UnknownPeriod
		i.MonthShort = UnknownPeriod
		i.MonthLong = UnknownPeriod
		return
	}
	i.Date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	i.HasDate = true
	i.Period = i.Date.Format("2006-01")
	i.MonthShort = i.Date.Format("Jan")
	i.MonthLong = i.Date.Format("January")
}

// SplitAuthors splits a multi-line names cell into trimmed, non-empty author tokens.
func SplitAuthors(names string) []string {
	if strings.TrimSpace(names) == "" {
		return nil
	}
	parts := strings.Split(strings.ReplaceAll(names, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
