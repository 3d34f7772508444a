package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tablero/internal/filter"
)

func TestParseFilterParams(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantArea  string
		wantFac   string
		wantRange bool
	}{
		{
			name:     "empty query selects everything",
			query:    url.Values{},
			wantArea: filter.AllAreas,
			wantFac:  filter.AllFacilitators,
		},
		{
			name:      "full selection",
			query:     url.Values{"area": {" IT "}, "facilitator": {"Marta"}, "from": {"2024-01-01"}, "to": {"2024-03-31"}},
			wantArea:  "IT",
			wantFac:   "Marta",
			wantRange: true,
		},
		{
			name:     "single date is no range",
			query:    url.Values{"from": {"2024-01-01"}},
			wantArea: filter.AllAreas,
			wantFac:  filter.AllFacilitators,
		},
		{
			name:     "reversed range is ignored",
			query:    url.Values{"from": {"2024-03-01"}, "to": {"2024-01-01"}},
			wantArea: filter.AllAreas,
			wantFac:  filter.AllFacilitators,
		},
		{
			name:     "control characters stripped",
			query:    url.Values{"area": {"I\x00T"}},
			wantArea: "IT",
			wantFac:  filter.AllFacilitators,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseFilterParams(tt.query)
			c := p.Criteria()
			if c.Area != tt.wantArea || c.Facilitator != tt.wantFac {
				t.Errorf("got area=%q facilitator=%q", c.Area, c.Facilitator)
			}
			if (c.Range != nil) != tt.wantRange {
				t.Errorf("range = %+v, want present=%v", c.Range, tt.wantRange)
			}
		})
	}
}

func TestFilterParamsQueryOmitsSentinels(t *testing.T) {
	p := FilterParams{Area: filter.AllAreas, Facilitator: "Marta", From: "2024-01-01"}
	if got := p.Query().Encode(); got != "facilitator=Marta&from=2024-01-01" {
		t.Errorf("Query() = %q", got)
	}
}

func TestFilterParamsRangeIsInclusive(t *testing.T) {
	c := ParseFilterParams(url.Values{"from": {"2024-01-01"}, "to": {"2024-01-31"}}).Criteria()
	if !c.Range.Contains(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Error("end date must be inclusive")
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantReason  string
		wantJSON    bool
		wantErr     bool
	}{
		{"json", "application/json", `{"reason":"new export"}`, "new export", true, false},
		{"form", "application/x-www-form-urlencoded", "reason=manual", "manual", false, false},
		{"empty", "", "", "", false, false},
		{"broken json", "application/json", `{"reason":`, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/reload", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(req)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := p.Get("reason"); got != tt.wantReason {
				t.Errorf("Get(reason) = %q, want %q", got, tt.wantReason)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v", p.IsJSON())
			}
		})
	}
}
