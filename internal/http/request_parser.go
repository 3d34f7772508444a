// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// filter selections from query strings and small admin request bodies.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tablero/internal/filter"
)

// maxBodyBytes bounds admin request bodies.
const maxBodyBytes = 64 << 10

// FilterParams holds the raw filter selections echoed back to the form.
type FilterParams struct {
	Area        string
	Facilitator string
	From        string
	To          string
}

// ParseFilterParams reads area, facilitator, from and to. Missing selectors
// default to their "all" sentinel.
func ParseFilterParams(query url.Values) FilterParams {
	p := FilterParams{
		Area:        sanitizeInput(query.Get("area")),
		Facilitator: sanitizeInput(query.Get("facilitator")),
		From:        sanitizeInput(query.Get("from")),
		To:          sanitizeInput(query.Get("to")),
	}
	if p.Area == "" {
		p.Area = filter.AllAreas
	}
	if p.Facilitator == "" {
		p.Facilitator = filter.AllFacilitators
	}
	return p
}

// Criteria converts the selections into filter criteria. An incomplete or
// invalid date pair yields no date constraint.
func (p FilterParams) Criteria() filter.Criteria {
	return filter.Criteria{
		Area:        p.Area,
		Facilitator: p.Facilitator,
		Range:       filter.ParseRange(p.From, p.To),
	}
}

// Query re-encodes the selections, omitting sentinels and blanks.
func (p FilterParams) Query() url.Values {
	q := url.Values{}
	if p.Area != "" && p.Area != filter.AllAreas {
		q.Set("area", p.Area)
	}
	if p.Facilitator != "" && p.Facilitator != filter.AllFacilitators {
		q.Set("facilitator", p.Facilitator)
	}
	if p.From != "" {
		q.Set("from", p.From)
	}
	if p.To != "" {
		q.Set("to", p.To)
	}
	return q
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads at most maxBodyBytes once and stores them for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
