package loader

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Text layouts accepted for the date column, tried in order.
// Slash and dash forms are day first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2/1/2006 15:04:05",
}

// excelEpoch is day zero of the 1900 date system as Excel counts it,
// i.e. with the phantom 1900-02-29 already absorbed.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial numbers outside this window are not treated as dates.
const (
	minSerial = 1
	maxSerial = 2958465 // 9999-12-31
)

// ParseDate interprets a date cell. ok is false when the value is blank or
// matches no known representation; callers keep the row with an unknown date.
// Zoned timestamps keep the calendar day of their own offset.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f)
	}
	return time.Time{}, false
}

func fromSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f < minSerial || f > maxSerial {
		return time.Time{}, false
	}
	days := int(math.Floor(f))
	return excelEpoch.AddDate(0, 0, days), true
}
