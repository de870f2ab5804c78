package domain

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeTimestamp rewrites a PZ header time into ISO form: every "." becomes
// ":" and whitespace-separated parts are joined with "T", so
// "2016-09-26 05.20.18" becomes "2016-09-26T05:20:18".
func NormalizeTimestamp(s string) string {
	s = strings.ReplaceAll(s, ".", ":")
	return strings.Join(strings.Fields(s), "T")
}

// ParseTimestamp normalizes s and parses it as UTC. It returns nil when the
// value is blank or matches none of the accepted layouts.
func ParseTimestamp(s string) *time.Time {
	norm := NormalizeTimestamp(s)
	if norm == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
