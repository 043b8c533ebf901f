package parser

import (
	"regexp"
	"strings"
	"time"
)

// format is one recognized line shape. Formats are tried in the order they
// appear in defaultFormats; the first structural match wins, so precedence
// is auditable rule by rule.
type format struct {
	name    string
	pattern *regexp.Regexp

	// extract maps the regexp submatches onto a Parsed record. It returns
	// false when the structural match is not a semantic one (bad timestamp,
	// level token outside the closed set).
	extract func(groups []string) (*Parsed, bool)
}

var defaultFormats = []format{
	{
		// 2025-08-20T14:30:22.123Z [INFO ] service-b thread-pool-1: message
		name:    "bracketed-level",
		pattern: regexp.MustCompile(`^(\S+)\s+\[\s*([A-Za-z]+)\s*\]\s+(\S+)\s+(\S+):\s+(.*)$`),
		extract: func(g []string) (*Parsed, bool) {
			ts, ok := parseTimestamp(g[1])
			if !ok {
				return nil, false
			}
			return &Parsed{
				Timestamp:   ts,
				LevelToken:  g[2],
				ServiceName: g[3],
				ThreadID:    g[4],
				Message:     g[5],
			}, true
		},
	},
	{
		// 2025-08-20 14:30:22,123 payment-service ERROR db-pool: message
		name:    "comma-millisecond",
		pattern: regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2}),(\d{3})\s+(\S+)\s+([A-Za-z]+)\s+(\S+):\s+(.*)$`),
		extract: func(g []string) (*Parsed, bool) {
			ts, ok := parseTimestamp(g[1] + "T" + g[2] + "." + g[3] + "Z")
			if !ok {
				return nil, false
			}
			return &Parsed{
				Timestamp:   ts,
				ServiceName: g[4],
				LevelToken:  g[5],
				Component:   g[6],
				Message:     g[7],
			}, true
		},
	},
	{
		// 2025-08-20T14:30:22Z auth-service ERROR: message
		name:    "colon-level",
		pattern: regexp.MustCompile(`^(\S+)\s+(\S+)\s+([A-Za-z]+):\s+(.*)$`),
		extract: func(g []string) (*Parsed, bool) {
			ts, ok := parseTimestamp(g[1])
			if !ok {
				return nil, false
			}
			return &Parsed{
				Timestamp:   ts,
				ServiceName: g[2],
				LevelToken:  g[3],
				Message:     g[4],
			}, true
		},
	},
}

// timestampLayouts are the accepted timestamp shapes, tried in order.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{time.RFC3339, true},
	{"2006-01-02T15:04:05.000", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05.000", false},
	{"2006-01-02 15:04:05", false},
	{"2006/01/02 15:04:05", false},
}

// parseTimestamp parses a raw timestamp token and normalizes it to UTC.
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, l := range timestampLayouts {
		var t time.Time
		var err error
		if l.zoned {
			t, err = time.Parse(l.layout, raw)
		} else {
			t, err = time.ParseInLocation(l.layout, raw, time.UTC)
		}
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
