package parser

// Package parser turns raw log lines into structured field records.
//
// Responsibilities:
//   - Detect which of a small, ordered set of line formats a line uses
//   - Extract and normalize timestamp (UTC), service name, level, message
//   - Validate the level token against the closed level set
//   - Run a second pass over the message for auxiliary metadata
//     (request id, duration in ms, error code)
//   - Soft-fail: a line matching no format yields nil, never an error
//
// The parser is stateless and safe for concurrent use.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opslens/opslens-rag/internal/models"
)

// Parsed is the structured output for one successfully parsed line.
type Parsed struct {
	Timestamp   time.Time // UTC
	ServiceName string
	LevelToken  string // raw token from the line; Level is the validated form
	Level       models.LogLevel
	Message     string
	ThreadID    string
	Component   string

	// Second-pass metadata, attached only when found in the message.
	RequestID  string
	ErrorCode  string
	DurationMS *float64

	Format string // name of the format that matched
}

// Parser applies the ordered format list to individual lines.
type Parser struct {
	formats []format
}

// New returns a Parser with the default format set.
func New() *Parser {
	return &Parser{formats: defaultFormats}
}

// Parse parses one line. It tolerates surrounding whitespace and returns nil
// for lines matching no known format, or whose level token falls outside the
// closed level set. It never returns an error; ingestion must keep flowing.
func (p *Parser) Parse(line string) *Parsed {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	for _, f := range p.formats {
		groups := f.pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		parsed, ok := f.extract(groups)
		if !ok {
			// Structural match with a bad timestamp: let a later,
			// looser format have a try.
			continue
		}
		level, ok := models.ParseLevel(parsed.LevelToken)
		if !ok || parsed.Message == "" {
			// The regex matched but the line is not a valid record.
			return nil
		}
		parsed.Level = level
		parsed.Format = f.name
		extractMetadata(parsed)
		return parsed
	}
	return nil
}

// Second-pass patterns over the extracted message, independent of which
// top-level format matched. Absence of any of these is not an error.
var (
	requestIDMarker = regexp.MustCompile(`(?i)\brequest[ _-]?id[:=\s]+([A-Za-z0-9][A-Za-z0-9_-]*)`)
	requestIDToken  = regexp.MustCompile(`\b(req-[A-Za-z0-9]+)\b`)
	durationPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*ms\b`)
	errorCodeMarker = regexp.MustCompile(`(?i)\berror[ _-]?code[:=\s]+([A-Za-z0-9_-]+)`)
	errorCodeToken  = regexp.MustCompile(`\b([A-Z]{2,5}-?\d{3,5})\b`)
)

func extractMetadata(p *Parsed) {
	msg := p.Message

	if m := requestIDMarker.FindStringSubmatch(msg); m != nil {
		p.RequestID = m[1]
	} else if m := requestIDToken.FindStringSubmatch(msg); m != nil {
		p.RequestID = m[1]
	}

	if m := durationPattern.FindStringSubmatch(msg); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.DurationMS = &v
		}
	}

	if m := errorCodeMarker.FindStringSubmatch(msg); m != nil {
		p.ErrorCode = m[1]
	} else if m := errorCodeToken.FindStringSubmatch(msg); m != nil {
		p.ErrorCode = m[1]
	}
}
