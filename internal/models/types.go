package models

// Package models defines the core record types shared by the ingestion
// pipeline and the retrieval service.
//
// Two records are persisted per processed log line: a LogEntry holding the
// raw structured fields, and an EmbeddingRecord holding the enriched content
// that is vector- and keyword-indexed. SearchResultItem exists only at query
// time and is never persisted.

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel is the closed set of accepted log levels.
type LogLevel string

const (
	LevelInfo     LogLevel = "INFO"
	LevelWarn     LogLevel = "WARN"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

// ParseLevel normalizes a raw level token to a LogLevel.
// "WARNING" is folded into WARN. Returns false for tokens outside the set.
func ParseLevel(token string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "CRITICAL":
		return LevelCritical, true
	}
	return "", false
}

// Rank orders levels by nominal seriousness; used for severity baselines
// and monotonicity checks.
func (l LogLevel) Rank() int {
	switch l {
	case LevelInfo:
		return 0
	case LevelWarn:
		return 1
	case LevelError:
		return 2
	case LevelCritical:
		return 3
	}
	return -1
}

// Category is the closed set of issue classifications.
type Category string

const (
	CategoryMemory      Category = "memory_issue"
	CategoryNetwork     Category = "network_issue"
	CategoryPerformance Category = "performance_issue"
	CategoryApplication Category = "application_event"
	CategoryUnknown     Category = "unknown"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryMemory, CategoryNetwork, CategoryPerformance, CategoryApplication, CategoryUnknown:
		return true
	}
	return false
}

// SummaryMaxLen bounds the derived summary on an EmbeddingRecord.
const SummaryMaxLen = 200

// LogEntry is one raw log line after parsing. Entries are created once at
// parse time and never mutated; re-running ingestion produces new entries.
type LogEntry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"` // always UTC
	ServiceName string            `json:"service_name"`
	HostIP      string            `json:"host_ip"`
	HostName    string            `json:"host_name"`
	Level       LogLevel          `json:"log_level"`
	Message     string            `json:"message"`
	Component   string            `json:"component,omitempty"`
	ThreadID    string            `json:"thread_id,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	ErrorCode   string            `json:"error_code,omitempty"`
	DurationMS  *float64          `json:"duration_ms,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate enforces the LogEntry invariants.
func (e *LogEntry) Validate() error {
	if e.Message == "" {
		return fmt.Errorf("log entry %s: empty message", e.ID)
	}
	if _, ok := ParseLevel(string(e.Level)); !ok {
		return fmt.Errorf("log entry %s: unknown level %q", e.ID, e.Level)
	}
	if e.Timestamp.Location() != time.UTC {
		return fmt.Errorf("log entry %s: timestamp not UTC", e.ID)
	}
	return nil
}

// EmbeddingRecord is the enriched twin of a LogEntry, produced once at
// enrichment time. Content carries the original message and is the text that
// gets vectorized and keyword-indexed. LogEntryID is an association only;
// the record does not own the entry.
type EmbeddingRecord struct {
	ID            string    `json:"id"`
	LogEntryID    string    `json:"log_entry_id"`
	Timestamp     time.Time `json:"timestamp"`
	ServiceName   string    `json:"service_name"`
	HostIP        string    `json:"host_ip"`
	Level         LogLevel  `json:"log_level"`
	Content       string    `json:"content"`
	Summary       string    `json:"summary"`
	Category      Category  `json:"category"`
	SeverityScore float64   `json:"severity_score"`

	// Degraded marks records whose enrichment fell back to the level-only
	// severity path, so audits can tell fallbacks from computed values.
	Degraded bool `json:"degraded,omitempty"`
}

// Validate enforces the EmbeddingRecord invariants.
func (r *EmbeddingRecord) Validate() error {
	if r.SeverityScore < 0 || r.SeverityScore > 1 {
		return fmt.Errorf("embedding record %s: severity %f out of [0,1]", r.ID, r.SeverityScore)
	}
	if !ValidCategory(r.Category) {
		return fmt.Errorf("embedding record %s: unknown category %q", r.ID, r.Category)
	}
	if len(r.Summary) > SummaryMaxLen {
		return fmt.Errorf("embedding record %s: summary exceeds %d chars", r.ID, SummaryMaxLen)
	}
	return nil
}

// SearchResultItem is a query-time result with provenance. It records which
// sub-search(es) produced the item, the raw score from each, and the
// computed final score. Never persisted.
type SearchResultItem struct {
	Record EmbeddingRecord `json:"record"`

	FromVector  bool `json:"from_vector"`
	FromKeyword bool `json:"from_keyword"`

	VectorScore  float64 `json:"vector_score,omitempty"`
	KeywordScore float64 `json:"keyword_score,omitempty"`
	FinalScore   float64 `json:"final_score"`
}
