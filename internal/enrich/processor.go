package enrich

// Package enrich derives a summary, a category, and a severity score from a
// parsed log record.
//
// Responsibilities:
//   - Summary: deterministic, bounded derivative of the message keeping the
//     most information-dense clause (never a blind prefix cut)
//   - Category: ordered keyword-rule table, first match wins
//   - Severity: level baseline plus additive keyword modifiers, clamped to
//     [0,1], monotone in level for a fixed message
//   - A single Enrich entry point so callers stay ignorant of the internals
//   - A named degraded path when a derived value violates its invariant
//
// All three derivations are pure functions of (level, message); the
// processor is stateless and safe for concurrent use.

import (
	"strings"
	"unicode/utf8"

	"github.com/opslens/opslens-rag/internal/models"
)

// Enrichment bundles the three derived values for one parsed record.
type Enrichment struct {
	Summary  string
	Category models.Category
	Severity float64

	// Degraded is true when the level-only fallback produced the values.
	// Callers persist it so fallbacks stay auditable.
	Degraded bool
}

// Processor computes enrichments from configurable rule tables.
type Processor struct {
	rules     []CategoryRule
	modifiers []SeverityModifier
	baselines map[models.LogLevel]float64
}

// New returns a Processor with the default tables.
func New() *Processor {
	return NewWithTables(DefaultCategoryRules, DefaultSeverityModifiers, DefaultLevelBaselines)
}

// NewWithTables returns a Processor using caller-supplied tables. Nil or
// empty arguments fall back to the defaults.
func NewWithTables(rules []CategoryRule, modifiers []SeverityModifier, baselines map[models.LogLevel]float64) *Processor {
	if len(rules) == 0 {
		rules = DefaultCategoryRules
	}
	if len(modifiers) == 0 {
		modifiers = DefaultSeverityModifiers
	}
	if len(baselines) == 0 {
		baselines = DefaultLevelBaselines
	}
	return &Processor{rules: rules, modifiers: modifiers, baselines: baselines}
}

// Enrich derives all three values for the given level and message. When a
// derived value violates its invariant, Enrich switches to the degraded
// level-only path instead of returning bad data.
func (p *Processor) Enrich(level models.LogLevel, message string) Enrichment {
	e := Enrichment{
		Summary:  p.Summarize(message),
		Category: p.Classify(message),
		Severity: p.Severity(level, message),
	}
	if message != "" && e.Summary == "" ||
		len(e.Summary) > models.SummaryMaxLen ||
		!models.ValidCategory(e.Category) ||
		e.Severity < 0 || e.Severity > 1 {
		return p.Degrade(level, message)
	}
	return e
}

// Degrade is the explicit fallback path: category unknown, severity from the
// level baseline alone, summary a plain bounded cut of the message.
func (p *Processor) Degrade(level models.LogLevel, message string) Enrichment {
	return Enrichment{
		Summary:  truncate(message, models.SummaryMaxLen),
		Category: models.CategoryUnknown,
		Severity: clamp01(p.baselines[level]),
		Degraded: true,
	}
}

// Classify runs the ordered rule table over the message. Identical input
// always yields the identical category.
func (p *Processor) Classify(message string) models.Category {
	lower := strings.ToLower(message)
	for _, rule := range p.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return models.CategoryUnknown
}

// Severity scores (level, message) into [0,1]: level baseline plus the sum
// of the deltas of every modifier keyword found in the message, clamped.
func (p *Processor) Severity(level models.LogLevel, message string) float64 {
	score := p.baselines[level]
	lower := strings.ToLower(message)
	for _, m := range p.modifiers {
		if strings.Contains(lower, m.Keyword) {
			score += m.Delta
		}
	}
	return clamp01(score)
}

// Summarize produces a bounded summary of the message. Messages inside the
// bound pass through unchanged. Longer messages keep the clause with the
// highest density of failure-context keywords; ties go to the earliest
// clause, keeping the result deterministic.
func (p *Processor) Summarize(message string) string {
	message = strings.TrimSpace(message)
	if len(message) <= models.SummaryMaxLen {
		return message
	}

	best := ""
	bestScore := -1
	for _, clause := range splitClauses(message) {
		score := clauseDensity(clause)
		if score > bestScore {
			best, bestScore = clause, score
		}
	}
	if best == "" {
		best = message
	}
	return truncate(best, models.SummaryMaxLen)
}

// splitClauses breaks a message on common clause separators.
func splitClauses(message string) []string {
	parts := strings.FieldsFunc(message, func(r rune) bool {
		return r == ';' || r == '|' || r == '\n'
	})
	var clauses []string
	for _, part := range parts {
		for _, sub := range strings.Split(part, ". ") {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				clauses = append(clauses, sub)
			}
		}
	}
	return clauses
}

// clauseDensity counts summary keyword hits in a clause.
func clauseDensity(clause string) int {
	lower := strings.ToLower(clause)
	n := 0
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// truncate cuts s to at most max bytes, preferring a word boundary. The
// cut never lands inside a multi-byte rune.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	end := max
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
