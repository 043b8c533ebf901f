package enrich

import "github.com/opslens/opslens-rag/internal/models"

// The classification and severity tables are data, not code: they are
// hand-tuned, inspectable, and overridable from configuration. Only the
// ordering properties are load-bearing (first rule match wins; level
// baselines increase with level), not the individual constants.

// CategoryRule maps a keyword set onto a category. Keywords are
// case-insensitive substring checks; any keyword hit fires the rule.
type CategoryRule struct {
	Category models.Category
	Keywords []string
}

// DefaultCategoryRules is evaluated top to bottom; the first rule with a
// keyword hit wins. No hit classifies as unknown.
var DefaultCategoryRules = []CategoryRule{
	{
		Category: models.CategoryMemory,
		Keywords: []string{
			"outofmemory", "out of memory", "oom", "heap space",
			"memory leak", "cannot allocate", "gc overhead",
		},
	},
	{
		Category: models.CategoryNetwork,
		Keywords: []string{
			"timeout", "timed out", "connection refused", "connection reset",
			"unreachable", "dns", "socket", "connection closed", "handshake",
		},
	},
	{
		Category: models.CategoryPerformance,
		Keywords: []string{
			"slow", "latency", "high cpu", "cpu usage", "throughput",
			"backlog", "saturated", "thread pool exhausted",
		},
	},
	{
		Category: models.CategoryApplication,
		Keywords: []string{
			"started", "stopped", "starting", "shutting down", "deployed",
			"initialized", "processing", "completed", "received", "scheduled",
		},
	},
}

// SeverityModifier adds Delta to the level baseline when Keyword appears in
// the message (case-insensitive substring). The result is clamped to [0,1].
type SeverityModifier struct {
	Keyword string
	Delta   float64
}

// DefaultSeverityModifiers bump or damp severity on message content.
// Deltas are level-independent, which keeps severity monotone in level.
var DefaultSeverityModifiers = []SeverityModifier{
	{Keyword: "completely down", Delta: 0.15},
	{Keyword: "outage", Delta: 0.15},
	{Keyword: "data loss", Delta: 0.15},
	{Keyword: "corrupt", Delta: 0.12},
	{Keyword: "unavailable", Delta: 0.1},
	{Keyword: "crash", Delta: 0.1},
	{Keyword: "fatal", Delta: 0.1},
	{Keyword: "panic", Delta: 0.1},
	{Keyword: "failed", Delta: 0.05},
	{Keyword: "exception", Delta: 0.05},
	{Keyword: "degraded", Delta: 0.05},
	{Keyword: "recovered", Delta: -0.1},
}

// DefaultLevelBaselines are the per-level severity starting points.
// They must be strictly increasing in level rank.
var DefaultLevelBaselines = map[models.LogLevel]float64{
	models.LevelInfo:     0.1,
	models.LevelWarn:     0.4,
	models.LevelError:    0.65,
	models.LevelCritical: 0.85,
}

// summaryKeywords mark the information-dense clause of a message when the
// summary has to drop text. Failure context outweighs operational chatter.
var summaryKeywords = []string{
	"error", "fail", "exception", "timeout", "refused", "memory", "oom",
	"crash", "fatal", "panic", "unavailable", "down", "denied", "retry",
	"corrupt", "leak", "slow",
}
