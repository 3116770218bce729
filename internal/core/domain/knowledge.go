package domain

import (
	"sort"
	"strings"
	"time"
)

// DefaultDomainID is the domain every unclassifiable question falls back to.
const DefaultDomainID = "default"

// DomainConfig describes one knowledge domain a question can be routed to.
// Configs are loaded from the external registry and are read-only to the
// rest of the system.
type DomainConfig struct {
	// ID is the unique domain identifier (e.g. "wealth")
	ID string `json:"domain_id"`

	// Name is a human-readable label
	Name string `json:"name"`

	// Keywords used for question routing, matched case-insensitively
	Keywords []string `json:"keywords"`

	// VectorStoreID references the domain's default knowledge store
	VectorStoreID string `json:"vector_store_id,omitempty"`

	// Description of the domain's subject area
	Description string `json:"description,omitempty"`

	// LastSyncedAt is when this config was last refreshed from the registry
	LastSyncedAt time.Time `json:"last_synced_at,omitempty"`
}

// ResolutionStrategy identifies how a question was routed to a domain.
type ResolutionStrategy string

const (
	// StrategyKeywordMatch means the domain won on keyword score
	StrategyKeywordMatch ResolutionStrategy = "keyword-match"

	// StrategyConversationContinuity means a valid prior-conversation hint was kept
	StrategyConversationContinuity ResolutionStrategy = "conversation-continuity"

	// StrategyFallback means nothing matched and the default domain was used
	StrategyFallback ResolutionStrategy = "fallback"
)

// DomainResolution is the outcome of routing one question.
// It is created per query and embedded into job/cache metadata,
// never persisted on its own.
type DomainResolution struct {
	DomainID        string             `json:"domain_id"`
	Strategy        ResolutionStrategy `json:"strategy"`
	Confidence      float64            `json:"confidence"`
	MatchedKeywords []string           `json:"matched_keywords,omitempty"`
}

// KeywordScore counts case-insensitive occurrences of the config's keywords
// in the question and returns the total plus the keywords that matched.
func (c DomainConfig) KeywordScore(question string) (int, []string) {
	lowered := strings.ToLower(question)
	score := 0
	var matched []string
	for _, kw := range c.Keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if n := strings.Count(lowered, k); n > 0 {
			score += n
			matched = append(matched, kw)
		}
	}
	sort.Strings(matched)
	return score, matched
}
