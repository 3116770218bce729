package services

import (
	"log/slog"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Resolver classifies a question into a registered knowledge domain.
// Resolution always succeeds: when nothing matches, the default domain
// is returned with confidence 0.
type Resolver struct {
	registry driven.DomainRegistry
	logger   *slog.Logger
}

// NewResolver creates a new domain resolver.
func NewResolver(registry driven.DomainRegistry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: registry, logger: logger}
}

// Resolve routes a question to a domain. conversationDomain is the hint
// persisted on the owning thread; metadataDomain is a hint supplied by the
// caller. A valid hint wins unless some domain strictly out-scores it on
// keywords. The returned domain id is always currently registered.
func (r *Resolver) Resolve(question, conversationDomain, metadataDomain string) domain.DomainResolution {
	configs := r.registry.List()

	bestScore := 0
	var best *domain.DomainConfig
	var bestMatched []string
	hintScore := 0
	var hintMatched []string

	hint := conversationDomain
	if hint == "" {
		hint = metadataDomain
	}
	if hint != "" && !r.registry.Exists(hint) {
		hint = ""
	}

	for i := range configs {
		cfg := configs[i]
		score, matched := cfg.KeywordScore(question)
		if cfg.ID == hint {
			hintScore = score
			hintMatched = matched
		}
		if score > bestScore {
			bestScore = score
			best = &configs[i]
			bestMatched = matched
		}
	}

	var res domain.DomainResolution
	switch {
	case hint != "" && bestScore <= hintScore:
		// Keep the conversation going in its current domain unless the
		// question clearly belongs elsewhere.
		res = domain.DomainResolution{
			DomainID:        hint,
			Strategy:        domain.StrategyConversationContinuity,
			Confidence:      continuityConfidence(hintScore),
			MatchedKeywords: hintMatched,
		}
	case best != nil:
		res = domain.DomainResolution{
			DomainID:        best.ID,
			Strategy:        domain.StrategyKeywordMatch,
			Confidence:      keywordConfidence(bestScore),
			MatchedKeywords: bestMatched,
		}
	default:
		res = r.fallback()
	}

	// The registry can shrink between scoring and use; never hand an
	// unregistered domain id to callers.
	if !r.registry.Exists(res.DomainID) {
		r.logger.Warn("resolved domain no longer registered, forcing fallback",
			"domain", res.DomainID,
			"strategy", res.Strategy,
		)
		return r.fallback()
	}

	return res
}

func (r *Resolver) fallback() domain.DomainResolution {
	return domain.DomainResolution{
		DomainID:   r.registry.Default().ID,
		Strategy:   domain.StrategyFallback,
		Confidence: 0,
	}
}

// keywordConfidence maps an occurrence count into (0, 1]. One match is
// already a strong signal; additional occurrences saturate quickly.
func keywordConfidence(score int) float64 {
	if score <= 0 {
		return 0
	}
	c := float64(score) / float64(score+1)
	return c
}

// continuityConfidence reflects that a valid conversation hint is a strong
// prior even when the question repeats no keywords.
func continuityConfidence(hintScore int) float64 {
	c := 0.75 + 0.25*keywordConfidence(hintScore)
	if c > 1 {
		c = 1
	}
	return c
}
