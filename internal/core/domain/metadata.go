package domain

// AnswerMetadataVersion is the current metadata schema version.
// Rows written before versioning carry no version field and are
// normalised to version 1 at the read boundary.
const AnswerMetadataVersion = 2

// CompletionStatus labels where an answer came from.
type CompletionStatus string

const (
	CompletionStatusSync       CompletionStatus = "sync"
	CompletionStatusCached     CompletionStatus = "cached"
	CompletionStatusBackground CompletionStatus = "background"
	CompletionStatusTimedOut   CompletionStatus = "timed_out"
	CompletionStatusError      CompletionStatus = "error"
)

// AnswerMetadata is the structured, versioned metadata attached to jobs,
// cache entries, and assistant messages. It replaces the untyped blobs of
// earlier deployments; ParseAnswerMetadata tolerates those legacy shapes.
type AnswerMetadata struct {
	Version            int                `json:"version"`
	Domain             string             `json:"domain,omitempty"`
	Strategy           ResolutionStrategy `json:"strategy,omitempty"`
	Confidence         float64            `json:"confidence,omitempty"`
	MatchedKeywords    []string           `json:"matched_keywords,omitempty"`
	Mode               string             `json:"mode,omitempty"`
	CompletionStatus   CompletionStatus   `json:"completion_status,omitempty"`
	ExternalResponseID string             `json:"external_response_id,omitempty"`
	RefreshCache       bool               `json:"refresh_cache,omitempty"`
	CacheSimilarity    float64            `json:"cache_similarity,omitempty"`

	// OriginalCacheID carries the id of the cache entry a refresh
	// supersedes from submission to the completed job's cache save.
	OriginalCacheID string `json:"original_cache_id,omitempty"`
}

// NewAnswerMetadata builds metadata for a resolved query.
func NewAnswerMetadata(res DomainResolution, mode string) AnswerMetadata {
	return AnswerMetadata{
		Version:         AnswerMetadataVersion,
		Domain:          res.DomainID,
		Strategy:        res.Strategy,
		Confidence:      res.Confidence,
		MatchedKeywords: res.MatchedKeywords,
		Mode:            mode,
	}
}

// Resolution reconstructs the domain resolution embedded in the metadata.
func (m AnswerMetadata) Resolution() DomainResolution {
	return DomainResolution{
		DomainID:        m.Domain,
		Strategy:        m.Strategy,
		Confidence:      m.Confidence,
		MatchedKeywords: m.MatchedKeywords,
	}
}

// ParseAnswerMetadata validates a decoded metadata value at the read
// boundary. Legacy rows without a version are treated as version 1;
// unknown future versions are passed through unchanged.
func ParseAnswerMetadata(m AnswerMetadata) AnswerMetadata {
	if m.Version == 0 {
		m.Version = 1
	}
	if m.Strategy != "" {
		switch m.Strategy {
		case StrategyKeywordMatch, StrategyConversationContinuity, StrategyFallback:
		default:
			// Legacy free-form strategies collapse to keyword-match.
			m.Strategy = StrategyKeywordMatch
		}
	}
	if m.Confidence < 0 {
		m.Confidence = 0
	}
	if m.Confidence > 1 {
		m.Confidence = 1
	}
	return m
}
