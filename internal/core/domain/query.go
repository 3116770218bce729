package domain

// Query modes supported by the completion service. Deep mode answers are
// produced by a long-running background completion.
const (
	ModeConcise  = "concise"
	ModeBalanced = "balanced"
	ModeDeep     = "deep"
)

// ValidMode reports whether the mode is one the completion service accepts.
func ValidMode(mode string) bool {
	switch mode {
	case ModeConcise, ModeBalanced, ModeDeep:
		return true
	}
	return false
}

// SubmitQueryRequest is the payload for submitting a question.
type SubmitQueryRequest struct {
	// ThreadID continues an existing conversation; empty starts a new one
	ThreadID string `json:"thread_id,omitempty"`

	// Question is the natural-language question (required)
	Question string `json:"question"`

	// Mode selects the answer depth; defaults to balanced
	Mode string `json:"mode,omitempty"`

	// Domain optionally pins a domain hint from caller metadata
	Domain string `json:"domain,omitempty"`

	// RefreshCache bypasses the cache lookup and links the new answer
	// to any superseded entry
	RefreshCache bool `json:"refresh_cache,omitempty"`
}

// QueryResponse is returned to the caller for every submitted question.
type QueryResponse struct {
	ThreadID       string             `json:"thread_id"`
	JobID          string             `json:"job_id,omitempty"`
	Status         string             `json:"status"`
	Answer         string             `json:"answer"`
	IsAsync        bool               `json:"is_async"`
	ResolvedDomain string             `json:"resolved_domain"`
	DomainStrategy ResolutionStrategy `json:"domain_strategy"`
	IsCached       bool               `json:"is_cached"`
}

// JobStatusResponse reports the progress of a deep-mode job.
type JobStatusResponse struct {
	JobID          string    `json:"job_id"`
	Status         JobStatus `json:"status"`
	Completed      bool      `json:"completed"`
	Failed         bool      `json:"failed"`
	CurrentContent string    `json:"current_content,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// JobResultResponse is the final persisted answer of a completed job.
type JobResultResponse struct {
	JobID    string         `json:"job_id"`
	ThreadID string         `json:"thread_id"`
	Content  string         `json:"content"`
	Metadata AnswerMetadata `json:"metadata"`
}

// RecoveryResult reports the outcome of a stuck-job recovery pass.
type RecoveryResult struct {
	RecoveredCount  int      `json:"recovered_count"`
	RecoveredJobIDs []string `json:"recovered_job_ids"`
}
