package driven

import "context"

// FormatterService is the secondary model that cleans up raw answers.
// Failures are non-fatal: callers fall back to the raw text.
type FormatterService interface {
	// Format produces a cleaned, well-structured answer from the raw text,
	// using the original question and resolved domain as context
	Format(ctx context.Context, rawText, question, domainContext string) (string, error)

	// Close releases resources held by the formatter
	Close() error
}
