package domain

import "fmt"

// Sentinel errors for the domain layer.
var (
	ErrProviderError    = fmt.Errorf("provider error")
	ErrToolNotFound     = fmt.Errorf("tool not found")
	ErrToolFailure      = fmt.Errorf("tool execution failed")
	ErrMaxToolCalls     = fmt.Errorf("tool call budget exhausted")
	ErrEmbeddingFailed  = fmt.Errorf("embedding generation failed")
	ErrVectorStore      = fmt.Errorf("knowledge store operation failed")
	ErrVectorSearch     = fmt.Errorf("knowledge search failed")
	ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch")
	ErrPageFetch        = fmt.Errorf("page fetch failed")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid      = fmt.Errorf("authentication failed")
	ErrContextOverflow  = fmt.Errorf("context window exceeded")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Ingestor.Rebuild")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
