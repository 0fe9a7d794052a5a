package models

// ResultSource tells whether data came from the backend or from demo fallback
type ResultSource string

const (
	SourceBackend  ResultSource = "backend"
	SourceFallback ResultSource = "fallback"
)

// Result carries data together with where it came from.
// Hard failures are reported as errors next to a zero Result.
type Result[T any] struct {
	Data   T            `json:"data"`
	Source ResultSource `json:"source"`
	Reason string       `json:"reason,omitempty"`
}

// Ok wraps backend data
func Ok[T any](data T) Result[T] {
	return Result[T]{Data: data, Source: SourceBackend}
}

// Degraded wraps synthesized data and the reason the backend was not used
func Degraded[T any](data T, reason string) Result[T] {
	return Result[T]{Data: data, Source: SourceFallback, Reason: reason}
}

// IsDegraded reports whether the data was synthesized
func (r Result[T]) IsDegraded() bool {
	return r.Source == SourceFallback
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
