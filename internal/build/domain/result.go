package domain

// Warning describes an enrichment that failed and was replaced by a default.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Result carries a value that may have been degraded. Warning is nil when
// the value came from its real source.
type Result[T any] struct {
	Value   T
	Warning *Warning
}

func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degraded returns fallback with a warning naming the failed source.
func Degraded[T any](fallback T, source string, err error) Result[T] {
	msg := source + " unavailable"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Value: fallback, Warning: &Warning{Source: source, Message: msg}}
}

// Collect appends the warning of r, if any.
func Collect[T any](warnings []Warning, r Result[T]) []Warning {
	if r.Warning == nil {
		return warnings
	}
	return append(warnings, *r.Warning)
}
