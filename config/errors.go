package config

import "fmt"

// LoadError reports a present-but-malformed environment variable.
type LoadError struct {
	Variable string
	Cause    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: invalid %s: %v", e.Variable, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }
