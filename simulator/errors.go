package simulator

import "fmt"

// SimError reports a failure of the access-cost model: an unusable
// trace, profile, or parameter set.
type SimError struct {
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("simulation error: %s", e.Message)
}

// ErrInvalidConfig wraps a profile or parameter validation failure.
func ErrInvalidConfig(msg string) error {
	return SimError{Message: fmt.Sprintf("invalid config: %s", msg)}
}
