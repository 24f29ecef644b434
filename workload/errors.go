package workload

import "fmt"

// InvalidWorkloadError names the offending entity in a workload JSON
// document that failed validation: loaders return structured errors that
// name what was wrong, never a bare string.
type InvalidWorkloadError struct {
	Reason string
	Entity string
}

func (e *InvalidWorkloadError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("invalid workload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid workload: %s (%s)", e.Reason, e.Entity)
}
