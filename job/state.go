// Package job implements the job lifecycle state machine and the per-job
// task tree: Job records, their task execution trees, and progress
// computation.
package job

import "fmt"

// State is a job's position in the lifecycle state machine. Terminal states
// are the eight COMPLETED_*/REJECTED_* variants.
type State int

const (
	// An unambiguous 0-value distinct from any real lifecycle state.
	Unknown State = iota
	NotSubmitted
	Submitted
	Running
	CompletedSuccessfully
	CompletedFailed
	CompletedWalltimeReached
	CompletedKilled
	RejectedNotEnoughResources
	RejectedNotEnoughAvailableResources
	RejectedNoWalltime
	RejectedNoReservationAllocation
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "UNKNOWN"
	case NotSubmitted:
		return "NOT_SUBMITTED"
	case Submitted:
		return "SUBMITTED"
	case Running:
		return "RUNNING"
	case CompletedSuccessfully:
		return "COMPLETED_SUCCESSFULLY"
	case CompletedFailed:
		return "COMPLETED_FAILED"
	case CompletedWalltimeReached:
		return "COMPLETED_WALLTIME_REACHED"
	case CompletedKilled:
		return "COMPLETED_KILLED"
	case RejectedNotEnoughResources:
		return "REJECTED_NOT_ENOUGH_RESOURCES"
	case RejectedNotEnoughAvailableResources:
		return "REJECTED_NOT_ENOUGH_AVAILABLE_RESOURCES"
	case RejectedNoWalltime:
		return "REJECTED_NO_WALLTIME"
	case RejectedNoReservationAllocation:
		return "REJECTED_NO_RESERVATION_ALLOCATION"
	default:
		panic(fmt.Sprintf("job: unexpected State %d", int(s)))
	}
}

// FromString parses a job_state_to_string-style name back into a State.
func FromString(s string) (State, error) {
	for st := NotSubmitted; st <= RejectedNoReservationAllocation; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return Unknown, fmt.Errorf("job: unknown state name %q", s)
}

// IsTerminal reports whether s is one of the eight COMPLETED_*/REJECTED_*
// variants that end a job's life.
func (s State) IsTerminal() bool {
	switch s {
	case CompletedSuccessfully, CompletedFailed, CompletedWalltimeReached, CompletedKilled,
		RejectedNotEnoughResources, RejectedNotEnoughAvailableResources,
		RejectedNoWalltime, RejectedNoReservationAllocation:
		return true
	default:
		return false
	}
}

// IsRejected reports whether s is one of the four REJECTED_* variants.
func (s State) IsRejected() bool {
	switch s {
	case RejectedNotEnoughResources, RejectedNotEnoughAvailableResources,
		RejectedNoWalltime, RejectedNoReservationAllocation:
		return true
	default:
		return false
	}
}
