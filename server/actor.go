package server

import (
	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/profile"
)

// Completion is what a job actor posts back to the server when its job
// reaches a terminal state, whether by clean completion, wall-time
// expiration, or a kill.
type Completion struct {
	JobID      string
	State      job.State
	Reason     string // kill/forWhat tag, empty on clean completion
	Progress   float64
	ReturnCode int
}

// Actor is the server's view of a live job execution. Kill requests
// preemption; the actor captures progress and posts a Completion on the
// shared channel it was given at spawn time before tearing down.
type Actor interface {
	Kill(forWhat string)
}

// JobActorFactory spawns job actors. The server depends only on this
// interface, not on the jobactor package's concrete type, the way job
// depends only on ParallelExecutor rather than simbackend.
type JobActorFactory interface {
	Spawn(spec ActorSpec) (Actor, error)
}

// ActorSpec bundles everything a job actor needs to start executing a job,
// built by the server's EXECUTE_JOB handler.
type ActorSpec struct {
	Job            *job.Job
	Alloc          *interval.Set
	Mapping        []int // logical index -> host id, len == Alloc.Size()
	StorageMapping map[string]int
	AdditionalIO   *profile.Profile // non-nil if the scheduler named an additional_io_job to merge in
	Completions    chan<- Completion

	// Checkpoint-interval inputs, carried from the job's owning Workload
	// (used by Young's-formula checkpoint-interval computation).
	NbMachines                int
	MTBF                      float64 // -1 disabled
	SMTBF                     float64 // -1 disabled
	ComputeCheckpointing      bool
	ComputeCheckpointingError float64
	GlobalCheckpointInterval  float64 // -1 means "no override"
}
