package job

import (
	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/profile"
)

// Purpose distinguishes a plain job from a reservation that anchors the
// schedule at a pre-declared time and allocation.
type Purpose string

const (
	PurposeJob         Purpose = "job"
	PurposeReservation Purpose = "reservation"
)

// Job is a single job record: static attributes fixed at load time,
// checkpoint attributes, and mutable runtime state. A Job owns exactly one
// TaskNode tree; it references (does not own) its Profile and Workload.
type Job struct {
	ID      jobid.ID
	Profile *profile.Profile // reference only; owned by the workload's profile.Store
	Task    *TaskNode        // owned by value

	// Static attributes, set at load time.
	SubmissionTime  float64
	Walltime        float64 // -1 means unbounded
	RequestedNbRes  int
	Cores           int
	Purpose         Purpose
	HasStart        bool
	Start           float64      // reservation anchor
	FutureAlloc     *interval.Set // reservation's declared future allocation
	SMPIRankToHost  []int
	JSONDescription []byte // verbatim JSON, for round-trip laws R1

	// Checkpoint attributes. -1 means unset.
	CheckpointInterval float64
	DumpTime           float64
	ReadTime           float64
	OriginalWalltime   float64
	OriginalSubmit     float64 // -1 unless restored from a checkpoint
	OriginalStart      float64 // -1 unless restored from a checkpoint

	// Mutable runtime state.
	State           State
	StartingTime    float64
	Runtime         float64
	ConsumedEnergy  float64
	KillRequested   bool
	Allocation      *interval.Set
	Metadata        string
	BatsimMetadata  string
	SubmissionTimes []float64
	Jitter          string
	FromWorkload    bool
	ReturnCode      int
	Progress        float64 // last progress snapshot captured at kill/completion, in [0,1]
}

// New constructs an unstarted Job for the given identifier and profile,
// building its task tree from the profile shape.
func New(id jobid.ID, p *profile.Profile) (*Job, error) {
	tree, err := NewTaskTree(p)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:                 id,
		Profile:            p,
		Task:               tree,
		Walltime:           -1,
		OriginalWalltime:   -1,
		OriginalSubmit:     -1,
		OriginalStart:      -1,
		CheckpointInterval: -1,
		DumpTime:           -1,
		ReadTime:           -1,
		Purpose:            PurposeJob,
		State:              NotSubmitted,
		ReturnCode:         -1,
		Allocation:         interval.Empty(),
	}, nil
}

// IsComplete reports whether the job has started then finished, regardless
// of success (mirrors Job::is_complete in the original source).
func (j *Job) IsComplete() bool {
	return j.State.IsTerminal() && j.State != RejectedNotEnoughResources &&
		j.State != RejectedNotEnoughAvailableResources &&
		j.State != RejectedNoWalltime && j.State != RejectedNoReservationAllocation
}

// HasWalltime reports whether the job has a bounded walltime
// (walltime == -1 means no wall-time kill).
func (j *Job) HasWalltime() bool {
	return j.Walltime >= 0
}

// RecordSubmission appends now to the job's submission-time history and
// sets its state back to Submitted; no other runtime field is reset.
func (j *Job) RecordSubmission(now float64) {
	j.SubmissionTimes = append(j.SubmissionTimes, now)
	j.State = Submitted
}
