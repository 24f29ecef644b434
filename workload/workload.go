// Package workload implements the workload store: named collections of
// jobs and profiles, a JSON loader, and the copy/jitter transformation
// pipeline applied once after loading.
package workload

import (
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/profile"
)

// Workload is a named collection of jobs and profiles, plus its
// per-workload knobs: MTBF/SMTBF, global checkpoint interval, performance
// factor, machine count, node speed. Static workloads originate from
// files; dynamic workloads are created by the scheduler at runtime.
type Workload struct {
	Name     string
	File     string
	IsStatic bool

	Jobs     map[string]*job.Job // keyed by jobid.ID.Name within this workload
	Profiles *profile.Store

	NbMachines int
	Speed      float64

	MTBF                      float64 // -1 disabled
	SMTBF                     float64 // -1 disabled
	RepairTime                float64
	FixedFailures              float64 // -1 disabled
	PerformanceFactor          float64
	GlobalCheckpointInterval   float64 // -1 means "no override"
	CheckpointingOn            bool
	ComputeCheckpointing       bool
	ComputeCheckpointingError  float64

	// Checkpoint-load-only counters (§4.2 load_from_json_chkpt).
	NbCheckpoint        int
	NbOriginalJobs      int
	NbActuallyCompleted int
}

// New builds an empty Workload with spec-mandated defaults (MTBF/SMTBF/
// fixed-failures disabled, performance factor 1, no checkpoint override).
func New(name string) *Workload {
	return &Workload{
		Name:                      name,
		Jobs:                      make(map[string]*job.Job),
		Profiles:                  profile.NewStore(),
		Speed:                     1.0,
		MTBF:                      -1,
		SMTBF:                     -1,
		FixedFailures:             -1,
		PerformanceFactor:         1.0,
		GlobalCheckpointInterval:  -1,
		ComputeCheckpointingError: 1.0,
	}
}

// AddJob registers a job, failing if one with the same name already exists
// in this workload.
func (w *Workload) AddJob(j *job.Job) error {
	if _, exists := w.Jobs[j.ID.Name]; exists {
		return &InvalidWorkloadError{Reason: "duplicate job id", Entity: j.ID.Name}
	}
	w.Jobs[j.ID.Name] = j
	w.Profiles.IncRef(j.Profile.Name)
	return nil
}

// Job looks up a job by its bare name within this workload.
func (w *Workload) Job(name string) (*job.Job, bool) {
	j, ok := w.Jobs[name]
	return j, ok
}

// JobIdentifier builds the fully-qualified jobid.ID for a job named name in this workload.
func (w *Workload) JobIdentifier(name string) jobid.ID {
	return jobid.New(w.Name, name)
}

// DeleteJob removes a job by name, decrementing its profile's reference
// count, and optionally garbage-collecting unreferenced profiles.
func (w *Workload) DeleteJob(name string, gcProfiles bool) {
	j, ok := w.Jobs[name]
	if !ok {
		return
	}
	w.Profiles.DecRef(j.Profile.Name)
	delete(w.Jobs, name)
	if gcProfiles {
		w.Profiles.GCUnreferenced()
	}
}

// NbJobs returns the number of jobs currently in the workload.
func (w *Workload) NbJobs() int { return len(w.Jobs) }
