package workload

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/profile"
)

type jobDoc struct {
	ID                 json.RawMessage `json:"id"`
	Subtime            float64         `json:"subtime"`
	Res                int             `json:"res"`
	Profile            string          `json:"profile"`
	Walltime           *float64        `json:"walltime"`
	Cores              int             `json:"cores"`
	Purpose            string          `json:"purpose"`
	Start              *float64        `json:"start"`
	FutureAllocation   string          `json:"future_allocation"`
	SMPIRanksToHosts   []int           `json:"smpi_ranks_to_hosts_mapping"`
	CheckpointInterval *float64        `json:"checkpoint_interval"`
	DumpTime           *float64        `json:"dumptime"`
	ReadTime           *float64        `json:"readtime"`

	// Present only in checkpointed workload documents (§4.2 load_from_json_chkpt).
	Allocation      string    `json:"allocation"`
	ProgressRatio   *float64  `json:"progress"`
	State           string    `json:"state"`
	Metadata        string    `json:"metadata"`
	BatsimMetadata  string    `json:"batsim_metadata"`
	Jitter          string    `json:"jitter"`
	OriginalStart   *float64  `json:"original_start"`
	OriginalSubmit  *float64  `json:"original_submit"`
	Runtime         *float64  `json:"runtime"`
	SubmissionTimes []float64 `json:"submission_times"`
}

type workloadDoc struct {
	NbRes               *int                       `json:"nb_res"`
	Jobs                []json.RawMessage          `json:"jobs"`
	Profiles            map[string]json.RawMessage `json:"profiles"`
	NbCheckpoint        *int                       `json:"nb_checkpoint"`
	NbOriginalJobs      *int                       `json:"nb_original_jobs"`
	NbActuallyCompleted *int                       `json:"nb_actually_completed"`
}

// Load parses a static workload JSON document at path. It fails with
// *InvalidWorkloadError for: missing nb_res, non-positive nb_res, duplicate
// job id, unknown profile reference, or a sequence profile referencing a
// non-existent sub-profile (the last two are caught by CheckValidity,
// called at the end of Load).
func Load(name, path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "workload %q: read %q", name, path)
	}
	w, err := loadBytes(name, data, false)
	if err != nil {
		return nil, err
	}
	w.File = path
	w.IsStatic = true
	return w, nil
}

// LoadChkpt parses a checkpointed workload JSON document (§4.2
// load_from_json_chkpt): identical to Load but additionally requires
// nb_checkpoint, nb_original_jobs, nb_actually_completed, and every job
// must carry its full runtime attributes. The workload-transformation
// pipeline is skipped for checkpoint-loaded workloads.
func LoadChkpt(name, path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "workload %q: read %q", name, path)
	}
	w, err := loadBytes(name, data, true)
	if err != nil {
		return nil, err
	}
	w.File = path
	w.IsStatic = true
	return w, nil
}

func loadBytes(name string, data []byte, chkpt bool) (*Workload, error) {
	var doc workloadDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "workload %q: invalid JSON", name)
	}
	if doc.NbRes == nil {
		return nil, &InvalidWorkloadError{Reason: "missing nb_res", Entity: name}
	}
	if *doc.NbRes <= 0 {
		return nil, &InvalidWorkloadError{Reason: "nb_res must be positive", Entity: name}
	}
	if chkpt {
		if doc.NbCheckpoint == nil || doc.NbOriginalJobs == nil || doc.NbActuallyCompleted == nil {
			return nil, &InvalidWorkloadError{Reason: "checkpointed workload missing nb_checkpoint/nb_original_jobs/nb_actually_completed", Entity: name}
		}
	}

	w := New(name)
	w.NbMachines = *doc.NbRes
	if doc.NbCheckpoint != nil {
		w.NbCheckpoint = *doc.NbCheckpoint
	}
	if doc.NbOriginalJobs != nil {
		w.NbOriginalJobs = *doc.NbOriginalJobs
	}
	if doc.NbActuallyCompleted != nil {
		w.NbActuallyCompleted = *doc.NbActuallyCompleted
	}

	for profName, raw := range doc.Profiles {
		p, err := profile.Parse(profName, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "workload %q", name)
		}
		if err := w.Profiles.Add(p); err != nil {
			return nil, errors.Wrapf(err, "workload %q", name)
		}
	}

	for _, raw := range doc.Jobs {
		j, err := parseJob(raw, w, chkpt)
		if err != nil {
			return nil, errors.Wrapf(err, "workload %q", name)
		}
		if err := w.AddJob(j); err != nil {
			return nil, err
		}
	}

	if err := CheckValidity(w); err != nil {
		return nil, err
	}
	return w, nil
}

// RegisterDynamicJob parses a scheduler-submitted job description (the
// REGISTER_JOB inbound event's "job" object) and adds it to w. The job is
// marked FromWorkload=false so checkpoint bookkeeping does not count it
// against the workload's static nb_original_jobs.
func RegisterDynamicJob(w *Workload, raw json.RawMessage) (*job.Job, error) {
	j, err := parseJob(raw, w, false)
	if err != nil {
		return nil, err
	}
	j.FromWorkload = false
	if err := w.AddJob(j); err != nil {
		return nil, err
	}
	return j, nil
}

func parseJob(raw json.RawMessage, w *Workload, chkpt bool) (*job.Job, error) {
	var d jobDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrap(err, "invalid job JSON")
	}

	var idStr string
	if err := json.Unmarshal(d.ID, &idStr); err != nil {
		// id may be a bare JSON number.
		var idNum json.Number
		if err2 := json.Unmarshal(d.ID, &idNum); err2 != nil {
			return nil, errors.Wrap(err, "job id must be a string or number")
		}
		idStr = idNum.String()
	}

	p, err := w.Profiles.Get(d.Profile)
	if err != nil {
		return nil, &InvalidWorkloadError{Reason: "job references unknown profile", Entity: d.Profile}
	}

	if chkpt {
		if d.State == "" {
			return nil, &InvalidWorkloadError{Reason: "checkpointed job missing state", Entity: idStr}
		}
	}

	j, err := job.New(jobid.New(w.Name, idStr), p)
	if err != nil {
		return nil, err
	}
	j.JSONDescription = append([]byte{}, raw...)
	j.SubmissionTime = d.Subtime
	j.RequestedNbRes = d.Res
	j.FromWorkload = true
	if d.Walltime != nil {
		j.Walltime = *d.Walltime
	}
	if d.Cores > 0 {
		j.Cores = d.Cores
	} else {
		j.Cores = 1
	}
	if d.Purpose == string(job.PurposeReservation) {
		j.Purpose = job.PurposeReservation
	}
	if d.Start != nil {
		j.HasStart = true
		j.Start = *d.Start
	}
	if d.FutureAllocation != "" {
		alloc, err := interval.Parse(d.FutureAllocation)
		if err != nil {
			return nil, errors.Wrapf(err, "job %q: future_allocation", idStr)
		}
		j.FutureAlloc = alloc
	}
	j.SMPIRankToHost = d.SMPIRanksToHosts
	if d.CheckpointInterval != nil {
		j.CheckpointInterval = *d.CheckpointInterval
	}
	if d.DumpTime != nil {
		j.DumpTime = *d.DumpTime
	}
	if d.ReadTime != nil {
		j.ReadTime = *d.ReadTime
	}

	if chkpt {
		if d.Allocation != "" {
			alloc, err := interval.Parse(d.Allocation)
			if err != nil {
				return nil, errors.Wrapf(err, "job %q: allocation", idStr)
			}
			j.Allocation = alloc
		}
		if d.ProgressRatio != nil {
			j.Progress = *d.ProgressRatio
		}
		if d.State != "" {
			st, err := job.FromString(d.State)
			if err != nil {
				return nil, errors.Wrapf(err, "job %q", idStr)
			}
			j.State = st
		}
		j.Metadata = d.Metadata
		j.BatsimMetadata = d.BatsimMetadata
		j.Jitter = d.Jitter
		if d.Runtime != nil {
			j.Runtime = *d.Runtime
		}
		j.SubmissionTimes = d.SubmissionTimes
		j.OriginalWalltime = j.Walltime
		if d.OriginalSubmit != nil {
			j.OriginalSubmit = *d.OriginalSubmit
		}
		if d.OriginalStart != nil {
			j.OriginalStart = *d.OriginalStart
		}
	}

	return j, nil
}

// CheckValidity resolves every Sequence profile's string children to
// profile handles and, for every ParallelHomogeneous job, asserts
// profile.NbRes == job.RequestedNbRes.
func CheckValidity(w *Workload) error {
	if err := w.Profiles.Resolve(); err != nil {
		return errors.Wrapf(err, "workload %q", w.Name)
	}
	for name, j := range w.Jobs {
		if j.Profile.Kind == profile.KindParallelHomogeneous {
			if j.Profile.ParallelHomogeneous.NbRes != j.RequestedNbRes {
				return &InvalidWorkloadError{
					Reason: "parallel_homogeneous profile nb_res does not match job requested_nb_res",
					Entity: name,
				}
			}
		}
	}
	return nil
}
