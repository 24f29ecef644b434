package workload

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hpc/batsim4/job"
)

// DumpChkpt serializes w into the load_from_json_chkpt wire shape: every job
// is augmented with its runtime attributes, and a currently-RUNNING job's
// profile is swapped (both its own reference and the entry in the profiles
// dictionary) for a fresh profile built by profile.Remaining, reflecting
// only the work left at its current progress. The result round-trips
// through LoadChkpt.
func DumpChkpt(w *Workload, now float64) ([]byte, error) {
	doc := workloadDoc{
		NbRes:               intPtr(w.NbMachines),
		NbCheckpoint:        intPtr(w.NbCheckpoint + 1),
		NbOriginalJobs:      intPtr(w.NbOriginalJobs),
		NbActuallyCompleted: intPtr(w.NbActuallyCompleted),
		Profiles:            make(map[string]json.RawMessage, len(w.Profiles.Names())),
	}

	for _, name := range w.Profiles.Names() {
		p, err := w.Profiles.Get(name)
		if err != nil {
			return nil, err
		}
		raw, err := p.MarshalWire()
		if err != nil {
			return nil, errors.Wrapf(err, "workload %q: profile %q", w.Name, name)
		}
		doc.Profiles[name] = raw
	}

	for name, j := range w.Jobs {
		raw, err := dumpJob(j, doc.Profiles, now)
		if err != nil {
			return nil, errors.Wrapf(err, "workload %q: job %q", w.Name, name)
		}
		doc.Jobs = append(doc.Jobs, raw)
	}

	return json.Marshal(doc)
}

func dumpJob(j *job.Job, profiles map[string]json.RawMessage, now float64) (json.RawMessage, error) {
	profileName := j.Profile.Name
	if j.State == job.Running {
		ratio := job.ComputeProgress(j.Task, now).Ratio
		rewritten := j.Profile.Remaining(profileName+"@"+j.ID.String(), ratio)
		raw, err := rewritten.MarshalWire()
		if err != nil {
			return nil, err
		}
		profileName = rewritten.Name
		profiles[profileName] = raw
	}

	idJSON, err := json.Marshal(j.ID.Name)
	if err != nil {
		return nil, err
	}
	d := jobDoc{
		ID:                 idJSON,
		Subtime:            j.SubmissionTime,
		Res:                j.RequestedNbRes,
		Profile:            profileName,
		Cores:              j.Cores,
		Purpose:            string(j.Purpose),
		SMPIRanksToHosts:   j.SMPIRankToHost,
		Allocation:         j.Allocation.String(),
		State:              j.State.String(),
		Metadata:           j.Metadata,
		BatsimMetadata:     j.BatsimMetadata,
		Jitter:             j.Jitter,
		Runtime:            &j.Runtime,
		SubmissionTimes:    j.SubmissionTimes,
		ProgressRatio:      &j.Progress,
		OriginalStart:      &j.OriginalStart,
		OriginalSubmit:     &j.OriginalSubmit,
	}
	if j.Walltime >= 0 {
		d.Walltime = &j.Walltime
	}
	if j.HasStart {
		d.Start = &j.Start
	}
	if j.FutureAlloc != nil && !j.FutureAlloc.IsEmpty() {
		d.FutureAllocation = j.FutureAlloc.String()
	}
	if j.CheckpointInterval >= 0 {
		d.CheckpointInterval = &j.CheckpointInterval
	}
	if j.DumpTime >= 0 {
		d.DumpTime = &j.DumpTime
	}
	if j.ReadTime >= 0 {
		d.ReadTime = &j.ReadTime
	}
	return json.Marshal(d)
}

func intPtr(n int) *int { return &n }
