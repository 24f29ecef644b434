package workload

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
)

// RewriteMode selects a submission-time rewrite strategy (§4.2).
type RewriteMode int

const (
	RewriteFixed RewriteMode = iota
	RewriteExp
	RewriteUnif
	RewriteShuffle
)

// SubmissionRewrite configures one application of change_submits.
type SubmissionRewrite struct {
	Mode  RewriteMode
	Fixed float64 // RewriteFixed: inter-arrival value v
	Mean  float64 // RewriteExp: Exponential(1/Mean)
	A, B  float64 // RewriteUnif: Uniform(A,B)
}

// ChangeSubmits rewrites every job's submission time in w, applied in order
// of ascending original submission time. rng is used for the exp/unif/
// shuffle modes; pass a seeded *rand.Rand for determinism.
func ChangeSubmits(w *Workload, rw SubmissionRewrite, rng *rand.Rand) error {
	jobs := sortedBySubtime(w)
	if len(jobs) == 0 {
		return nil
	}

	switch rw.Mode {
	case RewriteFixed:
		t := 0.0
		for i, j := range jobs {
			if i == 0 {
				t = rw.Fixed
			} else if rw.Fixed != 0 {
				t += rw.Fixed
			} else {
				t = 0
			}
			setSubtime(j, t)
		}
	case RewriteExp:
		if rng == nil {
			return errors.New("workload: exp rewrite requires an rng")
		}
		t := 0.0
		for _, j := range jobs {
			t += rng.ExpFloat64() * rw.Mean
			setSubtime(j, t)
		}
	case RewriteUnif:
		if rng == nil {
			return errors.New("workload: unif rewrite requires an rng")
		}
		t := 0.0
		for _, j := range jobs {
			t += rw.A + rng.Float64()*(rw.B-rw.A)
			setSubtime(j, t)
		}
	case RewriteShuffle:
		if rng == nil {
			return errors.New("workload: shuffle rewrite requires an rng")
		}
		times := make([]float64, len(jobs))
		for i, j := range jobs {
			times[i] = j.SubmissionTime
		}
		rng.Shuffle(len(times), func(i, k int) { times[i], times[k] = times[k], times[i] })
		for i, j := range jobs {
			setSubtime(j, times[i])
		}
	default:
		return fmt.Errorf("workload: unknown rewrite mode %d", rw.Mode)
	}
	return nil
}

func sortedBySubtime(w *Workload) []*job.Job {
	jobs := make([]*job.Job, 0, len(w.Jobs))
	for _, j := range w.Jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].SubmissionTime < jobs[k].SubmissionTime })
	return jobs
}

// setSubtime updates a job's submission time and patches the verbatim JSON
// description's "subtime" field to match, so the two stay consistent after
// a rewrite.
func setSubtime(j *job.Job, t float64) {
	j.SubmissionTime = t
	j.JSONDescription = patchField(j.JSONDescription, "subtime", t)
}

func patchField(raw []byte, field string, value float64) []byte {
	if len(raw) == 0 {
		return raw
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	encoded, _ := json.Marshal(value)
	m[field] = encoded
	out, err := json.Marshal(m)
	if err != nil {
		return raw
	}
	return out
}

// JitterScope selects whether a copy's submission-time jitter is drawn once
// per copy (applied identically to every job in that copy) or independently
// per job.
type JitterScope int

const (
	JitterPerCopy JitterScope = iota
	JitterPerJob
)

// CopyConfig configures the copy() step of the transformation pipeline.
type CopyConfig struct {
	N       int // total desired job multiplicity; N-1 extra copies are produced
	Mode    RewriteMode // RewriteFixed (additive jitter) or RewriteExp/RewriteUnif (redrawn)
	Fixed   float64
	Mean    float64
	A, B    float64
	Scope   JitterScope
	Rng     *rand.Rand // nil only valid for RewriteFixed with Fixed == 0

	// Absolute makes a copy's submission times the drawn value itself
	// rather than the original time plus a jitter offset, matching the
	// "=" form of the copy grammar (as opposed to "+"/"-").
	Absolute bool
}

// Copy produces N-1 additional copies of every job currently in w, each
// with fresh ids starting at startId and a cloned profile under the new id.
// Submission times are either left unchanged, jittered by a fixed per-copy
// offset, or redrawn from an exponential or uniform distribution, depending
// on cfg.Mode and cfg.Scope. Returns the id of the next unused integer
// after the copies it created.
func Copy(w *Workload, cfg CopyConfig, startId int) (int, error) {
	if cfg.N <= 1 {
		return startId, nil
	}
	originals := sortedBySubtime(w)
	nextID := startId

	for copyIdx := 1; copyIdx < cfg.N; copyIdx++ {
		var perCopyJitter float64
		if cfg.Scope == JitterPerCopy {
			perCopyJitter = drawJitter(cfg)
		}
		for _, orig := range originals {
			jitter := perCopyJitter
			if cfg.Scope == JitterPerJob {
				jitter = drawJitter(cfg)
			}

			newIDStr := fmt.Sprintf("%d", nextID)
			nextID++

			newProfile := orig.Profile.Clone(fmt.Sprintf("%s.copy%s", orig.Profile.Name, newIDStr))
			if err := w.Profiles.Add(newProfile); err != nil {
				return 0, err
			}

			newJob, err := job.New(jobid.New(w.Name, newIDStr), newProfile)
			if err != nil {
				return 0, err
			}
			base := orig.SubmissionTime
			if cfg.Absolute {
				base = 0
			}
			newJob.SubmissionTime = base + jitter
			newJob.RequestedNbRes = orig.RequestedNbRes
			newJob.Walltime = orig.Walltime
			newJob.Cores = orig.Cores
			newJob.Purpose = orig.Purpose
			newJob.HasStart = orig.HasStart
			newJob.Start = orig.Start
			if orig.FutureAlloc != nil {
				newJob.FutureAlloc = orig.FutureAlloc.Clone()
			}
			newJob.SMPIRankToHost = append([]int{}, orig.SMPIRankToHost...)
			newJob.CheckpointInterval = orig.CheckpointInterval
			newJob.DumpTime = orig.DumpTime
			newJob.ReadTime = orig.ReadTime
			newJob.OriginalWalltime = orig.OriginalWalltime
			newJob.FromWorkload = orig.FromWorkload
			newJob.Jitter = fmt.Sprintf("%+g", jitter)
			newJob.SubmissionTimes = []float64{newJob.SubmissionTime}
			newJob.JSONDescription = patchField(append([]byte{}, orig.JSONDescription...), "subtime", newJob.SubmissionTime)

			if err := w.AddJob(newJob); err != nil {
				return 0, err
			}
		}
	}
	return nextID, nil
}

func drawJitter(cfg CopyConfig) float64 {
	switch cfg.Mode {
	case RewriteFixed:
		return cfg.Fixed
	case RewriteExp:
		return cfg.Rng.ExpFloat64() * cfg.Mean
	case RewriteUnif:
		return cfg.A + cfg.Rng.Float64()*(cfg.B-cfg.A)
	default:
		return 0
	}
}

// NewSeededRng builds a deterministic RNG. Deterministic iff seed is
// non-nil; otherwise a time-seeded source is used.
func NewSeededRng(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
