// Package jobactor implements the job execution actor: one goroutine per
// running job that steps through the job's task tree against the
// simulation backend, captures progress on preemption, and reports its
// terminal state back to the event server over a shared channel.
package jobactor

import (
	"context"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/profile"
	"github.com/hpc/batsim4/server"
	"github.com/hpc/batsim4/simbackend"
	"github.com/hpc/batsim4/stats"
)

// Factory spawns Actors against a fixed simulation backend, implementing
// server.JobActorFactory.
type Factory struct {
	Backend simbackend.Backend
	Stats   stats.StatsReceiver
}

// Spawn starts a new Actor for spec.Job and returns immediately; the actor
// runs in its own goroutine until the job reaches a terminal state.
func (f *Factory) Spawn(spec server.ActorSpec) (server.Actor, error) {
	st := f.Stats
	if st == nil {
		st = stats.Nil()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor{
		spec:    spec,
		backend: f.Backend,
		stats:   st.Scope("jobactor"),
		log:     log.WithField("job_id", spec.Job.ID.String()),
		cancel:  cancel,
	}
	go a.run(ctx)
	return a, nil
}

// Actor is the server's handle on a live job execution.
type Actor struct {
	spec    server.ActorSpec
	backend simbackend.Backend
	stats   stats.StatsReceiver
	log     *log.Entry
	cancel  context.CancelFunc

	mu          sync.Mutex
	killReason  string
	walltimeHit bool
}

// Kill requests preemption; the actor captures its progress snapshot
// before tearing down its executor.
func (a *Actor) Kill(forWhat string) {
	a.mu.Lock()
	if a.killReason == "" {
		a.killReason = forWhat
	}
	a.mu.Unlock()
	a.cancel()
}

func (a *Actor) markWalltimeHit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.killReason != "" {
		return false // an explicit kill raced the watcher and wins
	}
	a.walltimeHit = true
	return true
}

func (a *Actor) preemptionReason() (killed bool, reason string, walltime bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.killReason != "", a.killReason, a.walltimeHit
}

// run drives the job to completion and reports the result.
func (a *Actor) run(ctx context.Context) {
	j := a.spec.Job
	a.stats.Counter("jobs_started").Inc(1)

	if a.spec.AdditionalIO != nil && j.Task.Kind == job.TaskLeafParallel {
		merged, err := profile.Merge(j.Task.Profile, a.spec.AdditionalIO)
		if err != nil {
			a.log.WithError(err).Warn("jobactor: additional_io_job merge failed, running main profile only")
		} else {
			j.Task.Profile = merged
		}
	}

	execCtx := ctx
	if j.HasWalltime() {
		deadline := j.StartingTime + j.Walltime
		childCtx, cancelChild := context.WithCancel(ctx)
		execCtx = childCtx
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch() // stop waiting on the deadline once the job finishes on its own
		go func() {
			if err := a.backend.Sleep(watchCtx, deadline); err == nil && a.markWalltimeHit() {
				cancelChild()
			}
		}()
	}

	checkpointInterval := a.checkpointInterval()
	a.execute(execCtx, j, j.Task, checkpointInterval)

	killed, reason, walltime := a.preemptionReason()
	now := a.backend.Now()
	progress := job.ComputeProgress(j.Task, now).Ratio

	var state job.State
	switch {
	case killed:
		state = job.CompletedKilled
		j.ReturnCode = -1
	case walltime:
		state = job.CompletedWalltimeReached
		j.ReturnCode = -1
	default:
		state = job.CompletedSuccessfully
		progress = 1
		j.ReturnCode = 0
	}
	j.State = state
	j.Progress = progress
	j.Runtime = now - j.StartingTime
	a.stats.Counter("jobs_finished").Inc(1)

	a.spec.Completions <- server.Completion{
		JobID:      j.ID.String(),
		State:      state,
		Reason:     reason,
		Progress:   progress,
		ReturnCode: j.ReturnCode,
	}
}

// execute walks node to completion or until ctx is canceled, returning once
// either happens. The caller is responsible for ensuring a single job
// produces its completion strictly after every intermediate step, which
// holds here because execute never returns before its subtree finishes or
// ctx fires.
func (a *Actor) execute(ctx context.Context, j *job.Job, node *job.TaskNode, checkpointInterval float64) {
	switch node.Kind {
	case job.TaskLeafDelay:
		a.executeDelay(ctx, node, checkpointInterval)
	case job.TaskLeafParallel:
		a.executeParallel(ctx, node)
	case job.TaskInteriorSequence:
		for i, child := range node.Children {
			node.CurrentIndex = i
			a.execute(ctx, j, child, checkpointInterval)
			if ctx.Err() != nil {
				return
			}
		}
	default:
		a.log.Panicf("jobactor: unexpected task kind %d", int(node.Kind))
	}
}

// executeDelay sleeps for the leaf's required duration, padded for the time
// spent dumping checkpoints along the way. The padded duration is written
// back into node.DelayRequired so a progress snapshot taken mid-sleep
// divides by the duration the actor is actually sleeping for, not the raw
// profile delay.
func (a *Actor) executeDelay(ctx context.Context, node *job.TaskNode, checkpointInterval float64) {
	now := a.backend.Now()
	node.DelayStart = now
	required := node.DelayRequired
	if checkpointInterval > 0 {
		required = effectiveWork(required, checkpointInterval, a.spec.Job.DumpTime)
		node.DelayRequired = required
	}
	_ = a.backend.Sleep(ctx, now+required)
}

// executeParallel spawns a backend parallel task across the job's
// allocation and blocks until it finishes or ctx is canceled.
func (a *Actor) executeParallel(ctx context.Context, node *job.TaskNode) {
	hostIDs := append([]int{}, a.spec.Mapping...)
	cpu, com := flattenParallelWork(node.Profile, len(hostIDs))

	task, err := a.backend.NewParallelTask(hostIDs, cpu, com)
	if err != nil {
		a.log.WithError(err).Error("jobactor: failed to spawn parallel task")
		return
	}
	node.Exec = task
	_ = task.Wait(ctx)
}

// flattenParallelWork derives per-host flop counts and a per-pair byte
// matrix from a resolved parallel profile leaf.
func flattenParallelWork(p *profile.Profile, nbHosts int) ([]float64, [][]float64) {
	switch p.Kind {
	case profile.KindParallelHomogeneous:
		cpu := make([]float64, nbHosts)
		for i := range cpu {
			cpu[i] = p.ParallelHomogeneous.CPU
		}
		com := make([][]float64, nbHosts)
		for i := range com {
			com[i] = make([]float64, nbHosts)
			for k := range com[i] {
				if i != k {
					com[i][k] = p.ParallelHomogeneous.Com
				}
			}
		}
		return cpu, com
	case profile.KindParallelHeterogeneous:
		cpu := make([]float64, len(p.ParallelHeterogeneous.CPU))
		for i, row := range p.ParallelHeterogeneous.CPU {
			for _, v := range row {
				cpu[i] += v
			}
		}
		return cpu, p.ParallelHeterogeneous.Com
	default:
		return make([]float64, nbHosts), make([][]float64, nbHosts)
	}
}

// checkpointInterval resolves the interval to use for this job: a global
// override wins outright; else the job's own checkpoint_interval; else, if
// compute_checkpointing is on, Young's formula; else checkpointing is off
// for this job (0 means "no padding").
func (a *Actor) checkpointInterval() float64 {
	j := a.spec.Job
	if a.spec.GlobalCheckpointInterval > 0 {
		return a.spec.GlobalCheckpointInterval
	}
	if j.CheckpointInterval > 0 {
		return j.CheckpointInterval
	}
	if !a.spec.ComputeCheckpointing || j.DumpTime <= 0 {
		return 0
	}
	m := a.spec.MTBF
	if a.spec.SMTBF > 0 {
		reqRes := j.RequestedNbRes
		if reqRes <= 0 {
			reqRes = 1
		}
		m = a.spec.SMTBF * (float64(a.spec.NbMachines) / float64(reqRes))
	}
	if m <= 0 {
		return 0
	}
	errorFactor := a.spec.ComputeCheckpointingError
	if errorFactor <= 0 {
		errorFactor = 1
	}
	interval := errorFactor*math.Sqrt(2*j.DumpTime*m) - j.DumpTime
	if interval <= 0 {
		return 0
	}
	return interval
}

// effectiveWork returns the padded duration of a piece of work that dumps a
// checkpoint every interval seconds:
//
//	ceil(real_work / interval) * dump_time + real_work
//
// with one dump skipped when the division is exact.
func effectiveWork(realWork, interval, dumpTime float64) float64 {
	if interval <= 0 || dumpTime <= 0 {
		return realWork
	}
	ratio := realWork / interval
	dumps := math.Ceil(ratio)
	if dumps > 0 && ratio == math.Trunc(ratio) {
		dumps--
	}
	return dumps*dumpTime + realWork
}
