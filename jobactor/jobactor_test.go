package jobactor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/profile"
	"github.com/hpc/batsim4/server"
	"github.com/hpc/batsim4/simbackend"
	"github.com/hpc/batsim4/stats"
)

func mustParse(t *testing.T, name string, raw map[string]interface{}) *profile.Profile {
	t.Helper()
	data, _ := json.Marshal(raw)
	p, err := profile.Parse(name, data)
	if err != nil {
		t.Fatalf("profile.Parse: %v", err)
	}
	return p
}

func newDelayJob(t *testing.T, delay float64) *job.Job {
	t.Helper()
	p := mustParse(t, "d", map[string]interface{}{"type": "delay", "delay": delay})
	j, err := job.New(jobid.New("w0", "1"), p)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	return j
}

// awaitCompletion blocks on ch until a Completion arrives or the test's
// deadline passes, failing instead of hanging forever on a stuck actor.
func awaitCompletion(t *testing.T, ch chan server.Completion) server.Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job actor completion")
		return server.Completion{}
	}
}

func TestActorCompletesDelayJob(t *testing.T) {
	backend := simbackend.NewFakeBackend(2)
	j := newDelayJob(t, 5)
	j.State = job.Running
	completions := make(chan server.Completion, 1)

	f := &Factory{Backend: backend}
	actor, err := f.Spawn(server.ActorSpec{
		Job:         j,
		Alloc:       interval.FromSlice([]int{0}),
		Mapping:     []int{0},
		Completions: completions,
		MTBF:        -1,
		SMTBF:       -1,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	_ = actor

	c := awaitCompletion(t, completions)
	if c.State != job.CompletedSuccessfully {
		t.Errorf("expected CompletedSuccessfully, got %v (reason %q)", c.State, c.Reason)
	}
	if c.Progress != 1 {
		t.Errorf("expected progress 1, got %v", c.Progress)
	}
}

// TestActorReportsKillStateAndReason drives run() synchronously on the test
// goroutine, with the kill already requested before execution starts, so
// the outcome does not depend on a race against the fake backend's
// instantly-completing Sleep.
func TestActorReportsKillStateAndReason(t *testing.T) {
	backend := simbackend.NewFakeBackend(1)
	j := newDelayJob(t, 100)
	j.State = job.Running
	completions := make(chan server.Completion, 1)

	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor{
		spec: server.ActorSpec{
			Job:         j,
			Alloc:       interval.FromSlice([]int{0}),
			Mapping:     []int{0},
			Completions: completions,
			MTBF:        -1,
			SMTBF:       -1,
		},
		backend: backend,
		stats:   stats.Nil(),
		log:     log.WithField("test", "kill"),
		cancel:  cancel,
	}
	a.Kill("killed_by_scheduler")
	a.run(ctx)

	c := awaitCompletion(t, completions)
	if c.State != job.CompletedKilled {
		t.Errorf("expected CompletedKilled, got %v", c.State)
	}
	if c.Reason != "killed_by_scheduler" {
		t.Errorf("expected kill reason propagated, got %q", c.Reason)
	}
}

// TestActorCompletesBeforeWalltime drives a job whose walltime deadline is
// far beyond its delay; run() must return via the normal completion path
// (not a false walltime hit).
func TestActorCompletesBeforeWalltime(t *testing.T) {
	backend := simbackend.NewFakeBackend(1)
	j := newDelayJob(t, 5)
	j.Walltime = 1000
	j.State = job.Running
	completions := make(chan server.Completion, 1)

	f := &Factory{Backend: backend}
	if _, err := f.Spawn(server.ActorSpec{
		Job:         j,
		Alloc:       interval.FromSlice([]int{0}),
		Mapping:     []int{0},
		Completions: completions,
		MTBF:        -1,
		SMTBF:       -1,
	}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	c := awaitCompletion(t, completions)
	if c.State != job.CompletedSuccessfully {
		t.Errorf("expected CompletedSuccessfully, got %v (reason %q)", c.State, c.Reason)
	}
}

func TestCheckpointIntervalFromMTBF(t *testing.T) {
	j := newDelayJob(t, 1000)
	j.DumpTime = 10

	a := &Actor{spec: server.ActorSpec{
		Job:                  j,
		MTBF:                 3600,
		SMTBF:                -1,
		ComputeCheckpointing: true,
	}}
	interval := a.checkpointInterval()
	if interval <= 0 {
		t.Fatalf("expected a positive checkpoint interval, got %v", interval)
	}
}

func TestCheckpointIntervalDisabledWithoutComputeCheckpointing(t *testing.T) {
	j := newDelayJob(t, 1000)
	j.DumpTime = 10

	a := &Actor{spec: server.ActorSpec{Job: j, MTBF: 3600, SMTBF: -1}}
	if got := a.checkpointInterval(); got != 0 {
		t.Errorf("expected 0 (disabled), got %v", got)
	}
}

func TestCheckpointIntervalGlobalOverrideWins(t *testing.T) {
	j := newDelayJob(t, 1000)
	j.DumpTime = 10

	a := &Actor{spec: server.ActorSpec{
		Job:                      j,
		MTBF:                     3600,
		SMTBF:                    -1,
		ComputeCheckpointing:     true,
		GlobalCheckpointInterval: 42,
	}}
	if got := a.checkpointInterval(); got != 42 {
		t.Errorf("expected global override 42, got %v", got)
	}
}

func TestEffectiveWorkSkipsExactDivisionDump(t *testing.T) {
	// real_work exactly divides interval: one fewer dump than ceil(ratio).
	got := effectiveWork(20, 10, 1)
	want := 20.0 + 1 // ceil(20/10)=2, minus 1 for the exact-division skip => 1 dump
	if got != want {
		t.Errorf("effectiveWork(20,10,1) = %v, want %v", got, want)
	}
}

func TestEffectiveWorkPadsPartialInterval(t *testing.T) {
	got := effectiveWork(25, 10, 1)
	want := 25.0 + 3 // ceil(25/10)=3 dumps, no exact-division skip
	if got != want {
		t.Errorf("effectiveWork(25,10,1) = %v, want %v", got, want)
	}
}
