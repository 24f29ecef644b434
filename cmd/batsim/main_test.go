package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpc/batsim4/config"
)

func writeWorkloadFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "w.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const twoJobWorkload = `{
  "nb_res": 4,
  "jobs": [
    {"id": "1", "subtime": 0, "res": 1, "profile": "d"},
    {"id": "2", "subtime": 10, "res": 1, "profile": "d"}
  ],
  "profiles": {"d": {"type": "delay", "delay": 1}}
}`

// Two jobs copied to 3 total copies with a per-copy uniform jitter: the
// --copy CLI string must reach CopyConfig's N/Mode/A/B/Scope, not just the
// copy count.
func TestLoadWorkloadsAppliesParsedCopySpec(t *testing.T) {
	path := writeWorkloadFile(t, twoJobWorkload)
	cfg := &config.Config{Workload: path, Copy: "3:+:5:10:unif:each-copy"}

	workloads, _, err := loadWorkloads(cfg)
	if err != nil {
		t.Fatalf("loadWorkloads: %v", err)
	}
	w := workloads["main"]
	if w.NbJobs() != 6 {
		t.Fatalf("expected 6 jobs after a 3x copy of 2 jobs, got %d", w.NbJobs())
	}
}

// --submission-time-before and --submission-time-after must both reach
// workload.ChangeSubmits, applied before and after the copy step
// respectively.
func TestLoadWorkloadsAppliesSubmissionRewritesAroundCopy(t *testing.T) {
	path := writeWorkloadFile(t, twoJobWorkload)
	cfg := &config.Config{
		Workload:             path,
		SubmissionTimeBefore: "1000:fixed",
		Copy:                 "2",
		SubmissionTimeAfter:  "0:fixed",
	}

	workloads, _, err := loadWorkloads(cfg)
	if err != nil {
		t.Fatalf("loadWorkloads: %v", err)
	}
	w := workloads["main"]
	if w.NbJobs() != 4 {
		t.Fatalf("expected 4 jobs after a 2x copy of 2 jobs, got %d", w.NbJobs())
	}
	for name, j := range w.Jobs {
		if j.SubmissionTime != 0 {
			t.Errorf("job %s: expected submission-time-after to collapse every time to 0, got %v", name, j.SubmissionTime)
		}
	}
}

func TestToConfigMapsFailureAndCheckpointFlags(t *testing.T) {
	cmd, f := newRootCommand()
	args := []string{
		"--platform", "p.xml",
		"--workload", "w.json",
		"--MTBF", "3600",
		"--seed-failures", "42",
		"--checkpointing-on",
		"--checkpoint-batsim-interval", "real:0-01:00:00",
		"--checkpoint-batsim-keep", "5",
		"--submission-time-before", "100:fixed",
		"--output-svg",
		"--enable-schedule-tracing",
	}
	cmd.SetArgs(args)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	// PreRun is normally invoked by cmd.Execute(); call it directly since
	// this test drives ParseFlags without a full Execute.
	cmd.PreRun(cmd, nil)

	cfg := toConfig(f)
	if cfg.Platform != "p.xml" || cfg.Workload != "w.json" {
		t.Fatalf("expected input files to be mapped, got %+v", cfg)
	}
	if cfg.Failure.MTBF != 3600 {
		t.Errorf("expected MTBF 3600, got %v", cfg.Failure.MTBF)
	}
	if cfg.Failure.Seed == nil || *cfg.Failure.Seed != 42 {
		t.Errorf("expected seed 42, got %v", cfg.Failure.Seed)
	}
	if !cfg.Checkpoint.On {
		t.Error("expected checkpointing-on to be true")
	}
	if cfg.Checkpoint.BatsimKeep != 5 {
		t.Errorf("expected checkpoint-batsim-keep 5, got %d", cfg.Checkpoint.BatsimKeep)
	}
	if cfg.SubmissionTimeBefore != "100:fixed" {
		t.Errorf("expected submission-time-before %q, got %q", "100:fixed", cfg.SubmissionTimeBefore)
	}
	if cfg.SubmissionTimeAfter != "" {
		t.Errorf("expected submission-time-after unset, got %q", cfg.SubmissionTimeAfter)
	}
	if !cfg.OutputSVG || !cfg.EnableScheduleTracing {
		t.Error("expected output-svg and enable-schedule-tracing to be mapped through")
	}
}

func TestToConfigWorkflowImpliesWorkflowStart(t *testing.T) {
	_, f := newRootCommand()
	f.workflow = "wf.json"
	cfg := toConfig(f)
	if cfg.WorkflowStart == nil {
		t.Error("expected WorkflowStart to be set when workflow is given")
	}
}

func TestToConfigDefaultsHaveNoSeedOrSubmissionBounds(t *testing.T) {
	_, f := newRootCommand()
	cfg := toConfig(f)
	if cfg.Failure.Seed != nil {
		t.Error("expected nil seed by default")
	}
	if cfg.SubmissionTimeBefore != "" || cfg.SubmissionTimeAfter != "" {
		t.Error("expected empty submission bounds by default")
	}
}
