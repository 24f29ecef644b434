// Package config is the ambient CLI configuration layer: a
// type-keyed, fully-resolved configuration struct populated from CLI flags.
// There is no JSON configuration overlay. batsim wires its
// components directly in cmd/batsim rather than through a DI container.
package config

import (
	"github.com/hpc/batsim4/batsimerrors"
	"github.com/hpc/batsim4/workload"
)

// Config is the fully-resolved configuration for one batsim run, populated
// from CLI flags by cmd/batsim.
type Config struct {
	Platform string
	Workload string
	Workflow string
	Events   string

	SocketEndpoint string

	Mmax         int
	MmaxWorkload int

	Failure    FailureConfig
	Checkpoint CheckpointConfig

	// WorkflowStart pairs with Workflow: a workflow file describes a
	// dynamic-submission timeline relative to a start offset, so one
	// without the other is a configuration error (the "workflow-start
	// pairing" exit bit).
	WorkflowStart *float64

	// Copy, SubmissionTimeBefore and SubmissionTimeAfter carry the raw
	// --copy/--submission-time-before/--submission-time-after CLI mini-
	// language strings verbatim; an empty string means the transformation
	// is disabled. cmd/batsim parses them with workload.ParseCopySpec and
	// workload.ParseSubmissionRewrite and applies them in the order
	// before -> copy -> after.
	Copy                 string
	SubmissionTimeBefore string
	SubmissionTimeAfter  string

	OutputSVG             bool
	EnableScheduleTracing bool
	EnableDynamicJobs     bool
}

// FailureConfig bundles the --MTBF/--SMTBF/--fixed-failures/--repair-time/
// --MTTR/--seed-failures knobs, mirroring failure.Config's field set so
// cmd/batsim can hand it to failure.New without restating it.
type FailureConfig struct {
	MTBF          float64
	SMTBF         float64
	FixedFailures float64
	RepairTime    float64
	MTTR          float64
	Seed          *int64
}

// CheckpointConfig bundles the --checkpointing-on/--checkpoint-batsim-*/
// --start-from-checkpoint knobs. ComputeCheckpointing, CheckpointingInterval
// and ComputeCheckpointingError hold the application-level checkpointing
// knobs (--compute_checkpointing, --checkpointing-interval,
// --compute_checkpointing_error); cmd/batsim records them here and does not
// pass them on to the workloads, the job actors or the scheduler.
type CheckpointConfig struct {
	On                        bool
	ComputeCheckpointing      bool
	CheckpointingInterval     float64
	ComputeCheckpointingError float64

	BatsimInterval string // "real|simulated:DAYS-HH:MM:SS[:keep]", parsed by ParseBatsimInterval
	BatsimKeep     int
	StartFrom      int // --start-from-checkpoint <n>; 0 means cold start
}

// Validate runs the input-existence and pairing checks that map to
// exit-code bits, accumulating every failure rather than stopping at the
// first (a caller scripting batsim runs sees every problem in one exit).
// fileExists is injected so tests can stub filesystem access.
func (c *Config) Validate(fileExists func(path string) bool) *batsimerrors.Accumulator {
	var acc batsimerrors.Accumulator

	if c.Platform == "" || !fileExists(c.Platform) {
		acc.Add(errMissingFile("platform", c.Platform), batsimerrors.ExitPlatformMissing)
	}
	if c.Workload == "" || !fileExists(c.Workload) {
		acc.Add(errMissingFile("workload", c.Workload), batsimerrors.ExitWorkloadInvalid)
	}
	if c.Workflow != "" && !fileExists(c.Workflow) {
		acc.Add(errMissingFile("workflow", c.Workflow), batsimerrors.ExitWorkflowInvalid)
	}
	if (c.Workflow == "") != (c.WorkflowStart == nil) {
		acc.Add(errWorkflowStartPairing(), batsimerrors.ExitWorkflowStartPairing)
	}
	if c.Copy != "" && c.Workflow == "" {
		acc.Add(errCutWorkflowMissing(), batsimerrors.ExitCutWorkflowMissing)
	}
	if c.Copy != "" {
		if _, err := workload.ParseCopySpec(c.Copy); err != nil {
			acc.Add(err, batsimerrors.ExitBadStartParse)
		}
	}
	c.validateSubmissionRewrite(&acc, "submission-time-before", c.SubmissionTimeBefore)
	c.validateSubmissionRewrite(&acc, "submission-time-after", c.SubmissionTimeAfter)
	if _, err := ParseBatsimInterval(c.Checkpoint.BatsimInterval); err != nil {
		acc.Add(err, batsimerrors.ExitBadStartParse)
	}
	return &acc
}

// validateSubmissionRewrite parses a --submission-time-before/-after value,
// accumulating a bad-start-parse failure if it's malformed or a
// negative-start failure if it parses to a negative fixed/mean/range bound.
func (c *Config) validateSubmissionRewrite(acc *batsimerrors.Accumulator, flag, spec string) {
	if spec == "" {
		return
	}
	rw, _, err := workload.ParseSubmissionRewrite(spec)
	if err != nil {
		acc.Add(err, batsimerrors.ExitBadStartParse)
		return
	}
	var negative bool
	switch rw.Mode {
	case workload.RewriteFixed:
		negative = rw.Fixed < 0
	case workload.RewriteExp:
		negative = rw.Mean < 0
	case workload.RewriteUnif:
		negative = rw.A < 0 || rw.B < 0
	}
	if negative {
		acc.Add(errNegativeStart(flag), batsimerrors.ExitNegativeStart)
	}
}
