// Command batsim runs one simulation: it loads a workload (and, if given, a
// platform/workflow/events file set), opens the scheduler socket, arms the
// configured failure injector and checkpoint manager, and drives the event
// loop to completion.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hpc/batsim4/batsimerrors"
	"github.com/hpc/batsim4/checkpoint"
	"github.com/hpc/batsim4/config"
	"github.com/hpc/batsim4/export"
	"github.com/hpc/batsim4/failure"
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobactor"
	"github.com/hpc/batsim4/machine"
	"github.com/hpc/batsim4/server"
	"github.com/hpc/batsim4/simbackend"
	"github.com/hpc/batsim4/stats"
	"github.com/hpc/batsim4/workload"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cmd, flags := newRootCommand()
	cmd.RunE = func(_ *cobra.Command, _ []string) error {
		return run(flags)
	}
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("batsim: fatal")
		if be, ok := err.(interface{ GetExitCode() int }); ok && be.GetExitCode() != 0 {
			os.Exit(be.GetExitCode())
		}
		os.Exit(1)
	}
}

// cliFlags holds the raw flag destinations cobra binds into; translated
// into a config.Config once parsing succeeds (cobra has no notion of "this
// flag is a *float64", so nullable knobs are parsed as strings/bools and
// converted by hand).
type cliFlags struct {
	platform       string
	workloadPath   string
	workflow       string
	events         string
	socketEndpoint string

	mmax         int
	mmaxWorkload int

	mtbf          float64
	smtbf         float64
	fixedFailures float64
	repairTime    float64
	mttr          float64
	seedFailures  int64
	hasSeed       bool

	checkpointingOn           bool
	computeCheckpointing      bool
	checkpointingInterval     float64
	computeCheckpointingError float64
	checkpointBatsimInterval  string
	checkpointBatsimKeep      int
	startFromCheckpoint       int

	copySpec             string
	submissionTimeBefore string
	submissionTimeAfter  string

	outputSVG             bool
	enableScheduleTracing bool
	enableDynamicJobs     bool
}

func newRootCommand() (*cobra.Command, *cliFlags) {
	f := &cliFlags{}
	cmd := &cobra.Command{
		Use:   "batsim",
		Short: "batsim runs a discrete-event batch-scheduling simulation against an external scheduler",
	}
	fl := cmd.Flags()
	fl.StringVar(&f.platform, "platform", "", "platform description file (consumed opaquely by the simulation backend)")
	fl.StringVar(&f.workloadPath, "workload", "", "workload JSON file")
	fl.StringVar(&f.workflow, "workflow", "", "workflow file (dynamic-submission timeline)")
	fl.StringVar(&f.events, "events", "", "external events file")
	fl.StringVar(&f.socketEndpoint, "socket-endpoint", "tcp://localhost:28000", "scheduler transport address")

	fl.IntVar(&f.mmax, "mmax", 0, "cap on the total number of machines simulated (0 = no cap)")
	fl.IntVar(&f.mmaxWorkload, "mmax-workload", 0, "cap on machines as seen by the workload (0 = no cap)")

	fl.Float64Var(&f.mtbf, "MTBF", -1, "mean time between failures, simulated seconds (-1 disables MTBF mode)")
	fl.Float64Var(&f.smtbf, "SMTBF", -1, "mean time between single-machine failures (-1 disables SMTBF mode)")
	fl.Float64Var(&f.fixedFailures, "fixed-failures", -1, "constant failure interval, simulated seconds (-1 disables)")
	fl.Float64Var(&f.repairTime, "repair-time", -1, "fixed repair duration, simulated seconds (-1 draws from MTTR)")
	fl.Float64Var(&f.mttr, "MTTR", 0, "mean time to repair, used when --repair-time is -1")
	fl.Int64Var(&f.seedFailures, "seed-failures", 0, "PRNG seed for failure injection (unset uses the wall clock)")

	fl.BoolVar(&f.checkpointingOn, "checkpointing-on", false, "enable application-level checkpointing forwarded to the scheduler")
	fl.BoolVar(&f.computeCheckpointing, "compute_checkpointing", false, "apply Young's-formula optimal checkpoint-interval computation")
	fl.Float64Var(&f.checkpointingInterval, "checkpointing-interval", -1, "fixed application-level checkpoint interval override")
	fl.Float64Var(&f.computeCheckpointingError, "compute_checkpointing_error", 1.0, "checkpoint-interval computation error factor")
	fl.StringVar(&f.checkpointBatsimInterval, "checkpoint-batsim-interval", "", "real|simulated:DAYS-HH:MM:SS[:keep] simulator-level snapshot cadence")
	fl.IntVar(&f.checkpointBatsimKeep, "checkpoint-batsim-keep", 3, "number of rotated simulator-level snapshots to retain")
	fl.IntVar(&f.startFromCheckpoint, "start-from-checkpoint", 0, "rotation slot to cold-start from (0 = fresh start)")

	fl.StringVar(&f.copySpec, "copy", "", "copy/jitter the workload before running: <#copies>[:(+|-):v:fixed|:(+|-):a:b:unif:(single|each-copy|all)[:seed]|:=:v:fixed|:=:mean:exp[:seed]|:=:a:b:unif[:seed]]")
	fl.StringVar(&f.submissionTimeBefore, "submission-time-before", "", "rewrite submission times before the copy step: v:fixed | mean:exp[:seed] | a:b:unif[:seed] | shuffle[:seed]")
	fl.StringVar(&f.submissionTimeAfter, "submission-time-after", "", "rewrite submission times after the copy step, same grammar as --submission-time-before")

	fl.BoolVar(&f.outputSVG, "output-svg", false, "emit an SVG Gantt chart export")
	fl.BoolVar(&f.enableScheduleTracing, "enable-schedule-tracing", false, "emit a schedule trace export")
	fl.BoolVar(&f.enableDynamicJobs, "enable-dynamic-jobs", false, "accept REGISTER_JOB/REGISTER_PROFILE from the scheduler")

	cmd.PreRun = func(_ *cobra.Command, _ []string) {
		f.hasSeed = fl.Changed("seed-failures")
	}
	return cmd, f
}

func toConfig(f *cliFlags) *config.Config {
	c := &config.Config{
		Platform:       f.platform,
		Workload:       f.workloadPath,
		Workflow:       f.workflow,
		Events:         f.events,
		SocketEndpoint: f.socketEndpoint,
		Mmax:           f.mmax,
		MmaxWorkload:   f.mmaxWorkload,
		Failure: config.FailureConfig{
			MTBF:          f.mtbf,
			SMTBF:         f.smtbf,
			FixedFailures: f.fixedFailures,
			RepairTime:    f.repairTime,
			MTTR:          f.mttr,
		},
		Checkpoint: config.CheckpointConfig{
			On:                        f.checkpointingOn,
			ComputeCheckpointing:      f.computeCheckpointing,
			CheckpointingInterval:     f.checkpointingInterval,
			ComputeCheckpointingError: f.computeCheckpointingError,
			BatsimInterval:            f.checkpointBatsimInterval,
			BatsimKeep:                f.checkpointBatsimKeep,
			StartFrom:                 f.startFromCheckpoint,
		},
		Copy:                  f.copySpec,
		SubmissionTimeBefore:  f.submissionTimeBefore,
		SubmissionTimeAfter:   f.submissionTimeAfter,
		OutputSVG:             f.outputSVG,
		EnableScheduleTracing: f.enableScheduleTracing,
		EnableDynamicJobs:     f.enableDynamicJobs,
	}
	if f.hasSeed {
		c.Failure.Seed = &f.seedFailures
	}
	if f.workflow != "" {
		start := 0.0
		c.WorkflowStart = &start
	}
	return c
}

func run(f *cliFlags) error {
	cfg := toConfig(f)
	acc := cfg.Validate(func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
	if acc.HasErrors() {
		for _, e := range acc.Errors() {
			log.WithError(e).Error("batsim: configuration invalid")
		}
		return batsimerrors.NewBatsimError(acc.Errors()[0], acc.ExitCode())
	}

	workloads, timers, err := loadWorkloads(cfg)
	if err != nil {
		return err
	}

	nbMachines := cfg.Mmax
	if nbMachines == 0 {
		for _, w := range workloads {
			if w.NbMachines > nbMachines {
				nbMachines = w.NbMachines
			}
		}
	}
	if nbMachines == 0 {
		nbMachines = 1
	}
	// cmd/batsim drives the core against the deterministic in-memory backend
	// until a real platform-physics adapter is wired in.
	backend := simbackend.NewFakeBackend(nbMachines)
	roster := machine.NewRoster(backend, -1, nil)

	st := stats.New()

	transport, err := server.Listen(cfg.SocketEndpoint)
	if err != nil {
		return err
	}
	defer transport.Close()

	srv := server.New(server.Config{
		Backend:           backend,
		Roster:            roster,
		Workloads:         workloads,
		Transport:         transport,
		Factory:           &jobactor.Factory{Backend: backend, Stats: st.Scope("jobactor")},
		Stats:             st,
		EnableDynamicJobs: cfg.EnableDynamicJobs,
	})

	for _, w := range workloads {
		srv.ScheduleStaticSubmissions(w)
	}
	for _, tm := range timers {
		srv.ArmTimer(tm.Target, tm.ID, server.Purpose(tm.Purpose))
	}

	if cfg.Checkpoint.On {
		dir := checkpointDir(cfg)
		keep := cfg.Checkpoint.BatsimKeep
		iv, ivErr := config.ParseBatsimInterval(cfg.Checkpoint.BatsimInterval)
		if ivErr == nil && iv.Keep > 0 {
			keep = iv.Keep
		}
		mgr := checkpoint.New(srv, workloads, dir, keep)
		srv.Checkpointer = mgr
		if ivErr == nil && iv.Seconds > 0 {
			srv.ArmTimer(backend.Now()+iv.Seconds, "checkpoint-batsim", server.PurposeCheckpointBatsim)
		}
	}

	injCfg := failure.Config{
		MTBF:          cfg.Failure.MTBF,
		SMTBF:         cfg.Failure.SMTBF,
		FixedFailures: cfg.Failure.FixedFailures,
		RepairTime:    cfg.Failure.RepairTime,
		MTTR:          cfg.Failure.MTTR,
		Rng:           failure.NewSeededRng(cfg.Failure.Seed),
	}
	if injCfg.MTBF > 0 || injCfg.SMTBF > 0 || injCfg.FixedFailures > 0 {
		failure.New(srv, injCfg).Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 24*time.Hour)
	defer cancel()
	runErr := srv.Run(ctx)

	if cfg.OutputSVG || cfg.EnableScheduleTracing {
		allJobs := allJobsOf(workloads)
		if cfg.EnableScheduleTracing {
			if err := export.WriteScheduleTrace(cfg.Workload+".trace.json", allJobs); err != nil {
				log.WithError(err).Warn("batsim: schedule trace export failed")
			}
		}
		if cfg.OutputSVG {
			if err := export.WriteGanttSVG(cfg.Workload+".gantt.svg", allJobs, nbMachines); err != nil {
				log.WithError(err).Warn("batsim: gantt SVG export failed")
			}
		}
	}
	return runErr
}

// allJobsOf flattens every loaded workload's jobs, for the end-of-run
// --output-svg/--enable-schedule-tracing export toggles.
func allJobsOf(workloads map[string]*workload.Workload) []*job.Job {
	var jobs []*job.Job
	for _, w := range workloads {
		for _, j := range w.Jobs {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

func loadWorkloads(cfg *config.Config) (map[string]*workload.Workload, []server.TimerSnapshot, error) {
	if cfg.Checkpoint.StartFrom > 0 {
		slot := filepath.Join(checkpointDir(cfg), fmt.Sprintf("_%d", cfg.Checkpoint.StartFrom))
		return checkpoint.Restore(slot)
	}
	w, err := workload.Load("main", cfg.Workload)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MmaxWorkload > 0 && w.NbMachines > cfg.MmaxWorkload {
		w.NbMachines = cfg.MmaxWorkload
	}

	// The transformation pipeline runs in a fixed order: rewrite submission
	// times, then copy, then rewrite again, matching how --submission-
	// time-after is documented to apply after the copy step.
	if cfg.SubmissionTimeBefore != "" {
		if err := applySubmissionRewrite(w, cfg.SubmissionTimeBefore); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Copy != "" {
		copyCfg, err := workload.ParseCopySpec(cfg.Copy)
		if err != nil {
			return nil, nil, err
		}
		// Copies are numbered after the highest numeric job id already loaded.
		startID := 1
		for name := range w.Jobs {
			if n, err := w.JobIdentifier(name).JobNumber(); err == nil && n >= startID {
				startID = n + 1
			}
		}
		if _, err := workload.Copy(w, copyCfg, startID); err != nil {
			return nil, nil, err
		}
	}
	if cfg.SubmissionTimeAfter != "" {
		if err := applySubmissionRewrite(w, cfg.SubmissionTimeAfter); err != nil {
			return nil, nil, err
		}
	}
	return map[string]*workload.Workload{w.Name: w}, nil, nil
}

// applySubmissionRewrite parses spec and applies it to w via
// workload.ChangeSubmits.
func applySubmissionRewrite(w *workload.Workload, spec string) error {
	rw, seed, err := workload.ParseSubmissionRewrite(spec)
	if err != nil {
		return err
	}
	return workload.ChangeSubmits(w, rw, workload.NewSeededRng(seed))
}

func checkpointDir(cfg *config.Config) string {
	if cfg.Workload != "" {
		return cfg.Workload + ".checkpoints"
	}
	return "checkpoints"
}
