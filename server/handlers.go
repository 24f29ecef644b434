package server

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	uuid "github.com/nu7hatch/gouuid"

	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/machine"
	"github.com/hpc/batsim4/profile"
	"github.com/hpc/batsim4/protocol"
	"github.com/hpc/batsim4/workload"
)

// generateJobName allocates a fresh job name for a dynamically-registered
// job whose scheduler-supplied id left the name half empty (e.g.
// "dyn!"), asking batsim to pick one itself.
func generateJobName() string {
	for {
		if id, err := uuid.NewV4(); err == nil {
			return id.String()
		}
	}
}

// lookupJob resolves a canonical jobid string to its Job.
func (s *Server) lookupJob(idStr string) (*job.Job, error) {
	j, _, err := s.lookupJobAndWorkload(idStr)
	return j, err
}

// lookupJobAndWorkload additionally returns the owning Workload, for
// handlers that need its profile store (EXECUTE_JOB's additional_io_job).
func (s *Server) lookupJobAndWorkload(idStr string) (*job.Job, *workload.Workload, error) {
	id, err := jobid.Parse(idStr)
	if err != nil {
		return nil, nil, err
	}
	w, ok := s.workloads[id.Workload]
	if !ok {
		return nil, nil, errors.Errorf("server: unknown workload %q in job id %q", id.Workload, idStr)
	}
	j, ok := w.Job(id.Name)
	if !ok {
		return nil, nil, errors.Errorf("server: unknown job %q in workload %q", id.Name, id.Workload)
	}
	return j, w, nil
}

// emit serializes one ready pendingEvent into the current outbound message.
func (s *Server) emit(now float64, ev *pendingEvent) {
	switch ev.Source {
	case SourceSubmission:
		s.writer.Append(now, protocol.JobSubmitted, mustMarshal(jobSubmittedPayload{JobID: ev.JobID}))
		if j, err := s.lookupJob(ev.JobID); err == nil {
			j.RecordSubmission(now)
		}
		if s.remainingStaticSubmissions > 0 {
			s.remainingStaticSubmissions--
			if s.remainingStaticSubmissions == 0 {
				s.writer.Append(now, protocol.Notify, mustMarshal(notifyPayload{Type: "no_more_static_job_to_submit"}))
			}
		}
	case SourceJobCompletion:
		j, err := s.lookupJob(ev.JobID)
		if err != nil {
			s.log.WithError(err).Warn("server: completion for unknown job")
			return
		}
		s.writer.Append(now, protocol.JobCompleted, mustMarshal(jobCompletedPayload{
			JobID:      ev.JobID,
			JobState:   j.State.String(),
			Alloc:      j.Allocation.String(),
			ReturnCode: j.ReturnCode,
		}))
	case SourceJobKilled:
		j, err := s.lookupJob(ev.JobID)
		progress := 0.0
		if err == nil {
			progress = j.Progress
		}
		s.writer.Append(now, protocol.JobKilled, mustMarshal(jobKilledPayload{
			JobMsgs: []killedJobMsg{{ID: ev.JobID, ForWhat: ev.Reason, JobProgress: progress}},
		}))
	case SourceExternal:
		s.writer.Append(now, protocol.Notify, mustMarshal(notifyPayload{Type: ev.Reason}))
	case SourceFailureTimer, SourceCheckpointTimer:
		s.writer.Append(now, protocol.RequestedCall, mustMarshal(requestedCallPayload{ID: ev.JobID, ForWhat: ev.Reason}))
	}
}

// fireTimer reacts to an expired call-me-later. A few purposes are handled
// immediately rather than re-queued as a generic requested call.
func (s *Server) fireTimer(now float64, tm *callMeLater) {
	if hook, ok := s.timerHooks[tm.Purpose]; ok {
		hook(now, tm.ID)
		return
	}
	switch tm.Purpose {
	case PurposeCheckpointBatsim:
		if s.Checkpointer != nil {
			if err := s.Checkpointer.Snapshot(now); err != nil {
				s.log.WithError(err).Error("server: checkpoint snapshot failed")
			}
		}
	case PurposeRecover:
		// Recovery is driven entirely by the checkpoint loader at startup;
		// a RECOVER timer with no registered hook is a no-op by design.
	default:
		// No purpose-specific hook: treat as the generic scheduler-requested
		// CALL_ME_LATER ack and emit a REQUESTED_CALL event back.
		s.pending.push(now, SourceFailureTimer, tm.ID, string(tm.Purpose))
	}
}

func (s *Server) handleRejectJob(data []byte) error {
	var p rejectJobPayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	j, err := s.lookupJob(p.JobID)
	if err != nil {
		return err
	}
	state := job.RejectedNotEnoughResources
	if p.Reason != "" {
		if parsed, err := job.FromString(p.Reason); err == nil && parsed.IsRejected() {
			state = parsed
		}
	}
	j.State = state
	return nil
}

// handleExecuteJob validates the allocation and mapping, then spawns a job
// actor. An allocation whose size disagrees with the job's request is a
// protocol violation and aborts the run; an allocation that is the right
// size but names machines the roster can't currently give out is a resource
// shortfall, reported back as a rejection without spawning anything.
func (s *Server) handleExecuteJob(data []byte) error {
	var p executeJobPayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	j, w, err := s.lookupJobAndWorkload(p.JobID)
	if err != nil {
		return err
	}
	alloc, err := interval.Parse(p.Alloc)
	if err != nil {
		return errors.Wrapf(err, "EXECUTE_JOB %s: bad alloc", p.JobID)
	}
	if alloc.IsEmpty() {
		return &protocol.ProtocolError{Reason: "EXECUTE_JOB " + p.JobID + ": alloc must not be empty"}
	}
	if alloc.Size() != j.RequestedNbRes {
		return &protocol.ProtocolError{Reason: fmt.Sprintf(
			"EXECUTE_JOB %s: allocation size %d does not match requested %d",
			p.JobID, alloc.Size(), j.RequestedNbRes)}
	}

	mapping, err := buildMapping(p.Mapping, alloc.Size())
	if err != nil {
		return errors.Wrapf(err, "EXECUTE_JOB %s", p.JobID)
	}

	var additionalIO *profile.Profile
	if p.AdditionalIO != "" {
		additionalIO, err = w.Profiles.Get(p.AdditionalIO)
		if err != nil {
			return errors.Wrapf(err, "EXECUTE_JOB %s: additional_io_job", p.JobID)
		}
	}

	now := s.backend.Now()
	if rejectState, ok := s.checkAllocationAvailable(alloc); ok {
		j.State = rejectState
		s.stats.Counter("jobs_rejected").Inc(1)
		s.pending.push(now, SourceJobCompletion, p.JobID, "")
		return nil
	}

	j.StartingTime = now
	j.Allocation = alloc
	j.State = job.Running
	s.markBusy(alloc)

	actor, err := s.factory.Spawn(ActorSpec{
		Job:                       j,
		Alloc:                     alloc,
		Mapping:                   mapping,
		StorageMapping:            p.StorageMapping,
		AdditionalIO:              additionalIO,
		Completions:               s.completions,
		NbMachines:                w.NbMachines,
		MTBF:                      w.MTBF,
		SMTBF:                     w.SMTBF,
		ComputeCheckpointing:      w.ComputeCheckpointing,
		ComputeCheckpointingError: w.ComputeCheckpointingError,
		GlobalCheckpointInterval:  w.GlobalCheckpointInterval,
	})
	if err != nil {
		return errors.Wrapf(err, "EXECUTE_JOB %s: spawn actor", p.JobID)
	}
	s.running[p.JobID] = actor
	s.stats.Counter("jobs_started").Inc(1)
	return nil
}

// buildMapping validates an optional logical->host mapping, defaulting to
// identity when absent; a supplied mapping must cover every index in
// [0, nbAllocated).
func buildMapping(raw map[string]int, nbAllocated int) ([]int, error) {
	if raw == nil {
		mapping := make([]int, nbAllocated)
		for i := range mapping {
			mapping[i] = i
		}
		return mapping, nil
	}
	mapping := make([]int, nbAllocated)
	seen := make([]bool, nbAllocated)
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= nbAllocated {
			return nil, errors.Errorf("mapping key %q out of range [0,%d)", k, nbAllocated)
		}
		mapping[idx] = v
		seen[idx] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, errors.Errorf("mapping does not cover index %d", i)
		}
	}
	return mapping, nil
}

// checkAllocationAvailable reports whether alloc collides with a running
// job's allocation or names a machine the roster can't currently give out:
// one not in the roster, one playing a non-compute role, or one in a
// power state other than idle or computing. The returned state distinguishes
// an outright capacity shortfall (every id valid but already spoken for)
// from an allocation naming specific unavailable machines.
func (s *Server) checkAllocationAvailable(alloc *interval.Set) (job.State, bool) {
	capacityShort := false
	for _, id := range alloc.Elements() {
		m, err := s.roster.Get(id)
		if err != nil || m.Role != machine.RoleCompute {
			return job.RejectedNotEnoughAvailableResources, true
		}
		switch m.State {
		case machine.Unavailable, machine.Sleeping, machine.SwitchingOn, machine.SwitchingOff:
			return job.RejectedNotEnoughAvailableResources, true
		}
		if s.busy[id] {
			capacityShort = true
		}
	}
	if capacityShort {
		return job.RejectedNotEnoughResources, true
	}
	return job.Unknown, false
}

// markBusy records alloc's machines as occupied by a running job, so a
// later EXECUTE_JOB cannot double-book them.
func (s *Server) markBusy(alloc *interval.Set) {
	for _, id := range alloc.Elements() {
		s.busy[id] = true
	}
}

// releaseBusy frees jobID's allocated machines once its actor has reported
// completion.
func (s *Server) releaseBusy(jobID string) {
	alloc, ok := s.JobAllocation(jobID)
	if !ok {
		return
	}
	for _, id := range alloc.Elements() {
		delete(s.busy, id)
	}
}

func (s *Server) handleCallMeLater(data []byte) error {
	var p callMeLaterPayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	now := s.backend.Now()
	if p.Timestamp < now {
		return &protocol.ProtocolError{Reason: "CALL_ME_LATER requests a timestamp in the past"}
	}
	s.timers.arm(p.Timestamp, p.ID, Purpose(p.ForWhat))
	return nil
}

// handleKillJob signals each requested actor to stop; the actor's
// Completion posts the progress snapshot that becomes the outbound
// JOB_KILLED entry.
func (s *Server) handleKillJob(data []byte) error {
	var p killJobPayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	for _, msg := range p.JobMsgs {
		actor, ok := s.running[msg.ID]
		if !ok {
			s.log.WithField("job_id", msg.ID).Warn("server: KILL_JOB for job with no running actor")
			continue
		}
		actor.Kill(msg.ForWhat)
	}
	return nil
}

// handleRegisterJob implements dynamic job registration (REGISTER_JOB): the
// named workload must already exist and must not already contain the job.
// An empty job name (e.g. "dyn!") asks batsim to allocate one itself.
func (s *Server) handleRegisterJob(now float64, data []byte) error {
	var p registerJobPayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	if !s.registrationOpen {
		return &protocol.ProtocolError{Reason: "REGISTER_JOB received but dynamic registration is not open"}
	}
	id, err := jobid.Parse(p.JobID)
	if err != nil {
		return errors.Wrap(err, "REGISTER_JOB")
	}
	w, ok := s.workloads[id.Workload]
	if !ok {
		return errors.Errorf("REGISTER_JOB: unknown workload %q", id.Workload)
	}
	if len(p.Job) == 0 {
		return &protocol.ProtocolError{Reason: "REGISTER_JOB " + p.JobID + ": no 'job' object (redis-backed registration is not supported)"}
	}

	name := id.Name
	if name == "" {
		name = generateJobName()
	}
	if _, exists := w.Job(name); exists {
		return errors.Errorf("REGISTER_JOB: job %q already registered in workload %q", name, id.Workload)
	}

	raw, err := patchJobID(p.Job, name)
	if err != nil {
		return errors.Wrap(err, "REGISTER_JOB")
	}
	j, err := workload.RegisterDynamicJob(w, raw)
	if err != nil {
		return errors.Wrap(err, "REGISTER_JOB")
	}
	s.pending.push(now, SourceSubmission, jobid.New(id.Workload, j.ID.Name).String(), "")
	return nil
}

// patchJobID rewrites raw's "id" field to name, so the job object the
// scheduler submitted matches the (possibly batsim-allocated) canonical id.
func patchJobID(raw json.RawMessage, name string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "invalid job object")
	}
	encodedName, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	fields["id"] = encodedName
	return json.Marshal(fields)
}

// handleRegisterProfile implements dynamic profile registration
// (REGISTER_PROFILE): the named workload must already exist; the profile is
// parsed and added to its profile store under profile_name.
func (s *Server) handleRegisterProfile(data []byte) error {
	var p registerProfilePayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	if !s.registrationOpen {
		return &protocol.ProtocolError{Reason: "REGISTER_PROFILE received but dynamic registration is not open"}
	}
	w, ok := s.workloads[p.WorkloadName]
	if !ok {
		return errors.Errorf("REGISTER_PROFILE: unknown workload %q", p.WorkloadName)
	}
	parsed, err := profile.Parse(p.ProfileName, p.Profile)
	if err != nil {
		return errors.Wrap(err, "REGISTER_PROFILE")
	}
	if err := w.Profiles.Add(parsed); err != nil {
		return errors.Wrap(err, "REGISTER_PROFILE")
	}
	if err := w.Profiles.Resolve(); err != nil {
		return errors.Wrap(err, "REGISTER_PROFILE")
	}
	return nil
}

func (s *Server) handleSetResourceState(data []byte) error {
	var p setResourceStatePayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	ids, err := interval.Parse(p.Resources)
	if err != nil {
		return err
	}
	state, err := parsePowerState(p.State)
	if err != nil {
		return err
	}
	for _, id := range ids.Elements() {
		if err := s.roster.SetState(id, state); err != nil {
			return err
		}
	}
	now := s.backend.Now()
	s.writer.Append(now, protocol.ResourceStateChanged, mustMarshal(resourceStateChangedPayload{
		Resources: ids.String(),
		State:     p.State,
	}))
	return nil
}

func parsePowerState(s string) (machine.PowerState, error) {
	switch s {
	case "idle":
		return machine.Idle, nil
	case "computing":
		return machine.Computing, nil
	case "switching_on":
		return machine.SwitchingOn, nil
	case "switching_off":
		return machine.SwitchingOff, nil
	case "sleeping":
		return machine.Sleeping, nil
	case "unavailable":
		return machine.Unavailable, nil
	default:
		return 0, errors.Errorf("server: unknown resource state %q", s)
	}
}

// handleNotify dispatches on NOTIFY's purpose-specific "type" field.
func (s *Server) handleNotify(now float64, data []byte) error {
	var p inboundNotifyPayload
	if err := unmarshal(data, &p); err != nil {
		return err
	}
	switch p.Type {
	case "registration_finished":
		s.registrationOpen = false
	case "continue_registration":
		s.registrationOpen = true
	case "checkpoint":
		if s.Checkpointer != nil {
			return s.Checkpointer.Snapshot(now)
		}
	case "recover_from_checkpoint":
		s.timers.arm(now, "", PurposeRecover)
	default:
		if isScalarTelemetry(p.Type) {
			var v float64
			if len(p.Value) > 0 {
				_ = unmarshal(p.Value, &v)
			}
			s.telemetry[p.Type] = v
		}
	}
	return nil
}

func isScalarTelemetry(t string) bool {
	switch t {
	case "queue_size", "schedule_size", "number_running_jobs", "utilization", "utilization_no_resv", "PID":
		return true
	default:
		return false
	}
}
