// Package server implements the event-loop server: the single-threaded
// loop that orders scheduler events, submission events, completion events,
// wall-time/failure kills, and call-me-later timers, and serializes
// scheduler decisions at each round trip.
package server

import (
	"context"
	"encoding/json"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/machine"
	"github.com/hpc/batsim4/protocol"
	"github.com/hpc/batsim4/simbackend"
	"github.com/hpc/batsim4/stats"
	"github.com/hpc/batsim4/workload"
)

// Server is the event-loop server. One Server drives one simulation run.
type Server struct {
	backend   simbackend.Backend
	roster    *machine.Roster
	workloads map[string]*workload.Workload
	transport Transport
	factory   JobActorFactory
	stats     stats.StatsReceiver
	log       *log.Entry

	pending     *eventQueue
	timers      *timerQueue
	running     map[string]Actor
	busy        map[int]bool // machine id -> occupied by a running job's allocation
	completions chan Completion

	registrationOpen           bool
	remainingStaticSubmissions int
	telemetry                  map[string]float64

	writer *protocol.Writer
	ended  bool

	// timerHooks lets the failure injector (C10) and checkpoint manager
	// (C11) react to their own internally-armed timer purposes without the
	// server importing either package; unregistered purposes fall back to
	// the generic scheduler-requested REQUESTED_CALL response.
	timerHooks map[Purpose]func(now float64, id string)

	// Checkpointer is the C11 tap: if set, its Snapshot is invoked when the
	// scheduler NOTIFYs "checkpoint" and on the CHECKPOINT_BATSIM timer.
	Checkpointer Checkpointer
}

// Checkpointer is the server's view of the checkpoint manager (C11).
type Checkpointer interface {
	Snapshot(now float64) error
}

// Config bundles the dependencies a Server needs at construction.
type Config struct {
	Backend   simbackend.Backend
	Roster    *machine.Roster
	Workloads map[string]*workload.Workload
	Transport Transport
	Factory   JobActorFactory
	Stats     stats.StatsReceiver

	// EnableDynamicJobs mirrors the --enable-dynamic-jobs CLI flag: whether
	// REGISTER_JOB/REGISTER_PROFILE are accepted at all. Registration stays
	// open until the scheduler NOTIFYs "registration_finished".
	EnableDynamicJobs bool
}

// New builds a Server ready to Run.
func New(cfg Config) *Server {
	st := cfg.Stats
	if st == nil {
		st = stats.Nil()
	}
	return &Server{
		backend:     cfg.Backend,
		roster:      cfg.Roster,
		workloads:   cfg.Workloads,
		transport:   cfg.Transport,
		factory:     cfg.Factory,
		stats:       st.Scope("server"),
		log:         log.WithField("component", "server"),
		pending:     newEventQueue(),
		timers:      newTimerQueue(),
		running:     make(map[string]Actor),
		busy:        make(map[int]bool),
		completions: make(chan Completion, 64),
		telemetry:   make(map[string]float64),
		writer:             protocol.NewWriter(0),
		timerHooks:         make(map[Purpose]func(now float64, id string)),
		registrationOpen:   cfg.EnableDynamicJobs,
	}
}

// RegisterTimerHook installs the callback invoked when a timer armed with
// purpose fires, instead of the default REQUESTED_CALL response. Used by
// the failure injector and checkpoint manager to react to their own
// internally-armed timers.
func (s *Server) RegisterTimerHook(purpose Purpose, fn func(now float64, id string)) {
	s.timerHooks[purpose] = fn
}

// ScheduleStaticSubmissions enqueues a JOB_SUBMITTED event for every job in
// w whose submission is static (loaded from the workload file rather than
// registered dynamically by the scheduler), at the job's SubmissionTime.
func (s *Server) ScheduleStaticSubmissions(w *workload.Workload) {
	for _, j := range w.Jobs {
		id := jobid.New(w.Name, j.ID.Name).String()
		s.pending.push(j.SubmissionTime, SourceSubmission, id, "")
		s.remainingStaticSubmissions++
	}
}

// PostEvent enqueues a pending inbound event, called by submission sources,
// the failure injector, and the checkpoint manager's timers. Job actors use
// the Completions channel instead (see ActorSpec).
func (s *Server) PostEvent(ts float64, source SourceKind, jobID, reason string) {
	s.pending.push(ts, source, jobID, reason)
}

// ArmTimer installs a call-me-later, consumed in non-decreasing target_time
// order.
func (s *Server) ArmTimer(target float64, id string, purpose Purpose) {
	s.timers.arm(target, id, purpose)
}

// Now returns the server's current simulated time.
func (s *Server) Now() float64 { return s.backend.Now() }

// Roster exposes the machine roster to handlers and injectors.
func (s *Server) Roster() *machine.Roster { return s.roster }

// Workload looks up a loaded workload by name.
func (s *Server) Workload(name string) (*workload.Workload, bool) {
	w, ok := s.workloads[name]
	return w, ok
}

// RunningJobIDs returns a snapshot of the canonical ids of every job
// currently executing, for the failure injector's (C10) victim selection.
func (s *Server) RunningJobIDs() []string {
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	return ids
}

// JobAllocation returns the allocation of a job by canonical id, if that
// job is known to the server's loaded workloads.
func (s *Server) JobAllocation(jobID string) (*interval.Set, bool) {
	j, _, err := s.lookupJobAndWorkload(jobID)
	if err != nil {
		return nil, false
	}
	return j.Allocation, true
}

// KillRunningJob signals the named running job's actor to stop, tagging the
// kill with forWhat (e.g. "MTBF", "SMTBF"). A no-op if the job is not
// currently running, mirroring handleKillJob's tolerant behavior for ids
// the failure injector can no longer find (the job may have finished in
// the same instant the injector fired).
func (s *Server) KillRunningJob(jobID, forWhat string) {
	if actor, ok := s.running[jobID]; ok {
		actor.Kill(forWhat)
	}
}

// TimerSnapshot is a serializable view of one armed call-me-later, for the
// checkpoint manager's pending-timer snapshot (every call-me-later with
// target_time >= now).
type TimerSnapshot struct {
	Target  float64
	ID      string
	Purpose string
}

// PendingTimers returns a snapshot of every currently-armed call-me-later
// with Target >= now, in no particular order (the checkpoint loader
// re-arms each independently on restore).
func (s *Server) PendingTimers(now float64) []TimerSnapshot {
	out := make([]TimerSnapshot, 0, s.timers.h.Len())
	for _, tm := range s.timers.h {
		if tm.Target >= now {
			out = append(out, TimerSnapshot{Target: tm.Target, ID: tm.ID, Purpose: string(tm.Purpose)})
		}
	}
	return out
}

// NotifyResourceEvent emits a NOTIFY carrying a resource set, mirroring the
// event_resource_available/event_resource_unavailable pair. Used by the
// failure injector to report machine-level availability changes outside of
// the scheduler-initiated SET_RESOURCE_STATE path.
func (s *Server) NotifyResourceEvent(now float64, notifyType string, resources *interval.Set) {
	s.writer.Append(now, protocol.Notify, mustMarshal(notifyResourcePayload{
		Type:      notifyType,
		Resources: resources.String(),
	}))
}

// Completions exposes the shared channel job actors post to, for wiring
// into a JobActorFactory constructed outside this package.
func (s *Server) Completions() chan<- Completion { return s.completions }

// Run drives the round-trip algorithm until the scheduler signals
// completion or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.sendInitial(ctx); err != nil {
		return err
	}
	for !s.ended {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.roundTrip(ctx); err != nil {
			return err
		}
	}
	return nil
}

// sendInitial emits SIMULATION_BEGINS, the scheduler's first message.
func (s *Server) sendInitial(ctx context.Context) error {
	now := s.backend.Now()
	s.writer.Append(now, protocol.SimulationBegins, mustMarshal(struct{}{}))
	err := s.sendAndAwait(ctx)
	s.writer.Clear(s.backend.Now())
	return err
}

// roundTrip advances the simulation by one round trip with the scheduler:
// wait for the next thing to happen, report it, and dispatch whatever the
// scheduler's reply requests. The writer may already hold events appended
// by a handler during the previous round's reply dispatch (e.g.
// RESOURCE_STATE_CHANGED); those are flushed alongside whatever becomes
// ready this round rather than discarded.
func (s *Server) roundTrip(ctx context.Context) error {
	now := s.nextWakeup()
	switch {
	case now == posInf && s.writer.Len() == 0 && len(s.running) > 0:
		// No timer or queued event is due, but a job actor is still in
		// flight: wait for it to report rather than ending the run out from
		// under it.
		return s.awaitCompletion(ctx)
	case now == posInf && s.writer.Len() == 0:
		return s.finish(ctx)
	case now == posInf:
		now = s.backend.Now()
	default:
		if err := s.backend.Sleep(ctx, now); err != nil {
			return errors.Wrap(err, "server: sleep to next wake-up")
		}
		now = s.backend.Now()
	}

	s.drainCompletions(now)
	for _, tm := range s.timers.popReady(now) {
		s.fireTimer(now, tm)
	}
	ready := s.pending.popReady(now)
	for _, ev := range ready {
		s.emit(now, ev)
	}
	if len(ready) == 0 && s.writer.Len() == 0 {
		return nil // nothing to report yet; loop back to compute the next wake-up
	}

	err := s.sendAndAwait(ctx)
	s.writer.Clear(s.backend.Now())
	return err
}

// awaitCompletion blocks for the next job-actor completion (or ctx
// cancellation), then folds it into the pending queue at the current
// simulated time so the next roundTrip's nextWakeup picks it up normally.
func (s *Server) awaitCompletion(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c := <-s.completions:
		now := s.backend.Now()
		delete(s.running, c.JobID)
		s.releaseBusy(c.JobID)
		source := SourceJobCompletion
		if c.State.IsTerminal() && c.Reason != "" {
			source = SourceJobKilled
		}
		s.pending.push(now, source, c.JobID, c.Reason)
		return nil
	}
}

// drainCompletions folds any job-actor completions that have already
// arrived into the pending queue, at the current simulated time.
func (s *Server) drainCompletions(now float64) {
	for {
		select {
		case c := <-s.completions:
			delete(s.running, c.JobID)
			s.releaseBusy(c.JobID)
			source := SourceJobCompletion
			if c.State.IsTerminal() && c.Reason != "" {
				source = SourceJobKilled
			}
			s.pending.push(now, source, c.JobID, c.Reason)
		default:
			return
		}
	}
}

// nextWakeup computes the minimum of the next pending event's timestamp and
// the next timer's target.
func (s *Server) nextWakeup() float64 {
	t := s.pending.peekTimestamp()
	if tt := s.timers.peekTarget(); tt < t {
		t = tt
	}
	return t
}

// finish emits SIMULATION_ENDS and marks the run complete.
func (s *Server) finish(ctx context.Context) error {
	now := s.backend.Now()
	s.writer.Append(now, protocol.SimulationEnds, mustMarshal(struct{}{}))
	s.ended = true
	return s.sendAndAwait(ctx)
}

// sendAndAwait serializes the writer's accumulated events, sends them, and
// blocks for the scheduler's reply, dispatching every event in it.
func (s *Server) sendAndAwait(ctx context.Context) error {
	msg := s.writer.Message()
	raw, err := protocol.Encode(msg)
	if err != nil {
		return errors.Wrap(err, "server: encode outbound message")
	}
	s.stats.Counter("messages_sent").Inc(1)
	if err := s.transport.Send(raw); err != nil {
		return err
	}
	if s.ended {
		return nil
	}

	replyRaw, err := s.transport.Receive()
	if err != nil {
		return err
	}
	reply, err := protocol.Decode(replyRaw)
	if err != nil {
		return err
	}
	s.stats.Counter("messages_received").Inc(1)
	// The backend advances simulated time to the reply's arrival; a fake or
	// real backend is responsible for making Now() reflect reply.Now.
	for _, ev := range reply.Events {
		if err := s.dispatch(ctx, reply.Now, ev); err != nil {
			return err
		}
	}
	return nil
}

// dispatch routes one inbound event to its handler.
func (s *Server) dispatch(ctx context.Context, now float64, ev protocol.Event) error {
	switch ev.Type {
	case protocol.RejectJob:
		return s.handleRejectJob(ev.Data)
	case protocol.ExecuteJob:
		return s.handleExecuteJob(ev.Data)
	case protocol.CallMeLater:
		return s.handleCallMeLater(ev.Data)
	case protocol.KillJob:
		return s.handleKillJob(ev.Data)
	case protocol.SetResourceState:
		return s.handleSetResourceState(ev.Data)
	case protocol.Notify:
		return s.handleNotify(now, ev.Data)
	case protocol.RegisterJob:
		return s.handleRegisterJob(now, ev.Data)
	case protocol.RegisterProfile:
		return s.handleRegisterProfile(ev.Data)
	case protocol.Query, protocol.Answer,
		protocol.SetJobMetadata, protocol.ChangeJobState, protocol.ToJobMsg:
		// Recognized but not modeled by the core simulation; acknowledged
		// without side effects; these event types are not modeled by the core
		// simulation.
		s.log.WithField("type", ev.Type).Debug("server: event acknowledged, no core handler")
		return nil
	default:
		s.log.WithField("event", spew.Sdump(ev)).Debug("server: unrecognized inbound event")
		return &protocol.ProtocolError{Reason: "no handler registered for event type " + string(ev.Type)}
	}
}

// unmarshal is a small helper shared by the handler file.
func unmarshal(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "server: decode event payload")
	}
	return nil
}
