// Package failure implements the failure injector: an independent source of
// job kills and machine outages, layered on top of the event server's own
// timer queue rather than woven into the scheduler round trip.
package failure

import (
	"context"
	"math/rand"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/hpc/batsim4/server"
)

// Config bundles the CLI-level failure-injection knobs (--MTBF, --SMTBF,
// --fixed-failures, --repair-time, --MTTR, --seed-failures).
type Config struct {
	MTBF          float64 // <=0 disables MTBF mode
	SMTBF         float64 // <=0 disables SMTBF mode
	FixedFailures float64 // <=0 disables fixed-interval mode
	RepairTime    float64 // <0 means "draw Exp(MTTR)" for each repair instead
	MTTR          float64
	Rng           *rand.Rand // seeded by --seed-failures; see NewSeededRng
}

// NewSeededRng mirrors workload.NewSeededRng: a nil seed draws entropy from
// the current time, a non-nil seed makes the failure sequence reproducible.
func NewSeededRng(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Injector owns no simulated-time clock of its own: it arms call-me-later
// timers on the server and reacts only when one fires, the same mechanism
// the scheduler uses for CALL_ME_LATER, so failures interleave with
// scheduler traffic through the server's single event loop rather than a
// second goroutine racing it.
type Injector struct {
	srv *server.Server
	cfg Config
	log *log.Entry

	// armGuard rejects an arm/fire loop that would otherwise spin without
	// bound if a CLI interval were misconfigured to (near) zero; it is not
	// meant to throttle any legitimately-spaced failure.
	armGuard *rate.Limiter
}

const failureTimerID = "failure"

// New builds an Injector bound to srv. Call Start once the server's
// workloads and roster are in place.
func New(srv *server.Server, cfg Config) *Injector {
	if cfg.Rng == nil {
		cfg.Rng = NewSeededRng(nil)
	}
	return &Injector{
		srv:      srv,
		cfg:      cfg,
		log:      log.WithField("component", "failure"),
		armGuard: rate.NewLimiter(rate.Limit(1000), 1000),
	}
}

// Start registers this injector's timer hooks and arms the first
// occurrence of every enabled mode.
func (inj *Injector) Start() {
	inj.srv.RegisterTimerHook(server.PurposeMTBF, inj.onMTBF)
	inj.srv.RegisterTimerHook(server.PurposeSMTBF, inj.onSMTBF)
	inj.srv.RegisterTimerHook(server.PurposeFixedFailure, inj.onFixed)
	inj.srv.RegisterTimerHook(server.PurposeRepairDone, inj.onRepairDone)

	now := inj.srv.Now()
	if inj.cfg.MTBF > 0 {
		inj.armMTBF(now)
	}
	if inj.cfg.SMTBF > 0 {
		inj.armSMTBF(now)
	}
	if inj.cfg.FixedFailures > 0 {
		inj.armFixed(now)
	}
}

func (inj *Injector) exp(mean float64) float64 {
	return inj.cfg.Rng.ExpFloat64() * mean
}

// arm installs the next timer for purpose, guarded against runaway spacing.
func (inj *Injector) arm(now, interval float64, purpose server.Purpose) {
	if interval <= 0 {
		inj.log.WithField("purpose", purpose).Warn("failure: non-positive interval, not re-arming")
		return
	}
	if err := inj.armGuard.Wait(context.Background()); err != nil {
		inj.log.WithError(err).Warn("failure: arm guard wait")
	}
	inj.srv.ArmTimer(now+interval, failureTimerID, purpose)
}

func (inj *Injector) armMTBF(now float64) {
	inj.arm(now, inj.exp(inj.cfg.MTBF), server.PurposeMTBF)
}

func (inj *Injector) armSMTBF(now float64) {
	inj.arm(now, inj.exp(inj.cfg.SMTBF), server.PurposeSMTBF)
}

func (inj *Injector) armFixed(now float64) {
	inj.arm(now, inj.cfg.FixedFailures, server.PurposeFixedFailure)
}

// firstRunning returns the lexicographically-first running job id, a
// deterministic stand-in for "the first job in the running list" now that
// running jobs are held in a map rather than an ordered list.
func firstRunning(ids []string) (string, bool) {
	if len(ids) == 0 {
		return "", false
	}
	sort.Strings(ids)
	return ids[0], true
}

// onMTBF kills the first running job with forWhat = MTBF and re-arms the
// next exponential interval.
func (inj *Injector) onMTBF(now float64, _ string) {
	if id, ok := firstRunning(inj.srv.RunningJobIDs()); ok {
		inj.log.WithField("job_id", id).Info("failure: MTBF kill")
		inj.srv.KillRunningJob(id, "MTBF")
	}
	inj.armMTBF(now)
}

// onSMTBF selects one compute machine uniformly at random, kills every
// running job whose allocation touches it, and puts the machine through a
// repair cycle.
func (inj *Injector) onSMTBF(now float64, _ string) {
	inj.failMachineAndRearm(now, "SMTBF", inj.armSMTBF)
}

// onFixed behaves like onSMTBF but fires at a constant period instead of an
// exponential one: it shares SMTBF's machine-level victim rule and repair
// cycle and differs only in timing.
func (inj *Injector) onFixed(now float64, _ string) {
	inj.failMachineAndRearm(now, "FIXED_FAILURE", inj.armFixed)
}

func (inj *Injector) failMachineAndRearm(now float64, forWhat string, rearm func(float64)) {
	machines := inj.srv.Roster().ComputeMachines()
	if len(machines) == 0 {
		rearm(now)
		return
	}
	victim := machines[inj.cfg.Rng.Intn(len(machines))]
	for _, id := range inj.srv.RunningJobIDs() {
		alloc, ok := inj.srv.JobAllocation(id)
		if !ok || alloc == nil || !alloc.Contains(victim) {
			continue
		}
		inj.log.WithFields(log.Fields{"job_id": id, "machine": victim}).Info("failure: machine-level kill")
		inj.srv.KillRunningJob(id, forWhat)
	}
	inj.fail(now, victim)
	rearm(now)
}
