package failure

import (
	"strconv"
	"strings"

	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/machine"
	"github.com/hpc/batsim4/server"
)

// repairTimerIDPrefix prefixes the machine id so a single REPAIR_DONE timer
// hook can recover which machine to restore without a side table; the
// server's callMeLater.ID field is otherwise opaque to it.
const repairTimerIDPrefix = "repair:"

func machineTimerID(id int) string {
	return repairTimerIDPrefix + strconv.Itoa(id)
}

func parseMachineTimerID(s string) (int, bool) {
	rest := strings.TrimPrefix(s, repairTimerIDPrefix)
	if rest == s {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// fail marks machine id unavailable, notifies the scheduler, and arms its
// repair: the machine stays unavailable for repair_time (or Exp(MTTR))
// until a REPAIR_DONE timer restores it and emits event_resource_available.
func (inj *Injector) fail(now float64, id int) {
	if err := inj.srv.Roster().SetState(id, machine.Unavailable); err != nil {
		inj.log.WithError(err).WithField("machine", id).Warn("failure: set machine unavailable")
		return
	}
	inj.srv.NotifyResourceEvent(now, "event_resource_unavailable", interval.FromSlice([]int{id}))

	repair := inj.cfg.RepairTime
	if repair < 0 {
		repair = inj.exp(inj.cfg.MTTR)
	}
	if repair <= 0 {
		inj.log.WithField("machine", id).Warn("failure: non-positive repair duration, machine stays unavailable")
		return
	}
	inj.srv.ArmTimer(now+repair, machineTimerID(id), server.PurposeRepairDone)
}

// onRepairDone restores the machine named by the timer id and tells the
// scheduler it is available again.
func (inj *Injector) onRepairDone(now float64, id string) {
	machineID, ok := parseMachineTimerID(id)
	if !ok {
		inj.log.WithField("timer_id", id).Warn("failure: REPAIR_DONE with unparseable machine id")
		return
	}
	if err := inj.srv.Roster().SetState(machineID, machine.Idle); err != nil {
		inj.log.WithError(err).WithField("machine", machineID).Warn("failure: restore machine after repair")
		return
	}
	inj.srv.NotifyResourceEvent(now, "event_resource_available", interval.FromSlice([]int{machineID}))
}
