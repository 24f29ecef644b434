// Package machine implements the compute/storage machine roster: a fixed
// inventory of machines with power-states and roles.
package machine

import (
	"fmt"

	"github.com/hpc/batsim4/simbackend"
)

// PowerState mirrors simbackend.HostPowerState but is the roster's own
// notion of state, settable independent of the backend's view (e.g. while a
// transition is pending).
type PowerState int

const (
	Idle PowerState = iota
	Computing
	SwitchingOn
	SwitchingOff
	Sleeping
	Unavailable
)

func (s PowerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Computing:
		return "computing"
	case SwitchingOn:
		return "switching_on"
	case SwitchingOff:
		return "switching_off"
	case Sleeping:
		return "sleeping"
	case Unavailable:
		return "unavailable"
	default:
		panic(fmt.Sprintf("machine: unexpected PowerState %d", int(s)))
	}
}

// Role tags what a Machine is used for.
type Role int

const (
	RoleCompute Role = iota
	RoleStorage
	RoleMaster
)

// Machine is a single entry in the roster.
type Machine struct {
	ID         int
	Name       string
	State      PowerState
	Cores      int
	Speed      float64 // flops/s
	RepairTime float64
	Properties map[string]string
	Role       Role
}

// Roster holds the fixed machine inventory for a simulation run. Machine ids
// form the contiguous range [0, len(machines)).
type Roster struct {
	machines []*Machine
	backend  simbackend.Backend
}

// NewRoster builds a Roster from the backend's host list, assigning role
// RoleCompute to every host except masterID, which is tagged RoleMaster and
// excluded from ComputeMachines.
func NewRoster(backend simbackend.Backend, masterID int, storageIDs map[int]bool) *Roster {
	hosts := backend.Hosts()
	machines := make([]*Machine, len(hosts))
	for i, h := range hosts {
		role := RoleCompute
		switch {
		case h.ID == masterID:
			role = RoleMaster
		case storageIDs[h.ID]:
			role = RoleStorage
		}
		machines[i] = &Machine{
			ID:         h.ID,
			Name:       h.Name,
			Cores:      h.Cores,
			Speed:      h.Speed,
			Properties: map[string]string{},
			Role:       role,
			State:      Idle,
		}
	}
	return &Roster{machines: machines, backend: backend}
}

// Get returns the machine with the given id.
func (r *Roster) Get(id int) (*Machine, error) {
	if id < 0 || id >= len(r.machines) {
		return nil, fmt.Errorf("machine: id %d out of range [0,%d)", id, len(r.machines))
	}
	return r.machines[id], nil
}

// Len returns the total number of machines in the roster.
func (r *Roster) Len() int { return len(r.machines) }

// ComputeMachines returns the ids of every machine with Role == RoleCompute.
// The master host is always excluded.
func (r *Roster) ComputeMachines() []int {
	var out []int
	for _, m := range r.machines {
		if m.Role == RoleCompute {
			out = append(out, m.ID)
		}
	}
	return out
}

// StorageMachines returns the ids of every machine with Role == RoleStorage.
func (r *Roster) StorageMachines() []int {
	var out []int
	for _, m := range r.machines {
		if m.Role == RoleStorage {
			out = append(out, m.ID)
		}
	}
	return out
}

// SetState requests a power-state transition for machine id, both updating
// the roster's own view and forwarding the request to the backend.
func (r *Roster) SetState(id int, state PowerState) error {
	m, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.backend.SetHostState(id, toBackendState(state)); err != nil {
		return err
	}
	m.State = state
	return nil
}

func toBackendState(s PowerState) simbackend.HostPowerState {
	switch s {
	case Computing:
		return simbackend.HostComputing
	case SwitchingOn:
		return simbackend.HostSwitchingOn
	case SwitchingOff:
		return simbackend.HostSwitchingOff
	case Sleeping:
		return simbackend.HostSleeping
	case Unavailable:
		return simbackend.HostUnavailable
	default:
		return simbackend.HostIdle
	}
}
