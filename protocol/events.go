// Package protocol implements the bidirectional JSON codec for the
// scheduler wire protocol: reading and writing the
// {"now":..., "events":[...]} message stream, with strict ordering
// validation.
package protocol

// EventType is the wire "type" string of a protocol event.
type EventType string

// Outbound (batsim -> scheduler).
const (
	SimulationBegins    EventType = "SIMULATION_BEGINS"
	JobSubmitted        EventType = "JOB_SUBMITTED"
	JobCompleted        EventType = "JOB_COMPLETED"
	JobKilled           EventType = "JOB_KILLED"
	ResourceStateChanged EventType = "RESOURCE_STATE_CHANGED"
	RequestedCall       EventType = "REQUESTED_CALL"
	Answer              EventType = "ANSWER"
	Query               EventType = "QUERY"
	Notify              EventType = "NOTIFY"
	FromJobMsg          EventType = "FROM_JOB_MSG"
	SimulationEnds      EventType = "SIMULATION_ENDS"
)

// Inbound (scheduler -> batsim).
const (
	RejectJob        EventType = "REJECT_JOB"
	ExecuteJob       EventType = "EXECUTE_JOB"
	ChangeJobState   EventType = "CHANGE_JOB_STATE"
	CallMeLater      EventType = "CALL_ME_LATER"
	KillJob          EventType = "KILL_JOB"
	RegisterJob      EventType = "REGISTER_JOB"
	RegisterProfile  EventType = "REGISTER_PROFILE"
	SetResourceState EventType = "SET_RESOURCE_STATE"
	SetJobMetadata   EventType = "SET_JOB_METADATA"
	ToJobMsg         EventType = "TO_JOB_MSG"
)

// allowedTypes is the full set of event type strings the codec accepts on
// parse.
var allowedTypes = map[EventType]bool{
	SimulationBegins: true, JobSubmitted: true, JobCompleted: true, JobKilled: true,
	ResourceStateChanged: true, RequestedCall: true, Answer: true, Query: true,
	Notify: true, FromJobMsg: true, SimulationEnds: true,
	RejectJob: true, ExecuteJob: true, ChangeJobState: true, CallMeLater: true,
	KillJob: true, RegisterJob: true, RegisterProfile: true, SetResourceState: true,
	SetJobMetadata: true, ToJobMsg: true,
}

// IsAllowed reports whether t is a recognized event type.
func IsAllowed(t EventType) bool { return allowedTypes[t] }
