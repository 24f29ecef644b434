package server

import "container/heap"

// Purpose tags why a call-me-later timer was armed.
type Purpose string

const (
	PurposeFixedFailure        Purpose = "FIXED_FAILURE"
	PurposeSMTBF               Purpose = "SMTBF"
	PurposeMTBF                Purpose = "MTBF"
	PurposeRepairDone          Purpose = "REPAIR_DONE"
	PurposeReservationStart    Purpose = "RESERVATION_START"
	PurposeCheckpointBatsim    Purpose = "CHECKPOINT_BATSIM"
	PurposeCheckpointScheduler Purpose = "CHECKPOINT_SCHEDULER"
	PurposeRecover             Purpose = "RECOVER"
	PurposeWalltimeCheck       Purpose = "WALLTIME_CHECK"
	PurposeCheckpointDump      Purpose = "CHECKPOINT_DUMP"
)

// SourceKind tags what produced a pendingEvent in the server's inbound
// priority queue.
type SourceKind int

const (
	SourceSubmission SourceKind = iota
	SourceJobCompletion
	SourceJobKilled
	SourceFailureTimer
	SourceCheckpointTimer
	SourceExternal
)

// pendingEvent is one entry in the server's inbound priority queue: an
// event generated by a submission actor, a job actor, a failure timer, or
// the checkpoint manager, waiting to be folded into the next outbound
// message once simulated time reaches its Timestamp.
type pendingEvent struct {
	Timestamp float64
	Source    SourceKind
	JobID     string // empty unless Source is job-related
	Reason    string // kill/completion reason, failure tag, etc.
	seq       int64  // insertion order, for stable tie-breaking
}

// eventHeap is a container/heap min-heap over pendingEvents, ordered by
// (Timestamp, seq): ties are broken by production order.
type eventHeap []*pendingEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*pendingEvent)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// eventQueue is the server's priority queue of pending inbound events.
type eventQueue struct {
	h       eventHeap
	nextSeq int64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(&q.h)
	return q
}

func (q *eventQueue) push(ts float64, source SourceKind, jobID, reason string) {
	heap.Push(&q.h, &pendingEvent{Timestamp: ts, Source: source, JobID: jobID, Reason: reason, seq: q.nextSeq})
	q.nextSeq++
}

func (q *eventQueue) empty() bool { return q.h.Len() == 0 }

// peekTimestamp returns the timestamp of the earliest pending event, or
// positive infinity if the queue is empty.
func (q *eventQueue) peekTimestamp() float64 {
	if q.empty() {
		return posInf
	}
	return q.h[0].Timestamp
}

// popReady pops and returns every event whose timestamp equals now, in
// (timestamp, seq) order. Events at later times are left in the queue.
func (q *eventQueue) popReady(now float64) []*pendingEvent {
	var ready []*pendingEvent
	for !q.empty() && q.h[0].Timestamp == now {
		ready = append(ready, heap.Pop(&q.h).(*pendingEvent))
	}
	return ready
}

// callMeLater is one armed timer.
type callMeLater struct {
	Target  float64
	ID      string
	Purpose Purpose
	seq     int64
}

type timerHeap []*callMeLater

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].Target != h[j].Target {
		return h[i].Target < h[j].Target
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*callMeLater)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// timerQueue is the server's priority queue of armed call-me-laters,
// consumed in non-decreasing target_time order.
type timerQueue struct {
	h       timerHeap
	nextSeq int64
}

func newTimerQueue() *timerQueue {
	q := &timerQueue{}
	heap.Init(&q.h)
	return q
}

func (q *timerQueue) arm(target float64, id string, purpose Purpose) {
	heap.Push(&q.h, &callMeLater{Target: target, ID: id, Purpose: purpose, seq: q.nextSeq})
	q.nextSeq++
}

func (q *timerQueue) empty() bool { return q.h.Len() == 0 }

func (q *timerQueue) peekTarget() float64 {
	if q.empty() {
		return posInf
	}
	return q.h[0].Target
}

// popReady pops and returns every timer whose target is <= now.
func (q *timerQueue) popReady(now float64) []*callMeLater {
	var ready []*callMeLater
	for !q.empty() && q.h[0].Target <= now {
		ready = append(ready, heap.Pop(&q.h).(*callMeLater))
	}
	return ready
}

const posInf = 1e18
