package job

import (
	"fmt"

	"github.com/hpc/batsim4/profile"
)

// ParallelExecutor is the minimal view jobactor's task tree needs of a live
// parallel-task execution. The concrete implementation lives in simbackend;
// job depends only on this interface to avoid an import cycle.
type ParallelExecutor interface {
	// RemainingRatio returns the fraction of work left to do, in [0,1].
	RemainingRatio() float64
}

// TaskKind tags a TaskNode as a leaf (delay or parallel profile
// instantiation) or an interior sequence node.
type TaskKind int

const (
	TaskLeafDelay TaskKind = iota
	TaskLeafParallel
	TaskInteriorSequence
)

// noCurrentChild is the sentinel current_task_index value for a sequence
// node that has not yet started executing any child.
const noCurrentChild = -1

// TaskNode mirrors the shape of a job's profile: a leaf for Delay and
// ParallelHomogeneous/Heterogeneous profiles, an interior node for Sequence
// profiles. The tree shape is fixed at construction; only progress-related
// fields mutate over the job's lifetime.
//
// Back-references to the owning Job are intentionally absent: callers that
// walk the tree (jobactor, ComputeProgress) are always given the Job
// explicitly, so nodes never need an owning pointer back up the tree. That
// keeps ownership a strict tree (job owns its tree by value, children owned
// by their parent node) with no cycles.
type TaskNode struct {
	Kind    TaskKind
	Profile *profile.Profile

	// Leaf, parallel profile.
	Exec ParallelExecutor // nil until the actor starts this leaf

	// Leaf, delay profile.
	DelayStart    float64
	DelayRequired float64

	// Interior, sequence profile.
	Children     []*TaskNode
	CurrentIndex int // noCurrentChild until the actor starts the first child
}

// NewTaskTree builds the (unexecuted) task tree shape for a profile,
// recursing into Sequence children. A Sequence profile's own Repeat count
// is flattened into the Children slice in execution order (repeat count N
// means the child list is traversed N times).
func NewTaskTree(p *profile.Profile) (*TaskNode, error) {
	switch p.Kind {
	case profile.KindDelay:
		return &TaskNode{Kind: TaskLeafDelay, Profile: p, DelayRequired: p.Delay.Delay}, nil
	case profile.KindParallelHomogeneous, profile.KindParallelHeterogeneous:
		return &TaskNode{Kind: TaskLeafParallel, Profile: p}, nil
	case profile.KindSequence:
		children := p.ResolvedChildren()
		n := &TaskNode{Kind: TaskInteriorSequence, Profile: p, CurrentIndex: noCurrentChild}
		for rep := 0; rep < p.Sequence.Repeat; rep++ {
			for _, child := range children {
				childNode, err := NewTaskTree(child)
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, childNode)
			}
		}
		return n, nil
	default:
		return nil, fmt.Errorf("job: profile kind %s has no task-tree representation", p.Kind)
	}
}

// ProgressNode is an immutable snapshot of a TaskNode's progress, suitable
// for serialization on the wire. Building one never mutates simulation
// state.
type ProgressNode struct {
	Ratio    float64
	Children []*ProgressNode
}

// ComputeProgress recursively computes the snapshot progress tree for t, as
// of simulated time now:
//   - a started parallel leaf reports 1 - executor.RemainingRatio()
//   - an unstarted parallel leaf reports 0
//   - a delay leaf reports (now-start)/required, or 1 if required == 0
//   - an interior (sequence) node reports its current child's progress
func ComputeProgress(t *TaskNode, now float64) *ProgressNode {
	switch t.Kind {
	case TaskLeafParallel:
		if t.Exec == nil {
			return &ProgressNode{Ratio: 0}
		}
		return &ProgressNode{Ratio: 1 - t.Exec.RemainingRatio()}
	case TaskLeafDelay:
		if t.DelayRequired == 0 {
			return &ProgressNode{Ratio: 1}
		}
		return &ProgressNode{Ratio: (now - t.DelayStart) / t.DelayRequired}
	case TaskInteriorSequence:
		if t.CurrentIndex == noCurrentChild || t.CurrentIndex >= len(t.Children) {
			return &ProgressNode{Ratio: 0}
		}
		child := ComputeProgress(t.Children[t.CurrentIndex], now)
		return &ProgressNode{Ratio: child.Ratio, Children: []*ProgressNode{child}}
	default:
		panic(fmt.Sprintf("job: unexpected TaskKind %d", int(t.Kind)))
	}
}
