// Package profile implements the immutable, reference-counted profile store:
// reusable descriptions of the computational work a job performs, keyed by
// name within a workload.
package profile

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Kind tags which variant a Profile carries. Profile is modeled as a tagged
// sum type: operations that switch on Kind are exhaustive matches the
// compiler can check.
type Kind int

const (
	KindUnknown Kind = iota
	KindDelay
	KindParallelHomogeneous
	KindParallelHeterogeneous
	KindSequence
	KindSMPI
	// Not executed: parsed and retained verbatim for forwarding, but never
	// run by jobactor.
	KindParallelTaskReplay
	KindMsgParallel
	KindSchedulerSend
	KindSchedulerRecv
)

func (k Kind) String() string {
	switch k {
	case KindDelay:
		return "delay"
	case KindParallelHomogeneous:
		return "parallel_homogeneous"
	case KindParallelHeterogeneous:
		return "parallel_heterogeneous"
	case KindSequence:
		return "sequence"
	case KindSMPI:
		return "smpi"
	case KindParallelTaskReplay:
		return "parallel_task_replay"
	case KindMsgParallel:
		return "msg_parallel"
	case KindSchedulerSend:
		return "scheduler_send"
	case KindSchedulerRecv:
		return "scheduler_recv"
	default:
		return "unknown"
	}
}

// Delay is the Delay profile variant: a fixed-duration leaf task.
type Delay struct {
	Delay         float64 `json:"delay"`
	RealDelay     float64 `json:"real_delay"`
	OriginalDelay float64 `json:"original_delay"`
}

// ParallelHomogeneous is the ParallelHomogeneous variant: every host runs
// the same flop count, every pair of hosts exchanges the same byte count.
type ParallelHomogeneous struct {
	NbRes     int     `json:"nb_res"`
	CPU       float64 `json:"cpu"`
	RealCPU   float64 `json:"real_cpu"`
	OrigCPU   float64 `json:"original_cpu"`
	Com       float64 `json:"com"`
}

// ParallelHeterogeneous is the ParallelHeterogeneous variant: per-host cpu
// matrix and per-pair com matrix.
type ParallelHeterogeneous struct {
	CPU [][]float64 `json:"cpu"`
	Com [][]float64 `json:"com"`
}

// Sequence is the Sequence (composed) variant: an ordered list of
// sub-profile names, repeated Repeat times.
type Sequence struct {
	Sequence []string `json:"seq"`
	Repeat   int      `json:"nb"`

	// resolved at check_validity time; not serialized.
	children []*Profile
}

// SMPI is the SMPI variant: a list of trace filenames, one per rank.
type SMPI struct {
	Trace []string `json:"trace"`
}

// Profile is an immutable, named unit of computational work. Exactly one of
// the typed fields matching Kind is populated. Raw retains the verbatim
// input JSON so it can be forwarded to the scheduler unmodified.
type Profile struct {
	Name string
	Kind Kind

	Delay                 *Delay
	ParallelHomogeneous   *ParallelHomogeneous
	ParallelHeterogeneous *ParallelHeterogeneous
	Sequence              *Sequence
	SMPI                  *SMPI

	Raw json.RawMessage
}

// ResolvedChildren returns the Sequence variant's children, resolved by
// Store.Resolve. Panics if called on a non-Sequence profile; callers must
// check Kind first, matching the exhaustive-match discipline used elsewhere.
func (p *Profile) ResolvedChildren() []*Profile {
	if p.Kind != KindSequence {
		panic("profile: ResolvedChildren called on non-sequence profile")
	}
	return p.Sequence.children
}

// TotalWork returns the real (non-checkpoint-padded) amount of work the
// profile performs, used by checkpoint-interval math and by job-actor
// duration computation. Delay profiles report seconds; ParallelHomogeneous
// profiles report flops. Sequence, SMPI and other composed/out-of-scope
// variants are not meaningfully summarized by a scalar and return 0.
func (p *Profile) TotalWork() float64 {
	switch p.Kind {
	case KindDelay:
		return p.Delay.Delay
	case KindParallelHomogeneous:
		return p.ParallelHomogeneous.CPU
	default:
		return 0
	}
}

// Merge combines a job's main profile with its additional_io_job profile:
// the two must share Kind and (for heterogeneous profiles) child count;
// merged compute is the element-wise max, merged com the element-wise sum.
// The result carries no Name and no Raw (it is never forwarded to the
// scheduler, only executed).
func Merge(main, io *Profile) (*Profile, error) {
	if main.Kind != io.Kind {
		return nil, errors.Errorf("profile merge: kind mismatch (%s vs %s)", main.Kind, io.Kind)
	}
	switch main.Kind {
	case KindParallelHomogeneous:
		return &Profile{
			Kind: KindParallelHomogeneous,
			ParallelHomogeneous: &ParallelHomogeneous{
				NbRes: main.ParallelHomogeneous.NbRes,
				CPU:   maxFloat(main.ParallelHomogeneous.CPU, io.ParallelHomogeneous.CPU),
				Com:   main.ParallelHomogeneous.Com + io.ParallelHomogeneous.Com,
			},
		}, nil
	case KindParallelHeterogeneous:
		mc, ic := main.ParallelHeterogeneous, io.ParallelHeterogeneous
		if len(mc.CPU) != len(ic.CPU) {
			return nil, errors.Errorf("profile merge: child count mismatch (%d vs %d)", len(mc.CPU), len(ic.CPU))
		}
		cpu := make([][]float64, len(mc.CPU))
		for i := range cpu {
			cpu[i] = maxFloatSlice(mc.CPU[i], ic.CPU[i])
		}
		com := make([][]float64, len(mc.Com))
		for i := range com {
			com[i] = sumFloatSlice(mc.Com[i], ic.Com[i])
		}
		return &Profile{Kind: KindParallelHeterogeneous, ParallelHeterogeneous: &ParallelHeterogeneous{CPU: cpu, Com: com}}, nil
	default:
		return nil, errors.Errorf("profile merge: unsupported kind %s", main.Kind)
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxFloatSlice(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = maxFloat(a[i], b[i])
	}
	return out
}

func sumFloatSlice(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Remaining builds a profile reflecting the work left after a partial
// execution at progress ratio. For Delay and ParallelHomogeneous profiles
// (the two kinds jobactor actually drives), the relevant field is scaled by
// (1-ratio); other kinds are cloned unchanged since jobactor never executes
// them.
func (p *Profile) Remaining(newName string, ratio float64) *Profile {
	clone := p.Clone(newName)
	clone.Raw = nil // no longer describes the same work; MarshalWire must re-synthesize
	remaining := 1 - ratio
	if remaining < 0 {
		remaining = 0
	}
	switch clone.Kind {
	case KindDelay:
		clone.Delay.Delay = p.Delay.Delay * remaining
	case KindParallelHomogeneous:
		clone.ParallelHomogeneous.CPU = p.ParallelHomogeneous.CPU * remaining
		clone.ParallelHomogeneous.Com = p.ParallelHomogeneous.Com * remaining
	}
	return clone
}

// wireDoc is the subset of a profile's fields Parse reads, used to
// re-synthesize wire JSON for a profile that has no verbatim Raw (a
// checkpoint-time rewrite built by Remaining, which clears Raw since it no
// longer describes the same work).
type wireDoc struct {
	Type string `json:"type"`
	*Delay
	*ParallelHomogeneous
	*ParallelHeterogeneous
	*Sequence
	*SMPI
}

// MarshalWire returns the wire JSON description for p: the verbatim Raw it
// was parsed from, or a freshly-synthesized document if Raw is empty (the
// case for a Remaining-rewritten profile). Used to populate the checkpoint
// manager's profiles dictionary.
func (p *Profile) MarshalWire() (json.RawMessage, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	doc := wireDoc{Type: p.Kind.String()}
	switch p.Kind {
	case KindDelay:
		doc.Delay = p.Delay
	case KindParallelHomogeneous:
		doc.ParallelHomogeneous = p.ParallelHomogeneous
	case KindParallelHeterogeneous:
		doc.ParallelHeterogeneous = p.ParallelHeterogeneous
	case KindSequence:
		doc.Sequence = p.Sequence
	case KindSMPI:
		doc.SMPI = p.SMPI
	default:
		return nil, errors.Errorf("profile %q: cannot marshal kind %s without Raw", p.Name, p.Kind)
	}
	return json.Marshal(doc)
}

// Clone deep-copies a profile for use under a new name (workload copy/jitter).
// The clone carries no Sequence child resolution; callers must re-resolve
// via Store.Resolve after inserting it.
func (p *Profile) Clone(newName string) *Profile {
	clone := &Profile{Name: newName, Kind: p.Kind, Raw: append(json.RawMessage{}, p.Raw...)}
	switch p.Kind {
	case KindDelay:
		d := *p.Delay
		clone.Delay = &d
	case KindParallelHomogeneous:
		d := *p.ParallelHomogeneous
		clone.ParallelHomogeneous = &d
	case KindParallelHeterogeneous:
		cpu := make([][]float64, len(p.ParallelHeterogeneous.CPU))
		for i, row := range p.ParallelHeterogeneous.CPU {
			cpu[i] = append([]float64{}, row...)
		}
		com := make([][]float64, len(p.ParallelHeterogeneous.Com))
		for i, row := range p.ParallelHeterogeneous.Com {
			com[i] = append([]float64{}, row...)
		}
		clone.ParallelHeterogeneous = &ParallelHeterogeneous{CPU: cpu, Com: com}
	case KindSequence:
		seq := &Sequence{Sequence: append([]string{}, p.Sequence.Sequence...), Repeat: p.Sequence.Repeat}
		clone.Sequence = seq
	case KindSMPI:
		clone.SMPI = &SMPI{Trace: append([]string{}, p.SMPI.Trace...)}
	}
	return clone
}
