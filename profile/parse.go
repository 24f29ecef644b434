package profile

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Parse validates a profile's JSON description and builds a Profile, naming
// it name. The raw bytes are retained verbatim on the result for forwarding
// to the scheduler.
func Parse(name string, raw json.RawMessage) (*Profile, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errors.Wrapf(err, "profile %q: invalid JSON", name)
	}

	p := &Profile{Name: name, Raw: raw}
	switch head.Type {
	case "delay":
		var d Delay
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, errors.Wrapf(err, "profile %q: invalid delay profile", name)
		}
		if d.RealDelay == 0 {
			d.RealDelay = d.Delay
		}
		if d.OriginalDelay == 0 {
			d.OriginalDelay = d.Delay
		}
		p.Kind = KindDelay
		p.Delay = &d
	case "parallel_homogeneous", "msg_par_hg", "msg_par":
		var ph ParallelHomogeneous
		if err := json.Unmarshal(raw, &ph); err != nil {
			return nil, errors.Wrapf(err, "profile %q: invalid parallel_homogeneous profile", name)
		}
		if ph.RealCPU == 0 {
			ph.RealCPU = ph.CPU
		}
		if ph.OrigCPU == 0 {
			ph.OrigCPU = ph.CPU
		}
		p.Kind = KindParallelHomogeneous
		p.ParallelHomogeneous = &ph
	case "parallel_heterogeneous", "msg_par_hg_tiered", "msg_par_hg_pfs0":
		var ph ParallelHeterogeneous
		if err := json.Unmarshal(raw, &ph); err != nil {
			return nil, errors.Wrapf(err, "profile %q: invalid parallel_heterogeneous profile", name)
		}
		p.Kind = KindParallelHeterogeneous
		p.ParallelHeterogeneous = &ph
	case "composed", "sequence":
		var s Sequence
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(err, "profile %q: invalid sequence profile", name)
		}
		if s.Repeat <= 0 {
			s.Repeat = 1
		}
		if len(s.Sequence) == 0 {
			return nil, errors.Errorf("profile %q: sequence profile has no children", name)
		}
		p.Kind = KindSequence
		p.Sequence = &s
	case "smpi":
		var s SMPI
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(err, "profile %q: invalid smpi profile", name)
		}
		p.Kind = KindSMPI
		p.SMPI = &s
	case "parallel_task_replay":
		p.Kind = KindParallelTaskReplay
	case "msg_par_hg_multiple":
		p.Kind = KindMsgParallel
	case "scheduler_send":
		p.Kind = KindSchedulerSend
	case "scheduler_recv":
		p.Kind = KindSchedulerRecv
	default:
		return nil, errors.Errorf("profile %q: unknown profile type %q", name, head.Type)
	}
	return p, nil
}
