package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hpc/batsim4/server"
)

// timerDoc is the on-disk shape of one entry in batsim_variables.chkpt.
type timerDoc struct {
	Target  float64 `json:"target_time"`
	ID      string  `json:"id"`
	Purpose string  `json:"purpose"`
}

// writeTimers dumps every call-me-later with target_time >= now into
// batsim_variables.chkpt.
func (m *Manager) writeTimers(dir string, now float64) error {
	pending := m.srv.PendingTimers(now)
	docs := make([]timerDoc, len(pending))
	for i, t := range pending {
		docs[i] = timerDoc{Target: t.Target, ID: t.ID, Purpose: t.Purpose}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "checkpoint: marshal batsim_variables.chkpt")
	}
	return os.WriteFile(filepath.Join(dir, "batsim_variables.chkpt"), data, 0o644)
}

// LoadTimers reads back a batsim_variables.chkpt written by writeTimers, for
// the restore path to re-arm on the server.
func LoadTimers(dir string) ([]server.TimerSnapshot, error) {
	path := filepath.Join(dir, "batsim_variables.chkpt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "checkpoint: read %s", path)
	}
	var docs []timerDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errors.Wrapf(err, "checkpoint: decode %s", path)
	}
	out := make([]server.TimerSnapshot, len(docs))
	for i, d := range docs {
		out[i] = server.TimerSnapshot{Target: d.Target, ID: d.ID, Purpose: d.Purpose}
	}
	return out, nil
}
