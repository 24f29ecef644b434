// Package checkpoint implements the checkpoint manager: periodic
// simulator-level snapshots of live workload and timer state, kept as
// numbered rotations on disk, plus restore-on-cold-start.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hpc/batsim4/server"
	"github.com/hpc/batsim4/workload"
)

// Manager is wired into a Server via the server.Checkpointer seam (its
// Snapshot method, called when the checkpoint-batsim timer fires) so the
// server never imports this package directly.
type Manager struct {
	dir       string
	keep      int
	sessionID string

	srv       *server.Server
	workloads map[string]*workload.Workload
	log       *log.Entry
}

// New builds a Manager that snapshots workloads into dir, rotating up to
// keep prior snapshots. A fresh session id (google/uuid) tags every
// snapshot this run produces, so a restored snapshot's provenance can be
// told apart from a concurrent run writing the same directory.
func New(srv *server.Server, workloads map[string]*workload.Workload, dir string, keep int) *Manager {
	if keep < 1 {
		keep = 1
	}
	return &Manager{
		dir:       dir,
		keep:      keep,
		sessionID: uuid.New().String(),
		srv:       srv,
		workloads: workloads,
		log:       log.WithField("component", "checkpoint"),
	}
}

// SessionID returns this run's snapshot session id.
func (m *Manager) SessionID() string { return m.sessionID }

// Snapshot implements server.Checkpointer: rotate existing snapshots, then
// write a fresh one at rotation slot _1.
func (m *Manager) Snapshot(now float64) error {
	if err := m.rotate(); err != nil {
		return errors.Wrap(err, "checkpoint: rotate")
	}
	target := m.rotationDir(1)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.Wrapf(err, "checkpoint: mkdir %s", target)
	}

	if err := m.writeSessionMeta(target, now); err != nil {
		return err
	}
	for name, w := range m.workloads {
		data, err := workload.DumpChkpt(w, now)
		if err != nil {
			return errors.Wrapf(err, "checkpoint: dump workload %q", name)
		}
		path := filepath.Join(target, name+".workload.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "checkpoint: write %s", path)
		}
	}
	if err := m.writeTimers(target, now); err != nil {
		return err
	}
	if err := m.writeJobsCSV(target); err != nil {
		return err
	}
	m.log.WithFields(log.Fields{"dir": target, "now": now}).Info("checkpoint: snapshot written")
	return m.relink(target)
}

type sessionMeta struct {
	SessionID string  `json:"session_id"`
	Now       float64 `json:"now"`
}

func (m *Manager) writeSessionMeta(dir string, now float64) error {
	data, err := json.MarshalIndent(sessionMeta{SessionID: m.sessionID, Now: now}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "checkpoint: marshal session metadata")
	}
	return os.WriteFile(filepath.Join(dir, "session.json"), data, 0o644)
}

func (m *Manager) rotationDir(k int) string {
	return filepath.Join(m.dir, fmt.Sprintf("_%d", k))
}
