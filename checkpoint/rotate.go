package checkpoint

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// rotate shifts _k to _{k+1} for every existing slot, dropping the oldest
// (_keep) first, before a new snapshot is written to _1: it keeps the N
// most recent snapshots numbered _1, _2, ..., _N.
func (m *Manager) rotate() error {
	oldest := m.rotationDir(m.keep)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.RemoveAll(oldest); err != nil {
			return errors.Wrapf(err, "checkpoint: drop oldest rotation %s", oldest)
		}
	}
	for k := m.keep - 1; k >= 1; k-- {
		src := m.rotationDir(k)
		if _, err := os.Stat(src); err != nil {
			continue // nothing written yet at this slot
		}
		dst := m.rotationDir(k + 1)
		if err := os.Rename(src, dst); err != nil {
			return errors.Wrapf(err, "checkpoint: shift %s to %s", src, dst)
		}
	}
	return nil
}

// relink repoints the checkpoint_latest symlink at target, replacing any
// existing link.
func (m *Manager) relink(target string) error {
	link := filepath.Join(m.dir, "checkpoint_latest")
	_ = os.Remove(link)
	rel, err := filepath.Rel(m.dir, target)
	if err != nil {
		rel = target
	}
	return errors.Wrap(os.Symlink(rel, link), "checkpoint: link checkpoint_latest")
}
