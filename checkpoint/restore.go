package checkpoint

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hpc/batsim4/server"
	"github.com/hpc/batsim4/workload"
)

// Restore loads every "<name>.workload.json" file in dir via
// workload.LoadChkpt and the pending timers recorded in
// batsim_variables.chkpt, for cold-start recovery. Completed jobs are not
// re-spawned but stay counted against nb_original_jobs, since that count
// already holds from the counters DumpChkpt wrote into each workload
// document.
func Restore(dir string) (map[string]*workload.Workload, []server.TimerSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "checkpoint: read %s", dir)
	}

	workloads := make(map[string]*workload.Workload)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".workload.json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".workload.json")
		w, err := workload.LoadChkpt(name, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "checkpoint: restore workload %q", name)
		}
		workloads[name] = w
	}

	timers, err := LoadTimers(dir)
	if err != nil {
		return nil, nil, err
	}
	return workloads, timers, nil
}

// RestoreLatest follows baseDir's checkpoint_latest symlink and restores
// from the directory it points to.
func RestoreLatest(baseDir string) (map[string]*workload.Workload, []server.TimerSnapshot, error) {
	link := filepath.Join(baseDir, "checkpoint_latest")
	target, err := os.Readlink(link)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "checkpoint: read %s", link)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseDir, target)
	}
	return Restore(target)
}
