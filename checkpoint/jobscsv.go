package checkpoint

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hpc/batsim4/jobid"
)

// writeJobsCSV flushes a CSV view of every job that has reached a terminal
// state. No separate live exporter exists yet, so this recomputes the view
// fresh from workload state at snapshot time rather than copying an
// append-only log.
func (m *Manager) writeJobsCSV(dir string) error {
	f, err := os.Create(filepath.Join(dir, "out_jobs.csv"))
	if err != nil {
		return errors.Wrap(err, "checkpoint: create out_jobs.csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"job_id", "state", "submission_time", "starting_time", "runtime", "return_code"}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "checkpoint: write out_jobs.csv header")
	}
	for name, wl := range m.workloads {
		for jobName, j := range wl.Jobs {
			if !j.State.IsTerminal() {
				continue
			}
			row := []string{
				jobid.New(name, jobName).String(),
				j.State.String(),
				strconv.FormatFloat(j.SubmissionTime, 'f', -1, 64),
				strconv.FormatFloat(j.StartingTime, 'f', -1, 64),
				strconv.FormatFloat(j.Runtime, 'f', -1, 64),
				strconv.Itoa(j.ReturnCode),
			}
			if err := w.Write(row); err != nil {
				return errors.Wrap(err, "checkpoint: write out_jobs.csv row")
			}
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "checkpoint: flush out_jobs.csv")
}
