package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/machine"
	"github.com/hpc/batsim4/profile"
	"github.com/hpc/batsim4/server"
	"github.com/hpc/batsim4/simbackend"
	"github.com/hpc/batsim4/workload"
)

func mustProfile(t *testing.T, name string, raw map[string]interface{}) *profile.Profile {
	t.Helper()
	data, _ := json.Marshal(raw)
	p, err := profile.Parse(name, data)
	if err != nil {
		t.Fatalf("profile.Parse: %v", err)
	}
	return p
}

// jobSnapshot extracts the subset of a job's fields the checkpoint round
// trip is expected to preserve, avoiding a direct cmp.Diff over job.Job
// (whose pointer fields like *interval.Set embed unexported slices that
// cmp would otherwise need explicit option support for).
type jobSnapshot struct {
	State          string
	SubmissionTime float64
	RequestedNbRes int
	Runtime        float64
	Progress       float64
	Allocation     string
}

func snapshotOf(j *job.Job) jobSnapshot {
	return jobSnapshot{
		State:          j.State.String(),
		SubmissionTime: j.SubmissionTime,
		RequestedNbRes: j.RequestedNbRes,
		Runtime:        j.Runtime,
		Progress:       j.Progress,
		Allocation:     j.Allocation.String(),
	}
}

func buildWorkload(t *testing.T) *workload.Workload {
	t.Helper()
	w := workload.New("w0")
	w.NbMachines = 4
	p := mustProfile(t, "d", map[string]interface{}{"type": "delay", "delay": 10.0})
	if err := w.Profiles.Add(p); err != nil {
		t.Fatalf("Profiles.Add: %v", err)
	}
	j, err := job.New(jobid.New("w0", "1"), p)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	j.RequestedNbRes = 1
	j.SubmissionTime = 3
	j.State = job.CompletedSuccessfully
	j.Runtime = 10
	j.Progress = 1
	if err := w.AddJob(j); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	return w
}

func buildManager(t *testing.T, w *workload.Workload, dir string, keep int) *Manager {
	t.Helper()
	backend := simbackend.NewFakeBackend(4)
	roster := machine.NewRoster(backend, 0, nil)
	srv := server.New(server.Config{
		Backend:   backend,
		Roster:    roster,
		Workloads: map[string]*workload.Workload{"w0": w},
	})
	srv.ArmTimer(50, "sched-timer", server.Purpose("CUSTOM"))
	return New(srv, map[string]*workload.Workload{"w0": w}, dir, keep)
}

func TestSnapshotWritesExpectedFiles(t *testing.T) {
	dir := t.TempDir()
	w := buildWorkload(t)
	m := buildManager(t, w, dir, 3)

	if err := m.Snapshot(5); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	target := filepath.Join(dir, "_1")
	for _, name := range []string{"w0.workload.json", "batsim_variables.chkpt", "out_jobs.csv", "session.json"} {
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	link := filepath.Join(dir, "checkpoint_latest")
	if _, err := os.Lstat(link); err != nil {
		t.Errorf("expected checkpoint_latest symlink: %v", err)
	}
}

func TestSnapshotRotatesOldSlots(t *testing.T) {
	dir := t.TempDir()
	w := buildWorkload(t)
	m := buildManager(t, w, dir, 2)

	if err := m.Snapshot(1); err != nil {
		t.Fatalf("Snapshot 1: %v", err)
	}
	if err := m.Snapshot(2); err != nil {
		t.Fatalf("Snapshot 2: %v", err)
	}
	if err := m.Snapshot(3); err != nil {
		t.Fatalf("Snapshot 3: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "_1")); err != nil {
		t.Errorf("_1 should exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "_2")); err != nil {
		t.Errorf("_2 should exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "_3")); !os.IsNotExist(err) {
		t.Errorf("_3 should have been dropped (keep=2), stat err = %v", err)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := buildWorkload(t)
	m := buildManager(t, w, dir, 3)

	if err := m.Snapshot(5); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, timers, err := Restore(filepath.Join(dir, "_1"))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	rw, ok := restored["w0"]
	if !ok {
		t.Fatal("expected workload w0 to be restored")
	}
	rj, ok := rw.Job("1")
	if !ok {
		t.Fatal("expected job 1 to be restored")
	}
	origJob, _ := w.Job("1")

	if diff := cmp.Diff(snapshotOf(origJob), snapshotOf(rj)); diff != "" {
		t.Errorf("restored job mismatch (-want +got):\n%s", diff)
	}

	foundCustom := false
	for _, tm := range timers {
		if tm.Purpose == "CUSTOM" {
			foundCustom = true
		}
	}
	if !foundCustom {
		t.Errorf("expected the armed CUSTOM timer to survive the round trip, got %+v", timers)
	}
}

func TestRestoreLatestFollowsSymlink(t *testing.T) {
	dir := t.TempDir()
	w := buildWorkload(t)
	m := buildManager(t, w, dir, 3)
	if err := m.Snapshot(5); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, _, err := RestoreLatest(dir)
	if err != nil {
		t.Fatalf("RestoreLatest: %v", err)
	}
	if _, ok := restored["w0"]; !ok {
		t.Fatal("expected workload w0 to be restored via checkpoint_latest")
	}
}

func TestRunningJobGetsRewrittenProfile(t *testing.T) {
	dir := t.TempDir()
	w := workload.New("w0")
	w.NbMachines = 2
	p := mustProfile(t, "d", map[string]interface{}{"type": "delay", "delay": 10.0})
	if err := w.Profiles.Add(p); err != nil {
		t.Fatalf("Profiles.Add: %v", err)
	}
	j, err := job.New(jobid.New("w0", "1"), p)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	j.RequestedNbRes = 1
	j.State = job.Running
	j.Task.DelayStart = 0
	if err := w.AddJob(j); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	m := buildManager(t, w, dir, 1)
	if err := m.Snapshot(5); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, _, err := Restore(filepath.Join(dir, "_1"))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	rj, ok := restored["w0"].Job("1")
	if !ok {
		t.Fatal("expected job 1 to be restored")
	}
	if rj.Profile.Name == "d" {
		t.Errorf("expected a running job's profile to be swapped for a progress-rewritten one, got %q", rj.Profile.Name)
	}
	if rj.Profile.Delay.Delay >= 10 {
		t.Errorf("expected rewritten profile to reflect remaining (not full) delay, got %v", rj.Profile.Delay.Delay)
	}
}
