package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpc/batsim4/interval"
	"github.com/hpc/batsim4/job"
	"github.com/hpc/batsim4/jobid"
	"github.com/hpc/batsim4/profile"
)

func buildJob(t *testing.T, name string, start, runtime float64, alloc string) *job.Job {
	t.Helper()
	p := &profile.Profile{Name: "d", Kind: profile.KindDelay, Delay: &profile.Delay{Delay: runtime}}
	j, err := job.New(jobid.New("w0", name), p)
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}
	j.StartingTime = start
	j.Runtime = runtime
	j.State = job.CompletedSuccessfully
	set, err := interval.Parse(alloc)
	if err != nil {
		t.Fatalf("interval.Parse: %v", err)
	}
	j.Allocation = set
	return j
}

func TestWriteScheduleTraceOrdersByStartAndSkipsUnstarted(t *testing.T) {
	later := buildJob(t, "2", 5, 2, "1")
	earlier := buildJob(t, "1", 0, 3, "0")
	unstarted, err := job.New(jobid.New("w0", "3"), &profile.Profile{Name: "d", Kind: profile.KindDelay, Delay: &profile.Delay{Delay: 1}})
	if err != nil {
		t.Fatalf("job.New: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "trace.json")
	if err := WriteScheduleTrace(path, []*job.Job{later, earlier, unstarted}); err != nil {
		t.Fatalf("WriteScheduleTrace: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entries []ScheduleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (unstarted job skipped), got %d", len(entries))
	}
	if entries[0].JobID != "w0!1" || entries[1].JobID != "w0!2" {
		t.Fatalf("expected entries ordered by start time, got %+v", entries)
	}
	if entries[0].Finish != 3 {
		t.Errorf("expected first entry to finish at 3, got %v", entries[0].Finish)
	}
}

func TestWriteGanttSVGProducesOneRectPerJob(t *testing.T) {
	j1 := buildJob(t, "1", 0, 3, "0")
	j2 := buildJob(t, "2", 3, 2, "1")

	dir := t.TempDir()
	path := filepath.Join(dir, "gantt.svg")
	if err := WriteGanttSVG(path, []*job.Job{j1, j2}, 4); err != nil {
		t.Fatalf("WriteGanttSVG: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	svg := string(raw)
	if !strings.HasPrefix(svg, "<svg") {
		t.Fatal("expected output to start with an <svg> element")
	}
	if strings.Count(svg, "<text") != 2 {
		t.Errorf("expected one label per job, got %d", strings.Count(svg, "<text"))
	}
}
