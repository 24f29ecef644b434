// Package export writes the optional end-of-run artifacts controlled by the
// --output-svg and --enable-schedule-tracing CLI toggles: a Gantt chart of
// machine occupancy and a flat schedule trace, both derived from the jobs a
// simulation ran. Both writers produce plain on-disk documents, in keeping
// with the rest of this repo's artifact style (workload.DumpChkpt,
// checkpoint's jobs CSV).
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/hpc/batsim4/job"
)

// ScheduleEntry is one job's placement, the unit written by WriteScheduleTrace.
type ScheduleEntry struct {
	JobID      string  `json:"job_id"`
	Start      float64 `json:"start"`
	Finish     float64 `json:"finish"`
	Allocation string  `json:"allocation"`
	State      string  `json:"state"`
}

// WriteScheduleTrace dumps one ScheduleEntry per job that actually started,
// ordered by start time, as a JSON array.
func WriteScheduleTrace(path string, jobs []*job.Job) error {
	entries := scheduleEntries(jobs)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create schedule trace: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func scheduleEntries(jobs []*job.Job) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(jobs))
	for _, j := range jobs {
		started := j.State == job.Running || (j.State.IsTerminal() && !j.State.IsRejected())
		if !started || j.StartingTime < 0 {
			continue
		}
		alloc := ""
		if j.Allocation != nil {
			alloc = j.Allocation.String()
		}
		entries = append(entries, ScheduleEntry{
			JobID:      j.ID.String(),
			Start:      j.StartingTime,
			Finish:     j.StartingTime + j.Runtime,
			Allocation: alloc,
			State:      j.State.String(),
		})
	}
	sort.Slice(entries, func(i, k int) bool { return entries[i].Start < entries[k].Start })
	return entries
}

// WriteGanttSVG renders one horizontal bar per started job (x = time,
// y = a lane picked from its allocation's lowest host id), scaled to fit a
// fixed-width canvas. nbMachines sizes the vertical axis.
func WriteGanttSVG(path string, jobs []*job.Job, nbMachines int) error {
	entries := scheduleEntries(jobs)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create gantt svg: %w", err)
	}
	defer f.Close()

	const width, rowHeight, margin = 1000.0, 20.0, 10.0
	height := margin*2 + rowHeight*float64(max(nbMachines, 1))
	span := timeSpan(entries)

	fmt.Fprintf(f, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%g\" height=\"%g\">\n", width, height)
	fmt.Fprintf(f, "<rect width=\"%g\" height=\"%g\" fill=\"white\"/>\n", width, height)
	for _, e := range entries {
		lane := laneFor(e.Allocation, nbMachines)
		x := margin + (e.Start/span)*(width-2*margin)
		w := ((e.Finish - e.Start) / span) * (width - 2*margin)
		if w < 1 {
			w = 1
		}
		y := margin + float64(lane)*rowHeight
		fmt.Fprintf(f, "<rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"steelblue\" stroke=\"black\"/>\n", x, y, w, rowHeight-2)
		fmt.Fprintf(f, "<text x=\"%g\" y=\"%g\" font-size=\"10\">%s</text>\n", x+2, y+rowHeight-4, e.JobID)
	}
	fmt.Fprintln(f, "</svg>")
	return nil
}

func timeSpan(entries []ScheduleEntry) float64 {
	var span float64
	for _, e := range entries {
		if e.Finish > span {
			span = e.Finish
		}
	}
	if span <= 0 {
		return 1
	}
	return span
}

// laneFor picks the lowest host index named by alloc's hyphen-run
// representation, falling back to lane 0 for an empty allocation.
func laneFor(alloc string, nbMachines int) int {
	var lowest int
	if _, err := fmt.Sscanf(alloc, "%d", &lowest); err != nil {
		return 0
	}
	if nbMachines > 0 && lowest >= nbMachines {
		return nbMachines - 1
	}
	return lowest
}
