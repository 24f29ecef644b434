package config

import "testing"

func alwaysExists(string) bool { return true }
func neverExists(string) bool  { return false }

func TestValidateAccumulatesMissingFiles(t *testing.T) {
	c := &Config{}
	acc := c.Validate(neverExists)
	if !acc.HasErrors() {
		t.Fatal("expected validation errors for missing platform/workload")
	}
	if acc.ExitCode()&0x01 == 0 {
		t.Error("expected platform-missing bit set")
	}
	if acc.ExitCode()&0x02 == 0 {
		t.Error("expected workload-missing bit set")
	}
}

func TestValidateCleanConfig(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json"}
	acc := c.Validate(alwaysExists)
	if acc.HasErrors() {
		t.Fatalf("expected no errors, got %+v", acc.Errors())
	}
}

func TestValidateWorkflowStartPairing(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json", Workflow: "wf.json"}
	acc := c.Validate(alwaysExists)
	if acc.ExitCode()&0x08 == 0 {
		t.Error("expected workflow-start-pairing bit when Workflow is set without WorkflowStart")
	}
}

func TestValidateCutWorkflowMissing(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json", Copy: "2"}
	acc := c.Validate(alwaysExists)
	if acc.ExitCode()&0x10 == 0 {
		t.Error("expected cut-workflow-missing bit when Copy is set without Workflow")
	}
}

func TestValidateNegativeStart(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json", SubmissionTimeBefore: "-5:fixed"}
	acc := c.Validate(alwaysExists)
	if acc.ExitCode()&0x20 == 0 {
		t.Error("expected negative-start bit")
	}
}

func TestValidateBadCopySpec(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json", Workflow: "wf.json", WorkflowStart: floatPtr(0), Copy: "bogus"}
	acc := c.Validate(alwaysExists)
	if acc.ExitCode()&0x40 == 0 {
		t.Error("expected bad-start-parse bit for unparseable --copy spec")
	}
}

func TestValidateBadSubmissionTimeSpec(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json", SubmissionTimeAfter: "bogus"}
	acc := c.Validate(alwaysExists)
	if acc.ExitCode()&0x40 == 0 {
		t.Error("expected bad-start-parse bit for unparseable --submission-time-after spec")
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestParseBatsimInterval(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
		wantSec float64
		wantSim bool
		wantKeep int
	}{
		{"empty disables", "", false, 0, false, 0},
		{"real no keep", "real:0-00:05:00", false, 300, false, 0},
		{"simulated with days", "simulated:1-00:00:00", false, 86400, true, 0},
		{"with keep", "real:0-01:00:00:3", false, 3600, false, 3},
		{"bad prefix", "bogus:0-00:00:01", true, 0, false, 0},
		{"bad hms", "real:0-00:00", true, 0, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			iv, err := ParseBatsimInterval(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if iv.Seconds != tc.wantSec || iv.Simulated != tc.wantSim || iv.Keep != tc.wantKeep {
				t.Errorf("got %+v, want seconds=%v simulated=%v keep=%v", iv, tc.wantSec, tc.wantSim, tc.wantKeep)
			}
		})
	}
}

func TestValidateBadBatsimInterval(t *testing.T) {
	c := &Config{Platform: "p.xml", Workload: "w.json", Checkpoint: CheckpointConfig{BatsimInterval: "nonsense"}}
	acc := c.Validate(alwaysExists)
	if acc.ExitCode()&0x40 == 0 {
		t.Error("expected bad-start-parse bit for unparseable checkpoint-batsim-interval")
	}
}
