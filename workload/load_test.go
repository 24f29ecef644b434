package workload

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWorkload(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "w.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const s1Workload = `{
  "nb_res": 4,
  "jobs": [{"id": "1", "subtime": 0, "res": 2, "walltime": 10, "profile": "d"}],
  "profiles": {"d": {"type": "delay", "delay": 3}}
}`

func TestLoadS1Workload(t *testing.T) {
	path := writeWorkload(t, s1Workload)
	w, err := Load("w0", path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.NbMachines != 4 {
		t.Errorf("expected 4 machines, got %d", w.NbMachines)
	}
	j, ok := w.Job("1")
	if !ok {
		t.Fatal("expected job \"1\" to exist")
	}
	if j.Walltime != 10 || j.RequestedNbRes != 2 {
		t.Errorf("unexpected job attrs: %+v", j)
	}
}

func TestLoadMissingNbRes(t *testing.T) {
	path := writeWorkload(t, `{"jobs":[],"profiles":{}}`)
	if _, err := Load("w0", path); err == nil {
		t.Fatal("expected error for missing nb_res")
	}
}

func TestLoadUnknownProfileReference(t *testing.T) {
	path := writeWorkload(t, `{"nb_res":1,"jobs":[{"id":"1","subtime":0,"res":1,"profile":"missing"}],"profiles":{}}`)
	if _, err := Load("w0", path); err == nil {
		t.Fatal("expected error for unknown profile reference")
	}
}

func TestLoadDuplicateJobId(t *testing.T) {
	path := writeWorkload(t, `{
		"nb_res": 1,
		"jobs": [
			{"id": "1", "subtime": 0, "res": 1, "profile": "d"},
			{"id": "1", "subtime": 1, "res": 1, "profile": "d"}
		],
		"profiles": {"d": {"type": "delay", "delay": 1}}
	}`)
	if _, err := Load("w0", path); err == nil {
		t.Fatal("expected error for duplicate job id")
	}
}

func TestLoadParallelHomogeneousResMismatch(t *testing.T) {
	path := writeWorkload(t, `{
		"nb_res": 4,
		"jobs": [{"id": "1", "subtime": 0, "res": 2, "profile": "p"}],
		"profiles": {"p": {"type": "parallel_homogeneous", "nb_res": 3, "cpu": 1, "com": 0}}
	}`)
	if _, err := Load("w0", path); err == nil {
		t.Fatal("expected error for nb_res mismatch")
	}
}
