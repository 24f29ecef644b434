package profile

import "testing"

func TestMergeParallelHomogeneousTakesMaxCPUAndSumsCom(t *testing.T) {
	main := &Profile{Kind: KindParallelHomogeneous, ParallelHomogeneous: &ParallelHomogeneous{NbRes: 2, CPU: 10, Com: 1}}
	io := &Profile{Kind: KindParallelHomogeneous, ParallelHomogeneous: &ParallelHomogeneous{NbRes: 2, CPU: 4, Com: 2}}

	merged, err := Merge(main, io)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.ParallelHomogeneous.CPU != 10 {
		t.Errorf("expected merged CPU=max(10,4)=10, got %v", merged.ParallelHomogeneous.CPU)
	}
	if merged.ParallelHomogeneous.Com != 3 {
		t.Errorf("expected merged Com=1+2=3, got %v", merged.ParallelHomogeneous.Com)
	}
}

func TestMergeRejectsKindMismatch(t *testing.T) {
	main := &Profile{Kind: KindDelay, Delay: &Delay{Delay: 1}}
	io := &Profile{Kind: KindParallelHomogeneous, ParallelHomogeneous: &ParallelHomogeneous{}}
	if _, err := Merge(main, io); err == nil {
		t.Fatal("expected error for mismatched profile kinds")
	}
}

func TestMergeParallelHeterogeneousRejectsChildCountMismatch(t *testing.T) {
	main := &Profile{Kind: KindParallelHeterogeneous, ParallelHeterogeneous: &ParallelHeterogeneous{
		CPU: [][]float64{{1}, {2}},
	}}
	io := &Profile{Kind: KindParallelHeterogeneous, ParallelHeterogeneous: &ParallelHeterogeneous{
		CPU: [][]float64{{1}},
	}}
	if _, err := Merge(main, io); err == nil {
		t.Fatal("expected error for mismatched child counts")
	}
}
