package profile

import (
	"encoding/json"
	"errors"
	"testing"
)

func delayProfile(t *testing.T, name string, delay float64) *Profile {
	t.Helper()
	raw, _ := json.Marshal(map[string]interface{}{"type": "delay", "delay": delay})
	p, err := Parse(name, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestStoreAddGetRemove(t *testing.T) {
	s := NewStore()
	p := delayProfile(t, "d", 3)
	if err := s.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !s.Exists("d") {
		t.Fatal("expected profile to exist")
	}
	if err := s.Add(p); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := s.Remove("d"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("d") {
		t.Fatal("expected profile to be removed")
	}
}

func TestRemoveStillReferenced(t *testing.T) {
	s := NewStore()
	p := delayProfile(t, "d", 3)
	s.Add(p)
	s.IncRef("d")
	if err := s.Remove("d"); !errors.Is(err, ErrStillReferenced) {
		t.Fatalf("expected ErrStillReferenced, got %v", err)
	}
	s.DecRef("d")
	if err := s.Remove("d"); err != nil {
		t.Fatalf("Remove after DecRef: %v", err)
	}
}

func TestGCUnreferenced(t *testing.T) {
	s := NewStore()
	s.Add(delayProfile(t, "used", 1))
	s.Add(delayProfile(t, "unused", 1))
	s.IncRef("used")

	removed := s.GCUnreferenced()
	if len(removed) != 1 || removed[0] != "unused" {
		t.Fatalf("expected only 'unused' removed, got %v", removed)
	}
	if !s.Exists("used") {
		t.Fatal("expected 'used' to survive GC")
	}
}

func TestResolveSequenceChildren(t *testing.T) {
	s := NewStore()
	s.Add(delayProfile(t, "a", 1))
	s.Add(delayProfile(t, "b", 2))
	raw, _ := json.Marshal(map[string]interface{}{"type": "composed", "seq": []string{"a", "b"}, "nb": 1})
	seq, err := Parse("seq1", raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s.Add(seq)

	if err := s.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	children := seq.ResolvedChildren()
	if len(children) != 2 || children[0].Name != "a" || children[1].Name != "b" {
		t.Fatalf("unexpected resolved children: %+v", children)
	}
	if s.RefCount("a") != 1 || s.RefCount("b") != 1 {
		t.Fatalf("expected refcounts of 1, got a=%d b=%d", s.RefCount("a"), s.RefCount("b"))
	}
}

func TestResolveSequenceSharedChildNotDoubleCounted(t *testing.T) {
	s := NewStore()
	s.Add(delayProfile(t, "leaf", 1))
	rawMid, _ := json.Marshal(map[string]interface{}{"type": "composed", "seq": []string{"leaf"}, "nb": 1})
	mid, err := Parse("mid", rawMid)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s.Add(mid)
	rawTop, _ := json.Marshal(map[string]interface{}{"type": "composed", "seq": []string{"mid"}, "nb": 1})
	top, err := Parse("top", rawTop)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s.Add(top)

	if err := s.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.RefCount("mid") != 1 {
		t.Fatalf("expected 'mid' referenced once (by 'top'), got %d", s.RefCount("mid"))
	}
	if s.RefCount("leaf") != 1 {
		t.Fatalf("expected 'leaf' referenced once (by 'mid'), got %d", s.RefCount("leaf"))
	}
}

func TestResolveSequenceCycleRejected(t *testing.T) {
	s := NewStore()
	raw1, _ := json.Marshal(map[string]interface{}{"type": "composed", "seq": []string{"s2"}, "nb": 1})
	raw2, _ := json.Marshal(map[string]interface{}{"type": "composed", "seq": []string{"s1"}, "nb": 1})
	p1, _ := Parse("s1", raw1)
	p2, _ := Parse("s2", raw2)
	s.Add(p1)
	s.Add(p2)

	if err := s.Resolve(); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestResolveUnknownChildFails(t *testing.T) {
	s := NewStore()
	raw, _ := json.Marshal(map[string]interface{}{"type": "composed", "seq": []string{"missing"}, "nb": 1})
	seq, _ := Parse("seq1", raw)
	s.Add(seq)

	if err := s.Resolve(); err == nil {
		t.Fatal("expected error for unresolved child")
	}
}
