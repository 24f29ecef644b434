package stats

import "testing"

func TestCounterScoping(t *testing.T) {
	s := New()
	s.Scope("server").Counter("round_trips").Inc(3)
	s.Scope("server").Counter("round_trips").Inc(1)

	rendered := s.Render()
	if rendered["server/round_trips"] != 4 {
		t.Fatalf("expected server/round_trips=4, got %v", rendered)
	}
}

func TestNilReceiverDiscardsUpdates(t *testing.T) {
	s := Nil()
	c := s.Counter("x")
	c.Inc(5)
	if c.Count() != 0 {
		t.Fatalf("expected nil counter to stay at 0, got %d", c.Count())
	}
}
