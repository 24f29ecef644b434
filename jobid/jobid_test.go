package jobid

import "testing"

func TestStringRoundTrip(t *testing.T) {
	cases := []ID{
		New("w0", "42"),
		New("w0", "42").WithResubmit(1),
		New("w0", "42").WithCheckpoint(3),
		New("w0", "42").WithResubmit(1).WithCheckpoint(3),
	}
	for _, id := range cases {
		s := id.String()
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got != id {
			t.Errorf("round trip mismatch: %+v != %+v (via %q)", got, id, s)
		}
	}
}

func TestValidRejectsBang(t *testing.T) {
	id := New("w!0", "42")
	if err := id.Valid(); err == nil {
		t.Fatal("expected error for '!' in workload name")
	}
}

func TestParseMissingBang(t *testing.T) {
	if _, err := Parse("no-bang-here"); err == nil {
		t.Fatal("expected error for missing '!' separator")
	}
}

func TestStringForm(t *testing.T) {
	id := New("w0", "42").WithResubmit(1).WithCheckpoint(3)
	want := "w0!42#1$3"
	if got := id.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
