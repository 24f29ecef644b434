package interval

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseStringRoundTrip(t *testing.T) {
	cases := []string{"", "0", "0-1", "0-1 4 6-8", "5"}
	for _, c := range cases {
		s, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c, err)
		}
		if got := s.String(); got != c {
			t.Errorf("Parse(%q).String() = %q, want %q", c, got, c)
		}
	}
}

func TestAddMergesAdjacent(t *testing.T) {
	s := Empty()
	s.Add(0)
	s.Add(1)
	s.Add(2)
	if got, want := s.String(), "0-2"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIntersects(t *testing.T) {
	a, _ := Parse("0-3")
	b, _ := Parse("4-5")
	if a.Intersects(b) {
		t.Error("disjoint ranges should not intersect")
	}
	c, _ := Parse("3-10")
	if !a.Intersects(c) {
		t.Error("overlapping ranges should intersect")
	}
}

// Property: for any set of non-negative ints added one at a time, every
// element that was added is a member of the resulting Set, and the Set's
// Size equals the number of distinct elements added.
func TestAddElementsProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("added elements are members", prop.ForAll(
		func(elems []int) bool {
			s := Empty()
			seen := map[int]bool{}
			for _, e := range elems {
				if e < 0 {
					e = -e
				}
				s.Add(e)
				seen[e] = true
			}
			for e := range seen {
				if !s.Contains(e) {
					return false
				}
			}
			return s.Size() == len(seen)
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}
