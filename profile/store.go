package profile

import (
	"github.com/pkg/errors"
)

// Sentinel errors returned by Store for well-known failure modes.
var (
	ErrNotFound        = errors.New("profile: not found")
	ErrAlreadyExists   = errors.New("profile: already exists")
	ErrStillReferenced = errors.New("profile: still referenced")
)

// Store holds the profiles of a single workload, keyed by name, with
// reference counts maintained by the Jobs that use them and by Sequence
// parents that name them as children.
type Store struct {
	profiles map[string]*Profile
	refs     map[string]int
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]*Profile),
		refs:     make(map[string]int),
	}
}

// Add inserts a new profile. Fails if a profile with the same name already exists.
func (s *Store) Add(p *Profile) error {
	if _, exists := s.profiles[p.Name]; exists {
		return errors.Wrapf(ErrAlreadyExists, "profile %q", p.Name)
	}
	s.profiles[p.Name] = p
	return nil
}

// Get returns the profile with the given name, or ErrNotFound.
func (s *Store) Get(name string) (*Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "profile %q", name)
	}
	return p, nil
}

// Exists reports whether a profile with the given name is present.
func (s *Store) Exists(name string) bool {
	_, ok := s.profiles[name]
	return ok
}

// IncRef increments the reference count held against the named profile. It
// is called once per Job that references the profile, and once per Sequence
// parent that names it as a child.
func (s *Store) IncRef(name string) {
	s.refs[name]++
}

// DecRef decrements the reference count held against the named profile.
func (s *Store) DecRef(name string) {
	if s.refs[name] > 0 {
		s.refs[name]--
	}
}

// RefCount reports the current reference count for name.
func (s *Store) RefCount(name string) int {
	return s.refs[name]
}

// Remove deletes a profile by name. Fails with ErrStillReferenced if its
// reference count is non-zero, and with ErrNotFound if it does not exist.
func (s *Store) Remove(name string) error {
	if _, ok := s.profiles[name]; !ok {
		return errors.Wrapf(ErrNotFound, "profile %q", name)
	}
	if s.refs[name] > 0 {
		return errors.Wrapf(ErrStillReferenced, "profile %q (refcount %d)", name, s.refs[name])
	}
	delete(s.profiles, name)
	delete(s.refs, name)
	return nil
}

// GCUnreferenced removes every profile whose reference count is zero,
// returning the names removed. After it returns, the remaining set is
// exactly those names reachable from some Job or from some Sequence
// profile's child list.
func (s *Store) GCUnreferenced() []string {
	var removed []string
	for name := range s.profiles {
		if s.refs[name] == 0 {
			delete(s.profiles, name)
			delete(s.refs, name)
			removed = append(removed, name)
		}
	}
	return removed
}

// Resolve resolves every Sequence profile's string children into Profile
// handles and increments their reference counts accordingly. It also
// detects and rejects cycles among Sequence profiles.
func (s *Store) Resolve() error {
	resolved := make(map[string]bool)
	for name, p := range s.profiles {
		if p.Kind != KindSequence {
			continue
		}
		if err := s.resolveSequence(name, p, make(map[string]bool), resolved); err != nil {
			return err
		}
	}
	return nil
}

// resolveSequence resolves p's children once and records it in resolved so a
// sequence profile reached both as a top-level entry and as another
// sequence's child (the store holds one shared instance either way) doesn't
// re-walk its children and re-IncRef them a second time.
func (s *Store) resolveSequence(name string, p *Profile, visiting map[string]bool, resolved map[string]bool) error {
	if resolved[name] {
		return nil
	}
	if visiting[name] {
		return errors.Errorf("profile %q: cycle detected in sequence profile chain", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	children := make([]*Profile, 0, len(p.Sequence.Sequence))
	for _, childName := range p.Sequence.Sequence {
		child, err := s.Get(childName)
		if err != nil {
			return errors.Wrapf(err, "sequence profile %q: child %q", name, childName)
		}
		if child.Kind == KindSequence {
			if err := s.resolveSequence(childName, child, visiting, resolved); err != nil {
				return err
			}
		}
		children = append(children, child)
		s.IncRef(childName)
	}
	p.Sequence.children = children
	resolved[name] = true
	return nil
}

// Names returns the names of every profile currently in the store.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		out = append(out, name)
	}
	return out
}
