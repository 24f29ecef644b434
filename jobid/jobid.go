// Package jobid provides the JobIdentifier type used throughout batsim4 to
// name a job uniquely within a workload, including its resubmission and
// checkpoint generation.
package jobid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ID identifies a single job: the workload it belongs to, its name within
// that workload, an optional resubmit counter (set when a killed job is
// resubmitted) and an optional checkpoint counter (set when a job is
// restored from a batsim-level checkpoint). Equality and hashing are defined
// on the canonical string form, so ID is safe to use as a map key.
type ID struct {
	Workload   string
	Name       string
	Resubmit   int  // 0 means "no resubmission yet"
	HasResub   bool // distinguishes "#0" from "never resubmitted"
	Checkpoint int
	HasChkpt   bool
}

// New builds an ID with no resubmit/checkpoint suffixes.
func New(workload, name string) ID {
	return ID{Workload: workload, Name: name}
}

// WithResubmit returns a copy of id tagged with the given resubmit counter.
func (id ID) WithResubmit(n int) ID {
	id.Resubmit = n
	id.HasResub = true
	return id
}

// WithCheckpoint returns a copy of id tagged with the given checkpoint counter.
func (id ID) WithCheckpoint(n int) ID {
	id.Checkpoint = n
	id.HasChkpt = true
	return id
}

// String renders the canonical form workload!name[#k][$n].
func (id ID) String() string {
	var b strings.Builder
	b.WriteString(id.Workload)
	b.WriteByte('!')
	b.WriteString(id.Name)
	if id.HasResub {
		fmt.Fprintf(&b, "#%d", id.Resubmit)
	}
	if id.HasChkpt {
		fmt.Fprintf(&b, "$%d", id.Checkpoint)
	}
	return b.String()
}

// Valid reports whether the identifier's lexical fields are valid: neither
// Workload nor Name may contain '!', per spec.
func (id ID) Valid() error {
	if strings.Contains(id.Workload, "!") {
		return errors.Errorf("job identifier: workload name %q must not contain '!'", id.Workload)
	}
	if strings.Contains(id.Name, "!") {
		return errors.Errorf("job identifier: job name %q must not contain '!'", id.Name)
	}
	return nil
}

// Parse parses a canonical "workload!name[#k][$n]" string back into an ID.
func Parse(s string) (ID, error) {
	bangIdx := strings.IndexByte(s, '!')
	if bangIdx < 0 {
		return ID{}, errors.Errorf("job identifier %q: missing '!' separator", s)
	}
	id := ID{Workload: s[:bangIdx]}
	rest := s[bangIdx+1:]

	name := rest
	if dollarIdx := strings.IndexByte(rest, '$'); dollarIdx >= 0 {
		name = rest[:dollarIdx]
		n, err := strconv.Atoi(rest[dollarIdx+1:])
		if err != nil {
			return ID{}, errors.Wrapf(err, "job identifier %q: bad checkpoint counter", s)
		}
		id.Checkpoint = n
		id.HasChkpt = true
	}
	if hashIdx := strings.IndexByte(name, '#'); hashIdx >= 0 {
		base := name[:hashIdx]
		suffix := name[hashIdx+1:]
		n, err := strconv.Atoi(suffix)
		if err != nil {
			return ID{}, errors.Wrapf(err, "job identifier %q: bad resubmit counter", s)
		}
		id.Resubmit = n
		id.HasResub = true
		name = base
	}
	id.Name = name
	return id, id.Valid()
}

// JobNumber reports the integer job number, which is the Name field
// interpreted as an integer when the workload uses numeric job ids (the
// common case for static workload files). Returns an error if Name is not
// an integer.
func (id ID) JobNumber() (int, error) {
	n, err := strconv.Atoi(id.Name)
	if err != nil {
		return 0, errors.Wrapf(err, "job identifier %q: name is not numeric", id.String())
	}
	return n, nil
}
