// Package batsimerrors defines the CLI's bit-mapped exit-code error: input
// validation failures accumulate into a single bitmask rather than each
// aborting independently, so a caller scripting batsim runs can see every
// validation problem from one exit code.
package batsimerrors

// Exit-code bits.
const (
	ExitPlatformMissing      = 0x01
	ExitWorkloadInvalid      = 0x02
	ExitWorkflowInvalid      = 0x04
	ExitWorkflowStartPairing = 0x08
	ExitCutWorkflowMissing   = 0x10
	ExitNegativeStart        = 0x20
	ExitBadStartParse        = 0x40
)

// BatsimError wraps an underlying error with the exit-code bit it
// contributes.
type BatsimError struct {
	error
	ExitCode int
}

// NewBatsimError wraps err with exitCode. Returns nil if err is nil, so
// callers can write `if err := NewBatsimError(validate(), bit); err != nil`
// without a separate nil check.
func NewBatsimError(err error, exitCode int) *BatsimError {
	if err == nil {
		return nil
	}
	return &BatsimError{err, exitCode}
}

// GetExitCode returns b's contributed bit, or 0 for a nil *BatsimError.
func (b *BatsimError) GetExitCode() int {
	if b == nil {
		return 0
	}
	return b.ExitCode
}

// Accumulator collects validation failures across the several independent
// checks the CLI entrypoint runs before starting the simulation loop (input
// files, workflow pairing, start-time parsing), combining their exit-code
// bits with bitwise OR so a single run reports every failure at once.
type Accumulator struct {
	errs []*BatsimError
	code int
}

// Add records err under exitCode if err is non-nil.
func (a *Accumulator) Add(err error, exitCode int) {
	be := NewBatsimError(err, exitCode)
	if be == nil {
		return
	}
	a.errs = append(a.errs, be)
	a.code |= exitCode
}

// HasErrors reports whether any check added to a failed.
func (a *Accumulator) HasErrors() bool {
	return len(a.errs) > 0
}

// ExitCode returns the bitwise-OR of every recorded exit code, 0 if none.
func (a *Accumulator) ExitCode() int {
	return a.code
}

// Errors returns every recorded error, in the order Add was called.
func (a *Accumulator) Errors() []*BatsimError {
	return a.errs
}
