package batsimerrors

import (
	"errors"
	"testing"
)

func TestNewBatsimErrorNilErrReturnsNil(t *testing.T) {
	if got := NewBatsimError(nil, ExitWorkloadInvalid); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestGetExitCodeOnNilReceiver(t *testing.T) {
	var b *BatsimError
	if got := b.GetExitCode(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestGetExitCodeRoundTrip(t *testing.T) {
	b := NewBatsimError(errors.New("boom"), ExitNegativeStart)
	if got := b.GetExitCode(); got != ExitNegativeStart {
		t.Errorf("expected %d, got %d", ExitNegativeStart, got)
	}
	if b.Error() != "boom" {
		t.Errorf("expected wrapped error message, got %q", b.Error())
	}
}

func TestAccumulatorCombinesBitsAndIgnoresNilErrors(t *testing.T) {
	var a Accumulator
	a.Add(nil, ExitPlatformMissing)
	a.Add(errors.New("workload missing"), ExitWorkloadInvalid)
	a.Add(errors.New("bad start"), ExitBadStartParse)

	if !a.HasErrors() {
		t.Fatal("expected HasErrors to be true")
	}
	if want := ExitWorkloadInvalid | ExitBadStartParse; a.ExitCode() != want {
		t.Errorf("expected exit code %#x, got %#x", want, a.ExitCode())
	}
	if len(a.Errors()) != 2 {
		t.Errorf("expected 2 recorded errors, got %d", len(a.Errors()))
	}
}

func TestAccumulatorNoErrors(t *testing.T) {
	var a Accumulator
	if a.HasErrors() {
		t.Fatal("expected HasErrors false on empty accumulator")
	}
	if a.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %#x", a.ExitCode())
	}
}
