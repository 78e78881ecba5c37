package errors_test

import (
	"testing"

	"github.com/kay-lambdadelta/multiemu-sub000/errors"
)

func TestIsAndHas(t *testing.T) {
	inner := errors.Errorf(errors.OutOfBus, "out of bus: %#04x", 0x8000)
	outer := errors.Errorf(errors.Denied, "denied: %s", inner)

	if !errors.Is(outer, errors.Denied) {
		t.Errorf("expected outer to be Denied")
	}
	if errors.Is(outer, errors.OutOfBus) {
		t.Errorf("did not expect outer to be OutOfBus directly")
	}
	if !errors.Has(outer, errors.OutOfBus) {
		t.Errorf("expected outer to Has(OutOfBus)")
	}
	if errors.Has(outer, errors.InvalidConfig) {
		t.Errorf("did not expect outer to Has(InvalidConfig)")
	}
}

func TestHead(t *testing.T) {
	err := errors.Errorf(errors.InvalidConfig, "invalid config: %s", "bad width")
	if errors.Head(err) != "invalid config: %s" {
		t.Errorf("unexpected head: %s", errors.Head(err))
	}
}

func TestDeduplication(t *testing.T) {
	inner := errors.Errorf(errors.Denied, "denied")
	outer := errors.Errorf(errors.Denied, "%s", inner)
	if outer.Error() != "denied" {
		t.Errorf("expected deduplicated message, got %q", outer.Error())
	}
}

func TestErrnoString(t *testing.T) {
	if errors.Denied.String() != "denied" {
		t.Errorf("unexpected string: %s", errors.Denied.String())
	}
}
