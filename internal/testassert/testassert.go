// Package testassert provides a small set of test helpers, in place of a
// third-party assertion library. Only this package's own tests use it; the
// other packages' tests call testing.T directly.
package testassert

import (
	"math"
	"testing"
)

// ExpectEquality fails the test if got != want.
func ExpectEquality(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// ExpectInequality fails the test if got == want.
func ExpectInequality(t *testing.T, got, want interface{}) {
	t.Helper()
	if got == want {
		t.Errorf("expected %v to differ from %v", got, want)
	}
}

// ExpectSuccess fails the test if v is a non-nil error or false.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case nil:
		return
	case error:
		t.Errorf("expected success, got error: %s", x)
	case bool:
		if !x {
			t.Errorf("expected success, got false")
		}
	}
}

// ExpectFailure fails the test if v is nil or true.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case nil:
		t.Errorf("expected failure, got nil")
	case error:
		if x == nil {
			t.Errorf("expected failure, got nil error")
		}
	case bool:
		if x {
			t.Errorf("expected failure, got true")
		}
	}
}

// ExpectApproximate fails the test if got is not within tolerance of want.
func ExpectApproximate(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("expected %v to be within %v of %v", got, tolerance, want)
	}
}
