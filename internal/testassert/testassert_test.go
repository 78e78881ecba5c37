package testassert_test

import (
	"testing"

	"github.com/kay-lambdadelta/multiemu-sub000/internal/testassert"
)

func TestExpectEquality(t *testing.T) {
	testassert.ExpectEquality(t, 10, 5+5)
	testassert.ExpectEquality(t, true, true)
}

func TestExpectInequality(t *testing.T) {
	testassert.ExpectInequality(t, 11, 5+5)
}

func TestExpectApproximate(t *testing.T) {
	testassert.ExpectApproximate(t, 10, 10.05, 0.1)
}
