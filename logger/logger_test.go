package logger_test

import (
	"strings"
	"testing"

	"github.com/kay-lambdadelta/multiemu-sub000/logger"
)

func TestLogger(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	if w.String() != "" {
		t.Fatalf("expected empty log, got %q", w.String())
	}

	log.Log(logger.Permit, "test", "this is a test")
	log.Write(w)
	if w.String() != "test: this is a test\n" {
		t.Fatalf("unexpected log contents: %q", w.String())
	}
	w.Reset()

	log.Log(logger.Permit, "test2", "this is another test")
	log.Write(w)
	if w.String() != "test: this is a test\ntest2: this is another test\n" {
		t.Fatalf("unexpected log contents: %q", w.String())
	}

	w.Reset()
	log.Tail(w, 100)
	if w.String() != "test: this is a test\ntest2: this is another test\n" {
		t.Fatalf("unexpected tail: %q", w.String())
	}

	w.Reset()
	log.Tail(w, 1)
	if w.String() != "test2: this is another test\n" {
		t.Fatalf("unexpected tail: %q", w.String())
	}

	w.Reset()
	log.Tail(w, 0)
	if w.String() != "" {
		t.Fatalf("expected empty tail, got %q", w.String())
	}
}

func TestLoggerWraps(t *testing.T) {
	log := logger.NewLogger(2)
	w := &strings.Builder{}

	log.Log(logger.Permit, "a", "1")
	log.Log(logger.Permit, "b", "2")
	log.Log(logger.Permit, "c", "3") // evicts "a: 1"

	log.Write(w)
	if w.String() != "b: 2\nc: 3\n" {
		t.Fatalf("unexpected wrapped contents: %q", w.String())
	}
}

func TestCentralLogger(t *testing.T) {
	logger.Log("central-test", "hello")
	w := &strings.Builder{}
	logger.Tail(w, 1)
	if !strings.Contains(w.String(), "central-test: hello") {
		t.Fatalf("expected central logger to contain entry, got %q", w.String())
	}
}
