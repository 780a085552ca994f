package logger

import (
	"errors"
	"testing"
	"time"
)

func TestStatus(t *testing.T) {
	if got := Status(nil); got != "ok" {
		t.Errorf("Status(nil) = %q, want ok", got)
	}
	if got := Status(errors.New("boom")); got != "error" {
		t.Errorf("Status(err) = %q, want error", got)
	}
}

func TestRoundMS(t *testing.T) {
	if got := RoundMS(-time.Second); got != 0 {
		t.Errorf("RoundMS(-1s) = %v, want 0", got)
	}
	if got := RoundMS(1499 * time.Microsecond); got != time.Millisecond {
		t.Errorf("RoundMS(1.499ms) = %v, want 1ms", got)
	}
}

func TestBuildRID(t *testing.T) {
	if got := BuildRID(1, 2, 3); got != "u1-c2-s3" {
		t.Errorf("BuildRID = %q", got)
	}
}
