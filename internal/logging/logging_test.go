package logging

import "testing"

func TestNopIfNil(t *testing.T) {
	if NopIfNil(nil) == nil {
		t.Fatal("expected a non-nil no-op logger")
	}
	l := New(false)
	if NopIfNil(l) != l {
		t.Error("expected NopIfNil to pass through a non-nil logger unchanged")
	}
}

func TestNewProducesUsableLogger(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		l := New(verbose)
		if l == nil {
			t.Fatalf("New(%v) returned nil", verbose)
		}
		l.Sugar().Infof("smoke test verbose=%v", verbose)
	}
}
