package errors

import (
	stderrs "errors"
	"fmt"
	"testing"
)

func TestNewAndCodeOf(t *testing.T) {
	err := New(ErrorCodeSchemaIntegrity, "missing header")
	if got := CodeOf(err); got != ErrorCodeSchemaIntegrity {
		t.Fatalf("CodeOf = %d, want %d", got, ErrorCodeSchemaIntegrity)
	}
	if err.Error() != "missing header" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stderrs.New("disk full")
	err := Wrapf(cause, ErrorCodeJoinWorker, "shard %d failed", 7)

	if got := CodeOf(err); got != ErrorCodeJoinWorker {
		t.Fatalf("CodeOf = %d, want join worker", got)
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("wrapped cause lost")
	}
	if Root(err) != cause {
		t.Fatalf("Root should return the deepest cause")
	}
	want := "shard 7 failed: disk full"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if got := CodeOf(fmt.Errorf("plain")); got != ErrorCodeUnknown {
		t.Fatalf("foreign error code = %d, want unknown", got)
	}
	if CodeOf(nil) != ErrorCodeUnknown {
		t.Fatalf("nil error should map to unknown")
	}
}

func TestWithOp(t *testing.T) {
	err := Schemaf("bad header")
	tagged := WithOp(err, "partition")

	e, ok := As(tagged)
	if !ok {
		t.Fatalf("As failed on tagged error")
	}
	if e.Op() != "partition" {
		t.Fatalf("Op = %q, want partition", e.Op())
	}

	// original untouched (copy-on-write)
	o, _ := As(err)
	if o.Op() != "" {
		t.Fatalf("original error mutated")
	}

	// foreign errors pass through unchanged
	foreign := fmt.Errorf("x")
	if WithOp(foreign, "y") != foreign {
		t.Fatalf("foreign error should pass through WithOp")
	}
}

func TestWrapIf(t *testing.T) {
	if WrapIf(nil, ErrorCodeSink, "nope") != nil {
		t.Fatalf("WrapIf(nil) must be nil")
	}
	err := WrapIf(stderrs.New("boom"), ErrorCodeSink, "bulk load")
	if !IsCode(err, ErrorCodeSink) {
		t.Fatalf("WrapIf should carry the sink code")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{Fetchf("timeout"), true},
		{Unavailablef("busy"), true},
		{Schemaf("bad header"), false},
		{JoinWorkerf("shard died"), false},
		{Validationf("shards must be >= 1"), false},
		{fmt.Errorf("foreign"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Fatalf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
