package boundary

import (
	"errors"
	"strings"
	"testing"
)

func TestGuardPassesThrough(t *testing.T) {
	b := New()
	calls := 0
	for i := 0; i < 3; i++ {
		if err := b.Guard("render", func() error { calls++; return nil }); err != nil {
			t.Fatalf("Guard() error = %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if b.Faulted() || b.Notice() != "" {
		t.Error("boundary tripped without a fault")
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	var seen *Fault
	b := New(WithOnFault(func(f *Fault) { seen = f }))

	err := b.Guard("render", func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})

	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("Guard() error = %v, want *Fault", err)
	}
	if f.Op != "render" || !strings.Contains(f.Err.Error(), "panic") {
		t.Errorf("fault = %v, want render panic", f)
	}
	if len(f.Stack) == 0 {
		t.Error("panic fault has no stack")
	}
	if seen != f {
		t.Error("OnFault not called with the fault")
	}
	if b.Notice() != DefaultNotice {
		t.Errorf("Notice() = %q, want %q", b.Notice(), DefaultNotice)
	}
}

func TestGuardCapturesError(t *testing.T) {
	boom := errors.New("bad scene data")
	b := New(WithNotice("Something went wrong"))

	err := b.Guard("stage", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Guard() error = %v, want wrapping %v", err, boom)
	}
	if b.Fault().Stack != nil {
		t.Error("error fault has a stack")
	}
	if b.Notice() != "Something went wrong" {
		t.Errorf("Notice() = %q", b.Notice())
	}
}

func TestGuardAfterTrip(t *testing.T) {
	faults := 0
	b := New(WithOnFault(func(*Fault) { faults++ }))
	b.Guard("render", func() error { panic("first") })

	ran := false
	err := b.Guard("render", func() error { ran = true; return nil })
	if !errors.Is(err, ErrTripped) {
		t.Errorf("Guard() error = %v, want ErrTripped", err)
	}
	if ran {
		t.Error("fn ran after the boundary tripped")
	}
	if faults != 1 {
		t.Errorf("OnFault called %d times, want 1", faults)
	}
	if b.Fault().Err.Error() != "panic: first" {
		t.Errorf("Fault() = %v, want the first fault", b.Fault())
	}
}

func TestReset(t *testing.T) {
	b := New()
	b.Guard("render", func() error { return errors.New("x") })
	b.Reset()

	if b.Faulted() {
		t.Error("Faulted() after Reset")
	}
	if err := b.Guard("render", func() error { return nil }); err != nil {
		t.Errorf("Guard() after Reset error = %v", err)
	}
}
