package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != ModeLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.MaxRetries != 2 {
		t.Fatalf("expected max retries 2 got %d", p.MaxRetries)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(ModeFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != ModeFixed || p.MaxRetries != 5 {
		t.Fatalf("unexpected policy %+v", p)
	}

	p = NewPolicy("bogus", 0, 0, -1)
	if p != DefaultPolicy() {
		t.Fatalf("expected defaults for invalid input, got %+v", p)
	}
}

func TestDelayModes(t *testing.T) {
	tests := []struct {
		mode Mode
		want []time.Duration
	}{
		{ModeFixed, []time.Duration{100, 100, 100, 100}},
		{ModeLinear, []time.Duration{100, 200, 300, 350}},
		{ModeExponential, []time.Duration{100, 200, 350, 350}},
	}
	for _, tt := range tests {
		p := NewPolicy(tt.mode, 100*time.Millisecond, 350*time.Millisecond, 4)
		for i, want := range tt.want {
			if d := p.Delay(i + 1); d != want*time.Millisecond {
				t.Errorf("%s retry %d: expected %v got %v", tt.mode, i+1, want*time.Millisecond, d)
			}
		}
	}
	if d := DefaultPolicy().Delay(0); d != 0 {
		t.Errorf("expected no delay before first attempt, got %v", d)
	}
	if d := NewPolicy(ModeExponential, time.Second, time.Minute, 1).Delay(80); d != time.Minute {
		t.Errorf("expected cap on overflow, got %v", d)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after 3 calls, got %v after %d", err, calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	p := NewPolicy(ModeFixed, time.Millisecond, time.Millisecond, 1)
	calls := 0
	err := p.Do(context.Background(), func() error { calls++; return errors.New("down") })
	if err == nil || calls != 2 {
		t.Fatalf("expected failure after 2 calls, got %v after %d", err, calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPolicy(ModeFixed, time.Hour, time.Hour, 5)
	err := p.Do(ctx, func() error { return errors.New("down") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
