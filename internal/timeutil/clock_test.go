package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	c.Sleep(time.Millisecond)
	if c.Since(start) < time.Millisecond {
		t.Errorf("Since = %v, want at least 1ms", c.Since(start))
	}
}

func TestMockClock(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	if !c.Now().Equal(base) {
		t.Fatalf("Now = %v, want %v", c.Now(), base)
	}
	c.Advance(time.Minute)
	c.Sleep(2 * time.Second)
	c.Sleep(3 * time.Second)
	if got, want := c.Since(base), time.Minute+5*time.Second; got != want {
		t.Errorf("Since = %v, want %v", got, want)
	}
	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 3*time.Second {
		t.Errorf("Sleeps = %v", sleeps)
	}

	later := base.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Now after Set = %v, want %v", c.Now(), later)
	}
}
