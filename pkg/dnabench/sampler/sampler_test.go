package sampler

import (
	"testing"
)

func seed(v int64) *int64 { return &v }

func TestChooseStartTimeWithinWindow(t *testing.T) {
	s := New(seed(7))

	tests := []struct {
		length, duration, padding int
	}{
		{300, 10, 10},
		{60, 5, 0},
		{30, 10, 10}, // window collapses to a single value
		{25, 5, 10},
	}

	for _, tt := range tests {
		lo, hi, ok := Window(tt.length, tt.duration, tt.padding)
		if !ok {
			t.Fatalf("Window(%d,%d,%d) unexpectedly degenerate", tt.length, tt.duration, tt.padding)
		}
		for i := 0; i < 500; i++ {
			got := s.ChooseStartTime(tt.length, tt.duration, tt.padding)
			if got < lo || got > hi {
				t.Fatalf("ChooseStartTime(%d,%d,%d) = %d, outside [%d,%d]",
					tt.length, tt.duration, tt.padding, got, lo, hi)
			}
		}
	}
}

func TestChooseStartTimeDegenerateWindow(t *testing.T) {
	s := New(nil)

	tests := []struct {
		length, duration, padding int
	}{
		{20, 10, 10},
		{5, 10, 0},
		{0, 0, 1},
		{29, 10, 10},
	}

	for _, tt := range tests {
		if _, _, ok := Window(tt.length, tt.duration, tt.padding); ok {
			t.Errorf("Window(%d,%d,%d) should be degenerate", tt.length, tt.duration, tt.padding)
		}
		if got := s.ChooseStartTime(tt.length, tt.duration, tt.padding); got != 0 {
			t.Errorf("ChooseStartTime(%d,%d,%d) = %d, want 0", tt.length, tt.duration, tt.padding, got)
		}
	}
}

func TestSeededSamplersAreReproducible(t *testing.T) {
	a := New(seed(42))
	b := New(seed(42))

	for i := 0; i < 100; i++ {
		x := a.ChooseStartTime(300, 10, 10)
		y := b.ChooseStartTime(300, 10, 10)
		if x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
	if !a.Seeded() || a.Seed() != 42 {
		t.Errorf("Seeded()=%v Seed()=%d, want true 42", a.Seeded(), a.Seed())
	}
}

func TestUnseededSamplerExposesSeed(t *testing.T) {
	a := New(nil)
	if a.Seeded() {
		t.Error("Seeded() = true for nil seed")
	}

	replay := New(seed(a.Seed()))
	for i := 0; i < 50; i++ {
		if x, y := a.ChooseStartTime(600, 15, 10), replay.ChooseStartTime(600, 15, 10); x != y {
			t.Fatalf("replay diverged at draw %d: %d vs %d", i, x, y)
		}
	}
}

func TestChooseStartTimeCoversWindow(t *testing.T) {
	s := New(seed(1))
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		seen[s.ChooseStartTime(40, 10, 10)] = true
	}
	// window is [10, 20]
	for v := 10; v <= 20; v++ {
		if !seen[v] {
			t.Errorf("start time %d never drawn", v)
		}
	}
}
