package timing

import "testing"

func TestFrameDelay_Floor(t *testing.T) {
	for _, fps := range []float64{15, 30, 60} {
		for _, speed := range []float64{0.25, 0.5, 1, 2, 4} {
			for skip := 1; skip <= 5; skip++ {
				if got := FrameDelay(fps, speed, skip); got < MinDelayCs {
					t.Errorf("FrameDelay(%v, %v, %d) = %d, below floor %d",
						fps, speed, skip, got, MinDelayCs)
				}
			}
		}
	}
}

func TestFrameDelay_Values(t *testing.T) {
	tests := []struct {
		fps   float64
		speed float64
		skip  int
		want  int
	}{
		{30, 1, 1, 3},  // 33.3ms -> 3.33cs -> 3
		{30, 1, 3, 10}, // 100ms -> 10cs
		{60, 1, 1, 2},  // 16.7ms -> 1.67cs, clamped to 2
		{10, 1, 1, 10},
		{10, 0.5, 1, 20},
		{30, 4, 5, 4}, // 33.3/4*5 = 41.7ms -> 4cs
	}
	for _, tt := range tests {
		if got := FrameDelay(tt.fps, tt.speed, tt.skip); got != tt.want {
			t.Errorf("FrameDelay(%v, %v, %d) = %d, want %d",
				tt.fps, tt.speed, tt.skip, got, tt.want)
		}
	}
}

func TestFrameDelay_SpeedOrdering(t *testing.T) {
	normal := FrameDelay(30, 1, 1)
	if faster := FrameDelay(30, 2, 1); faster >= normal {
		t.Errorf("faster playback should shorten delay: got %d >= %d", faster, normal)
	}
	if slower := FrameDelay(30, 0.5, 1); slower <= normal {
		t.Errorf("slower playback should lengthen delay: got %d <= %d", slower, normal)
	}
}

func TestFrameDelay_DefaultsForInvalidInput(t *testing.T) {
	if got := FrameDelay(0, 1, 1); got != FrameDelay(30, 1, 1) {
		t.Errorf("zero fps should fall back to 30, got %d", got)
	}
	if got := FrameDelay(30, 0, 0); got != FrameDelay(30, 1, 1) {
		t.Errorf("invalid speed/skip should fall back to 1, got %d", got)
	}
}

func TestApplyFrameSkip(t *testing.T) {
	frames := []string{"f0", "f1", "f2", "f3", "f4"}

	got := ApplyFrameSkip(frames, 2)
	want := []string{"f0", "f2", "f4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestApplyFrameSkip_Identity(t *testing.T) {
	frames := []int{1, 2, 3}
	if got := ApplyFrameSkip(frames, 1); len(got) != 3 {
		t.Errorf("skip 1 should return input unchanged, got %d frames", len(got))
	}
	if got := ApplyFrameSkip(frames, 0); len(got) != 3 {
		t.Errorf("skip 0 should return input unchanged, got %d frames", len(got))
	}
}

func TestApplyFrameSkip_Edges(t *testing.T) {
	if got := ApplyFrameSkip([]int{}, 3); len(got) != 0 {
		t.Errorf("empty input should stay empty, got %d frames", len(got))
	}
	if got := ApplyFrameSkip([]int{42}, 3); len(got) != 1 || got[0] != 42 {
		t.Errorf("single frame survives any skip, got %v", got)
	}
	if got := ApplyFrameSkip([]int{0, 1, 2, 3, 4, 5}, 5); len(got) != 2 {
		t.Errorf("expected 2 frames for skip 5 over 6 frames, got %d", len(got))
	}
}

func TestApplyFrameSkip_PreservesOrder(t *testing.T) {
	frames := make([]int, 100)
	for i := range frames {
		frames[i] = i
	}
	got := ApplyFrameSkip(frames, 3)
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("order not preserved at %d: %d after %d", i, got[i], got[i-1])
		}
	}
}
