package sysinfo

import (
	"errors"
	"testing"
)

type fixedProber struct {
	available uint64
	err       error
}

func (p *fixedProber) AvailableMemory() (uint64, error) {
	return p.available, p.err
}

func TestEstimateWorkingSet(t *testing.T) {
	if got := EstimateWorkingSet(0, 640, 480); got != 0 {
		t.Errorf("no frames should need no memory, got %d", got)
	}
	if got := EstimateWorkingSet(10, 0, 480); got != 0 {
		t.Errorf("degenerate dimensions should need no memory, got %d", got)
	}

	small := EstimateWorkingSet(10, 320, 240)
	large := EstimateWorkingSet(10, 640, 480)
	if small >= large {
		t.Errorf("larger frames should need more memory: %d vs %d", small, large)
	}
	if EstimateWorkingSet(20, 320, 240) <= small {
		t.Error("more frames should need more memory")
	}
}

func TestCheckMemory(t *testing.T) {
	needed := EstimateWorkingSet(10, 320, 240)

	_, _, ok, err := CheckMemory(&fixedProber{available: needed * 10}, 10, 320, 240)
	if err != nil || !ok {
		t.Errorf("ample memory should pass: ok=%v err=%v", ok, err)
	}

	_, _, ok, err = CheckMemory(&fixedProber{available: needed}, 10, 320, 240)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("tight memory should not pass the headroom check")
	}
}

func TestCheckMemory_ProbeError(t *testing.T) {
	probeErr := errors.New("probe failed")
	_, _, _, err := CheckMemory(&fixedProber{err: probeErr}, 10, 320, 240)
	if !errors.Is(err, probeErr) {
		t.Errorf("expected the probe error, got %v", err)
	}
}

func TestHostProber(t *testing.T) {
	avail, err := NewHostProber().AvailableMemory()
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if avail == 0 {
		t.Error("available memory should be nonzero on a running host")
	}
}
