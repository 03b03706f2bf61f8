// Package sysinfo probes host resources before an export starts.
package sysinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// bytesPerPixel covers the RGBA staging buffer plus quantizer working set.
const bytesPerPixel = 8

// Prober reads host memory state. It exists so tests can substitute a
// fixed reading.
type Prober interface {
	AvailableMemory() (uint64, error)
}

// HostProber reads live values from the operating system.
type HostProber struct{}

// NewHostProber returns a prober backed by the host OS.
func NewHostProber() *HostProber {
	return &HostProber{}
}

// AvailableMemory returns the bytes of memory available for allocation.
func (p *HostProber) AvailableMemory() (uint64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("read memory stats: %w", err)
	}
	return stat.Available, nil
}

// EstimateWorkingSet returns the approximate peak memory an export of
// frameCount frames at the given dimensions will hold at once.
func EstimateWorkingSet(frameCount, width, height int) uint64 {
	if frameCount <= 0 || width <= 0 || height <= 0 {
		return 0
	}
	// One frame in flight plus the accumulated per-frame palette and
	// index planes held until the container is assembled.
	frame := uint64(width) * uint64(height) * bytesPerPixel
	indexed := uint64(width) * uint64(height) * uint64(frameCount)
	return frame + indexed
}

// CheckMemory compares the export's estimated working set against the
// host's available memory. It returns the two values and whether the
// export fits with headroom.
func CheckMemory(p Prober, frameCount, width, height int) (needed, available uint64, ok bool, err error) {
	needed = EstimateWorkingSet(frameCount, width, height)
	available, err = p.AvailableMemory()
	if err != nil {
		return needed, 0, false, err
	}
	// Keep a quarter of available memory free for the rest of the process.
	ok = needed <= available/4*3
	return needed, available, ok, nil
}
