// Package diskspace probes free space on a filesystem path, used to gate
// admission before a download starts writing to tempDir.
package diskspace

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"

	apperr "trackforge/internal/errors"
)

const bytesPerGB = 1024 * 1024 * 1024

// AvailableBytes returns the free space available on the filesystem holding path.
func AvailableBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, apperr.WrapWithMessage("diskspace.AvailableBytes", err, fmt.Sprintf("storage probe failed for %s", path))
	}
	return usage.Free, nil
}

// HasAtLeast reports whether path has at least gb gigabytes of free space.
func HasAtLeast(path string, gb float64) (bool, error) {
	available, err := AvailableBytes(path)
	if err != nil {
		return false, err
	}
	return float64(available) >= gb*bytesPerGB, nil
}

// HumanizeBytes renders a byte count the way storage:low log metadata does.
func HumanizeBytes(bytes uint64) string {
	return humanize.Bytes(bytes)
}

// GB converts a byte count to gigabytes for log metadata ({availableGB, requiredGB}).
func GB(bytes uint64) float64 {
	return float64(bytes) / bytesPerGB
}
