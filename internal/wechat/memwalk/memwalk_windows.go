// Package memwalk is the shared region-walking primitive behind spec.md
// §4.4's memory key scanner and §4.3's data-directory cross-check gate.
// Both need "read every committed, private, read-write region of at
// least 1 MiB" — this used to be duplicated inline in the teacher's
// v4_windows.go; factoring it here means the scanner and the
// data-directory resolver share one implementation of the region-query
// loop instead of drifting apart.
package memwalk

import (
	"context"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/rkoshiba/wxforensic/internal/model"
)

// Region bounds, by architecture, per spec.md §3's CandidatePointer /
// §4.4's producer description.
func addressRange() (min, max uintptr) {
	if runtime.GOARCH == "amd64" {
		return 0x10000, 0x7FFF_FFFF_FFFF
	}
	return 0x10000, 0x7FFF_FFFF
}

// Visit is called once per scannable region with its base address and
// freshly-read contents. Returning false stops the walk early (used by
// the data-directory cross-check once its one occurrence is found).
type Visit func(base uintptr, data []byte) (keepGoing bool)

// Walk enumerates the target process's address space from the
// architecture's minimum to its maximum user address, invoking visit
// once per region that passes model.MemoryRegion.Scannable. It checks
// ctx before every VirtualQueryEx call and before every region read, so
// callers get the same cancellation granularity spec.md §4.4 describes
// for the scanner's producer.
func Walk(ctx context.Context, handle windows.Handle, visit Visit) error {
	min, max := addressRange()
	addr := min

	for addr < max {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var info windows.MemoryBasicInformation
		if err := windows.VirtualQueryEx(handle, addr, &info, unsafe.Sizeof(info)); err != nil {
			break
		}

		region := model.MemoryRegion{
			Base:    uintptr(info.BaseAddress),
			Size:    uintptr(info.RegionSize),
			State:   info.State,
			Protect: info.Protect,
			Type:    info.Type,
		}

		if !region.Scannable() {
			addr = region.Base + region.Size
			if region.Size == 0 {
				addr = addr + 1
			}
			continue
		}

		size := region.Size
		if region.Base+size > max {
			size = max - region.Base
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		buf := make([]byte, size)
		if err := windows.ReadProcessMemory(handle, region.Base, &buf[0], size, nil); err == nil {
			if !visit(region.Base, buf) {
				return nil
			}
		}

		addr = region.Base + region.Size
	}
	return nil
}
