//go:build windows

package memalloc

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// mmapRegion implements region on Windows using VirtualAlloc's two-phase
// reserve/commit model, the direct analog of the unix PROT_NONE-then-
// mprotect trick: MEM_RESERVE fixes a base address without committing
// any physical pages, and each extend call commits the next slice with
// MEM_COMMIT.
//
// committed tracks the logical byte offset handed out by extend; mapped
// tracks how far MEM_COMMIT has actually been issued, rounded up to a
// whole number of pages so every commit call targets an address and
// size VirtualAlloc accepts unconditionally.
type mmapRegion struct {
	base      uintptr
	reserved  int
	committed int
	mapped    int
}

var pageSize = func() int {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return int(si.PageSize)
}()

func roundUpPage(n int) int {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

func newRegion(reserveBytes int) *mmapRegion {
	return &mmapRegion{reserved: reserveBytes}
}

func (r *mmapRegion) init() error {
	addr, err := windows.VirtualAlloc(0, uintptr(r.reserved), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return fmt.Errorf("memalloc: reserve %d bytes of address space: %w", r.reserved, err)
	}
	r.base = addr
	return nil
}

func (r *mmapRegion) extend(n int) (uintptr, error) {
	need := r.committed + n
	if need > r.reserved {
		return 0, errRegionExhausted
	}

	addr := r.base + uintptr(r.committed)

	if need > r.mapped {
		newMapped := roundUpPage(need)
		if newMapped > r.reserved {
			newMapped = r.reserved
		}
		pageAddr := r.base + uintptr(r.mapped)
		if _, err := windows.VirtualAlloc(pageAddr, uintptr(newMapped-r.mapped), windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
			return 0, fmt.Errorf("memalloc: commit %d bytes at %#x: %w", newMapped-r.mapped, pageAddr, err)
		}
		r.mapped = newMapped
	}

	r.committed = need
	return addr, nil
}

func (r *mmapRegion) committedBytes() int { return r.committed }
