// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.
//
// Adapted from mmap-go's reserve/commit dance for anonymous, fixed-base
// address space rather than file-backed mappings.

//go:build unix

package memalloc

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// mmapRegion implements region on unix-like systems with the classic
// reserve-then-commit trick: a large span of address space is reserved
// up front with PROT_NONE so the base address never moves, then each
// extend call commits the next slice of it with mprotect. Because every
// extension grows forward from the same fixed base, adjacency is
// automatic — no brk/sbrk bookkeeping is needed.
//
// committed tracks the logical byte offset handed out by extend, which
// need not land on a page boundary. mapped tracks how far mprotect has
// actually been told to open up PROT_READ|PROT_WRITE, always rounded up
// to a whole number of pages — mprotect rejects unaligned addresses
// with EINVAL, so extend must never pass it anything less.
type mmapRegion struct {
	base      uintptr
	reserved  int
	committed int
	mapped    int
}

var pageSize = os.Getpagesize()

func roundUpPage(n int) int {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

func newRegion(reserveBytes int) *mmapRegion {
	return &mmapRegion{reserved: reserveBytes}
}

func (r *mmapRegion) init() error {
	b, err := syscall.Mmap(-1, 0, r.reserved, syscall.PROT_NONE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return fmt.Errorf("memalloc: reserve %d bytes of address space: %w", r.reserved, err)
	}
	r.base = uintptr(unsafe.Pointer(&b[0]))
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
		page := unsafe.Slice((*byte)(unsafe.Pointer(pageAddr)), newMapped-r.mapped)
		if err := syscall.Mprotect(page, syscall.PROT_READ|syscall.PROT_WRITE); err != nil {
			return 0, fmt.Errorf("memalloc: commit %d bytes at %#x: %w", newMapped-r.mapped, pageAddr, err)
		}
		r.mapped = newMapped
	}

	r.committed = need
	return addr, nil
}

func (r *mmapRegion) committedBytes() int { return r.committed }
