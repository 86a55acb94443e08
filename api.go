package memalloc

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrInvalidFree is returned by Free when the header and footer of the
// block at ptr disagree — ptr is not a live block Free can account for.
// The heap is left untouched whenever this error is returned; it is
// best-effort hardening, not a safety guarantee against double-free or
// heap corruption in general.
var ErrInvalidFree = errors.New("memalloc: boundary tag mismatch on free")

// Allocate reserves a block of at least size bytes and returns a pointer
// to its payload, 8-byte aligned. It returns (nil, nil) for size == 0 —
// that is policy, not an error — and (nil, err) when the region provider
// cannot supply enough additional memory.
func (a *Allocator) Allocate(size int) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, nil
	}
	if size < 0 {
		return nil, fmt.Errorf("memalloc: negative size %d", size)
	}
	if uint64(size) > uint64(^uint32(0))-2*doubleWord {
		return nil, fmt.Errorf("memalloc: heap exhausted: size %d exceeds the largest block a boundary tag can hold", size)
	}

	request := uint32(doubleWord) + alignUp8(uint32(size))

	if bp := a.firstFit(request); bp != 0 {
		a.removeFree(bp)
		a.place(bp, request)
		a.allocs++
		return unsafe.Pointer(bp), nil
	}

	extend := int(request)
	if extend < chunkSize {
		extend = chunkSize
	}
	bp, err := a.extendHeap(extend / wordSize)
	if err != nil {
		return nil, fmt.Errorf("memalloc: heap exhausted: %w", err)
	}

	// extendHeap always returns a block already coalesced and inserted
	// into a free list, so it must be unlinked before it can be placed.
	a.removeFree(bp)
	a.place(bp, request)
	a.allocs++
	return unsafe.Pointer(bp), nil
}

// Free releases a block previously returned by Allocate or Reallocate.
// A nil ptr is a silent no-op. Free must not be called twice on the same
// pointer, nor on a pointer Allocate/Reallocate did not return — either
// is undefined behavior on the caller's part; Free only detects the
// cases where the resulting header/footer mismatch is still observable.
func (a *Allocator) Free(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}
	bp := uintptr(ptr)

	h := getTag(headerAddr(bp))
	f := getTag(footerAddr(bp))
	if h.size() != f.size() || h.alloc() != f.alloc() {
		a.log("memalloc: free(%#x): header/footer mismatch, ignoring", bp)
		return ErrInvalidFree
	}

	size := h.size()
	putTag(headerAddr(bp), packTag(size, false))
	putTag(footerAddr(bp), packTag(size, false))
	a.coalesce(bp)
	a.frees++
	return nil
}

// Reallocate resizes the block at ptr to size bytes, preserving the
// overlapping prefix of its contents. On failure the original block is
// left exactly as it was. It is implemented as allocate-copy-free: it is
// not size-class aware and never extends a block in place, which is
// correct but leaves room for improvement (see the package's design
// notes).
func (a *Allocator) Reallocate(ptr unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if ptr == nil {
		return a.Allocate(size)
	}

	newPtr, err := a.Allocate(size)
	if err != nil || newPtr == nil {
		// A nil result — whether from size == 0 or from exhaustion —
		// means there is nothing to copy into, so ptr's block is left
		// exactly as it was rather than freed out from under it.
		return nil, err
	}

	oldPayload := sizeOf(uintptr(ptr)) - doubleWord
	n := oldPayload
	if uint32(size) < n {
		n = uint32(size)
	}
	if n > 0 {
		src := unsafe.Slice((*byte)(ptr), n)
		dst := unsafe.Slice((*byte)(newPtr), n)
		copy(dst, src)
	}

	if err := a.Free(ptr); err != nil {
		return nil, fmt.Errorf("memalloc: reallocate: free old block: %w", err)
	}
	return newPtr, nil
}
