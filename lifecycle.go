package memalloc

import "fmt"

// Init prepares a for use. It must be called exactly once, before any
// other method, and is itself not reentrant or concurrency-safe. Calling
// Init on an Allocator zero value uses the default region reservation;
// an Allocator built with NewAllocator keeps the reservation size it was
// given.
func (a *Allocator) Init() error {
	logger := a.Logger
	reserve := a.reserveBytes
	if reserve <= 0 {
		reserve = defaultReserve
	}
	*a = Allocator{Logger: logger, reserveBytes: reserve}

	r := newRegion(reserve)
	if err := r.init(); err != nil {
		return fmt.Errorf("memalloc: init region: %w", err)
	}
	a.region = r

	// Lay out the 16-byte prologue/epilogue frame: a 4-byte alignment
	// pad, an always-allocated 8-byte prologue (header+footer, no
	// payload) that serves as the left sentinel for coalescing, and an
	// always-allocated zero-size epilogue header that serves as the
	// right sentinel.
	base, err := r.extend(4 * wordSize)
	if err != nil {
		return fmt.Errorf("memalloc: allocate prologue/epilogue frame: %w", err)
	}
	putTag(base+wordSize, packTag(doubleWord, true))   // prologue header
	putTag(base+2*wordSize, packTag(doubleWord, true)) // prologue footer
	putTag(base+3*wordSize, packTag(0, true))          // epilogue header

	a.heapListPointer = base + 2*wordSize

	if _, err := a.extendHeap(chunkSize / wordSize); err != nil {
		return fmt.Errorf("memalloc: grow initial chunk: %w", err)
	}
	a.log("memalloc: init done, heap list pointer %#x", a.heapListPointer)
	return nil
}

// extendHeap grows the heap by words 4-byte words, rounded up to an
// even word count for 8-byte alignment. The freshly committed memory
// becomes one free block, reusing the previous epilogue's header
// location as its own header, and is immediately coalesced with
// whatever free block preceded the old epilogue before being returned.
func (a *Allocator) extendHeap(words int) (uintptr, error) {
	if words < 2 {
		words = 2
	}
	if words%2 != 0 {
		words++
	}
	size := uint32(words) * wordSize

	bp, err := a.region.extend(int(size))
	if err != nil {
		return 0, err
	}

	putTag(headerAddr(bp), packTag(size, false))
	putTag(footerAddr(bp), packTag(size, false))
	putTag(headerAddr(nextBlockAddr(bp)), packTag(0, true)) // new epilogue

	a.extensions++
	a.log("memalloc: extended heap by %d bytes at %#x", size, bp)
	return a.coalesce(bp), nil
}

func (a *Allocator) log(format string, args ...interface{}) {
	if a.Logger != nil {
		a.Logger(format, args...)
	}
}
