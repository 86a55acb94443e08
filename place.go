package memalloc

// firstFit searches the segregated free lists for a block able to hold
// size bytes. It starts at class_of(size) and walks that class head to
// tail, returning the first block that fits; if none fits, it widens to
// the next class and repeats. This is first-fit within a class and
// good-fit across classes — and, because the four lowest classes are
// exact sizes, a fit found there is already best-fit.
func (a *Allocator) firstFit(size uint32) uintptr {
	for cls := classOf(size); cls < numSizeClasses; cls++ {
		for bp := a.heads[cls]; bp != 0; bp = nodeAt(bp).next {
			if sizeOf(bp) >= size {
				return bp
			}
		}
	}
	return 0
}

// place commits an allocation into bp, which the caller must already
// have unlinked from its free list via removeFree. If the leftover space
// is large enough to stand on its own as a free block, place splits it
// off and reinserts it; otherwise the whole block is handed out and the
// slack becomes internal fragmentation.
func (a *Allocator) place(bp uintptr, request uint32) {
	actual := request
	if actual < minBlockSize {
		actual = minBlockSize
	}

	blockSize := sizeOf(bp)
	remainder := blockSize - actual

	if remainder >= minBlockSize {
		putTag(headerAddr(bp), packTag(actual, true))
		putTag(footerAddr(bp), packTag(actual, true))

		tail := nextBlockAddr(bp)
		putTag(headerAddr(tail), packTag(remainder, false))
		putTag(footerAddr(tail), packTag(remainder, false))
		a.insertFree(tail)
		return
	}

	putTag(headerAddr(bp), packTag(blockSize, true))
	putTag(footerAddr(bp), packTag(blockSize, true))
}

// coalesce merges bp — whose own header and footer must already read
// alloc=0 — with whichever of its immediate physical neighbors are also
// free, then inserts the resulting block into its (possibly new) size
// class and returns its payload address. The prologue and epilogue
// sentinels always read allocated, so the heap edges need no special
// casing here.
func (a *Allocator) coalesce(bp uintptr) uintptr {
	prevAlloc := getTag(bp - doubleWord).alloc()
	next := nextBlockAddr(bp)
	nextAlloc := getTag(headerAddr(next)).alloc()
	size := sizeOf(bp)

	switch {
	case prevAlloc && nextAlloc:
		// Both neighbors allocated: nothing to merge.

	case prevAlloc && !nextAlloc:
		a.removeFree(next)
		size += sizeOf(next)
		putTag(headerAddr(bp), packTag(size, false))
		putTag(footerAddr(bp), packTag(size, false))

	case !prevAlloc && nextAlloc:
		prev := prevBlockAddr(bp)
		a.removeFree(prev)
		size += sizeOf(prev)
		putTag(headerAddr(prev), packTag(size, false))
		putTag(footerAddr(bp), packTag(size, false))
		bp = prev

	default: // both neighbors free
		prev := prevBlockAddr(bp)
		a.removeFree(prev)
		a.removeFree(next)
		size += sizeOf(prev) + sizeOf(next)
		putTag(headerAddr(prev), packTag(size, false))
		putTag(footerAddr(next), packTag(size, false))
		bp = prev
	}

	a.insertFree(bp)
	return bp
}
