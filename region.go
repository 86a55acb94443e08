package memalloc

import "errors"

// region is the external collaborator that hands the allocator raw,
// contiguous, 8-byte-aligned bytes: the region provider of the design.
// Its init and extend operations mirror region_init/region_extend
// directly; committedBytes is a read-only accessor for Stats.
type region interface {
	// init establishes an empty region, fixing its base address.
	init() error

	// extend grows the region by exactly n bytes and returns the
	// address of the first new byte. Successive calls return adjacent
	// regions: extend never returns memory that overlaps or skips
	// over a previous extension.
	extend(n int) (uintptr, error)

	// committedBytes reports how many bytes have been handed out by
	// extend so far. It exists for Stats and never mutates the region.
	committedBytes() int
}

// errRegionExhausted is the region provider's distinguished failure
// sentinel: the region cannot grow any further (its backing reservation
// is used up).
var errRegionExhausted = errors.New("memalloc: region provider exhausted")
