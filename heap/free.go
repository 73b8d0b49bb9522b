package heap

import "unsafe"

// Free releases a pointer previously returned by Malloc. A nil pointer is
// a caller error (undefined behavior, not a checked error), so it panics
// rather than silently returning. Otherwise it marks the block free and
// eagerly coalesces with whichever of its address-list neighbors are also
// free, covering all four neighbor-state combinations.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		fatal("Free called with a nil pointer")
	}

	addr := h.headerAddrOf(ptr)
	b := h.blockAt(addr)
	if b.isFree() {
		fatal("double free of block 0x%x", addr)
	}

	predAddr := h.predecessorOf(addr)
	predFree := predAddr != nullAddr && h.blockAt(predAddr).isFree()

	nextAddr := uintptr(b.next)
	nextFree := nextAddr != nullAddr && h.blockAt(nextAddr).isFree()

	switch {
	case !predFree && !nextFree:
		b.setFree(true)
		h.freeListInsertHead(addr)

	case predFree && !nextFree:
		h.mergeIntoPredecessor(predAddr, addr)

	case !predFree && nextFree:
		h.absorbNext(addr)
		b.setFree(true)
		h.freeListInsertHead(addr)

	default: // predFree && nextFree
		h.absorbNext(addr)
		h.mergeIntoPredecessor(predAddr, addr)
	}
}

// absorbNext folds the free address-list successor of the block being
// freed at addr into addr's own payload, removing the successor from both the
// address-ordered list and the free list. addr's free flag and free-list
// membership are left to the caller.
func (h *Heap) absorbNext(addr uintptr) {
	b := h.blockAt(addr)
	nextAddr := uintptr(b.next)
	next := h.blockAt(nextAddr)

	h.freeListRemove(nextAddr)
	b.setPayloadSize(b.payloadSize() + headerSize + next.payloadSize())
	b.next = next.next
	if uintptr(b.next) == nullAddr {
		h.setTail(addr)
	}
}

// mergeIntoPredecessor folds the block at addr (already merged with any
// free right neighbor by the caller) into its already-free predecessor at
// predAddr, growing predAddr in place. addr itself disappears from the
// address-ordered list; predAddr keeps its existing free-list membership.
func (h *Heap) mergeIntoPredecessor(predAddr, addr uintptr) {
	pred := h.blockAt(predAddr)
	b := h.blockAt(addr)

	pred.setPayloadSize(pred.payloadSize() + headerSize + b.payloadSize())
	pred.next = b.next
	if uintptr(pred.next) == nullAddr {
		h.setTail(predAddr)
	}
}
