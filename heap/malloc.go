package heap

import "unsafe"

// Malloc returns a pointer to at least size bytes, or nil for a zero-size
// request (which never touches any list). It rounds the request up to the
// alignment and minimum-payload floor, tries a best-fit free block first,
// and falls back to growing the region via sbrk when nothing fits.
func (h *Heap) Malloc(size uint64) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	need := ceilTo(size, h.cfg.Alignment)
	if need < h.cfg.MinPayload {
		need = h.cfg.MinPayload
	}

	if addr := h.findBestFit(need); addr != nullAddr {
		h.freeListRemove(addr)
		h.carve(addr, need)
		return h.payloadPointer(addr)
	}

	addr := h.growAndAppend(need)
	if addr == nullAddr {
		return nil
	}
	return h.payloadPointer(addr)
}

// carve turns a free block at addr, already unlinked from the free list,
// into an allocated block serving exactly need payload bytes. If the
// leftover after need is big enough to host a new block (header + at least
// MinPayload), it is split off and, when the original block's immediate
// address-list successor is itself free, the remainder and that neighbor
// are absorbed into a single free block rather than left as two adjacent
// free chunks, preserving B3 (no two adjacent free blocks) without a
// separate coalesce pass.
func (h *Heap) carve(addr uintptr, need uint64) {
	b := h.blockAt(addr)
	total := b.payloadSize()
	remainder := total - need

	minSplit := headerSize + h.cfg.MinPayload
	if remainder < minSplit {
		b.setFree(false)
		return
	}

	newAddr := addr + uintptr(headerSize) + uintptr(need)
	newPayload := remainder - headerSize
	nextAddr := uintptr(b.next)

	if nextAddr != nullAddr && h.blockAt(nextAddr).isFree() {
		h.freeListRemove(nextAddr)
		newPayload += headerSize + h.blockAt(nextAddr).payloadSize()
		nextAddr = uintptr(h.blockAt(nextAddr).next)
	}

	newBlock := h.blockAt(newAddr)
	newBlock.reset(newPayload, true, nextAddr)
	if nextAddr == nullAddr {
		h.setTail(newAddr)
	}
	h.freeListInsertHead(newAddr)

	b.setPayloadSize(need)
	b.setFree(false)
	b.next = uint64(newAddr)
}

// growAndAppend extends the region by one new block large enough to hold
// need payload bytes and links it onto the tail of the address-ordered
// list. It returns nullAddr if the underlying region can't grow that far.
func (h *Heap) growAndAppend(need uint64) uintptr {
	grant := headerSize + need
	addr, ok := h.region.Sbrk(int64(grant))
	if !ok {
		return nullAddr
	}

	b := h.blockAt(addr)
	b.reset(need, false, nullAddr)

	if h.headAddr() == nullAddr {
		h.setHead(addr)
	} else {
		h.blockAt(h.tailAddr()).next = uint64(addr)
	}
	h.setTail(addr)

	return addr
}
