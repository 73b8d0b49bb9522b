package heap

import "mazheap/internal/console"

// Walk calls visit once per block in address order, reporting its header
// address, payload size, and free/allocated state. Like Dump, it never
// allocates and is bounded by maxScanDepth.
func (h *Heap) Walk(visit func(addr uintptr, size uint64, free bool)) {
	addr := h.headAddr()
	for i := 0; addr != nullAddr; i++ {
		if i >= h.maxScanDepth {
			fatal("block list scan exceeded %d entries, possible cycle", h.maxScanDepth)
		}
		b := h.blockAt(addr)
		visit(addr, b.payloadSize(), b.isFree())
		addr = uintptr(b.next)
	}
}

// Dump walks the address-ordered block list and writes one line per block
// to the console. It touches only already-live state and never calls
// Malloc or growAndAppend, so it is safe to call from inside another heap
// operation without reentering the allocator.
func (h *Heap) Dump(prefix string) {
	console.Info(prefix, "region [0x%x, 0x%x) top=0x%x", h.region.Start(), h.region.End(), h.region.Top())

	addr := h.headAddr()
	for i := 0; addr != nullAddr; i++ {
		if i >= h.maxScanDepth {
			console.Warn(prefix, "block list scan aborted after %d entries, possible cycle", h.maxScanDepth)
			return
		}
		b := h.blockAt(addr)
		state := "allocated"
		if b.isFree() {
			state = "free"
		}
		console.Info(prefix, "  block 0x%x size=%d %s", addr, b.payloadSize(), state)
		addr = uintptr(b.next)
	}
}
