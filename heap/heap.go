package heap

import (
	"fmt"
	"unsafe"

	"mazheap/internal/console"
	"mazheap/internal/pageframe"
	"mazheap/internal/vmm"
)

// Heap is one region (kernel singleton or a single user process's heap)
// together with the block-manager state layered over it. Its zero value is
// not usable; construct one with newHeap.
type Heap struct {
	region *vmm.Region
	cfg    Config

	// maxScanDepth bounds the address-list and free-list linear scans. A
	// singly-linked, address-ordered list can in principle be walked
	// forever if it's corrupt or cyclic; this keeps every scan bounded and
	// panics past the bound instead of spinning.
	maxScanDepth int
}

func newHeap(pf *pageframe.Allocator, initialSize int, cfg Config, kernel bool) (*Heap, error) {
	cfg = cfg.withDefaults()

	region, err := vmm.New(pf, initialSize, kernel)
	if err != nil {
		return nil, err
	}

	h := &Heap{region: region, cfg: cfg}
	h.prologuePtr().head, h.prologuePtr().tail, h.prologuePtr().freeHead = 0, 0, 0
	region.SetTop(region.Start() + prologueSize)

	minChunk := headerSize + cfg.MinPayload
	h.maxScanDepth = int((uint64(region.End()-region.Start()))/minChunk) + 1

	console.Info("heap", "region ready, first block at 0x%x", region.Top())
	return h, nil
}

func (h *Heap) prologuePtr() *prologue {
	return (*prologue)(h.region.Pointer(h.region.Start()))
}

func (h *Heap) headAddr() uintptr     { return uintptr(h.prologuePtr().head) }
func (h *Heap) tailAddr() uintptr     { return uintptr(h.prologuePtr().tail) }
func (h *Heap) freeHeadAddr() uintptr { return uintptr(h.prologuePtr().freeHead) }

func (h *Heap) setHead(addr uintptr)     { h.prologuePtr().head = uint64(addr) }
func (h *Heap) setTail(addr uintptr)     { h.prologuePtr().tail = uint64(addr) }
func (h *Heap) setFreeHead(addr uintptr) { h.prologuePtr().freeHead = uint64(addr) }

func (h *Heap) blockAt(addr uintptr) *blockHeader {
	return (*blockHeader)(h.region.Pointer(addr))
}

func (h *Heap) payloadPointer(addr uintptr) unsafe.Pointer {
	return h.region.Pointer(addr + uintptr(headerSize))
}

// headerAddrOf recovers a block's header address from a payload pointer
// previously returned by Malloc. It does not validate that ptr actually
// came from this heap; a foreign pointer is undefined behavior, not a
// checked error.
func (h *Heap) headerAddrOf(ptr unsafe.Pointer) uintptr {
	return uintptr(ptr) - uintptr(headerSize)
}

// Region exposes the heap's backing VM-area descriptor, mainly for tests
// and the diagnostic dump.
func (h *Heap) Region() *vmm.Region { return h.region }

// fatal reports a structural invariant violation: the allocator cannot
// safely continue with a corrupt heap.
func fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("heap: consistency violation: "+format, args...))
}
