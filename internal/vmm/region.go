// Package vmm models a VM-area descriptor and its sbrk contract: a
// contiguous virtual range [vm_start, vm_end) with a growing high-water mark
// top. It is grounded on the source kernel's pointer-arithmetic helpers in
// memory.go (addToPointer, pointerToUintptr, castToPointer) generalized from
// file-scope globals into a value type, so the same code serves both the
// kernel's singleton region and one region per user process.
package vmm

import (
	"fmt"
	"unsafe"

	"mazheap/internal/console"
	"mazheap/internal/pageframe"
)

// Region is a contiguous virtual range obtained from the page-frame
// allocator, with a high-water mark tracking how much of it is committed.
type Region struct {
	vmStart uintptr
	vmEnd   uintptr
	top     uintptr
	bytes   []byte // backing storage, vmEnd-vmStart long, bytes[0] at vmStart
	pf      *pageframe.Allocator
	order   uint
}

// New carves a region of at least minBytes out of pf, rounded up to a
// power-of-two page count before calling the page allocator. kernel marks
// whether the carved pages back the kernel heap or a user process's heap.
// top starts equal to vmStart; callers that reserve a prologue must advance
// it themselves.
func New(pf *pageframe.Allocator, minBytes int, kernel bool) (*Region, error) {
	pages := pageframe.PagesForBytes(minBytes)
	if pages == 0 {
		pages = 1
	}
	order := pageframe.OrderForPages(pages)

	base, err := pf.AllocPagesLowMem(order, kernel)
	if err != nil {
		return nil, fmt.Errorf("vmm: carving region of >=%d bytes: %w", minBytes, err)
	}
	size := uintptr(pageframe.PageSize) << order

	r := &Region{
		vmStart: base,
		vmEnd:   base + size,
		top:     base,
		bytes:   pf.Bytes(base, order),
		pf:      pf,
		order:   order,
	}
	console.Info("vmm", "region [0x%x, 0x%x) ready (%d bytes)", r.vmStart, r.vmEnd, size)
	return r, nil
}

// Start returns the region's base address.
func (r *Region) Start() uintptr { return r.vmStart }

// End returns the region's exclusive upper bound.
func (r *Region) End() uintptr { return r.vmEnd }

// Top returns the current high-water mark.
func (r *Region) Top() uintptr { return r.top }

// SetTop forces the high-water mark, used once by the facade to skip past
// the region prologue right after the region is created.
func (r *Region) SetTop(top uintptr) {
	if top < r.vmStart || top > r.vmEnd {
		panic(fmt.Sprintf("vmm: SetTop(0x%x) outside region [0x%x, 0x%x)", top, r.vmStart, r.vmEnd))
	}
	r.top = top
}

// Sbrk adjusts the high-water mark:
//   - delta > 0: grow top by delta if it still fits before vmEnd, returning
//     the prior top; otherwise fail.
//   - delta == 0: return the current top.
//   - delta < 0: treated as a no-op returning the current top (the source
//     guards growth with "if (increment > 0)"; this repo adopts the same
//     rule rather than implementing shrink).
func (r *Region) Sbrk(delta int64) (prior uintptr, ok bool) {
	switch {
	case delta > 0:
		newTop := r.top + uintptr(delta)
		if newTop > r.vmEnd || newTop < r.top {
			return 0, false
		}
		prior = r.top
		r.top = newTop
		return prior, true
	default:
		return r.top, true
	}
}

// Pointer turns an address inside the region into a live unsafe.Pointer
// into the region's backing storage. It panics on an out-of-range address,
// since that only happens on a consistency violation upstream.
func (r *Region) Pointer(addr uintptr) unsafe.Pointer {
	if addr < r.vmStart || addr >= r.vmEnd {
		panic(fmt.Sprintf("vmm: address 0x%x outside region [0x%x, 0x%x)", addr, r.vmStart, r.vmEnd))
	}
	return unsafe.Pointer(&r.bytes[addr-r.vmStart])
}

// Contains reports whether addr falls in the open interval (vmStart, vmEnd),
// the test sys_brk uses to decide its free-vs-allocate branch.
func (r *Region) Contains(addr uintptr) bool {
	return addr > r.vmStart && addr < r.vmEnd
}

// Release returns the region's pages to the page-frame allocator. No code
// in this repository calls it; user heaps are never torn down here.
func (r *Region) Release() error {
	return r.pf.FreePagesLowMem(r.vmStart, r.order)
}
