// Package pageframe is a page-frame allocator, exposing pages only through
// alloc_pages_lowmem-style calls. It is grounded on the source kernel's
// page.go (the Page metadata struct,
// the free list, power-of-two page-count rounding) but backs its pages with
// a real anonymous mmap instead of a bare-metal physical frame pool, since
// this target runs hosted.
package pageframe

import (
	"errors"
	"fmt"

	"github.com/cznic/mathutil"
	"mazheap/internal/bitfield"
	"mazheap/internal/console"
)

// PageSize matches the source kernel's PAGE_SIZE constant (4KB pages).
const PageSize = 4096

// ErrOutOfPages is returned when no run of free pages large enough for the
// request exists.
var ErrOutOfPages = errors.New("pageframe: no contiguous run of free pages available")

// page is the per-frame metadata entry, one per PageSize-byte frame in the
// arena. It mirrors the source kernel's Page struct, minus the virtual-address
// remapping fields a bare-metal identity-mapped kernel needs and this
// hosted target does not.
type page struct {
	flags uint32 // packed bitfield.PageFlags
}

func (p *page) setFlags(f bitfield.PageFlags) {
	packed, err := bitfield.PackPageFlags(f)
	if err != nil {
		// Every PageFlags value produced by this package fits in 32 bits by
		// construction; a failure here means the bitfield layout and this
		// package have drifted out of sync.
		panic(fmt.Sprintf("pageframe: PackPageFlags: %v", err))
	}
	p.flags = packed
}

func (p *page) getFlags() bitfield.PageFlags {
	return bitfield.UnpackPageFlags(p.flags)
}

// Allocator is a page-frame arena: a single contiguous mmap'd region
// divided into PageSize frames, each tracked by a page metadata entry. It
// plays the role of the kernel's physical frame pool.
type Allocator struct {
	arena []byte
	base  uintptr
	pages []page
}

// New creates an Allocator backed by enough pages to cover at least
// minBytes, rounded up to a whole number of pages.
func New(minBytes int) (*Allocator, error) {
	if minBytes <= 0 {
		return nil, fmt.Errorf("pageframe: minBytes must be positive, got %d", minBytes)
	}
	numPages := (minBytes + PageSize - 1) / PageSize
	arena, err := mmapAnon(numPages * PageSize)
	if err != nil {
		return nil, fmt.Errorf("pageframe: mmap %d bytes: %w", numPages*PageSize, err)
	}

	a := &Allocator{
		arena: arena,
		base:  sliceBase(arena),
		pages: make([]page, numPages),
	}
	console.Info("pageframe", "arena ready: %d pages (%d bytes) at 0x%x", numPages, len(arena), a.base)
	return a, nil
}

// Close releases the arena back to the OS. Any page ranges still allocated
// become invalid; callers must not dereference them afterward.
func (a *Allocator) Close() error {
	if a.arena == nil {
		return nil
	}
	err := munmapAnon(a.arena)
	a.arena = nil
	a.pages = nil
	return err
}

// OrderForPages returns the smallest order such that 1<<order >= pages, the
// power-of-two page count kheap_init rounds up to before asking the page
// allocator for space.
func OrderForPages(pages uint32) uint {
	if pages <= 1 {
		return 0
	}
	return uint(mathutil.BitLen(int(pages - 1)))
}

// PagesForBytes rounds byte count up to a whole number of PageSize pages.
func PagesForBytes(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + PageSize - 1) / PageSize)
}

// AllocPagesLowMem allocates 2^order contiguous pages and returns the base
// address of the run. kernel marks whether the run backs the kernel's own
// heap or a user process's, recorded in each page's flags. Pages come back
// zeroed.
func (a *Allocator) AllocPagesLowMem(order uint, kernel bool) (uintptr, error) {
	n := uint32(1) << order
	if int(n) > len(a.pages) {
		return 0, ErrOutOfPages
	}

	run := 0
	for i := 0; i < len(a.pages); i++ {
		if a.pages[i].getFlags().Allocated {
			run = 0
			continue
		}
		run++
		if uint32(run) == n {
			start := i - run + 1
			a.markRun(start, n, true, kernel)
			clear(a.arena[start*PageSize : (start+int(n))*PageSize])
			base := a.base + uintptr(start)*PageSize
			console.Trace("pageframe", "alloc_pages_lowmem(order=%d, kernel=%v) -> 0x%x (%d pages)", order, kernel, base, n)
			return base, nil
		}
	}
	return 0, ErrOutOfPages
}

// FreePagesLowMem releases a run previously returned by AllocPagesLowMem.
func (a *Allocator) FreePagesLowMem(base uintptr, order uint) error {
	n := uint32(1) << order
	if base < a.base || base >= a.base+uintptr(len(a.pages))*PageSize {
		return fmt.Errorf("pageframe: address 0x%x outside arena", base)
	}
	offset := base - a.base
	if offset%PageSize != 0 {
		return fmt.Errorf("pageframe: address 0x%x is not page-aligned", base)
	}
	start := int(offset / PageSize)
	if start+int(n) > len(a.pages) {
		return fmt.Errorf("pageframe: run of %d pages at index %d exceeds arena", n, start)
	}
	a.markRun(start, n, false, false)
	console.Trace("pageframe", "free_pages_lowmem(order=%d) <- 0x%x (%d pages)", order, base, n)
	return nil
}

func (a *Allocator) markRun(start int, n uint32, allocated bool, kernel bool) {
	for i := start; i < start+int(n); i++ {
		a.pages[i].setFlags(bitfield.PageFlags{Allocated: allocated, KernelPage: kernel})
	}
}

// Bytes returns the backing storage for the page at the given base address,
// sliced to exactly PageSize<<order bytes. It exists so vmm.Region can turn
// a page run into a Go-visible byte slice without its own unsafe.Pointer
// arithmetic.
func (a *Allocator) Bytes(base uintptr, order uint) []byte {
	offset := base - a.base
	size := uintptr(PageSize) << order
	return a.arena[offset : offset+size]
}
