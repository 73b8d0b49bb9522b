package heap

import (
	"fmt"
	"unsafe"

	"mazheap/internal/pageframe"
)

// Kernel is the process-wide singleton kernel heap. It is nil until
// KHeapInit runs; every kernel-heap operation other than KHeapInit itself
// assumes it is already populated.
var Kernel *Heap

// KHeapInit must precede any KMalloc/KFree/KSbrk call. It panics if called
// twice, or if the underlying page-frame pool cannot satisfy the initial
// region.
func KHeapInit(pf *pageframe.Allocator, initialSize int, cfg Config) {
	if Kernel != nil {
		fatal("KHeapInit called twice")
	}
	h, err := newHeap(pf, initialSize, cfg, true)
	if err != nil {
		panic(fmt.Sprintf("heap: KHeapInit: %v", err))
	}
	Kernel = h
}

// KMalloc, KFree and KSbrk are thin wrappers that always target the kernel
// singleton.
func KMalloc(size uint64) unsafe.Pointer { return Kernel.Malloc(size) }
func KFree(ptr unsafe.Pointer)           { Kernel.Free(ptr) }
func KSbrk(delta int64) (uintptr, bool)  { return Kernel.region.Sbrk(delta) }

// USbrk targets the current process's user heap rather than the kernel
// singleton, and asserts a current process with a heap already exists —
// callers that need lazy creation go through SysBrk instead.
func USbrk(delta int64) (uintptr, bool) {
	p := CurrentProcess()
	if p.Mem.heap == nil {
		fatal("usbrk called with no user heap for the current process")
	}
	return p.Mem.heap.region.Sbrk(delta)
}

// SysBrk implements the overloaded sys_brk(addr) syscall: on the first call
// for a process it lazily creates that process's user heap at the default
// size, then dispatches on addr. If addr falls strictly inside the user
// heap's VM area, it is treated as a pointer and freed (returning nil);
// otherwise addr is reinterpreted as a byte count and passed to malloc.
// This overloaded semantic is a documented wart in the source this repo is
// grounded on, kept bit-exact rather than cleaned up into separate
// set/malloc/free calls.
func SysBrk(cfg Config, pf *pageframe.Allocator, addr uintptr) unsafe.Pointer {
	p := CurrentProcess()
	if p.Mem.heap == nil {
		h, err := newHeap(pf, p.Mem.userHeapSize(cfg), cfg, false)
		if err != nil {
			return nil
		}
		p.Mem.heap = h
	}

	h := p.Mem.heap
	if h.region.Contains(addr) {
		h.Free(unsafe.Pointer(addr))
		return nil
	}
	return h.Malloc(uint64(addr))
}

func (m MemoryDescriptor) userHeapSize(cfg Config) int {
	return cfg.withDefaults().UserHeapDefaultSize
}
