// Package heap is the kernel-space dynamic memory allocator: an intrusive,
// singly-linked, address-ordered list of variable-size blocks layered over
// a region obtained from internal/vmm, with a second singly-linked free
// list threading the free blocks. It implements malloc/free with best-fit
// search, eager coalescing on free, and split-with-absorb on allocation,
// following the original kheap.c this package is modeled on; DESIGN.md
// lists where it departs from it (merge arithmetic, bounded list scans).
//
// The package is not safe for concurrent use. A single allocator operation
// assumes exclusive access to its region's prologue and both intrusive
// lists; callers on a real SMP target must interpose their own lock around
// every public entry point, as the source this package is modeled on does
// with interrupts gated rather than a mutex.
package heap
