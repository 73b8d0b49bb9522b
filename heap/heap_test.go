package heap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"mazheap/internal/pageframe"
)

func newTestHeap(t *testing.T, regionBytes int) *Heap {
	t.Helper()
	pf, err := pageframe.New(64 * pageframe.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	h, err := newHeap(pf, regionBytes, Config{}, true)
	require.NoError(t, err)
	return h
}

// walkBlocks returns the address-ordered list as a slice, bounding the
// walk the same way production code does so a broken test fixture fails
// fast instead of hanging.
func walkBlocks(h *Heap) []uintptr {
	var out []uintptr
	addr := h.headAddr()
	for i := 0; addr != nullAddr; i++ {
		if i >= h.maxScanDepth {
			panic("walkBlocks: scan depth exceeded")
		}
		out = append(out, addr)
		addr = uintptr(h.blockAt(addr).next)
	}
	return out
}

func walkFreeList(h *Heap) []uintptr {
	var out []uintptr
	addr := h.freeHeadAddr()
	for i := 0; addr != nullAddr; i++ {
		if i >= h.maxScanDepth {
			panic("walkFreeList: scan depth exceeded")
		}
		out = append(out, addr)
		addr = uintptr(h.blockAt(addr).nextFree)
	}
	return out
}

func TestNewHeapStartsEmpty(t *testing.T) {
	h := newTestHeap(t, 4096)
	require.Equal(t, nullAddr, h.headAddr())
	require.Equal(t, nullAddr, h.tailAddr())
	require.Equal(t, nullAddr, h.freeHeadAddr())
	require.Equal(t, h.region.Start()+uintptr(prologueSize), h.region.Top())
}

func TestMallocZeroSizeReturnsNilAndDoesNotMutate(t *testing.T) {
	h := newTestHeap(t, 4096)
	top := h.region.Top()

	ptr := h.Malloc(0)
	require.Nil(t, ptr)
	require.Equal(t, nullAddr, h.headAddr())
	require.Equal(t, top, h.region.Top())
}

func TestMallocFirstBlockGrowsRegion(t *testing.T) {
	h := newTestHeap(t, 4096)
	ptr := h.Malloc(10)
	require.NotNil(t, ptr)

	require.Equal(t, h.headAddr(), h.tailAddr())
	b := h.blockAt(h.headAddr())
	require.False(t, b.isFree())
	require.Equal(t, uint64(16), b.payloadSize()) // CEIL(10,16)
	require.Equal(t, nullAddr, h.freeHeadAddr())

	wantPtr := unsafe.Pointer(h.region.Pointer(h.headAddr() + uintptr(headerSize)))
	require.Equal(t, wantPtr, ptr)
}

func TestMallocFreeRoundTrip(t *testing.T) {
	h := newTestHeap(t, 4096)
	ptr := h.Malloc(16)
	require.NotEmpty(t, walkBlocks(h))

	h.Free(ptr)

	// One free block spans exactly what malloc carved out; head and tail
	// are unchanged because free never removes the only block on the list.
	blocks := walkBlocks(h)
	require.Len(t, blocks, 1)
	require.Equal(t, h.headAddr(), blocks[0])
	require.Equal(t, h.tailAddr(), blocks[0])
	require.True(t, h.blockAt(blocks[0]).isFree())
	require.Equal(t, []uintptr{blocks[0]}, walkFreeList(h))
}

func TestMallocNoSplitWhenRemainderTooSmall(t *testing.T) {
	h := newTestHeap(t, 4096)
	ptr := h.Malloc(100)
	h.Free(ptr)

	// Requesting exactly the free block's payload must not split.
	freeAddr := h.freeHeadAddr()
	freeSize := h.blockAt(freeAddr).payloadSize()

	h.Malloc(freeSize)
	require.Len(t, walkBlocks(h), 1, "an exact-fit request must not split the block")
}

func TestMallocSplitsWhenRemainderIsMinimumSize(t *testing.T) {
	h := newTestHeap(t, 4096)
	minSplit := headerSize + h.cfg.MinPayload
	big := 64 + minSplit
	ptr := h.Malloc(big)
	h.Free(ptr)

	freeAddr := h.freeHeadAddr()
	freeSize := h.blockAt(freeAddr).payloadSize()

	h.Malloc(freeSize - minSplit)
	blocks := walkBlocks(h)
	require.Len(t, blocks, 2)
	require.True(t, h.blockAt(blocks[1]).isFree())
	require.Equal(t, h.cfg.MinPayload, h.blockAt(blocks[1]).payloadSize())
}

func TestMallocExactlyExhaustsRegionThenFails(t *testing.T) {
	h := newTestHeap(t, 4096)
	size := int64(h.region.End() - h.region.Top())
	chunk := uint64(size) - headerSize

	ptr := h.Malloc(chunk)
	require.NotNil(t, ptr)
	require.Equal(t, h.region.End(), h.region.Top())

	require.Nil(t, h.Malloc(16))
}

func TestFreeNilPanics(t *testing.T) {
	h := newTestHeap(t, 4096)
	require.Panics(t, func() { h.Free(nil) })
}

func TestFreeDoubleFreePanics(t *testing.T) {
	h := newTestHeap(t, 4096)
	ptr := h.Malloc(16)
	h.Free(ptr)
	require.Panics(t, func() { h.Free(ptr) })
}

func TestFreeNeitherNeighborFree(t *testing.T) {
	h := newTestHeap(t, 4096)
	a := h.Malloc(16)
	b := h.Malloc(16)
	_ = b
	h.Free(a)

	blocks := walkBlocks(h)
	require.Len(t, blocks, 2)
	require.True(t, h.blockAt(blocks[0]).isFree())
	require.False(t, h.blockAt(blocks[1]).isFree())
}

func TestFreeCoalescesBothNeighbors(t *testing.T) {
	h := newTestHeap(t, 4096)
	a := h.Malloc(16)
	b := h.Malloc(16)
	c := h.Malloc(16)

	h.Free(a)
	h.Free(c)
	h.Free(b)

	blocks := walkBlocks(h)
	require.Len(t, blocks, 1, "freeing the middle block must coalesce both neighbors")
	require.True(t, h.blockAt(blocks[0]).isFree())
	require.Equal(t, h.headAddr(), blocks[0])
	require.Equal(t, h.tailAddr(), blocks[0])
}

func TestFreeingEveryAllocationCoalescesToOneBlock(t *testing.T) {
	h := newTestHeap(t, 16*4096)
	var ptrs []unsafe.Pointer
	for i := 0; i < 20; i++ {
		p := h.Malloc(uint64(16 * (1 + i%5)))
		require.NotNil(t, p)
		ptrs = append(ptrs, p)
	}

	// Free in a scrambled order.
	order := []int{3, 0, 7, 1, 19, 2, 4, 5, 6, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}
	for _, i := range order {
		h.Free(ptrs[i])
	}

	blocks := walkBlocks(h)
	require.Len(t, blocks, 1)
	require.True(t, h.blockAt(blocks[0]).isFree())
	require.Equal(t, []uintptr{blocks[0]}, walkFreeList(h))
}

func TestBestFitSelectsSmallestSufficientBlock(t *testing.T) {
	h := newTestHeap(t, 4096)
	p := h.Malloc(100)
	q := h.Malloc(100)
	h.Free(p)

	r := h.Malloc(50)
	require.Equal(t, p, r, "best fit must reuse p's slot, not grow the region")
	_ = q
}
