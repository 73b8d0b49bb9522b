package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mazheap/internal/pageframe"
)

func newTestProcess(t *testing.T) *Process {
	t.Helper()
	prior := currentProcess
	t.Cleanup(func() { currentProcess = prior })

	p := &Process{}
	SetCurrentProcess(p)
	return p
}

func TestUSbrkPanicsWithoutUserHeap(t *testing.T) {
	newTestProcess(t)
	require.Panics(t, func() { USbrk(16) })
}

func TestSysBrkLazilyCreatesUserHeap(t *testing.T) {
	p := newTestProcess(t)
	pf, err := pageframe.New(256 * pageframe.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	cfg := Config{UserHeapDefaultSize: 64 * pageframe.PageSize}

	require.Nil(t, p.Mem.heap)
	ptr := SysBrk(cfg, pf, 0x1) // vm_start won't be 0x1, so this dispatches to malloc
	require.NotNil(t, p.Mem.heap)
	require.NotNil(t, ptr)
}

func TestSysBrkFreshHeapBaseDispatchesToMallocNotFree(t *testing.T) {
	// Calling sys_brk with the newly created heap's own vm_start is not
	// "inside" the open interval (vm_start, vm_end), so it is treated as a
	// malloc request and fails (the address is huge).
	p := newTestProcess(t)
	pf, err := pageframe.New(256 * pageframe.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	cfg := Config{UserHeapDefaultSize: 64 * pageframe.PageSize}

	first := SysBrk(cfg, pf, 0)
	require.NotNil(t, p.Mem.heap)
	_ = first

	base := p.Mem.heap.region.Start()
	require.Nil(t, SysBrk(cfg, pf, base), "vm_start is not strictly inside the region, so this must malloc and fail")
}

func TestSysBrkFreesPointerInsideUserHeap(t *testing.T) {
	p := newTestProcess(t)
	pf, err := pageframe.New(256 * pageframe.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	cfg := Config{UserHeapDefaultSize: 64 * pageframe.PageSize}

	ptr := SysBrk(cfg, pf, 32)
	require.NotNil(t, ptr)
	require.NotNil(t, p.Mem.heap)

	addr := uintptr(ptr)
	require.True(t, p.Mem.heap.region.Contains(addr))
	headerAddr := p.Mem.heap.headerAddrOf(ptr)

	require.Nil(t, SysBrk(cfg, pf, addr))
	require.True(t, p.Mem.heap.blockAt(headerAddr).isFree())
}

func TestKHeapInitTwiceFails(t *testing.T) {
	prior := Kernel
	t.Cleanup(func() { Kernel = prior })
	Kernel = nil

	pf, err := pageframe.New(64 * pageframe.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	KHeapInit(pf, 4096, Config{})
	require.Panics(t, func() { KHeapInit(pf, 4096, Config{}) })
}

func TestKMallocKFreeRoundTrip(t *testing.T) {
	prior := Kernel
	t.Cleanup(func() { Kernel = prior })
	Kernel = nil

	pf, err := pageframe.New(64 * pageframe.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Close() })

	KHeapInit(pf, 4096, Config{})
	ptr := KMalloc(24)
	require.NotNil(t, ptr)
	KFree(ptr)
}
