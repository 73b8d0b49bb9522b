package heap

import "unsafe"

// nullAddr is the sentinel for "no block" everywhere a block address is
// stored in-band: a region's first real block never lands at address 0,
// since the prologue always occupies the region's first bytes.
const nullAddr uintptr = 0

// blockHeader is the in-band header every live block begins with.
// sizeAndFlag packs the payload size in its upper bits and the
// free/allocated flag in bit 0; next threads the address-ordered block
// list; nextFree threads the free list and is garbage whenever the block
// is allocated.
type blockHeader struct {
	sizeAndFlag uint64
	next        uint64
	nextFree    uint64
}

// headerSize is the fixed, machine-word-aligned header size every chunk
// pays as overhead.
const headerSize = uint64(unsafe.Sizeof(blockHeader{}))

const freeFlag = uint64(1)

func (b *blockHeader) payloadSize() uint64 {
	return b.sizeAndFlag &^ freeFlag
}

func (b *blockHeader) setPayloadSize(size uint64) {
	b.sizeAndFlag = (size &^ freeFlag) | (b.sizeAndFlag & freeFlag)
}

func (b *blockHeader) isFree() bool {
	return b.sizeAndFlag&freeFlag != 0
}

func (b *blockHeader) setFree(free bool) {
	if free {
		b.sizeAndFlag |= freeFlag
	} else {
		b.sizeAndFlag &^= freeFlag
	}
}

// reset reinitializes a header in place, used whenever a block is carved
// out of raw region memory (a fresh sbrk grant or a split's new block).
func (b *blockHeader) reset(payloadSize uint64, free bool, next uintptr) {
	b.sizeAndFlag = 0
	b.setPayloadSize(payloadSize)
	b.setFree(free)
	b.next = uint64(next)
	b.nextFree = 0
}

// prologue is the fixed-size region header storing the three roots every
// heap region starts with: head, tail, freeHead. It occupies the first
// few words of a region, before the first real block.
type prologue struct {
	head     uint64
	tail     uint64
	freeHead uint64
}

const prologueSize = uint64(unsafe.Sizeof(prologue{}))
