package heap

// Config carries the few knobs the source kernel ties to compile-time
// constants (HEAP_ALIGNMENT, the minimum payload, UHEAP_INITIAL_SIZE). There is no
// file or flag parser behind it — the source kernel itself configures
// these as untyped consts — so a zero-value-defaulted struct is the right
// amount of machinery, not a stand-in for a config library this repo
// doesn't need.
type Config struct {
	// Alignment is the allocation granularity every request is rounded up
	// to. The source kernel fixes this at 16; zero means "use 16".
	Alignment uint64

	// MinPayload is the smallest payload a block may carry, large enough
	// to hold the free-list link when the block is free. The source
	// kernel fixes this at 8; zero means "use 8".
	MinPayload uint64

	// UserHeapDefaultSize is the size a user heap is created with on the
	// first sys_brk call for a process. The source kernel fixes this at
	// 1 MiB; zero means "use 1 MiB".
	UserHeapDefaultSize int
}

const (
	defaultAlignment           = 16
	defaultMinPayload          = 8
	defaultUserHeapDefaultSize = 1 << 20 // 1 MiB
)

func (c Config) withDefaults() Config {
	if c.Alignment == 0 {
		c.Alignment = defaultAlignment
	}
	if c.MinPayload == 0 {
		c.MinPayload = defaultMinPayload
	}
	if c.UserHeapDefaultSize == 0 {
		c.UserHeapDefaultSize = defaultUserHeapDefaultSize
	}
	return c
}

// ceilTo rounds n up to the next multiple of m (m must be a power of two),
// the rounding every allocation request goes through before it is served.
func ceilTo(n, m uint64) uint64 {
	return (n + m - 1) &^ (m - 1)
}
