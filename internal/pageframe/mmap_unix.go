//go:build darwin || dragonfly || freebsd || linux || openbsd || netbsd || solaris

package pageframe

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func mmapAnon(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func munmapAnon(b []byte) error {
	return unix.Munmap(b)
}

func sliceBase(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
