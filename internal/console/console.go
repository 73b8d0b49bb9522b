// Package console is the kernel's one-way diagnostic output, standing in
// for the UART byte sink the source kernel writes to (see uart_qemu.go /
// uart_stub.go: a single WriteString-shaped sink, switched at build time
// between a real device and a no-op stub). Here the switch is a package
// variable instead of a build tag, since there is no real UART to target, but the
// call-site shape — short, prefixed, one line per event — is preserved.
package console

import (
	"fmt"
	"io"
	"os"
)

// Sink is anything the console can write lines to. *os.File satisfies it,
// and so does io.Discard, which is what tests use in place of the
// !qemuvirt && !raspi stub in uart_stub.go.
type Sink interface {
	io.Writer
}

// Writer is the active sink. Defaults to stderr; tests and embedders that
// want silence can set it to io.Discard.
var Writer Sink = os.Stderr

// Info writes a prefixed informational line, mirroring the source kernel's
// uartPuts("heapInit: ...\r\n") call sites.
func Info(prefix, format string, args ...interface{}) {
	line(prefix, format, args...)
}

// Warn writes a prefixed warning line. The allocator never treats a Warn as
// fatal; it documents a degraded but still-consistent state.
func Warn(prefix, format string, args ...interface{}) {
	line(prefix+" WARNING", format, args...)
}

// Trace writes a prefixed low-volume trace line, for per-operation
// bookkeeping (the page-frame allocator's run allocations and releases)
// that's useful when debugging but too noisy for Info.
func Trace(prefix, format string, args ...interface{}) {
	line(prefix+" trace", format, args...)
}

func line(prefix, format string, args ...interface{}) {
	fmt.Fprintf(Writer, "%s: "+format+"\n", append([]interface{}{prefix}, args...)...)
}
