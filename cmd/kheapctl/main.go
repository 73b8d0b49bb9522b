// Command kheapctl drives the kernel heap from the host, the way the
// source kernel's imageconvert tool turns a host-side CLI invocation into
// calls against the same package the kernel embeds. It
// takes a script of malloc/free/sbrk/dump operations, runs them against a
// freshly initialized kernel heap, and optionally renders the final layout
// with heap/heapview.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"mazheap/heap"
	"mazheap/heap/heapview"
	"mazheap/internal/pageframe"
)

func main() {
	initialSize := flag.Int("init-size", 1<<20, "initial kernel heap size in bytes")
	scriptPath := flag.String("script", "", "path to a script of malloc/free/sbrk/dump commands, one per line (default: stdin)")
	viewPath := flag.String("view", "", "optional path to write a PNG heap map after the script runs")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kheapctl [flags]\n")
		fmt.Fprintf(os.Stderr, "Commands (one per script line):\n")
		fmt.Fprintf(os.Stderr, "  malloc <n>     allocate n bytes, prints the returned address or 'nil'\n")
		fmt.Fprintf(os.Stderr, "  free <addr>    free a previously printed address (hex, with 0x prefix)\n")
		fmt.Fprintf(os.Stderr, "  sbrk <delta>   call ksbrk directly, prints the prior top or 'nil'\n")
		fmt.Fprintf(os.Stderr, "  dump           print the block list\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	pf, err := pageframe.New(*initialSize * 4)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kheapctl: page pool: %v\n", err)
		os.Exit(1)
	}
	defer pf.Close()

	heap.KHeapInit(pf, *initialSize, heap.Config{})

	in := os.Stdin
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kheapctl: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	live := map[uintptr]unsafe.Pointer{}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := runLine(scanner.Text(), live); err != nil {
			fmt.Fprintf(os.Stderr, "kheapctl: %v\n", err)
		}
	}

	if *viewPath != "" {
		if err := writeView(*viewPath); err != nil {
			fmt.Fprintf(os.Stderr, "kheapctl: %v\n", err)
			os.Exit(1)
		}
	}
}

func runLine(line string, live map[uintptr]unsafe.Pointer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	switch fields[0] {
	case "malloc":
		if len(fields) != 2 {
			return fmt.Errorf("malloc requires one argument")
		}
		n, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		ptr := heap.KMalloc(n)
		if ptr == nil {
			fmt.Println("nil")
			return nil
		}
		live[uintptr(ptr)] = ptr
		fmt.Printf("0x%x\n", uintptr(ptr))

	case "free":
		if len(fields) != 2 {
			return fmt.Errorf("free requires one argument")
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 64)
		if err != nil {
			return err
		}
		ptr, ok := live[uintptr(addr)]
		if !ok {
			return fmt.Errorf("free: unknown address 0x%x", addr)
		}
		heap.KFree(ptr)
		delete(live, uintptr(addr))

	case "sbrk":
		if len(fields) != 2 {
			return fmt.Errorf("sbrk requires one argument")
		}
		delta, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		prior, ok := heap.KSbrk(delta)
		if !ok {
			fmt.Println("nil")
			return nil
		}
		fmt.Printf("0x%x\n", prior)

	case "dump":
		heap.Kernel.Dump("kheapctl")

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func writeView(path string) error {
	var blocks []heapview.Block
	heap.Kernel.Walk(func(addr uintptr, size uint64, free bool) {
		blocks = append(blocks, heapview.Block{Addr: addr, Size: size, Free: free})
	})
	return heapview.Render(blocks, path)
}
