// Package heapview renders a heap's block layout as a PNG strip: one
// rectangle per block, colored by allocated/free state and labeled with its
// payload size. It is grounded on the source kernel's own gg usage in
// gg_circle_qemu.go (NewContext, SetRGB, DrawRectangle, Stroke/Fill), lifted
// out of its framebuffer-flushing context into a plain image-file renderer
// since there is no real framebuffer here.
//
// This package is diagnostic tooling only: nothing in the heap package's
// allocation path imports it, preserving the re-entrancy rule that the
// allocator itself must never allocate while walking its own structures.
package heapview

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Block is one row of the rendered heap map, deliberately decoupled from
// the heap package's unexported blockHeader so this package never needs
// unsafe access to live allocator state.
type Block struct {
	Addr uintptr
	Size uint64
	Free bool
}

const (
	rowHeight  = 28
	labelWidth = 160
	barWidth   = 640
	padding    = 8
)

var (
	colorFree      = color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}
	colorAllocated = color.RGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0xff}
	colorOutline   = color.RGBA{A: 0xff}
)

// Render draws blocks top to bottom into a new image and writes it to path
// as a PNG. The bar width of each row is proportional to its payload size
// relative to the largest block, so gaps and fragmentation are visible at a
// glance.
func Render(blocks []Block, path string) error {
	if len(blocks) == 0 {
		return fmt.Errorf("heapview: no blocks to render")
	}

	var maxSize uint64
	for _, b := range blocks {
		if b.Size > maxSize {
			maxSize = b.Size
		}
	}
	if maxSize == 0 {
		maxSize = 1
	}

	width := labelWidth + barWidth + 2*padding
	height := len(blocks)*rowHeight + 2*padding

	ctx := gg.NewContext(width, height)
	ctx.SetRGB(1, 1, 1)
	ctx.Clear()

	face, err := labelFace(16)
	if err != nil {
		return fmt.Errorf("heapview: loading label font: %w", err)
	}
	ctx.SetFontFace(face)

	for i, b := range blocks {
		y := padding + i*rowHeight
		w := int(float64(barWidth) * float64(b.Size) / float64(maxSize))
		if w < 2 {
			w = 2
		}

		if b.Free {
			ctx.SetColor(colorFree)
		} else {
			ctx.SetColor(colorAllocated)
		}
		ctx.DrawRectangle(float64(labelWidth), float64(y), float64(w), float64(rowHeight-4))
		ctx.Fill()

		ctx.SetColor(colorOutline)
		ctx.DrawRectangle(float64(labelWidth), float64(y), float64(w), float64(rowHeight-4))
		ctx.Stroke()

		label := fmt.Sprintf("0x%x  %d B", b.Addr, b.Size)
		ctx.SetColor(colorOutline)
		ctx.DrawString(label, 4, float64(y+rowHeight-8))
	}

	return ctx.SavePNG(path)
}

func labelFace(points float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}
