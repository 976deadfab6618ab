package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/splatsort"
)

const (
	supersample  = 2
	splatAlpha   = 0.35
	splatRadius  = 1.5 // in preview pixels
	labelSize    = 12
	labelPadding = 8
)

var background = color.RGBA{R: 12, G: 14, B: 20, A: 255}

// savePreview renders positions in the sorted order with "over" blending
// and writes the result as PNG. Splats are projected orthographically in
// the camera frame.
func savePreview(path string, size int, positions []splatsort.Position, order []uint32,
	cam splatsort.Camera, dir splatsort.Order, label string,
) error {
	img := renderSplats(size, positions, order, cam, dir)
	if err := drawLabel(img, label); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// renderSplats draws at supersample times the size and downscales.
func renderSplats(size int, positions []splatsort.Position, order []uint32,
	cam splatsort.Camera, dir splatsort.Order,
) *image.RGBA {
	hiSize := size * supersample
	hi := image.NewRGBA(image.Rect(0, 0, hiSize, hiSize))
	xdraw.Draw(hi, hi.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	if len(positions) > 0 {
		view := cam.Orientation.Conjugate()
		extent := float32(0)
		for _, p := range positions {
			v := view.Rotate(p.Sub(cam.Position))
			extent = max(extent, math32.Abs(v.X), math32.Abs(v.Y))
		}
		if extent == 0 {
			extent = 1
		}
		lo, hiY := heightRange(positions)

		scale := float32(hiSize) * 0.48 / extent
		half := float32(hiSize) / 2
		radius := float32(splatRadius * supersample)

		// "Over" needs back to front; walk a front-to-back order backwards.
		n := len(order)
		for k := range n {
			i := order[k]
			if dir == splatsort.FrontToBack {
				i = order[n-1-k]
			}
			v := view.Rotate(positions[i].Sub(cam.Position))
			c := heightColor(positions[i].Y, lo, hiY)
			blendDisc(hi, half+v.X*scale, half-v.Y*scale, radius, c)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), hi, hi.Bounds(), xdraw.Src, nil)
	return dst
}

func heightRange(positions []splatsort.Position) (lo, hi float32) {
	lo, hi = positions[0].Y, positions[0].Y
	for _, p := range positions[1:] {
		lo = min(lo, p.Y)
		hi = max(hi, p.Y)
	}
	return lo, hi
}

// heightColor blends from blue at the bottom of the cloud to amber at the top.
func heightColor(y, lo, hi float32) [3]float32 {
	t := float32(0.5)
	if hi > lo {
		t = (y - lo) / (hi - lo)
	}
	return [3]float32{
		0.15 + 0.85*t,
		0.45 + 0.25*t,
		0.95 - 0.75*t,
	}
}

// blendDisc composites a soft disc of color c over img.
func blendDisc(img *image.RGBA, cx, cy, r float32, c [3]float32) {
	b := img.Bounds()
	x0 := max(int(math32.Floor(cx-r)), b.Min.X)
	x1 := min(int(math32.Ceil(cx+r)), b.Max.X-1)
	y0 := max(int(math32.Floor(cy-r)), b.Min.Y)
	y1 := min(int(math32.Ceil(cy+r)), b.Max.Y-1)
	r2 := r * r

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float32(x) + 0.5 - cx
			dy := float32(y) + 0.5 - cy
			d2 := dx*dx + dy*dy
			if d2 > r2 {
				continue
			}
			a := splatAlpha * (1 - d2/r2)
			o := img.PixOffset(x, y)
			px := img.Pix[o : o+3 : o+3]
			for ch := range 3 {
				dst := float32(px[ch]) / 255
				px[ch] = uint8((c[ch]*a + dst*(1-a)) * 255)
			}
		}
	}
}

// drawLabel writes text in the bottom-left corner.
func drawLabel(img *image.RGBA, text string) error {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: labelSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("create face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(labelPadding, img.Bounds().Dy()-labelPadding),
	}
	d.DrawString(text)
	return nil
}
