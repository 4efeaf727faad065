package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type pointF struct {
	X float64
	Y float64
}

// blendPixel composites clr over the pixel at (x, y); out-of-bounds writes
// are dropped.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	inv := 0xffff - sa
	d := img.RGBAAt(x, y)
	// premultiplied "over": out = src + dst*(1-srcA)
	mix := func(s uint32, dst uint8) uint8 {
		return uint8((s + uint32(dst)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, d.R),
		G: mix(sg, d.G),
		B: mix(sb, d.B),
		A: mix(sa, d.A),
	})
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	drawRing(img, center, radius, 0, clr)
}

// drawRing fills the annulus inner < d <= outer. inner 0 gives a disc.
func drawRing(img *image.RGBA, center image.Point, outer, inner int, clr color.Color) {
	if outer <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	o2, i2 := outer*outer, inner*inner
	for dy := -outer; dy <= outer; dy++ {
		for dx := -outer; dx <= outer; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > o2 || (inner > 0 && d2 <= i2) {
				continue
			}
			blendPixel(img, center.X+dx, center.Y+dy, clr)
		}
	}
}

// drawRoundedPanel fills rect with corners of the given radius, clamped to
// half the shorter side.
func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = max(0, min(radius, rect.Dx()/2, rect.Dy()/2))
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	// a vertical band plus the two side bands between the corners
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	for _, c := range []struct{ cx, cy, sx, sy int }{
		{rect.Min.X + radius, rect.Min.Y + radius, -1, -1},
		{rect.Max.X - radius - 1, rect.Min.Y + radius, 1, -1},
		{rect.Min.X + radius, rect.Max.Y - radius - 1, -1, 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1, 1, 1},
	} {
		// quarter disc only, so corners do not double-blend over the bands
		for dy := 0; dy <= radius; dy++ {
			for dx := 0; dx <= radius; dx++ {
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				if dx == 0 || dy == 0 {
					continue
				}
				blendPixel(img, c.cx+c.sx*dx, c.cy+c.sy*dy, clr)
			}
		}
	}
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	edge := func(p, q pointF, x, y float64) float64 {
		return (q.X-p.X)*(y-p.Y) - (q.Y-p.Y)*(x-p.X)
	}
	area := edge(a, b, c.X, c.Y)
	if area == 0 {
		return
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

// drawArrow draws a shaft and head from start to end, both in pixels.
func drawArrow(img *image.RGBA, start, end pointF, width float64, clr color.Color) {
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length < 1 {
		return
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	headLen := math.Min(width*2.2, length*0.5)
	base := pointF{X: end.X - ux*headLen, Y: end.Y - uy*headLen}
	half := width / 2

	s1 := pointF{X: start.X + px*half, Y: start.Y + py*half}
	s2 := pointF{X: start.X - px*half, Y: start.Y - py*half}
	b1 := pointF{X: base.X + px*half, Y: base.Y + py*half}
	b2 := pointF{X: base.X - px*half, Y: base.Y - py*half}
	fillTriangle(img, s1, s2, b2, clr)
	fillTriangle(img, s1, b2, b1, clr)

	h1 := pointF{X: base.X + px*width, Y: base.Y + py*width}
	h2 := pointF{X: base.X - px*width, Y: base.Y - py*width}
	fillTriangle(img, end, h1, h2, clr)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m := drawer.Face.Metrics()
	x := rect.Min.X + max(0, (rect.Dx()-drawer.MeasureString(text).Round())/2)
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

// truncate shortens text with "..." until it fits maxWidth pixels.
func truncate(face font.Face, text string, maxWidth int) string {
	text = strings.TrimSpace(text)
	d := font.Drawer{Face: face}
	if text == "" || d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + "..."; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return ""
}
