package editor

import (
	"image"
	"math"
)

// View maps screen pixels to image pixels. Offset is the scroll position in screen pixels.
type View struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64
}

func (v View) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToImageF converts a screen point to fractional image coordinates
func (v View) ToImageF(p image.Point) (float64, float64) {
	z := v.zoom()
	return (float64(p.X) + v.OffsetX) / z, (float64(p.Y) + v.OffsetY) / z
}

// ToImage converts a screen point to the image pixel under it
func (v View) ToImage(p image.Point) image.Point {
	x, y := v.ToImageF(p)
	return image.Pt(int(math.Floor(x)), int(math.Floor(y)))
}

// ZoomAt changes the zoom factor keeping the image point under anchor fixed
func (v *View) ZoomAt(zoom float64, anchor image.Point) {
	if zoom <= 0 {
		return
	}
	x, y := v.ToImageF(anchor)
	v.Zoom = zoom
	v.OffsetX = x*zoom - float64(anchor.X)
	v.OffsetY = y*zoom - float64(anchor.Y)
}

// Pan scrolls the view by a screen delta
func (v *View) Pan(dx, dy int) {
	v.OffsetX -= float64(dx)
	v.OffsetY -= float64(dy)
}
