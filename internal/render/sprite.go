// Package render holds the pixel-level collaborators of the particle engine:
// pre-rendered sprites, the frame canvas that composites sprite batches, the
// gg-backed brushes used to paint sprites, the asset loader and the worker
// pool used to fan out sprite rendering.
package render

import (
	"image"
	"image/draw"
)

// Sprite is a pre-rendered, immutable visual. Pixels are premultiplied RGBA.
// The anchor (AX, AY) is the sprite pixel placed on the particle position.
type Sprite struct {
	Img    *image.RGBA
	W, H   int
	AX, AY int
}

// Blit pairs a sprite with its destination position.
type Blit struct {
	Sprite *Sprite
	X, Y   float64
}

// NewSprite wraps img, anchored at its centre. Non-RGBA images are converted.
func NewSprite(img image.Image) *Sprite {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	return &Sprite{Img: rgba, W: w, H: h, AX: w / 2, AY: h / 2}
}

// Empty reports whether the sprite has no visible pixel.
func (s *Sprite) Empty() bool {
	if s == nil || s.Img == nil {
		return true
	}
	for i := 3; i < len(s.Img.Pix); i += 4 {
		if s.Img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the approximate memory held by the sprite pixels.
func (s *Sprite) Bytes() int {
	if s == nil || s.Img == nil {
		return 0
	}
	return len(s.Img.Pix)
}
