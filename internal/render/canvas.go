package render

import (
	"image"
	"image/color"
)

// Canvas is an opaque RGBA frame buffer that composites sprite batches.
// It writes straight into the pixel slice instead of going through gg.Context,
// which is only used to paint the sprites once.
type Canvas struct {
	buffer []byte
	width  int
	height int
	stride int // bytes per row (width * 4)

	blits uint64 // sprites composited since the last Clear
	calls uint64 // Blits calls since the last Clear
}

// NewCanvas creates a canvas with the given dimensions.
// It uses the provided buffer or creates a new one if nil.
func NewCanvas(width, height int, buffer []byte) *Canvas {
	if buffer == nil {
		buffer = make([]byte, width*height*4)
	}
	return &Canvas{
		buffer: buffer,
		width:  width,
		height: height,
		stride: width * 4,
	}
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Bytes returns the underlying pixel buffer
func (c *Canvas) Bytes() []byte {
	return c.buffer
}

// Image exposes the buffer as an image without copying.
func (c *Canvas) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    c.buffer,
		Stride: c.stride,
		Rect:   image.Rect(0, 0, c.width, c.height),
	}
}

// Stats returns the sprites composited and batch calls since the last Clear.
func (c *Canvas) Stats() (blits, calls uint64) {
	return c.blits, c.calls
}

// Clear fills the entire buffer with a solid opaque color
func (c *Canvas) Clear(bg color.RGBA) {
	for i := 0; i < len(c.buffer); i += 4 {
		c.buffer[i] = bg.R
		c.buffer[i+1] = bg.G
		c.buffer[i+2] = bg.B
		c.buffer[i+3] = 255
	}
	c.blits, c.calls = 0, 0
}

// Blits composites every sprite of the batch at its position, anchor aligned,
// in batch order (later entries land on top).
func (c *Canvas) Blits(batch []Blit) {
	c.calls++
	for _, b := range batch {
		if b.Sprite == nil {
			continue
		}
		c.blit(b.Sprite, int(b.X+0.5)-b.Sprite.AX, int(b.Y+0.5)-b.Sprite.AY)
		c.blits++
	}
}

// blit does premultiplied source-over onto the opaque destination, clipped
// to the canvas bounds.
func (c *Canvas) blit(s *Sprite, x0, y0 int) {
	sx1 := max(0, -x0)
	sy1 := max(0, -y0)
	sx2 := min(s.W, c.width-x0)
	sy2 := min(s.H, c.height-y0)
	if sx1 >= sx2 || sy1 >= sy2 {
		return
	}

	src := s.Img.Pix
	for sy := sy1; sy < sy2; sy++ {
		srow := sy * s.Img.Stride
		drow := (y0+sy)*c.stride + x0*4
		for sx := sx1; sx < sx2; sx++ {
			si := srow + sx*4
			a := uint32(src[si+3])
			if a == 0 {
				continue
			}
			di := drow + sx*4
			if a == 255 {
				c.buffer[di] = src[si]
				c.buffer[di+1] = src[si+1]
				c.buffer[di+2] = src[si+2]
				continue
			}
			inv := 255 - a
			c.buffer[di] = uint8(uint32(src[si]) + (uint32(c.buffer[di])*inv+127)/255)
			c.buffer[di+1] = uint8(uint32(src[si+1]) + (uint32(c.buffer[di+1])*inv+127)/255)
			c.buffer[di+2] = uint8(uint32(src[si+2]) + (uint32(c.buffer[di+2])*inv+127)/255)
		}
	}
}

// At returns the pixel at (x, y), or transparent black outside the canvas.
func (c *Canvas) At(x, y int) color.RGBA {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return color.RGBA{}
	}
	i := y*c.stride + x*4
	return color.RGBA{c.buffer[i], c.buffer[i+1], c.buffer[i+2], c.buffer[i+3]}
}
