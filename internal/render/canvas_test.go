package render

import (
	"image"
	"image/color"
	"testing"
)

// TestNewCanvas tests Canvas creation
func TestNewCanvas(t *testing.T) {
	width, height := 100, 60
	c := NewCanvas(width, height, nil)

	if c == nil {
		t.Fatal("Canvas should not be nil")
	}

	if len(c.Bytes()) != width*height*4 {
		t.Errorf("Expected buffer size %d, got %d", width*height*4, len(c.Bytes()))
	}

	w, h := c.Size()
	if w != width || h != height {
		t.Errorf("Expected size %dx%d, got %dx%d", width, height, w, h)
	}
}

// TestCanvasWithExistingBuffer tests using an existing buffer
func TestCanvasWithExistingBuffer(t *testing.T) {
	buf := make([]byte, 10*10*4)
	buf[0] = 255

	c := NewCanvas(10, 10, buf)
	if c.Bytes()[0] != 255 {
		t.Error("Canvas should use the provided buffer")
	}
	if c.Image().Pix[0] != 255 {
		t.Error("Image should share the canvas buffer")
	}
}

// TestCanvasClear tests Clear function
func TestCanvasClear(t *testing.T) {
	c := NewCanvas(10, 10, nil)
	c.Blits([]Blit{{Sprite: Circle(1, color.NRGBA{255, 0, 0, 255}), X: 5, Y: 5}})

	c.Clear(color.RGBA{100, 150, 200, 0})

	for _, p := range []image.Point{{0, 0}, {9, 9}, {5, 5}} {
		got := c.At(p.X, p.Y)
		if got != (color.RGBA{100, 150, 200, 255}) {
			t.Errorf("Expected opaque background at %v, got %v", p, got)
		}
	}

	blits, calls := c.Stats()
	if blits != 0 || calls != 0 {
		t.Errorf("Expected stats reset by Clear, got blits=%d calls=%d", blits, calls)
	}
}

// TestCanvasBlitsAnchorsSprite tests that sprites land centred on the position
func TestCanvasBlitsAnchorsSprite(t *testing.T) {
	c := NewCanvas(20, 20, nil)
	c.Clear(color.RGBA{0, 0, 0, 255})

	red := Circle(2, color.NRGBA{255, 0, 0, 255})
	c.Blits([]Blit{{Sprite: red, X: 10, Y: 10}})

	if got := c.At(10, 10); got.R != 255 || got.G != 0 || got.B != 0 {
		t.Errorf("Expected red at the particle position, got %v", got)
	}
	if got := c.At(15, 15); got.R != 0 {
		t.Errorf("Expected background away from the sprite, got %v", got)
	}

	blits, calls := c.Stats()
	if blits != 1 || calls != 1 {
		t.Errorf("Expected 1 blit in 1 call, got blits=%d calls=%d", blits, calls)
	}
}

// TestCanvasBlitsOrder tests that later entries land on top
func TestCanvasBlitsOrder(t *testing.T) {
	c := NewCanvas(10, 10, nil)
	c.Clear(color.RGBA{0, 0, 0, 255})

	c.Blits([]Blit{
		{Sprite: Circle(1, color.NRGBA{255, 0, 0, 255}), X: 5, Y: 5},
		{Sprite: Circle(1, color.NRGBA{0, 0, 255, 255}), X: 5, Y: 5},
		{Sprite: nil, X: 5, Y: 5},
	})

	if got := c.At(5, 5); got.B != 255 || got.R != 0 {
		t.Errorf("Expected blue on top, got %v", got)
	}

	blits, calls := c.Stats()
	if blits != 2 || calls != 1 {
		t.Errorf("Expected 2 blits in 1 call, got blits=%d calls=%d", blits, calls)
	}
}

// TestCanvasBlitBlendsAlpha tests premultiplied source-over
func TestCanvasBlitBlendsAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 128})

	c := NewCanvas(4, 4, nil)
	c.Clear(color.RGBA{0, 0, 0, 255})
	c.Blits([]Blit{{Sprite: NewSprite(img), X: 1, Y: 1}})

	got := c.At(1, 1)
	if got.R < 127 || got.R > 129 {
		t.Errorf("Expected half red over black, got %v", got)
	}
	if got.A != 255 {
		t.Errorf("Expected canvas to stay opaque, got alpha %d", got.A)
	}
}

// TestCanvasBlitClipsEdges tests that sprites partly off the canvas do not panic
func TestCanvasBlitClipsEdges(t *testing.T) {
	c := NewCanvas(8, 8, nil)
	c.Clear(color.RGBA{0, 0, 0, 255})

	s := Circle(3, color.NRGBA{0, 255, 0, 255})
	c.Blits([]Blit{
		{Sprite: s, X: 0, Y: 0},
		{Sprite: s, X: 7, Y: 7},
		{Sprite: s, X: -50, Y: 4},
		{Sprite: s, X: 4, Y: 500},
	})

	if got := c.At(0, 0); got.G != 255 {
		t.Errorf("Expected green in the top-left corner, got %v", got)
	}
	if got := c.At(7, 7); got.G != 255 {
		t.Errorf("Expected green in the bottom-right corner, got %v", got)
	}
	if got := c.At(-1, 3); got != (color.RGBA{}) {
		t.Errorf("Expected zero colour outside the canvas, got %v", got)
	}
}

// TestBrushes tests sprite sizes and visibility of every brush
func TestBrushes(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i-3], src.Pix[i-2], src.Pix[i-1], src.Pix[i] = 255, 255, 255, 255
	}

	tests := []struct {
		name   string
		sprite *Sprite
		w, h   int
	}{
		{"circle", Circle(4, white), 9, 9},
		{"dot", Circle(0, white), 1, 1},
		{"ring", Ring(5, 2, white), 13, 13},
		{"polygon", Polygon(6, 5, 30, white), 13, 13},
		{"triangle fallback", Polygon(4, 1, 0, white), 9, 9},
		{"scaled", Scaled(src, 0.5, 255), 8, 4},
		{"scaled faded", Scaled(src, 2, 64), 32, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sprite.W != tt.w || tt.sprite.H != tt.h {
				t.Errorf("Expected %dx%d, got %dx%d", tt.w, tt.h, tt.sprite.W, tt.sprite.H)
			}
			if tt.sprite.AX != tt.w/2 || tt.sprite.AY != tt.h/2 {
				t.Errorf("Expected centre anchor, got (%d, %d)", tt.sprite.AX, tt.sprite.AY)
			}
			if tt.sprite.Empty() {
				t.Error("Sprite should have visible pixels")
			}
			if tt.sprite.Bytes() != tt.w*tt.h*4 {
				t.Errorf("Expected %d bytes, got %d", tt.w*tt.h*4, tt.sprite.Bytes())
			}
		})
	}
}

// TestScaledFadesAlpha tests the opacity multiplier of Scaled
func TestScaledFadesAlpha(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	s := Scaled(src, 1, 64)
	a := s.Img.Pix[(1*s.Img.Stride)+1*4+3]
	if a < 60 || a > 68 {
		t.Errorf("Expected alpha near 64, got %d", a)
	}
}

// TestNewSpriteNormalisesOrigin tests conversion of offset images
func TestNewSpriteNormalisesOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 9, 11))
	img.Set(5, 5, color.NRGBA{255, 0, 0, 255})

	s := NewSprite(img)
	if s.Img.Rect.Min != (image.Point{}) {
		t.Errorf("Expected zero origin, got %v", s.Img.Rect.Min)
	}
	if s.W != 4 || s.H != 6 {
		t.Errorf("Expected 4x6, got %dx%d", s.W, s.H)
	}
	if s.Img.Pix[3] != 255 {
		t.Error("Expected the top-left pixel to survive conversion")
	}

	var nilSprite *Sprite
	if !nilSprite.Empty() || nilSprite.Bytes() != 0 {
		t.Error("Nil sprite should be empty with no bytes")
	}
}

// BenchmarkCanvasBlits benchmarks compositing a large batch
func BenchmarkCanvasBlits(b *testing.B) {
	c := NewCanvas(1280, 720, nil)
	s := Circle(3, color.NRGBA{255, 120, 0, 200})

	batch := make([]Blit, 2000)
	for i := range batch {
		batch[i] = Blit{Sprite: s, X: float64(i % 1280), Y: float64((i * 7) % 720)}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Blits(batch)
	}
}
