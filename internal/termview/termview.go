// Package termview shows engine frames in a terminal. Every cell packs two
// vertical pixels with the upper half block: foreground is the top pixel,
// background the bottom one.
package termview

import (
	"fmt"
	"image/color"

	"sparkfx/internal/engine"

	"github.com/gdamore/tcell/v2"
)

const halfBlock = '▀'

// Cell is the pair of colours shown by one terminal cell.
type Cell struct {
	Top, Bottom color.RGBA
}

// Presenter paints frames onto a tcell screen.
type Presenter struct {
	screen     tcell.Screen
	cells      []Cell
	ShowStatus bool
}

// New creates a presenter for an initialised screen.
func New(screen tcell.Screen) *Presenter {
	return &Presenter{screen: screen, ShowStatus: true}
}

// Draw downsamples f to the screen and shows it.
func (p *Presenter) Draw(f *engine.Frame) {
	cols, rows := p.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	p.cells = Compose(p.cells, f, cols, rows)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := p.cells[y*cols+x]
			style := tcell.StyleDefault.
				Foreground(rgb(c.Top)).
				Background(rgb(c.Bottom))
			p.screen.SetContent(x, y, halfBlock, nil, style)
		}
	}

	if p.ShowStatus {
		status := fmt.Sprintf(" tick %d  particles %d  blits %d  %.2fms ",
			f.Tick, f.Stats.Particles, f.Blits, float64(f.TickDuration.Microseconds())/1000)
		p.text(0, rows-1, status)
	}
	p.screen.Show()
}

func (p *Presenter) text(x, y int, s string) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	cols, _ := p.screen.Size()
	for _, r := range s {
		if x >= cols {
			return
		}
		p.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// FramePoint maps a terminal cell to the canvas point under its centre.
func (p *Presenter) FramePoint(col, row, frameW, frameH int) (float64, float64) {
	cols, rows := p.screen.Size()
	if cols <= 0 || rows <= 0 {
		return 0, 0
	}
	x := (float64(col) + 0.5) * float64(frameW) / float64(cols)
	y := (float64(row) + 0.5) * float64(frameH) / float64(rows)
	return x, y
}

// Compose box-averages f into cols x rows cells of two pixels each, reusing
// dst when it is large enough.
func Compose(dst []Cell, f *engine.Frame, cols, rows int) []Cell {
	n := cols * rows
	if cap(dst) < n {
		dst = make([]Cell, n)
	}
	dst = dst[:n]

	h := rows * 2
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dst[y*cols+x] = Cell{
				Top:    average(f, x, 2*y, cols, h),
				Bottom: average(f, x, 2*y+1, cols, h),
			}
		}
	}
	return dst
}

// average returns the mean colour of the frame pixels covered by virtual
// pixel (vx, vy) of a vw x vh grid.
func average(f *engine.Frame, vx, vy, vw, vh int) color.RGBA {
	x0, x1 := span(vx, vw, f.Width)
	y0, y1 := span(vy, vh, f.Height)

	var r, g, b, n int
	stride := f.Width * 4
	for y := y0; y < y1; y++ {
		row := f.Pix[y*stride:]
		for x := x0; x < x1; x++ {
			r += int(row[4*x])
			g += int(row[4*x+1])
			b += int(row[4*x+2])
			n++
		}
	}
	if n == 0 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}

// span returns the source range of cell i of n over size pixels. Every cell
// covers at least one pixel when size allows.
func span(i, n, size int) (int, int) {
	lo := i * size / n
	hi := (i + 1) * size / n
	if hi <= lo && lo < size {
		hi = lo + 1
	}
	return lo, hi
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
