package engine

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"sparkfx/internal/effects"
)

// Frame is an immutable composited frame plus the counters of the tick that
// produced it.
type Frame struct {
	Sequence  uint64    // Monotonic sequence for ordering
	Tick      int64     // Engine tick this represents
	Timestamp time.Time // When the frame was composed

	Width, Height int
	Pix           []byte // RGBA, stride Width*4

	Stats        effects.Stats
	Blits        uint64 // Sprites composited
	Batches      uint64 // Surface.Blits calls
	TickDuration time.Duration
}

// Image exposes the pixels without copying.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Clone returns a deep copy safe to keep after the pool reuses the slot.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Pix = append([]byte(nil), f.Pix...)
	out.Stats.Kinds = append([]effects.KindStats(nil), f.Stats.Kinds...)
	return &out
}

// FramePool pre-allocates frames to avoid GC pressure.
// Uses triple buffering: the engine writes one slot while readers copy the
// last published one. Each slot carries its own lock so a slow reader can
// never observe a half-written frame.
type FramePool struct {
	frames    [3]Frame
	locks     [3]sync.RWMutex
	writeIdx  atomic.Uint32 // producer index
	readIdx   atomic.Uint32 // consumer index
	sequence  atomic.Uint64 // monotonic sequence
	published atomic.Bool
}

// NewFramePool creates a pool with pre-allocated pixel buffers
func NewFramePool(width, height int) *FramePool {
	pool := &FramePool{}
	for i := range pool.frames {
		pool.frames[i] = Frame{
			Width:  width,
			Height: height,
			Pix:    make([]byte, width*height*4),
		}
	}
	return pool
}

// AcquireWrite locks the next write slot (producer only, called from tick).
// PublishWrite must follow.
func (p *FramePool) AcquireWrite() *Frame {
	idx := p.writeIdx.Add(1) % 3
	p.locks[idx].Lock()

	f := &p.frames[idx]
	f.Sequence = p.sequence.Add(1)
	f.Timestamp = time.Now()
	return f
}

// PublishWrite unlocks the write slot and makes it the latest frame.
func (p *FramePool) PublishWrite() {
	w := p.writeIdx.Load()
	p.locks[w%3].Unlock()
	p.readIdx.Store(w)
	p.published.Store(true)
}

// Read calls fn with the latest published frame under a read lock. It
// reports false before the first publish. fn must not retain the frame.
func (p *FramePool) Read(fn func(*Frame)) bool {
	if !p.published.Load() {
		return false
	}
	idx := p.readIdx.Load() % 3
	p.locks[idx].RLock()
	defer p.locks[idx].RUnlock()
	fn(&p.frames[idx])
	return true
}

// Latest returns a copy of the latest published frame, or nil.
func (p *FramePool) Latest() *Frame {
	var out *Frame
	p.Read(func(f *Frame) { out = f.Clone() })
	return out
}

// Sequence returns the number of frames written so far.
func (p *FramePool) Sequence() uint64 {
	return p.sequence.Load()
}
