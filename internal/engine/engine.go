// Package engine drives an effects manager at a fixed tick rate. Each tick
// updates the particles, applies queued commands, composes the frame and
// publishes it for readers on other goroutines.
package engine

import (
	"context"
	"image/color"
	"log"
	"sync"
	"time"

	"sparkfx/internal/colors"
	"sparkfx/internal/config"
	"sparkfx/internal/effects"
	"sparkfx/internal/fxerr"
	"sparkfx/internal/particle"
	"sparkfx/internal/render"
)

// Config holds the loop settings.
type Config struct {
	FPS        int
	Width      int
	Height     int
	Background color.RGBA
	QueueSize  int
}

// ConfigFrom converts the application configuration.
func ConfigFrom(video config.VideoConfig, limits config.ResourceLimits) (Config, error) {
	bg, err := colors.Parse(video.Background)
	if err != nil {
		return Config{}, err
	}
	return Config{
		FPS:        video.FPS,
		Width:      video.Width,
		Height:     video.Height,
		Background: color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: 255},
		QueueSize:  limits.SpawnQueueSize,
	}, nil
}

// TickStats summarises one tick for hooks and metrics.
type TickStats struct {
	Tick      int64
	Particles int
	Commands  int
	Blits     uint64
	Duration  time.Duration
	Err       error
}

// Engine owns the manager, the clock and the canvas. Commands from other
// goroutines go through the queue; the manager is only touched under mu.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	fx     *effects.Manager
	clock  *particle.FrameClock
	canvas *render.Canvas
	frames *FramePool

	commands chan Command

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	tickCount int64
	err       error
	onTick    func(TickStats)
}

// New creates an engine. clock must be the clock of the manager's env; the
// engine advances it once per tick.
func New(cfg Config, fx *effects.Manager, clock *particle.FrameClock) (*Engine, error) {
	if fx == nil || clock == nil {
		return nil, fxerr.Invalid("engine needs a manager and a clock")
	}
	if cfg.FPS <= 0 || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fxerr.Invalid("bad engine config %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Engine{
		cfg:      cfg,
		fx:       fx,
		clock:    clock,
		canvas:   render.NewCanvas(cfg.Width, cfg.Height, nil),
		frames:   NewFramePool(cfg.Width, cfg.Height),
		commands: make(chan Command, cfg.QueueSize),
	}, nil
}

// OnTick registers a hook called after every composed tick, outside the lock.
func (e *Engine) OnTick(fn func(TickStats)) {
	e.mu.Lock()
	e.onTick = fn
	e.mu.Unlock()
}

// Start begins the loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.err = nil
	e.stopChan = make(chan struct{})
	e.done = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.FPS))
	ticker, stop, done := e.ticker, e.stopChan, e.done
	e.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				if err := e.Step(); err != nil {
					e.halt(err)
					return
				}
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Particle engine started at %d FPS (%dx%d)", e.cfg.FPS, e.cfg.Width, e.cfg.Height)
}

// Stop stops the loop and waits for the running tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.done
	e.mu.Unlock()

	<-done
	log.Println("🛑 Particle engine stopped")
}

func (e *Engine) halt(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.ticker.Stop()
	e.err = err
	log.Printf("❌ Particle engine halted at tick %d: %v", e.tickCount, err)
}

// IsRunning reports whether the loop is running.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Err returns the draw error that halted the loop, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Step runs one full tick: Advance, compose onto the canvas, publish.
func (e *Engine) Step() error {
	start := time.Now()

	e.mu.Lock()
	st := e.advance()
	e.canvas.Clear(e.cfg.Background)
	err := e.fx.Draw(e.canvas)
	blits, calls := e.canvas.Stats()
	fxStats := e.fx.Stats()

	f := e.frames.AcquireWrite()
	copy(f.Pix, e.canvas.Bytes())
	f.Tick = st.Tick
	f.Stats = fxStats
	f.Blits = blits
	f.Batches = calls
	f.TickDuration = time.Since(start)
	e.frames.PublishWrite()
	hook := e.onTick
	e.mu.Unlock()

	st.Blits = blits
	st.Duration = time.Since(start)
	st.Err = err
	if hook != nil {
		hook(st)
	}
	return err
}

// Advance runs the simulation half of a tick without composing. Viewers that
// draw onto their own surface call Advance then Render.
func (e *Engine) Advance() TickStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advance()
}

// advance updates the particles, then applies the queued commands so that
// new particles are drawn at age zero, then advances the clock.
func (e *Engine) advance() TickStats {
	e.fx.Update()
	n := e.drain()
	e.tickCount++
	e.clock.Tick()
	return TickStats{
		Tick:      e.tickCount,
		Particles: e.fx.Count(),
		Commands:  n,
	}
}

// Render draws the current particles onto target.
func (e *Engine) Render(target particle.Surface) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fx.Draw(target)
}

// Latest returns a copy of the last published frame, or nil before the first
// tick.
func (e *Engine) Latest() *Frame {
	return e.frames.Latest()
}

// ReadFrame calls fn with the last published frame without copying it.
func (e *Engine) ReadFrame(fn func(*Frame)) bool {
	return e.frames.Read(fn)
}

// Stats returns the manager counters.
func (e *Engine) Stats() effects.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fx.Stats()
}

// Emitters returns the running emitters.
func (e *Engine) Emitters() []effects.Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fx.Emitters()
}

// EffectNames returns the effect names the manager knows.
func (e *Engine) EffectNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fx.EffectNames()
}

// Config returns the loop settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// Enqueue queues cmd for the next tick. A full queue fails with
// ErrResourceUnavailable instead of blocking the caller.
func (e *Engine) Enqueue(cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	select {
	case e.commands <- cmd:
		return nil
	default:
		return fxerr.Unavailable(nil, "command queue full (%d)", cap(e.commands))
	}
}

// Do queues cmd and waits for its result. It only returns once a tick has
// applied the command or ctx is done.
func (e *Engine) Do(ctx context.Context, cmd Command) (Result, error) {
	reply := make(chan Result, 1)
	cmd.Reply = reply
	if err := e.Enqueue(cmd); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// drain applies every command queued so far. Commands arriving while it runs
// wait for the next tick.
func (e *Engine) drain() int {
	n := len(e.commands)
	for i := 0; i < n; i++ {
		cmd := <-e.commands
		cmd.reply(e.apply(cmd))
	}
	return n
}

func (e *Engine) apply(cmd Command) Result {
	switch cmd.Op {
	case OpSpawn:
		n, err := e.fx.SpawnEffect(cmd.Effect, cmd.Pos, cmd.Options...)
		return Result{N: n, Err: err}
	case OpStartEmitter:
		id, err := e.fx.StartEmitter(cmd.Effect, cmd.Pos, cmd.Options...)
		return Result{ID: id, Err: err}
	case OpStopEmitter:
		if !e.fx.StopEmitter(cmd.EmitterID) {
			return Result{Err: fxerr.Invalid("no emitter %d", cmd.EmitterID)}
		}
		return Result{ID: cmd.EmitterID}
	}
	return Result{Err: fxerr.Invalid("unknown command op %d", cmd.Op)}
}
