// Command sparkterm runs the particle engine in a terminal using half-block
// cells. Click to spawn explosions, 1-8 picks the effect, q or Esc quits.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"sparkfx/internal/config"
	"sparkfx/internal/effects"
	"sparkfx/internal/engine"
	"sparkfx/internal/particle"
	"sparkfx/internal/termview"

	"github.com/gdamore/tcell/v2"
)

type app struct {
	screen    tcell.Screen
	engine    *engine.Engine
	presenter *termview.Presenter
	effects   []string
	current   int
}

func (a *app) spawnAt(col, row int) {
	cfg := a.engine.Config()
	x, y := a.presenter.FramePoint(col, row, cfg.Width, cfg.Height)
	cmd := engine.Spawn(a.effects[a.current], particle.Vec2{X: x, Y: y})
	if err := a.engine.Enqueue(cmd); err != nil {
		log.Printf("⚠️ Spawn %s: %v", a.effects[a.current], err)
	}
}

func (a *app) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			r := ev.Rune()
			switch {
			case r == 'q':
				return false
			case r == ' ':
				cols, rows := a.screen.Size()
				a.spawnAt(cols/2, rows/2)
			case r >= '1' && r <= '9':
				if i := int(r - '1'); i < len(a.effects) {
					a.current = i
				}
			}
		}

	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			col, row := ev.Position()
			a.spawnAt(col, row)
		}

	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) run(fps int) {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !a.handleInput(ev) {
				return
			}

		case <-ticker.C:
			if err := a.engine.Err(); err != nil {
				return
			}
			a.engine.ReadFrame(a.presenter.Draw)
		}
	}
}

func main() {
	appConfig := config.Load()

	scene, err := engine.NewScene(appConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.HideCursor()

	// The screen owns the terminal from here on.
	log.SetOutput(io.Discard)

	a := &app{
		screen:    screen,
		engine:    scene.Engine,
		presenter: termview.New(screen),
		effects:   scene.Effects.EffectNames(),
	}
	for i, name := range a.effects {
		if name == effects.Explosion {
			a.current = i
		}
	}

	fps := min(appConfig.Video.FPS, 30)
	scene.Engine.Start()
	a.run(fps)

	screen.Fini()
	scene.Close()

	if err := scene.Engine.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Engine halted: %v\n", err)
		os.Exit(1)
	}
}
