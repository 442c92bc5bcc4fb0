// Command sparkview runs the particle engine in a desktop window. Left click
// spawns an explosion, right click a mini explosion, middle click fireworks.
package main

import (
	"fmt"
	"log"

	"sparkfx/internal/config"
	"sparkfx/internal/effects"
	"sparkfx/internal/engine"
	"sparkfx/internal/particle"
	"sparkfx/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/joho/godotenv"
)

// surface draws blit batches onto an ebiten image. Sprites are uploaded once
// and kept, since tables are never evicted.
type surface struct {
	dst    *ebiten.Image
	images map[*render.Sprite]*ebiten.Image
	blits  int
}

func (s *surface) Blits(batch []render.Blit) {
	op := &ebiten.DrawImageOptions{}
	for _, b := range batch {
		if b.Sprite == nil || b.Sprite.Empty() {
			continue
		}
		img, ok := s.images[b.Sprite]
		if !ok {
			img = ebiten.NewImageFromImage(b.Sprite.Img)
			s.images[b.Sprite] = img
		}
		op.GeoM.Reset()
		op.GeoM.Translate(float64(int(b.X+0.5)-b.Sprite.AX), float64(int(b.Y+0.5)-b.Sprite.AY))
		s.dst.DrawImage(img, op)
		s.blits++
	}
}

type game struct {
	engine  *engine.Engine
	cfg     engine.Config
	surface *surface
	err     error
}

var buttons = []struct {
	button ebiten.MouseButton
	effect string
}{
	{ebiten.MouseButtonLeft, effects.Explosion},
	{ebiten.MouseButtonRight, effects.MiniExplosion},
	{ebiten.MouseButtonMiddle, effects.Fireworks},
}

func (g *game) Update() error {
	if g.err != nil {
		return g.err
	}
	x, y := ebiten.CursorPosition()
	for _, b := range buttons {
		if !inpututil.IsMouseButtonJustPressed(b.button) {
			continue
		}
		cmd := engine.Spawn(b.effect, particle.Vec2{X: float64(x), Y: float64(y)})
		if err := g.engine.Enqueue(cmd); err != nil {
			log.Printf("⚠️ Spawn %s: %v", b.effect, err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.engine.Advance()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(g.cfg.Background)
	g.surface.dst = screen
	g.surface.blits = 0
	if err := g.engine.Render(g.surface); err != nil {
		g.err = err
	}
	stats := g.engine.Stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf("TPS %.0f  particles %d  blits %d  emitters %d",
		ebiten.ActualTPS(), stats.Particles, g.surface.blits, stats.Emitters))
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	appConfig := config.Load()
	scene, err := engine.NewScene(appConfig)
	if err != nil {
		log.Fatalf("❌ Failed to build engine: %v", err)
	}
	defer scene.Close()

	cfg := scene.Engine.Config()
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle("sparkfx")
	ebiten.SetTPS(cfg.FPS)

	g := &game{
		engine:  scene.Engine,
		cfg:     cfg,
		surface: &surface{images: make(map[*render.Sprite]*ebiten.Image)},
	}
	if err := ebiten.RunGame(g); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
