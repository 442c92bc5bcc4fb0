package engine

import (
	"log"
	"os"

	"sparkfx/internal/config"
	"sparkfx/internal/effects"
	"sparkfx/internal/particle"
	"sparkfx/internal/render"
)

// Scene is an engine wired from the application configuration with the
// default catalog.
type Scene struct {
	Engine  *Engine
	Effects *effects.Manager
	Tables  *particle.TableCache
	Clock   *particle.FrameClock

	pool *render.Pool
}

// NewScene builds the table pool, asset loader, manager and engine. The
// engine is not started.
func NewScene(app config.AppConfig) (*Scene, error) {
	cfg, err := ConfigFrom(app.Video, app.Limits)
	if err != nil {
		return nil, err
	}

	pool := render.NewPool(app.Tables.BuildWorkers)
	pool.Start()
	tables := particle.NewTableCache(pool)

	var assets *render.AssetLoader
	if app.Tables.AssetDir != "" {
		assets = render.NewAssetLoader(os.DirFS(app.Tables.AssetDir))
		log.Printf("🖼️ Assets from %s", app.Tables.AssetDir)
	}

	clock := &particle.FrameClock{}
	env := particle.Env{
		Rand:   particle.NewRand(app.Tables.Seed),
		Clock:  clock,
		Tables: tables,
		Width:  float64(app.Video.Width),
		Height: float64(app.Video.Height),
	}

	fx, err := effects.NewManager(effects.DefaultCatalog(assets), env, effects.Limits{
		MaxParticlesPerKind: app.Limits.MaxParticlesPerKind,
		MaxCountPerEffect:   app.Limits.MaxCountPerEffect,
		MaxEmitters:         app.Limits.MaxEmitters,
	})
	if err != nil {
		pool.Stop()
		return nil, err
	}

	e, err := New(cfg, fx, clock)
	if err != nil {
		pool.Stop()
		return nil, err
	}

	log.Printf("🛡️ Resource limits: %d particles/kind, %d per request, %d emitters, queue %d",
		app.Limits.MaxParticlesPerKind, app.Limits.MaxCountPerEffect, app.Limits.MaxEmitters, app.Limits.SpawnQueueSize)
	log.Printf("🎨 Table build pool: %d workers", pool.Workers())

	return &Scene{
		Engine:  e,
		Effects: fx,
		Tables:  tables,
		Clock:   clock,
		pool:    pool,
	}, nil
}

// Close stops the engine and the table build pool.
func (s *Scene) Close() {
	s.Engine.Stop()
	s.pool.Stop()
}
