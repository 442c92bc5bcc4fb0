package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sparkfx/internal/api"
	"sparkfx/internal/config"
	"sparkfx/internal/engine"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎆 ================================")
	log.Println("🎆  SPARKFX - PARTICLE SERVER")
	log.Println("🎆 ================================")

	appConfig := config.Load()
	videoCfg := appConfig.Video
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %d FPS, %dx%d, background %s", videoCfg.FPS, videoCfg.Width, videoCfg.Height, videoCfg.Background)

	scene, err := engine.NewScene(appConfig)
	if err != nil {
		log.Fatalf("❌ Failed to build engine: %v", err)
	}
	api.ObserveTables(scene.Tables)
	api.ObserveEngine(scene.Engine)

	if err := api.StartDebugServer(api.ObservabilityConfigFrom(appConfig.Debug)); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	if serverCfg.APIToken == "" {
		log.Println("⚠️ API_TOKEN not set - spawn routes are open")
	} else {
		log.Println("🔐 Spawn routes require a bearer token")
	}

	server := api.NewServer(scene.Engine, serverCfg)

	scene.Engine.Start()

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	scene.Close()
	log.Println("👋 Goodbye!")
}
