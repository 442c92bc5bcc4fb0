// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for engine, server and table settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// VIDEO & CANVAS CONFIGURATION
// =============================================================================

// VideoConfig holds the frame canvas settings.
type VideoConfig struct {
	Width      int    // Canvas width in pixels (also the WrapTorus world width)
	Height     int    // Canvas height in pixels
	FPS        int    // Frames per second (also the simulation tick rate)
	Background string // Clear colour, any colour accepted by colors.Parse
}

// DefaultVideo returns the default video configuration.
func DefaultVideo() VideoConfig {
	return VideoConfig{
		Width:      800,
		Height:     600,
		FPS:        60,
		Background: "#0f1011",
	}
}

// VideoFromEnv returns video configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func VideoFromEnv() VideoConfig {
	cfg := DefaultVideo()

	if w := getEnvInt("CANVAS_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("CANVAS_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if fps := getEnvInt("CANVAS_FPS", 0); fps > 0 {
		cfg.FPS = fps
	}
	if bg := os.Getenv("CANVAS_BACKGROUND"); bg != "" {
		cfg.Background = bg
	}

	return cfg
}

// =============================================================================
// PARTICLE RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxParticlesPerKind int // Live particles per kind; extra spawns are dropped
	MaxCountPerEffect   int // Largest burst a single request may ask for
	MaxEmitters         int // Running continuous emitters
	SpawnQueueSize      int // Buffered commands between API and engine
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxParticlesPerKind: 20_000,
		MaxCountPerEffect:   2_000,
		MaxEmitters:         16,
		SpawnQueueSize:      256,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_PARTICLES_PER_KIND", 0); n > 0 {
		cfg.MaxParticlesPerKind = n
	}
	if n := getEnvInt("MAX_COUNT_PER_EFFECT", 0); n > 0 {
		cfg.MaxCountPerEffect = n
	}
	if n := getEnvInt("MAX_EMITTERS", 0); n > 0 {
		cfg.MaxEmitters = n
	}
	if n := getEnvInt("SPAWN_QUEUE_SIZE", 0); n > 0 {
		cfg.SpawnQueueSize = n
	}

	return cfg
}

// =============================================================================
// RENDER TABLE CONFIGURATION
// =============================================================================

// TableConfig holds render table build settings.
type TableConfig struct {
	BuildWorkers int    // Goroutines painting table cells (0 = NumCPU, capped at 16)
	AssetDir     string // Directory of sprite assets; empty disables image kinds
	Seed         uint64 // Seed of the particle random source
}

// DefaultTables returns the default table configuration.
func DefaultTables() TableConfig {
	return TableConfig{
		BuildWorkers: 0,
		AssetDir:     "",
		Seed:         1,
	}
}

// TablesFromEnv returns table configuration with environment variable overrides.
func TablesFromEnv() TableConfig {
	cfg := DefaultTables()

	if n := getEnvInt("TABLE_WORKERS", -1); n >= 0 {
		cfg.BuildWorkers = n
	}
	if dir := os.Getenv("ASSET_DIR"); dir != "" {
		cfg.AssetDir = dir
	}
	if s := getEnvInt("PARTICLE_SEED", 0); s > 0 {
		cfg.Seed = uint64(s)
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	RateLimit      float64 // Spawn requests per second per IP
	RateBurst      int
	APIToken       string // Bearer token for mutating routes; empty disables the check
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"*"},
		RateLimit:      20,
		RateBurst:      40,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if r := getEnvFloat("RATE_LIMIT", 0); r > 0 {
		cfg.RateLimit = r
	}
	if b := getEnvInt("RATE_BURST", 0); b > 0 {
		cfg.RateBurst = b
	}
	cfg.APIToken = os.Getenv("API_TOKEN")

	return cfg
}

// =============================================================================
// DEBUG CONFIGURATION
// =============================================================================

// DebugConfig holds the pprof/metrics server settings.
type DebugConfig struct {
	Enabled bool
	Port    int
}

// DefaultDebug returns the default debug configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled: true,
		Port:    6060,
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DEBUG_SERVER") == "false" {
		cfg.Enabled = false
	}
	if p := getEnvInt("DEBUG_PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Video  VideoConfig
	Limits ResourceLimits
	Tables TableConfig
	Server ServerConfig
	Debug  DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Video:  VideoFromEnv(),
		Limits: LimitsFromEnv(),
		Tables: TablesFromEnv(),
		Server: ServerFromEnv(),
		Debug:  DebugFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
