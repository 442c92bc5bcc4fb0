package api

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"sparkfx/internal/chat"
	"sparkfx/internal/effects"
	"sparkfx/internal/engine"
	"sparkfx/internal/fxerr"
	"sparkfx/internal/particle"

	"github.com/go-chi/chi/v5"
)

// commandTimeout bounds how long a request waits for the engine to apply it.
const commandTimeout = 2 * time.Second

// maxBodyBytes caps spawn request bodies.
const maxBodyBytes = 4 << 10

// spawnRequest is the optional body of the spawn and emitter routes.
// Omitted fields keep the effect defaults; an omitted position is the canvas
// centre.
type spawnRequest struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Count *int     `json:"count"`
	Color *int     `json:"color"`
	Speed *float64 `json:"speed"`
	Angle *float64 `json:"angle"`
}

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	effects.Stats

	Tick     int64   `json:"tick"`
	Sequence uint64  `json:"sequence"`
	Blits    uint64  `json:"blits"`
	Batches  uint64  `json:"batches"`
	TickMs   float64 `json:"tickMs"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      int     `json:"fps"`
}

func (h *routerHandlers) stats() statsResponse {
	cfg := h.engine.Config()
	resp := statsResponse{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS}

	if f := h.engine.Latest(); f != nil {
		resp.Stats = f.Stats
		resp.Tick = f.Tick
		resp.Sequence = f.Sequence
		resp.Blits = f.Blits
		resp.Batches = f.Batches
		resp.TickMs = float64(f.TickDuration.Microseconds()) / 1000
	} else {
		resp.Stats = h.engine.Stats()
	}
	return resp
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats())
}

func (h *routerHandlers) handleGetEffects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"effects": h.engine.EffectNames(),
	})
}

func (h *routerHandlers) handleGetEmitters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"emitters": h.engine.Emitters(),
	})
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	f := h.engine.Latest()
	if f == nil {
		writeError(w, "No frame yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Sequence", strconv.FormatUint(f.Sequence, 10))
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, f.Image()); err != nil {
		log.Printf("⚠️ Frame encode failed: %v", err)
	}
}

func (h *routerHandlers) handleSpawnEffect(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decodeCommand(w, r, engine.OpSpawn)
	if !ok {
		return
	}

	res, err := h.do(r.Context(), cmd)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	RecordSpawn(cmd.Effect, res.N)
	writeJSON(w, map[string]interface{}{
		"effect":  cmd.Effect,
		"spawned": res.N,
	})
}

func (h *routerHandlers) handleStartEmitter(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decodeCommand(w, r, engine.OpStartEmitter)
	if !ok {
		return
	}

	res, err := h.do(r.Context(), cmd)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"effect": cmd.Effect,
		"id":     res.ID,
	})
}

func (h *routerHandlers) handleStopEmitter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, "Invalid emitter id", http.StatusBadRequest)
		return
	}

	if _, err := h.do(r.Context(), engine.StopEmitter(id)); err != nil {
		if errors.Is(err, fxerr.ErrInvalidArgument) {
			writeError(w, "Emitter not found", http.StatusNotFound)
			return
		}
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var msg chat.Message
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if msg.Username == "" {
		msg.Username = GetClientIP(r)
	}
	msg.ReceivedAt = time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	reply, err := h.chat.ProcessMessage(ctx, msg)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	RecordCommand("chat")
	writeJSON(w, map[string]string{"user": msg.Username, "reply": reply})
}

func (h *routerHandlers) do(ctx context.Context, cmd engine.Command) (engine.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	RecordCommand(cmd.Op.String())
	return h.engine.Do(ctx, cmd)
}

// decodeCommand builds a command from the route name and the optional body.
func (h *routerHandlers) decodeCommand(w http.ResponseWriter, r *http.Request, op engine.Op) (engine.Command, bool) {
	var req spawnRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return engine.Command{}, false
	}

	cfg := h.engine.Config()
	pos := particle.Vec2{X: float64(cfg.Width) / 2, Y: float64(cfg.Height) / 2}
	if req.X != nil {
		pos.X = *req.X
	}
	if req.Y != nil {
		pos.Y = *req.Y
	}

	var opts []effects.Option
	if req.Count != nil {
		opts = append(opts, effects.WithCount(*req.Count))
	}
	if req.Color != nil {
		opts = append(opts, effects.WithColor(*req.Color))
	}
	if req.Speed != nil || req.Angle != nil {
		var speed, angle particle.Distribution
		if req.Speed != nil {
			speed = particle.Const(*req.Speed)
		}
		if req.Angle != nil {
			angle = particle.Const(*req.Angle)
		}
		opts = append(opts, effects.WithVelocity(speed, angle))
	}

	return engine.Command{
		Op:      op,
		Effect:  chi.URLParam(r, "name"),
		Pos:     pos,
		Options: opts,
	}, true
}

// writeCommandError maps engine errors onto status codes.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fxerr.ErrInvalidArgument):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, chat.ErrRateLimited):
		RecordConnectionRejected("chat_rate_limit")
		w.Header().Set("Retry-After", "1")
		writeError(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, fxerr.ErrResourceUnavailable):
		RecordConnectionRejected("queue_full")
		w.Header().Set("Retry-After", "1")
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, "Engine did not answer in time", http.StatusGatewayTimeout)
	default:
		log.Printf("❌ Command failed: %v", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
