// Package chat turns viewer chat lines such as "!boom 120 80" or
// "!emit fountain" into engine commands, rate limited per user.
package chat

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"

	"sparkfx/internal/engine"
	"sparkfx/internal/fxerr"
	"sparkfx/internal/particle"

	"github.com/pkg/errors"
)

// ErrRateLimited reports a user sending commands too fast.
var ErrRateLimited = errors.New("rate limited")

// Target is the part of the engine chat commands drive
type Target interface {
	Config() engine.Config
	EffectNames() []string
	Enqueue(cmd engine.Command) error
	Do(ctx context.Context, cmd engine.Command) (engine.Result, error)
}

// Handler processes chat commands and applies them to the engine
type Handler struct {
	target      Target
	rateLimiter *RateLimiter
}

// NewHandler creates a new command handler
func NewHandler(target Target, cfg RateLimitConfig) *Handler {
	return &Handler{
		target:      target,
		rateLimiter: NewRateLimiter(cfg),
	}
}

// ProcessMessage handles one chat line and returns the reply for the chat.
// Plain chat returns an empty reply and no error.
func (h *Handler) ProcessMessage(ctx context.Context, msg Message) (string, error) {
	cmd, ok := Parse(msg)
	if !ok {
		return "", nil
	}
	return h.ProcessCommand(ctx, cmd)
}

// ProcessCommand handles a single command
func (h *Handler) ProcessCommand(ctx context.Context, cmd Command) (string, error) {
	cmdType := GetCommandType(cmd.Name)
	if cmdType == CmdUnknown {
		return "", fxerr.Invalid("unknown command %q", cmd.Name)
	}

	// Rate limit check
	if !h.rateLimiter.Allow(cmd.Username) {
		log.Printf("🚫 Rate limited: %s", cmd.Username)
		return "", errors.Wrapf(ErrRateLimited, "user %s", cmd.Username)
	}

	switch cmdType {
	case CmdSpawn:
		return h.handleSpawn(cmd)
	case CmdEmit:
		return h.handleEmit(ctx, cmd)
	case CmdStop:
		return h.handleStop(ctx, cmd)
	default:
		return h.handleHelp(), nil
	}
}

// handleSpawn fires a one-shot effect
func (h *Handler) handleSpawn(cmd Command) (string, error) {
	effect, err := h.effect(cmd.Name)
	if err != nil {
		return "", err
	}
	pos, err := h.position(cmd.Args)
	if err != nil {
		return "", err
	}
	if err := h.target.Enqueue(engine.Spawn(effect, pos)); err != nil {
		return "", err
	}
	log.Printf("🎆 %s spawned %s at (%.0f, %.0f)", cmd.Username, effect, pos.X, pos.Y)
	return fmt.Sprintf("%s spawned %s", cmd.Username, effect), nil
}

// handleEmit starts a continuous emitter
func (h *Handler) handleEmit(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) == 0 {
		return "", fxerr.Invalid("usage: %semit <effect> [x y]", Prefix)
	}
	effect, err := h.effect(cmd.Args[0])
	if err != nil {
		return "", err
	}
	pos, err := h.position(cmd.Args[1:])
	if err != nil {
		return "", err
	}
	res, err := h.target.Do(ctx, engine.StartEmitter(effect, pos))
	if err != nil {
		return "", err
	}
	log.Printf("⛲ %s started %s emitter #%d", cmd.Username, effect, res.ID)
	return fmt.Sprintf("%s started %s emitter #%d", cmd.Username, effect, res.ID), nil
}

// handleStop stops an emitter by id
func (h *Handler) handleStop(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) != 1 {
		return "", fxerr.Invalid("usage: %sstop <id>", Prefix)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(cmd.Args[0], "#"))
	if err != nil || id <= 0 {
		return "", fxerr.Invalid("bad emitter id %q", cmd.Args[0])
	}
	if _, err := h.target.Do(ctx, engine.StopEmitter(id)); err != nil {
		return "", err
	}
	log.Printf("🛑 %s stopped emitter #%d", cmd.Username, id)
	return fmt.Sprintf("emitter #%d stopped", id), nil
}

func (h *Handler) handleHelp() string {
	return fmt.Sprintf("effects: %s | %semit <effect> [x y] | %sstop <id>",
		strings.Join(h.target.EffectNames(), ", "), Prefix, Prefix)
}

// effect resolves an alias to a loaded effect
func (h *Handler) effect(word string) (string, error) {
	effect, ok := GetEffect(word)
	if !ok {
		return "", fxerr.Invalid("unknown effect %q", word)
	}
	if !slices.Contains(h.target.EffectNames(), effect) {
		return "", fxerr.Invalid("effect %q is not loaded", effect)
	}
	return effect, nil
}

// position reads an optional "x y" pair inside the canvas. No arguments
// means the canvas centre.
func (h *Handler) position(args []string) (particle.Vec2, error) {
	cfg := h.target.Config()
	switch len(args) {
	case 0:
		return particle.Vec2{X: float64(cfg.Width) / 2, Y: float64(cfg.Height) / 2}, nil
	case 2:
	default:
		return particle.Vec2{}, fxerr.Invalid("position needs x and y, got %d values", len(args))
	}

	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		return particle.Vec2{}, fxerr.Invalid("bad position %q %q", args[0], args[1])
	}
	if x < 0 || y < 0 || x > float64(cfg.Width) || y > float64(cfg.Height) {
		return particle.Vec2{}, fxerr.Invalid("position (%g, %g) outside %dx%d", x, y, cfg.Width, cfg.Height)
	}
	return particle.Vec2{X: x, Y: y}, nil
}
