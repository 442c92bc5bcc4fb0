package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sparkfx/internal/effects"
	"sparkfx/internal/engine"
	"sparkfx/internal/fxerr"
)

type fakeTarget struct {
	cmds  []engine.Command
	doErr error
}

func (f *fakeTarget) Config() engine.Config { return engine.Config{FPS: 60, Width: 200, Height: 100} }
func (f *fakeTarget) EffectNames() []string { return []string{effects.Explosion, effects.Fountain, effects.MiniExplosion} }

func (f *fakeTarget) Enqueue(cmd engine.Command) error {
	f.cmds = append(f.cmds, cmd)
	return nil
}

func (f *fakeTarget) Do(ctx context.Context, cmd engine.Command) (engine.Result, error) {
	f.cmds = append(f.cmds, cmd)
	if f.doErr != nil {
		return engine.Result{}, f.doErr
	}
	return engine.Result{ID: 4}, nil
}

var unlimited = RateLimitConfig{MaxPerWindow: 1000, WindowDuration: time.Second}

// TestParse tests command extraction from chat lines
func TestParse(t *testing.T) {
	tests := []struct {
		content string
		ok      bool
		name    string
		args    int
	}{
		{"!boom", true, "boom", 0},
		{"  !Emit Fountain 10 20 ", true, "emit", 3},
		{"hello there", false, "", 0},
		{"!", false, "", 0},
		{"! ", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			cmd, ok := Parse(Message{Username: "ana", Content: tt.content})
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if cmd.Name != tt.name || len(cmd.Args) != tt.args || cmd.Username != "ana" {
				t.Errorf("Unexpected command %+v", cmd)
			}
		})
	}
}

// TestGetCommandType tests routing words
func TestGetCommandType(t *testing.T) {
	tests := map[string]CommandType{
		"boom":           CmdSpawn,
		"mini_explosion": CmdSpawn,
		"emit":           CmdEmit,
		"stop":           CmdStop,
		"help":           CmdHelp,
		"join":           CmdUnknown,
	}
	for word, want := range tests {
		if got := GetCommandType(word); got != want {
			t.Errorf("%s: expected %d, got %d", word, want, got)
		}
	}
}

// TestSpawnCommand tests one-shot spawns with and without a position
func TestSpawnCommand(t *testing.T) {
	target := &fakeTarget{}
	h := NewHandler(target, unlimited)
	ctx := context.Background()

	reply, err := h.ProcessMessage(ctx, Message{Username: "ana", Content: "!boom"})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if reply != "ana spawned explosion" {
		t.Errorf("Unexpected reply %q", reply)
	}

	if _, err := h.ProcessMessage(ctx, Message{Username: "ana", Content: "!pop 10 20"}); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	if len(target.cmds) != 2 {
		t.Fatalf("Expected 2 commands, got %d", len(target.cmds))
	}
	if c := target.cmds[0]; c.Op != engine.OpSpawn || c.Effect != effects.Explosion || c.Pos.X != 100 || c.Pos.Y != 50 {
		t.Errorf("Unexpected first command %+v", c)
	}
	if c := target.cmds[1]; c.Effect != effects.MiniExplosion || c.Pos.X != 10 || c.Pos.Y != 20 {
		t.Errorf("Unexpected second command %+v", c)
	}
}

// TestEmitAndStop tests emitter commands through Do
func TestEmitAndStop(t *testing.T) {
	target := &fakeTarget{}
	h := NewHandler(target, unlimited)
	ctx := context.Background()

	reply, err := h.ProcessMessage(ctx, Message{Username: "bo", Content: "!emit fountain"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !strings.Contains(reply, "#4") {
		t.Errorf("Expected the emitter id in the reply, got %q", reply)
	}

	reply, err = h.ProcessMessage(ctx, Message{Username: "bo", Content: "!stop #4"})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if reply != "emitter #4 stopped" {
		t.Errorf("Unexpected reply %q", reply)
	}

	if c := target.cmds[0]; c.Op != engine.OpStartEmitter || c.Effect != effects.Fountain {
		t.Errorf("Unexpected emit command %+v", c)
	}
	if c := target.cmds[1]; c.Op != engine.OpStopEmitter || c.EmitterID != 4 {
		t.Errorf("Unexpected stop command %+v", c)
	}

	target.doErr = fxerr.Invalid("no emitter 9")
	if _, err := h.ProcessMessage(ctx, Message{Username: "bo", Content: "!stop 9"}); !errors.Is(err, fxerr.ErrInvalidArgument) {
		t.Errorf("Expected the engine error, got %v", err)
	}
}

// TestInvalidCommands tests rejected chat commands
func TestInvalidCommands(t *testing.T) {
	tests := []string{
		"!dance",
		"!smoke",
		"!boom 10",
		"!boom 10 x",
		"!boom 500 20",
		"!emit",
		"!emit lasers",
		"!stop",
		"!stop zero",
		"!stop 0",
	}

	for _, content := range tests {
		t.Run(content, func(t *testing.T) {
			target := &fakeTarget{}
			h := NewHandler(target, unlimited)
			_, err := h.ProcessMessage(context.Background(), Message{Username: "cy", Content: content})
			if !errors.Is(err, fxerr.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
			if len(target.cmds) != 0 {
				t.Errorf("Expected no commands, got %d", len(target.cmds))
			}
		})
	}
}

// TestPlainChatIgnored tests that non-commands do nothing
func TestPlainChatIgnored(t *testing.T) {
	target := &fakeTarget{}
	h := NewHandler(target, DefaultRateLimitConfig)
	reply, err := h.ProcessMessage(context.Background(), Message{Username: "di", Content: "nice"})
	if reply != "" || err != nil || len(target.cmds) != 0 {
		t.Errorf("Expected nothing, got %q, %v, %d commands", reply, err, len(target.cmds))
	}
}

// TestHelp tests the help reply lists loaded effects
func TestHelp(t *testing.T) {
	h := NewHandler(&fakeTarget{}, unlimited)
	reply, err := h.ProcessMessage(context.Background(), Message{Username: "ed", Content: "!help"})
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(reply, "fountain") || !strings.Contains(reply, "!stop") {
		t.Errorf("Unexpected help %q", reply)
	}
}

// TestRateLimiter tests cooldown, window and idle sweep
func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(RateLimitConfig{
		MaxPerWindow:     2,
		WindowDuration:   5 * time.Second,
		CooldownDuration: 500 * time.Millisecond,
		IdleTTL:          time.Minute,
	})
	rl.now = func() time.Time { return now }

	if !rl.Allow("ana") {
		t.Fatal("First command should be allowed")
	}
	if rl.Allow("ana") {
		t.Error("Command inside the cooldown should be denied")
	}
	now = now.Add(time.Second)
	if !rl.Allow("ana") {
		t.Error("Second command should be allowed")
	}
	now = now.Add(time.Second)
	if rl.Allow("ana") {
		t.Error("Third command in the window should be denied")
	}
	if !rl.Allow("bo") {
		t.Error("Other users are limited separately")
	}
	now = now.Add(5 * time.Second)
	if !rl.Allow("ana") {
		t.Error("A new window should allow commands")
	}

	now = now.Add(2 * time.Minute)
	rl.Allow("cy")
	if n := rl.Users(); n != 1 {
		t.Errorf("Expected idle users swept, %d remain", n)
	}
}

// TestHandlerRateLimited tests ErrRateLimited from the handler
func TestHandlerRateLimited(t *testing.T) {
	h := NewHandler(&fakeTarget{}, RateLimitConfig{MaxPerWindow: 1, WindowDuration: time.Minute})
	ctx := context.Background()
	if _, err := h.ProcessMessage(ctx, Message{Username: "fa", Content: "!boom"}); err != nil {
		t.Fatalf("First: %v", err)
	}
	if _, err := h.ProcessMessage(ctx, Message{Username: "fa", Content: "!boom"}); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}
