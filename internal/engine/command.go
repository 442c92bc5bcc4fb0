package engine

import (
	"sparkfx/internal/effects"
	"sparkfx/internal/fxerr"
	"sparkfx/internal/particle"
)

// Op selects what a command does.
type Op int

const (
	OpSpawn Op = iota
	OpStartEmitter
	OpStopEmitter
)

func (o Op) String() string {
	switch o {
	case OpSpawn:
		return "spawn"
	case OpStartEmitter:
		return "start_emitter"
	case OpStopEmitter:
		return "stop_emitter"
	}
	return "unknown"
}

// Command is a request applied by the engine goroutine at the next tick.
type Command struct {
	Op        Op
	Effect    string
	Pos       particle.Vec2
	Options   []effects.Option
	EmitterID int

	// Reply, if set, receives the result. It must have room for one value.
	Reply chan<- Result
}

// Result is the outcome of one command.
type Result struct {
	N   int   // particles spawned
	ID  int   // emitter id
	Err error
}

// Spawn builds a burst command.
func Spawn(effect string, pos particle.Vec2, opts ...effects.Option) Command {
	return Command{Op: OpSpawn, Effect: effect, Pos: pos, Options: opts}
}

// StartEmitter builds an emitter command.
func StartEmitter(effect string, pos particle.Vec2, opts ...effects.Option) Command {
	return Command{Op: OpStartEmitter, Effect: effect, Pos: pos, Options: opts}
}

// StopEmitter builds a command stopping emitter id.
func StopEmitter(id int) Command {
	return Command{Op: OpStopEmitter, EmitterID: id}
}

func (c Command) validate() error {
	switch c.Op {
	case OpSpawn, OpStartEmitter:
		if c.Effect == "" {
			return fxerr.Invalid("%s command without an effect", c.Op)
		}
	case OpStopEmitter:
		if c.EmitterID <= 0 {
			return fxerr.Invalid("stop_emitter command with id %d", c.EmitterID)
		}
	default:
		return fxerr.Invalid("unknown command op %d", int(c.Op))
	}
	return nil
}

func (c Command) reply(r Result) {
	if c.Reply == nil {
		return
	}
	select {
	case c.Reply <- r:
	default:
	}
}
