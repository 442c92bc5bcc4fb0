package chat

import (
	"strings"
	"time"

	"sparkfx/internal/effects"
)

// Prefix starts every chat command.
const Prefix = "!"

// Message is one line of viewer chat
type Message struct {
	Username   string    `json:"user"`
	Content    string    `json:"text"`
	ReceivedAt time.Time `json:"-"`
}

// Command is a parsed chat command
type Command struct {
	Name       string   // "emit", "stop", an effect alias, ...
	Args       []string // Arguments after the command
	Username   string
	ReceivedAt time.Time
}

// CommandType for routing
type CommandType int

const (
	CmdSpawn CommandType = iota // !<effect> [x y]
	CmdEmit                     // !emit <effect> [x y]
	CmdStop                     // !stop <id>
	CmdHelp
	CmdUnknown
)

// SupportedCommands maps the non-effect command words to types
var SupportedCommands = map[string]CommandType{
	"emit":    CmdEmit,
	"emitter": CmdEmit,
	"start":   CmdEmit,

	"stop": CmdStop,
	"off":  CmdStop,

	"help":     CmdHelp,
	"effects":  CmdHelp,
	"commands": CmdHelp,
}

// EffectAliases maps chat words to catalog effect names
var EffectAliases = map[string]string{
	"explosion": effects.Explosion,
	"boom":      effects.Explosion,
	"mini":      effects.MiniExplosion,
	"pop":       effects.MiniExplosion,
	"fireworks": effects.Fireworks,
	"firework":  effects.Fireworks,
	"debris":    effects.Debris,
	"shockwave": effects.Shockwave,
	"wave":      effects.Shockwave,
	"fountain":  effects.Fountain,
	"snow":      effects.Snow,
	"smoke":     effects.Smoke,

	effects.MiniExplosion: effects.MiniExplosion,
}

// GetCommandType returns the command type for a lower-cased word. Effect
// names and aliases are spawns.
func GetCommandType(name string) CommandType {
	if t, ok := SupportedCommands[name]; ok {
		return t
	}
	if _, ok := EffectAliases[name]; ok {
		return CmdSpawn
	}
	return CmdUnknown
}

// GetEffect normalizes an effect alias to its catalog name
func GetEffect(name string) (string, bool) {
	if id, ok := EffectAliases[strings.ToLower(name)]; ok {
		return id, true
	}
	return "", false
}

// Parse extracts a command from a chat line. Lines without the prefix are
// plain chat and report false.
func Parse(msg Message) (Command, bool) {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, Prefix) {
		return Command{}, false
	}
	fields := strings.Fields(content[len(Prefix):])
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{
		Name:       strings.ToLower(fields[0]),
		Args:       fields[1:],
		Username:   msg.Username,
		ReceivedAt: msg.ReceivedAt,
	}, true
}
