package playscript

import (
	"fmt"
	"time"
)

// Presence is a participant's stance for one cue.
type Presence string

const (
	PresenceIdle       Presence = "idle"
	PresenceLeading    Presence = "leading"
	PresenceResponding Presence = "responding"
	PresenceListening  Presence = "listening"
	PresenceOffstage   Presence = "offstage"
)

// ParsePresence converts a document value into a Presence.
func ParsePresence(s string) (Presence, error) {
	switch p := Presence(s); p {
	case PresenceIdle, PresenceLeading, PresenceResponding, PresenceListening, PresenceOffstage:
		return p, nil
	default:
		return "", fmt.Errorf("unknown presence %q", s)
	}
}

// IsOnstage reports whether the participant must be reachable for the cue.
func (p Presence) IsOnstage() bool {
	return p != PresenceOffstage && p != ""
}

// IsParticipating reports whether the participant takes part in the
// directive, which excludes idle and offstage.
func (p Presence) IsParticipating() bool {
	switch p {
	case PresenceLeading, PresenceResponding, PresenceListening:
		return true
	default:
		return false
	}
}

// DirectiveType is the behavior a cue executes.
type DirectiveType string

const (
	DirectiveMonologue    DirectiveType = "monologue"
	DirectiveConversation DirectiveType = "conversation"
	DirectiveEnter        DirectiveType = "enter"
	DirectiveExit         DirectiveType = "exit"
	DirectiveReadReg      DirectiveType = "readReg"
	DirectiveWriteReg     DirectiveType = "writeReg"
	DirectiveReadFile     DirectiveType = "readFile"
	DirectiveWriteFile    DirectiveType = "writeFile"
)

// ParseDirectiveType converts a document value into a DirectiveType.
func ParseDirectiveType(s string) (DirectiveType, error) {
	switch d := DirectiveType(s); d {
	case DirectiveMonologue, DirectiveConversation,
		DirectiveEnter, DirectiveExit,
		DirectiveReadReg, DirectiveWriteReg,
		DirectiveReadFile, DirectiveWriteFile:
		return d, nil
	default:
		return "", fmt.Errorf("unknown directive type %q", s)
	}
}

// Implemented reports whether the interpreter has behavior for d. The
// other kinds are accepted in documents and skipped at runtime.
func (d DirectiveType) Implemented() bool {
	return d == DirectiveMonologue || d == DirectiveConversation
}

// Position is a (scene, cue) pointer into a script.
type Position struct {
	Scene string `json:"scene" yaml:"scene"`
	Cue   string `json:"cue" yaml:"cue"`
}

// String returns "scene/cue".
func (p Position) String() string {
	return p.Scene + "/" + p.Cue
}

// IsZero reports whether p names nothing.
func (p Position) IsZero() bool {
	return p.Scene == "" && p.Cue == ""
}

// Line is one numbered entry of a cue's text.
type Line struct {
	From  string // Speaker; empty for monologue lines
	Text  string
	Delay time.Duration // Pause before the line
}

// Cue is one node of the script graph.
type Cue struct {
	Scene      string
	Name       string
	Presences  map[string]Presence
	Type       DirectiveType
	Lines      []Line
	Transition Position
}

// Position returns where this cue sits in the script.
func (c *Cue) Position() Position {
	return Position{Scene: c.Scene, Cue: c.Name}
}

// PresenceOf resolves name's presence, defaulting to offstage.
func (c *Cue) PresenceOf(name string) Presence {
	if p, ok := c.Presences[name]; ok {
		return p
	}
	return PresenceOffstage
}

// Header identifies the script and its starting point.
type Header struct {
	Episode int      `json:"episode" yaml:"episode"`
	Act     int      `json:"act" yaml:"act"`
	Initial Position `json:"initial" yaml:"initial"`
}

// Script is an immutable parsed document.
type Script struct {
	Header Header
	Scenes map[string]map[string]*Cue
}
