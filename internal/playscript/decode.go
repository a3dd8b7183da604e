package playscript

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qaznotquaz/aLexA/internal/errors"
)

// headerKey is the reserved top-level key; every other key is a scene.
const headerKey = "header"

// Format names a script document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type rawHeader struct {
	Episode *int      `json:"episode" yaml:"episode"`
	Act     *int      `json:"act" yaml:"act"`
	Initial *Position `json:"initial" yaml:"initial"`
}

type rawLine struct {
	From  string `json:"from" yaml:"from"`
	Text  string `json:"text" yaml:"text"`
	Delay int    `json:"delay" yaml:"delay"`
}

type rawCue struct {
	Actors map[string]string  `json:"actors" yaml:"actors"`
	Type   string             `json:"type" yaml:"type"`
	Text   map[string]rawLine `json:"text" yaml:"text"`
	CuesTo *Position          `json:"cuesTo" yaml:"cuesTo"`
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (*Script, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	default:
		return nil, errors.NewScriptError(fmt.Sprintf("unsupported script format %q", format))
	}
}

// DecodeJSON parses a JSON script document.
func DecodeJSON(data []byte) (*Script, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.NewScriptError(fmt.Sprintf("invalid JSON document: %v", err))
	}

	rawHead, ok := top[headerKey]
	if !ok {
		return nil, errors.NewScriptError("missing header").WithField(headerKey)
	}
	var header rawHeader
	if err := json.Unmarshal(rawHead, &header); err != nil {
		return nil, errors.NewScriptError(fmt.Sprintf("invalid header: %v", err)).WithField(headerKey)
	}

	scenes := make(map[string]map[string]rawCue, len(top)-1)
	for name, body := range top {
		if name == headerKey {
			continue
		}
		var cues map[string]rawCue
		if err := json.Unmarshal(body, &cues); err != nil {
			return nil, errors.NewScriptError(fmt.Sprintf("invalid scene: %v", err)).WithCue(name, "")
		}
		scenes[name] = cues
	}
	return build(header, scenes)
}

// DecodeYAML parses a YAML script document of the same shape as JSON.
func DecodeYAML(data []byte) (*Script, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, errors.NewScriptError(fmt.Sprintf("invalid YAML document: %v", err))
	}

	headNode, ok := top[headerKey]
	if !ok {
		return nil, errors.NewScriptError("missing header").WithField(headerKey)
	}
	var header rawHeader
	if err := headNode.Decode(&header); err != nil {
		return nil, errors.NewScriptError(fmt.Sprintf("invalid header: %v", err)).WithField(headerKey)
	}

	scenes := make(map[string]map[string]rawCue, len(top)-1)
	for name, node := range top {
		if name == headerKey {
			continue
		}
		var cues map[string]rawCue
		if err := node.Decode(&cues); err != nil {
			return nil, errors.NewScriptError(fmt.Sprintf("invalid scene: %v", err)).WithCue(name, "")
		}
		scenes[name] = cues
	}
	return build(header, scenes)
}

func build(header rawHeader, scenes map[string]map[string]rawCue) (*Script, error) {
	switch {
	case header.Episode == nil:
		return nil, errors.NewScriptError("header has no episode").WithField("header.episode")
	case header.Act == nil:
		return nil, errors.NewScriptError("header has no act").WithField("header.act")
	case header.Initial == nil || header.Initial.IsZero():
		return nil, errors.NewScriptError("header has no initial position").WithField("header.initial")
	}

	script := &Script{
		Header: Header{Episode: *header.Episode, Act: *header.Act, Initial: *header.Initial},
		Scenes: make(map[string]map[string]*Cue, len(scenes)),
	}
	for sceneName, cues := range scenes {
		if len(cues) == 0 {
			return nil, errors.NewScriptError("scene has no cues").WithCue(sceneName, "")
		}
		scene := make(map[string]*Cue, len(cues))
		for cueName, raw := range cues {
			cue, err := buildCue(sceneName, cueName, raw)
			if err != nil {
				return nil, err
			}
			scene[cueName] = cue
		}
		script.Scenes[sceneName] = scene
	}
	return script, nil
}

func buildCue(scene, name string, raw rawCue) (*Cue, error) {
	fail := func(msg, field string) error {
		return errors.NewScriptError(msg).WithCue(scene, name).WithField(field)
	}

	if raw.Type == "" {
		return nil, fail("cue has no type", "type")
	}
	kind, err := ParseDirectiveType(raw.Type)
	if err != nil {
		return nil, fail(err.Error(), "type")
	}
	if raw.CuesTo == nil || raw.CuesTo.IsZero() {
		return nil, fail("cue has no transition", "cuesTo")
	}

	presences := make(map[string]Presence, len(raw.Actors))
	for actor, value := range raw.Actors {
		p, err := ParsePresence(value)
		if err != nil {
			return nil, fail(err.Error(), "actors."+actor)
		}
		presences[actor] = p
	}

	lines, err := buildLines(raw.Text)
	if err != nil {
		return nil, fail(err.Error(), "text")
	}
	if kind.Implemented() && len(lines) == 0 {
		return nil, fail(string(kind)+" cue has no lines", "text")
	}

	return &Cue{
		Scene:      scene,
		Name:       name,
		Presences:  presences,
		Type:       kind,
		Lines:      lines,
		Transition: *raw.CuesTo,
	}, nil
}

// buildLines orders the numbered lines. Keys must be exactly "1".."n".
func buildLines(text map[string]rawLine) ([]Line, error) {
	lines := make([]Line, len(text))
	for key, raw := range text {
		index, err := strconv.Atoi(key)
		if err != nil || index < 1 || index > len(text) || strconv.Itoa(index) != key {
			return nil, fmt.Errorf("line keys must run from 1 to %d, found %q", len(text), key)
		}
		if raw.Delay < 0 {
			return nil, fmt.Errorf("line %d has negative delay %d", index, raw.Delay)
		}
		lines[index-1] = Line{
			From:  raw.From,
			Text:  raw.Text,
			Delay: time.Duration(raw.Delay) * time.Millisecond,
		}
	}
	return lines, nil
}
