package playscript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qaznotquaz/aLexA/internal/errors"
)

// extensions are tried in order when locating a script.
var extensions = []string{".json", ".yaml", ".yml"}

// Path returns the expected location of a script without its extension:
// {dir}/ep{E}/ep{E}act{A}.
func Path(dir string, episode, act int) string {
	return filepath.Join(dir, fmt.Sprintf("ep%d", episode), fmt.Sprintf("ep%dact%d", episode, act))
}

// Locate returns the first existing script file for (episode, act).
func Locate(dir string, episode, act int) (string, error) {
	base := Path(dir, episode, act)
	for _, ext := range extensions {
		path := base + ext
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.NewScriptError(fmt.Sprintf("no script for episode %d act %d under %s", episode, act, dir)).
		WithField("path")
}

// LoadFile reads and decodes path, choosing the format by extension.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewScriptError(fmt.Sprintf("read script: %v", err)).WithField("path")
	}

	return Decode(data, FormatOf(path))
}

// FormatOf picks the document format from a file extension. Anything
// other than .yaml or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load locates, decodes and checks the script for (episode, act). The
// header must name the requested episode and act.
func Load(dir string, episode, act int) (*Script, string, error) {
	path, err := Locate(dir, episode, act)
	if err != nil {
		return nil, "", err
	}
	script, err := LoadFile(path)
	if err != nil {
		return nil, path, err
	}
	if script.Header.Episode != episode || script.Header.Act != act {
		return nil, path, errors.NewScriptError(fmt.Sprintf(
			"%s declares episode %d act %d, want episode %d act %d",
			path, script.Header.Episode, script.Header.Act, episode, act)).
			WithField("header").
			WithCause(errors.ErrScriptMismatch)
	}
	return script, path, nil
}
