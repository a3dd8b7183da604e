package playscript

import (
	"slices"
	"strconv"

	"github.com/qaznotquaz/aLexA/internal/errors"
)

// Lookup returns the cue at pos.
func (s *Script) Lookup(pos Position) (*Cue, error) {
	scene, ok := s.Scenes[pos.Scene]
	if !ok {
		return nil, errors.NewScriptError("scene does not exist").WithCue(pos.Scene, pos.Cue)
	}
	cue, ok := scene[pos.Cue]
	if !ok {
		return nil, errors.NewScriptError("cue does not exist").WithCue(pos.Scene, pos.Cue)
	}
	return cue, nil
}

// SceneNames returns the scene names in sorted order.
func (s *Script) SceneNames() []string {
	names := make([]string, 0, len(s.Scenes))
	for name := range s.Scenes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Cues returns every cue ordered by scene then cue name.
func (s *Script) Cues() []*Cue {
	var cues []*Cue
	for _, scene := range s.SceneNames() {
		names := make([]string, 0, len(s.Scenes[scene]))
		for name := range s.Scenes[scene] {
			names = append(names, name)
		}
		slices.SortFunc(names, compareCueNames)
		for _, name := range names {
			cues = append(cues, s.Scenes[scene][name])
		}
	}
	return cues
}

// Validate checks the structure the interpreter relies on: the initial
// position and every transition resolve, presences name cast members,
// and every conversation line has a speaker from the cast who is onstage
// in that cue. All problems are returned joined.
func (s *Script) Validate(cast []string) error {
	var errs []error

	if _, err := s.Lookup(s.Header.Initial); err != nil {
		errs = append(errs, errors.NewScriptError("initial position does not exist").
			WithCue(s.Header.Initial.Scene, s.Header.Initial.Cue).WithField("header.initial"))
	}

	for _, cue := range s.Cues() {
		if _, err := s.Lookup(cue.Transition); err != nil {
			errs = append(errs, errors.NewScriptError("transition target "+cue.Transition.String()+" does not exist").
				WithCue(cue.Scene, cue.Name).WithField("cuesTo"))
		}
		for name := range cue.Presences {
			if !slices.Contains(cast, name) {
				errs = append(errs, errors.NewScriptError("presence for "+name+" who is not in the cast").
					WithCue(cue.Scene, cue.Name).WithField("actors."+name))
			}
		}
		if cue.Type == DirectiveConversation {
			for i, line := range cue.Lines {
				field := "text." + strconv.Itoa(i+1) + ".from"
				switch {
				case !slices.Contains(cast, line.From):
					errs = append(errs, errors.NewScriptError("line speaker "+strconv.Quote(line.From)+" is not in the cast").
						WithCue(cue.Scene, cue.Name).WithField(field))
				case !cue.PresenceOf(line.From).IsOnstage():
					errs = append(errs, errors.NewScriptError("line speaker "+strconv.Quote(line.From)+" is offstage").
						WithCue(cue.Scene, cue.Name).WithField(field))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// compareCueNames orders numeric names numerically and the rest lexically.
func compareCueNames(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai - bi
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
