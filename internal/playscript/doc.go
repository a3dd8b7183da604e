// Package playscript holds the parsed script an actor performs.
//
// A [Script] is a header naming the episode, act and initial position,
// plus scenes of named [Cue] values. Each cue gives every participant a
// [Presence], names a [DirectiveType], carries its numbered lines and
// points at the next position. Cues form a directed graph; cycles are
// legal. A participant absent from a cue's presence map is offstage.
//
// Scripts are decoded from JSON or YAML documents of the same shape:
//
//	{ "header": {"episode": 1, "act": 1, "initial": {"scene": "intro", "cue": "1"}},
//	  "intro": {
//	     "1": {
//	        "actors": {"Lexa": "leading", "Xander": "responding"},
//	        "type": "monologue",
//	        "text": {"1": {"text": "Hello.", "delay": 500}},
//	        "cuesTo": {"scene": "intro", "cue": "2"}
//	     } } }
//
// Line keys must run "1".."n" without gaps; decoding turns them into an
// ordered slice so the end of a cue's lines is explicit.
package playscript
