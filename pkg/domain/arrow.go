package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArrowStep is one candidate lookup key of a fired arrow: the arrow Name leaving Source.
type ArrowStep struct {
	Source NodeID
	Name   string
}

// Arrow is a fired transition request. Steps are ordered from the node that
// fired outward to its ancestors; each is tried in turn until one resolves.
type Arrow []ArrowStep

// Step builds an ArrowStep.
func Step(source NodeID, name string) ArrowStep {
	return ArrowStep{Source: source, Name: name}
}

// NewArrow builds an arrow from steps.
func NewArrow(steps ...ArrowStep) Arrow {
	return Arrow(steps)
}

// Bubble builds an arrow that tries the same name at every level of the id
// path: (source, name), then (parent, name), up to the outermost segment.
func Bubble(source NodeID, name string) Arrow {
	var a Arrow
	for id, ok := source, source != ""; ok; id, ok = id.Parent() {
		a = append(a, Step(id, name))
	}
	return a
}

// Empty reports whether the arrow is degenerate.
func (a Arrow) Empty() bool {
	return len(a) == 0
}

// String renders the arrow in the form accepted by ParseArrow.
func (a Arrow) String() string {
	parts := make([]string, len(a))
	for i, s := range a {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// String renders the step as "source/name".
func (s ArrowStep) String() string {
	return string(s.Source) + "/" + s.Name
}

// MarshalJSON encodes the step as a two element array: ["a:b", "x"].
func (s ArrowStep) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(s.Source), s.Name})
}

// UnmarshalJSON accepts the two element array form.
func (s *ArrowStep) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("arrow step must be [source, name]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("arrow step must have 2 elements, got %d", len(pair))
	}
	s.Source = NodeID(pair[0])
	s.Name = pair[1]
	return nil
}

// ParseArrow parses "a:b/x,a/y" into an arrow. Whitespace around steps is ignored.
// The name is everything after the last "/" of a step.
func ParseArrow(text string) (Arrow, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Arrow{}, nil
	}
	raw := strings.Split(text, ",")
	arrow := make(Arrow, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		i := strings.LastIndex(part, "/")
		if i <= 0 || i == len(part)-1 {
			return nil, fmt.Errorf("invalid arrow step %q: expected source/name", part)
		}
		arrow = append(arrow, ArrowStep{Source: NodeID(part[:i]), Name: part[i+1:]})
	}
	return arrow, nil
}

// ParseArrows parses several arrows, one per argument.
func ParseArrows(texts ...string) ([]Arrow, error) {
	out := make([]Arrow, 0, len(texts))
	for _, t := range texts {
		a, err := ParseArrow(t)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
