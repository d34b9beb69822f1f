package dsl

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/hfsm/pkg/domain"
)

// Plan is the declarative form of a node, as decoded from YAML, JSON or HCL.
type Plan map[string]any

// MakeFunc applies what a handler consumed to the node spec.
type MakeFunc func(NodeSpec) NodeSpec

// Handler consumes the keys it understands from a plan and returns the rest
// together with the step that applies them.
type Handler func(Plan) (Plan, MakeFunc, error)

// DefaultHandlers is the pipeline used when none is given.
var DefaultHandlers = []Handler{Kind, EntryPoints, Arrows, DynamicNodes}

// Plan keys understood by DefaultHandlers.
const (
	KeyID          = "id"
	KeyKind        = "kind"
	KeyParent      = "parent"
	KeyEntryPoints = "entry_points"
	KeyArrows      = "arrows"
	KeyNodes       = "nodes"
)

// Compile runs the plan through the handlers and returns the resulting spec.
// Keys left over once every handler ran are an error.
func Compile(plan Plan, handlers ...Handler) (NodeSpec, error) {
	if len(handlers) == 0 {
		handlers = DefaultHandlers
	}

	var spec NodeSpec
	remaining := plan
	for _, h := range handlers {
		rest, apply, err := h(remaining)
		if err != nil {
			return NodeSpec{}, planError(plan, err)
		}
		spec = apply(spec)
		remaining = rest
	}

	if len(remaining) > 0 {
		keys := slices.Sorted(maps.Keys(remaining))
		return NodeSpec{}, planError(plan, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	return spec, nil
}

func planError(plan Plan, err error) error {
	id, _ := plan[KeyID].(string)
	return &domain.InvalidGraphError{Node: domain.NodeID(id), Reason: err.Error()}
}

// without returns a copy of the plan lacking keys.
func (p Plan) without(keys ...string) Plan {
	out := make(Plan, len(p))
	for k, v := range p {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

// Kind consumes "id", "kind" and "parent". A declared parent must equal the
// id's prefix and is checked when the node compiles. A missing kind is inferred:
// a node list makes a composite, entry points or arrows make a graph,
// anything else is a leaf.
func Kind(plan Plan) (Plan, MakeFunc, error) {
	var head struct {
		ID     domain.NodeID   `mapstructure:"id"`
		Kind   domain.NodeKind `mapstructure:"kind"`
		Parent domain.NodeID   `mapstructure:"parent"`
	}
	fields := Plan{}
	for _, k := range []string{KeyID, KeyKind, KeyParent} {
		if v, ok := plan[k]; ok {
			fields[k] = v
		}
	}
	if err := decode(fields, &head); err != nil {
		return nil, nil, err
	}
	if head.ID == "" {
		return nil, nil, fmt.Errorf("missing %q", KeyID)
	}

	kind := head.Kind
	if kind == "" {
		switch {
		case plan[KeyNodes] != nil:
			kind = domain.KindComposite
		case plan[KeyEntryPoints] != nil || plan[KeyArrows] != nil:
			kind = domain.KindGraph
		default:
			kind = domain.KindLeaf
		}
	}

	return plan.without(KeyID, KeyKind, KeyParent), func(next NodeSpec) NodeSpec {
		next.ID = head.ID
		next.Kind = kind
		next.Parent = head.Parent
		return next
	}, nil
}

// EntryPoints consumes "entry_points": a map from entry point name to a
// target, given either as {target, entry_point} or as a bare node id.
func EntryPoints(plan Plan) (Plan, MakeFunc, error) {
	raw, ok := plan[KeyEntryPoints]
	if !ok {
		return plan, identity, nil
	}
	var entries map[string]domain.ArrowTarget
	if err := decode(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", KeyEntryPoints, err)
	}
	return plan.without(KeyEntryPoints), func(next NodeSpec) NodeSpec {
		if next.EntryPoints == nil {
			next.EntryPoints = make(map[string]domain.ArrowTarget, len(entries))
		}
		for name, t := range entries {
			next.EntryPoints[name] = t
		}
		return next
	}, nil
}

// Arrows consumes "arrows": source child id to arrow name to target.
func Arrows(plan Plan) (Plan, MakeFunc, error) {
	raw, ok := plan[KeyArrows]
	if !ok {
		return plan, identity, nil
	}
	var table map[domain.NodeID]map[string]domain.ArrowTarget
	if err := decode(raw, &table); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", KeyArrows, err)
	}

	var arrows []ArrowSpec
	for _, from := range slices.Sorted(maps.Keys(table)) {
		byName := table[from]
		for _, name := range slices.Sorted(maps.Keys(byName)) {
			arrows = append(arrows, ArrowSpec{From: from, Name: name, ArrowTarget: byName[name]})
		}
	}
	return plan.without(KeyArrows), func(next NodeSpec) NodeSpec {
		next.Arrows = append(next.Arrows, arrows...)
		return next
	}, nil
}

// DynamicNodes consumes "nodes", the region list of a composite. The value
// may be a list of ids or a NodesFunc evaluated at build time. When the key
// is absent the spec gets EmptyNodes.
func DynamicNodes(plan Plan) (Plan, MakeFunc, error) {
	nodes := NodesFunc(EmptyNodes)
	if raw, ok := plan[KeyNodes]; ok {
		switch v := raw.(type) {
		case NodesFunc:
			nodes = v
		case func() []domain.NodeID:
			nodes = v
		default:
			var ids []domain.NodeID
			if err := decode(raw, &ids); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", KeyNodes, err)
			}
			nodes = func() []domain.NodeID { return ids }
		}
	}
	return plan.without(KeyNodes), func(next NodeSpec) NodeSpec {
		next.Nodes = nodes
		return next
	}, nil
}

func identity(next NodeSpec) NodeSpec { return next }

// decode is a strict mapstructure decode: unknown fields are errors and bare
// strings decode into an ArrowTarget.
func decode(input, output any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  targetFromString,
		ErrorUnused: true,
		Result:      output,
	})
	if err != nil {
		return err
	}
	return d.Decode(input)
}

var arrowTargetType = reflect.TypeOf(domain.ArrowTarget{})

func targetFromString(from, to reflect.Type, data any) (any, error) {
	if to != arrowTargetType || from.Kind() != reflect.String {
		return data, nil
	}
	return domain.ArrowTarget{Target: domain.NodeID(reflect.ValueOf(data).String())}, nil
}
