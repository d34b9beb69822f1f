package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/hfsm/pkg/domain"
)

const (
	colorActive  = "#22c55e"
	colorChanged = "#facc15"
	colorMuted   = "#6b7280"
	colorRemoved = "#ef4444"
)

// Renderer draws graphs and states for a terminal.
type Renderer struct {
	profile termenv.Profile
}

// NewRenderer picks colors when w is a terminal and plain text otherwise.
func NewRenderer(w io.Writer) *Renderer {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &Renderer{profile: termenv.EnvColorProfile()}
	}
	return &Renderer{profile: termenv.Ascii}
}

// NewPlainRenderer never emits escape sequences.
func NewPlainRenderer() *Renderer {
	return &Renderer{profile: termenv.Ascii}
}

// State draws the containment tree of g, marking the active configuration.
// Nodes whose parent changed in diff are highlighted. diff may be nil.
func (r *Renderer) State(g *domain.Graph, state domain.FSMState, diff *domain.StateDiff) string {
	changed := make(map[domain.NodeID]bool)
	if diff != nil {
		for id := range diff.Changed {
			changed[id] = true
		}
		for id := range diff.Added {
			changed[id] = true
		}
	}

	var sb strings.Builder
	var walk func(id domain.NodeID, depth int)
	walk = func(id domain.NodeID, depth int) {
		n, ok := g.Lookup(id)
		if !ok || depth > g.Len() {
			return
		}

		label := id.Name()
		if depth == 0 {
			label = string(id)
		}
		if n.Kind() != domain.KindLeaf {
			label += " [" + string(n.Kind()) + "]"
		}

		marker := "○"
		style := r.profile.String(label).Foreground(r.profile.Color(colorMuted))
		if state.IsActive(g, id) {
			marker = "●"
			color := colorActive
			if parent, ok := id.Parent(); ok && changed[parent] {
				color = colorChanged
			}
			style = r.profile.String(label).Foreground(r.profile.Color(color)).Bold()
		}
		fmt.Fprintf(&sb, "%s%s %s\n", strings.Repeat("  ", depth), marker, style)

		var kids []domain.NodeID
		if c, ok := n.(*domain.Composite); ok {
			kids = c.Children()
		} else {
			kids = g.Children(id)
		}
		for _, child := range kids {
			walk(child, depth+1)
		}
	}
	walk(g.Root(), 0)
	return sb.String()
}

// Diff lists the changes of a transition, one per line.
func (r *Renderer) Diff(diff domain.StateDiff) string {
	if diff.IsEmpty() {
		return r.profile.String("(no changes)").Foreground(r.profile.Color(colorMuted)).String() + "\n"
	}

	var sb strings.Builder
	for _, id := range sortedKeys(diff.Changed) {
		c := diff.Changed[id]
		line := fmt.Sprintf("~ %s: %s -> %s", id, c.From, c.To)
		fmt.Fprintln(&sb, r.profile.String(line).Foreground(r.profile.Color(colorChanged)))
	}
	for _, id := range sortedKeys(diff.Added) {
		line := fmt.Sprintf("+ %s: %s", id, diff.Added[id])
		fmt.Fprintln(&sb, r.profile.String(line).Foreground(r.profile.Color(colorActive)))
	}
	for _, id := range diff.Removed {
		line := fmt.Sprintf("- %s", id)
		fmt.Fprintln(&sb, r.profile.String(line).Foreground(r.profile.Color(colorRemoved)))
	}
	return sb.String()
}

func sortedKeys[V any](m map[domain.NodeID]V) []domain.NodeID {
	s := make(domain.FSMState, len(m))
	for k := range m {
		s[k] = ""
	}
	return s.Keys()
}
