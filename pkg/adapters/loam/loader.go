package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
)

// Loader adapts the Loam library to the GraphLoader interface.
// Every document in the repository describes one node.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
	root domain.NodeID
	name string
}

// Option configures a Loader.
type Option func(*Loader)

// WithRoot fixes the root instead of looking for a document marked root.
func WithRoot(id domain.NodeID) Option {
	return func(l *Loader) {
		l.root = id
	}
}

// WithName sets what Describe reports (usually the repository path).
func WithName(name string) Option {
	return func(l *Loader) {
		l.name = name
	}
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata], opts ...Option) *Loader {
	l := &Loader{
		Repo: repo,
		name: "loam",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Describe implements ports.Describer.
func (l *Loader) Describe() string {
	return l.name
}

// Load reads every document, turns its metadata into a plan and builds the graph.
func (l *Loader) Load(ctx context.Context) (*domain.Graph, error) {
	doc, err := l.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// Document returns the plans read from the repository without building them.
func (l *Loader) Document(ctx context.Context) (dsl.Document, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return dsl.Document{}, fmt.Errorf("loam list failed: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	out := dsl.Document{Root: l.root}
	seen := make(map[domain.NodeID]string)
	var roots []domain.NodeID

	for _, doc := range docs {
		id := nodeID(doc.Data.ID, doc.ID)

		// Collision Detection
		if existingPath, ok := seen[id]; ok {
			return dsl.Document{}, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		if doc.Data.Root {
			roots = append(roots, id)
		}
		out.Nodes = append(out.Nodes, buildPlan(id, doc.Data))
	}

	if out.Root == "" {
		switch len(roots) {
		case 0:
			return dsl.Document{}, fmt.Errorf("%w: no document is marked root", domain.ErrInvalidGraph)
		case 1:
			out.Root = roots[0]
		default:
			return dsl.Document{}, fmt.Errorf("%w: several documents are marked root: %v", domain.ErrInvalidGraph, roots)
		}
	}
	return out, nil
}

// ListNodes lists the ids of all node documents in the repository.
func (l *Loader) ListNodes(ctx context.Context) ([]domain.NodeID, error) {
	doc, err := l.Document(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.NodeID, 0, len(doc.Nodes))
	for _, p := range doc.Nodes {
		ids = append(ids, domain.NodeID(p[dsl.KeyID].(string)))
	}
	return ids, nil
}

func buildPlan(id domain.NodeID, meta NodeMetadata) dsl.Plan {
	plan := dsl.Plan{dsl.KeyID: id.String()}
	if meta.Kind != "" {
		plan[dsl.KeyKind] = meta.Kind
	}
	if meta.Parent != "" {
		plan[dsl.KeyParent] = meta.Parent
	}
	if len(meta.EntryPoints) > 0 {
		plan[dsl.KeyEntryPoints] = meta.EntryPoints
	}
	if len(meta.Arrows) > 0 {
		plan[dsl.KeyArrows] = meta.Arrows
	}
	if meta.Nodes != nil {
		plan[dsl.KeyNodes] = meta.Nodes
	}
	return plan
}

// nodeID prefers the id in the metadata; otherwise the document path is used,
// so "app/settings.md" becomes "app:settings".
func nodeID(metaID, docID string) domain.NodeID {
	raw := metaID
	if raw == "" {
		raw = docID
	}
	raw = filepath.ToSlash(trimExtension(raw))
	return domain.NodeID(strings.ReplaceAll(raw, "/", domain.Separator))
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" && !strings.Contains(ext, domain.Separator) {
		return strings.TrimSuffix(id, ext)
	}
	return id
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
