package ports

import (
	"context"

	"github.com/aretw0/hfsm/pkg/domain"
)

// GraphLoader defines how the engine obtains the graph it resolves against.
// This allows the source (YAML, HCL, Loam, Memory) to be decoupled.
type GraphLoader interface {
	// Load returns a fully built graph. The engine never mutates it.
	Load(ctx context.Context) (*domain.Graph, error)
}

// Describer is implemented by loaders that can name their source (file path, repo dir).
type Describer interface {
	Describe() string
}

// Watchable is implemented by loaders whose source can change while the
// process runs. The channel carries the id of each changed document.
type Watchable interface {
	Watch(ctx context.Context) (<-chan string, error)
}
