package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
)

// Loader reads a graph document ({root, nodes: [plan...]}) from a YAML or
// JSON file. The file is read again on every Load.
type Loader struct {
	path     string
	handlers []dsl.Handler
}

// Option configures a Loader.
type Option func(*Loader)

// WithHandlers replaces the plan handler pipeline.
func WithHandlers(handlers ...dsl.Handler) Option {
	return func(l *Loader) {
		l.handlers = handlers
	}
}

// New creates a loader for the document at path.
func New(path string, opts ...Option) *Loader {
	l := &Loader{path: path}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements ports.GraphLoader.
func (l *Loader) Load(ctx context.Context) (*domain.Graph, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	g, err := doc.Build(l.handlers...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	return g, nil
}

// Describe implements ports.Describer.
func (l *Loader) Describe() string {
	return l.path
}

// Decode parses a YAML or JSON graph document. Unknown top-level keys are rejected.
func Decode(data []byte) (dsl.Document, error) {
	var doc dsl.Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return dsl.Document{}, fmt.Errorf("%w: empty graph document", domain.ErrInvalidGraph)
		}
		return dsl.Document{}, fmt.Errorf("failed to decode graph document: %w", err)
	}
	return doc, nil
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc dsl.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
