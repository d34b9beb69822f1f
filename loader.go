package hfsm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/hfsm/pkg/adapters/file"
	hclAdapter "github.com/aretw0/hfsm/pkg/adapters/hcl"
	loamAdapter "github.com/aretw0/hfsm/pkg/adapters/loam"
	"github.com/aretw0/hfsm/pkg/ports"
)

// OpenLoader picks a GraphLoader for source:
// a directory is read as a Loam repository, .hcl files by the HCL loader and
// .yaml, .yml and .json files by the document loader.
func OpenLoader(source string) (ports.GraphLoader, error) {
	absPath, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("graph source: %w", err)
	}

	if info.IsDir() {
		// The engine never writes the graph, so the repository is opened read-only.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		return loamAdapter.New(loam.NewTypedRepository[loamAdapter.NodeMetadata](repo), loamAdapter.WithName(absPath)), nil
	}

	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".hcl":
		return hclAdapter.New(absPath), nil
	case ".yaml", ".yml", ".json":
		return file.New(absPath), nil
	default:
		return nil, fmt.Errorf("unsupported graph source %q: expected a directory or a .yaml, .yml, .json or .hcl file", source)
	}
}
