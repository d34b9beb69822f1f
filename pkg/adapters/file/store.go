package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/hfsm/pkg/domain"
)

// DefaultStoreDir is where the CLI keeps machines when no Redis is configured.
var DefaultStoreDir = filepath.Join(".hfsm", "machines")

// Store implements ports.StateStore using the local filesystem.
// It stores one JSON file per machine in a configured directory.
type Store struct {
	BasePath string
}

// NewStore creates a Store rooted at basePath (DefaultStoreDir when empty).
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultStoreDir
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(machineID string) (string, error) {
	if machineID == "" {
		return "", errors.New("machineID cannot be empty")
	}
	if strings.ContainsAny(machineID, `/\`) || machineID == "." || machineID == ".." {
		return "", fmt.Errorf("invalid machineID %q", machineID)
	}
	return filepath.Join(s.BasePath, machineID+".json"), nil
}

// Save persists the machine state to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	destPath, err := s.path(machineID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure machine directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+machineID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing machine file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load retrieves the machine state from its JSON file.
func (s *Store) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	filePath, err := s.path(machineID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrMachineNotFound
		}
		return nil, fmt.Errorf("failed to read machine file: %w", err)
	}

	var state domain.FSMState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal machine state: %w", err)
	}
	if state == nil {
		state = domain.FSMState{}
	}
	return state, nil
}

// Delete removes the machine file.
func (s *Store) Delete(ctx context.Context, machineID string) error {
	filePath, err := s.path(machineID)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete machine file: %w", err)
	}
	return nil
}

// List returns the stored machine ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	machines := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		machines = append(machines, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(machines)
	return machines, nil
}
