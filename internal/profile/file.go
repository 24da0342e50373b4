package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rebeliceyang/lazysearch/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout used to move profiles between databases
type File struct {
	Actions  []models.Action  `yaml:"actions,omitempty"`
	Profiles []models.Profile `yaml:"profiles"`
}

// Export writes every action and profile of s to a YAML file at path
func Export(ctx context.Context, s *Store, path string) (int, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		return 0, fmt.Errorf("no profiles to export")
	}
	actions, err := s.ListActions(ctx)
	if err != nil {
		return 0, err
	}

	data, err := yaml.Marshal(File{Actions: actions, Profiles: profiles})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write profiles file: %w", err)
	}
	return len(profiles), nil
}

// ReadFile parses a YAML profiles file
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("failed to read profiles file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	return f, nil
}

// Import saves the actions and profiles of a YAML file into s. check, when
// not nil, is called for every profile before it is saved; the first
// failure stops the import. Profiles saved before the failure stay.
func Import(ctx context.Context, s *Store, path string, check func(context.Context, models.Profile) error) (int, error) {
	f, err := ReadFile(path)
	if err != nil {
		return 0, err
	}

	for i := range f.Actions {
		if err := s.SaveAction(ctx, &f.Actions[i]); err != nil {
			return 0, err
		}
	}

	for i := range f.Profiles {
		p := &f.Profiles[i]
		if check != nil {
			if err := check(ctx, *p); err != nil {
				return i, err
			}
		}
		if err := s.Save(ctx, p); err != nil {
			return i, err
		}
	}
	return len(f.Profiles), nil
}
