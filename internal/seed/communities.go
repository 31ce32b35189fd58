package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed communities.yaml
var builtInPreset []byte

// CommunityPreset is one community created at startup.
type CommunityPreset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// CommunityCreator is the part of the community service seeding needs.
type CommunityCreator interface {
	Create(ctx context.Context, in service.CreateCommunityInput) (*models.Community, error)
}

// ParsePreset decodes a YAML document with a top-level communities list.
func ParsePreset(data []byte) ([]CommunityPreset, error) {
	var doc struct {
		Communities []CommunityPreset `yaml:"communities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse community preset: %w", err)
	}
	return doc.Communities, nil
}

// BuiltInCommunities returns the embedded preset.
func BuiltInCommunities() []CommunityPreset {
	presets, err := ParsePreset(builtInPreset)
	if err != nil {
		panic(err)
	}
	return presets
}

// Communities creates each preset that does not exist yet and returns how
// many were new. Running it again is a no-op.
func Communities(ctx context.Context, svc CommunityCreator, presets []CommunityPreset) (int, error) {
	created := 0
	for _, p := range presets {
		_, err := svc.Create(ctx, service.CreateCommunityInput{Name: p.Name, Description: p.Description})
		switch {
		case err == nil:
			created++
			middleware.Logger.Info("Created community", slog.String("name", p.Name))
		case errors.Is(err, models.ErrConflict):
		default:
			return created, fmt.Errorf("seed community %q: %w", p.Name, err)
		}
	}
	return created, nil
}
