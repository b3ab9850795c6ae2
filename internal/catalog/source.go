package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/rs/zerolog/log"
)

// ConfigFile is the catalog root file name.
const ConfigFile = "catalog.json"

// Source supplies catalog.json and the per-family detail records.
type Source interface {
	Config(ctx context.Context) (*Config, error)
	Details(ctx context.Context, cfg *Config, fam Family) ([]ModelDetail, error)
}

// DetailPath is the path of fam's detail file relative to the catalog root.
func DetailPath(cfg *Config, fam Family) string {
	return path.Join(cfg.OutputDirs.Dirs, fam.OutputFile)
}

// FSSource reads the catalog from a file system (embedded data or a cache directory).
type FSSource struct {
	FS fs.FS
}

// Config decodes catalog.json.
func (s FSSource) Config(ctx context.Context) (*Config, error) {
	b, err := fs.ReadFile(s.FS, ConfigFile)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(b)
}

// Details decodes the detail file of fam.
func (s FSSource) Details(ctx context.Context, cfg *Config, fam Family) ([]ModelDetail, error) {
	b, err := fs.ReadFile(s.FS, DetailPath(cfg, fam))
	if err != nil {
		return nil, err
	}
	return DecodeDetails(b)
}

// DecodeConfig parses catalog.json bytes.
func DecodeConfig(b []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("invalid catalog config: %w", err)
	}
	return &cfg, nil
}

// DecodeDetails parses a detail file.
func DecodeDetails(b []byte) ([]ModelDetail, error) {
	var details []ModelDetail
	if err := json.Unmarshal(b, &details); err != nil {
		return nil, fmt.Errorf("invalid model details: %w", err)
	}
	return details, nil
}

// LayeredSource overlays one source (the user cache) on another (the embedded catalog).
// Families are merged by name with the overlay winning; details come from the overlay when it has them.
type LayeredSource struct {
	Base    Source
	Overlay Source
}

// Config merges the overlay config into the base config.
func (s LayeredSource) Config(ctx context.Context) (*Config, error) {
	base, err := s.Base.Config(ctx)
	if err != nil {
		return nil, err
	}
	if s.Overlay == nil {
		return base, nil
	}
	overlay, err := s.Overlay.Config(ctx)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Msg("could not read cached catalog, using embedded list")
		}
		return base, nil
	}
	return mergeConfigs(base, overlay), nil
}

// Details prefers the overlay's file for fam.
func (s LayeredSource) Details(ctx context.Context, cfg *Config, fam Family) ([]ModelDetail, error) {
	if s.Overlay != nil {
		d, err := s.Overlay.Details(ctx, cfg, fam)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("family", fam.Name).Msg("could not read cached details, using embedded")
		}
	}
	return s.Base.Details(ctx, cfg, fam)
}

// mergeConfigs merges overlay into base by family name (overlay overwrites or appends). Returns a new Config.
func mergeConfigs(base, overlay *Config) *Config {
	byName := make(map[string]Family, len(base.Models)+len(overlay.Models))
	for _, f := range base.Models {
		byName[f.Name] = f
	}
	for _, f := range overlay.Models {
		byName[f.Name] = f
	}
	out := &Config{OutputDirs: base.OutputDirs}
	if overlay.OutputDirs.Dirs != "" {
		out.OutputDirs = overlay.OutputDirs
	}
	seen := make(map[string]bool, len(byName))
	for _, f := range base.Models {
		out.Models = append(out.Models, byName[f.Name])
		seen[f.Name] = true
	}
	for _, f := range overlay.Models {
		if !seen[f.Name] {
			out.Models = append(out.Models, f)
			seen[f.Name] = true
		}
	}
	return out
}
