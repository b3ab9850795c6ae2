// Package settings persists user preferences: the assumed GPU memory, the UI theme and the UI language.
package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shayne-snap/llmvram/internal/i18n"
)

const (
	DefaultGPUMemory = 24
	MinGPUMemory     = 1
	MaxGPUMemory     = 128

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Settings holds the persisted preferences.
type Settings struct {
	GPUMemory float64 `json:"gpu_memory_setting" yaml:"gpu_memory_setting" toml:"gpu_memory_setting"`
	Theme     string  `json:"theme" yaml:"theme" toml:"theme"`
	Language  string  `json:"language" yaml:"language" toml:"language"`
}

// Default returns the settings used when nothing is stored.
func Default() Settings {
	return Settings{GPUMemory: DefaultGPUMemory, Theme: ThemeLight, Language: i18n.Chinese.String()}
}

// ClampGPUMemory floors v to whole GB and clamps it to [1, 128]. NaN and infinities give the default.
func ClampGPUMemory(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultGPUMemory
	}
	v = math.Floor(v)
	if v < MinGPUMemory {
		return MinGPUMemory
	}
	if v > MaxGPUMemory {
		return MaxGPUMemory
	}
	return v
}

// Normalize clamps the GPU memory and replaces unknown theme or language values.
// A zero GPU memory means unset and becomes the default.
func (s *Settings) Normalize() {
	if s.GPUMemory == 0 {
		s.GPUMemory = DefaultGPUMemory
	}
	s.GPUMemory = ClampGPUMemory(s.GPUMemory)
	switch strings.ToLower(s.Theme) {
	case ThemeDark:
		s.Theme = ThemeDark
	default:
		s.Theme = ThemeLight
	}
	s.Language = i18n.Parse(s.Language).String()
}

// Lang returns the stored language.
func (s Settings) Lang() i18n.Language {
	return i18n.Parse(s.Language)
}

// DefaultPath returns LLMVRAM_CONFIG when set, else <user config dir>/llmvram/settings.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("LLMVRAM_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "llmvram", "settings.yaml"), nil
}

// Load reads settings from path, decoding by extension (.yaml/.yml, .json, .toml).
// A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, fmt.Errorf("empty settings path")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, err := codecFor(ext); err != nil {
		return s, err
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &s)
	case ".json":
		err = json.Unmarshal(b, &s)
	case ".toml":
		err = toml.Unmarshal(b, &s)
	}
	if err != nil {
		return Default(), fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	s.Normalize()
	return s, nil
}

// Save writes s to path in the format given by its extension, creating the directory.
func Save(path string, s Settings) error {
	ext := strings.ToLower(filepath.Ext(path))
	marshal, err := codecFor(ext)
	if err != nil {
		return err
	}
	s.Normalize()
	b, err := marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func codecFor(ext string) (func(v interface{}) ([]byte, error), error) {
	switch ext {
	case ".yaml", ".yml":
		return yaml.Marshal, nil
	case ".json":
		return func(v interface{}) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }, nil
	case ".toml":
		return toml.Marshal, nil
	default:
		return nil, fmt.Errorf("unsupported settings extension: %q", ext)
	}
}

// ApplyEnv overrides the GPU memory from LLMVRAM_GPU_MEMORY when it parses as a number.
func (s *Settings) ApplyEnv() {
	v := os.Getenv("LLMVRAM_GPU_MEMORY")
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return
	}
	s.GPUMemory = ClampGPUMemory(f)
}

// Keys lists the names accepted by Set.
var Keys = []string{"gpu_memory_setting", "theme", "language"}

// Set assigns one setting from its string form.
func (s *Settings) Set(key, value string) error {
	switch strings.ReplaceAll(strings.ToLower(key), "-", "_") {
	case "gpu_memory_setting", "gpu_memory":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("gpu_memory_setting: %q is not a number", value)
		}
		s.GPUMemory = ClampGPUMemory(f)
	case "theme":
		v := strings.ToLower(value)
		if v != ThemeLight && v != ThemeDark {
			return fmt.Errorf("theme must be %s or %s", ThemeLight, ThemeDark)
		}
		s.Theme = v
	case "language", "lang":
		s.Language = i18n.Parse(value).String()
	default:
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
