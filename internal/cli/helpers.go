package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/settings"
	"github.com/shayne-snap/llmvram/internal/table"
	"github.com/shayne-snap/llmvram/internal/vram"
)

// env is the settings state resolved before a command runs.
type env struct {
	settings     settings.Settings
	settingsPath string
}

// loadSettings reads the settings file (missing file gives defaults) and applies LLMVRAM_GPU_MEMORY.
func (o *options) loadSettings() error {
	path := o.configPath
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			log.Warn().Err(err).Msg("no settings location, using defaults")
			o.env = env{settings: settings.Default()}
			return nil
		}
		path = p
	}
	s, err := settings.Load(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		// First run: follow the locale until a language is saved.
		s.Language = i18n.FromEnv().String()
	}
	s.ApplyEnv()
	o.env = env{settings: s, settingsPath: path}
	return nil
}

// language resolves --lang, then LLMVRAM_LANG, then the settings file.
func (o *options) language() i18n.Language {
	if o.lang != "" {
		return i18n.Parse(o.lang)
	}
	if v := os.Getenv("LLMVRAM_LANG"); v != "" {
		return i18n.Parse(v)
	}
	return o.env.settings.Lang()
}

// gpuMemoryGB resolves --gpu-memory: a number of GB, "auto" for the largest detected card, or the settings value.
func (o *options) gpuMemoryGB() (float64, error) {
	v := strings.ToLower(strings.TrimSpace(o.gpuMemory))
	switch v {
	case "":
		return o.env.settings.GPUMemory, nil
	case "auto":
		specs, err := o.detect()
		if err != nil {
			return 0, fmt.Errorf("--gpu-memory auto: %w", err)
		}
		if gb, ok := specs.PerGPUMemoryGB(); ok {
			return settings.ClampGPUMemory(gb), nil
		}
		log.Warn().Float64("gpu_memory_gb", o.env.settings.GPUMemory).Msg("no GPU memory detected, using configured value")
		return o.env.settings.GPUMemory, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("invalid --gpu-memory %q: want a number of GB or \"auto\"", o.gpuMemory)
	}
	return settings.ClampGPUMemory(f), nil
}

// resolveQuant picks the --quant option (case-insensitive) or the default selection.
func (o *options) resolveQuant(options []catalog.Option) (string, error) {
	if o.quant == "" {
		return catalog.DefaultQuant(options), nil
	}
	values := make([]string, 0, len(options))
	for _, opt := range options {
		if strings.EqualFold(opt.Value, o.quant) {
			return opt.Value, nil
		}
		values = append(values, opt.Value)
	}
	return "", fmt.Errorf("unknown quantization %q (available: %s)", o.quant, strings.Join(values, ", "))
}

type tableResult struct {
	rows      []*table.Row
	gpuMemory float64
	quant     string
	lang      i18n.Language
}

// buildTable applies the family, quantization, status, sort and limit flags to the catalog.
func (o *options) buildTable(db *catalog.DB) (*tableResult, error) {
	gpu, err := o.gpuMemoryGB()
	if err != nil {
		return nil, err
	}
	col := table.ColName
	if o.sort != "" {
		if col, err = table.ParseColumn(o.sort); err != nil {
			return nil, err
		}
	}
	families, err := db.ResolveFamilies(o.families)
	if err != nil {
		return nil, err
	}
	lang := o.language()
	details := db.Details(families...)
	quant, err := o.resolveQuant(catalog.QuantOptions(details, lang))
	if err != nil {
		return nil, err
	}
	rows := table.Build(catalog.Filter(details, families, quant), gpu, lang)
	if o.runnable {
		rows = table.FilterStatus(rows, vram.BarelyRun)
	}
	table.Sort(rows, col, o.desc)
	if o.limit > 0 && len(rows) > int(o.limit) {
		rows = rows[:o.limit]
	}
	return &tableResult{rows: rows, gpuMemory: gpu, quant: quant, lang: lang}, nil
}

func encodeJSON(cmd *cobra.Command, v interface{}) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
