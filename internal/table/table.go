// Package table turns catalog records into VRAM table rows (estimate, run status, GPU count)
// and sorts and filters them.
package table

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/vram"
)

// Row is one line of the VRAM table.
type Row struct {
	Key              string         `json:"key"`
	FullModel        string         `json:"full_model"`
	Family           string         `json:"family"`
	Model            string         `json:"model"`
	Arch             string         `json:"arch"`
	Parameters       string         `json:"parameters"`
	FileSize         string         `json:"file_size"`
	Quantization     string         `json:"quantization"`
	QuantizationInfo string         `json:"quantization_info"`
	URL              string         `json:"url"`
	IsDefault        bool           `json:"is_default"`
	Status           vram.RunStatus `json:"run_status"`
	StatusText       string         `json:"status_text"`
	RequiredVRAM     float64        `json:"required_vram_gb"`
	RequiredGPUs     int            `json:"required_gpus"`
}

// Build estimates and classifies every detail against a GPU with gpuMemory GB using the default estimator.
func Build(details []catalog.ModelDetail, gpuMemory float64, lang i18n.Language) []*Row {
	return BuildWith(vram.DefaultEstimator(), details, gpuMemory, lang)
}

// BuildWith is Build with an explicit estimator.
func BuildWith(est vram.Estimator, details []catalog.ModelDetail, gpuMemory float64, lang i18n.Language) []*Row {
	out := make([]*Row, 0, len(details))
	for _, d := range details {
		req := est.Estimate(d.FileSize, d.Quantization)
		c := vram.ClassifyRun(req, gpuMemory, lang)
		out = append(out, &Row{
			Key:              d.ConfigName + "-" + d.Model + "-" + d.Quantization,
			FullModel:        d.ConfigName + ":" + d.Model,
			Family:           d.ConfigName,
			Model:            d.Model,
			Arch:             d.Arch,
			Parameters:       d.Parameters,
			FileSize:         d.FileSize,
			Quantization:     d.Quantization,
			QuantizationInfo: d.QuantizationInfo,
			URL:              d.URL,
			IsDefault:        d.IsDefault,
			Status:           c.Status,
			StatusText:       c.Label,
			RequiredVRAM:     req,
			RequiredGPUs:     vram.RequiredGPUs(req, gpuMemory),
		})
	}
	return out
}

// Relabel refreshes StatusText for lang without recomputing anything else.
func Relabel(rows []*Row, lang i18n.Language) {
	for _, r := range rows {
		r.StatusText = r.Status.Label(lang)
	}
}

// StatusEmoji returns the status marker for terminal output.
func (r *Row) StatusEmoji() string {
	switch r.Status {
	case vram.CanRun:
		return "🟢"
	case vram.BarelyRun:
		return "🟡"
	default:
		return "🔴"
	}
}

// FilterStatus keeps rows whose status rank is at most max (CanRun keeps only runnable rows).
func FilterStatus(rows []*Row, max vram.RunStatus) []*Row {
	var out []*Row
	for _, r := range rows {
		if r.Status.Rank() <= max.Rank() {
			out = append(out, r)
		}
	}
	return out
}

// Counts tallies rows per status.
func Counts(rows []*Row) map[vram.RunStatus]int {
	out := make(map[vram.RunStatus]int, len(vram.AllStatuses))
	for _, r := range rows {
		out[r.Status]++
	}
	return out
}

// Tag is the last path segment of the row URL (e.g. "qwen2.5:7b"), falling back to the model name.
func (r *Row) Tag() string {
	if r.URL != "" {
		if u, err := url.Parse(r.URL); err == nil && u.Path != "" {
			if base := path.Base(strings.TrimRight(u.Path, "/")); base != "." && base != "/" {
				return base
			}
		}
	}
	return r.Model
}

// PullCommand is the ollama command that downloads the row's model.
func PullCommand(r *Row) string {
	return "ollama pull " + r.Tag()
}

// Tooltip is the hover text of the model cell: the required VRAM, plus the GPU count when more than one is needed.
func Tooltip(r *Row, lang i18n.Language) string {
	s := i18n.Tf(lang, i18n.KeyRequiredVRAM, r.RequiredVRAM)
	if r.RequiredGPUs > 1 {
		s += "\n" + i18n.Tf(lang, i18n.KeyNeedsGPUs, r.RequiredGPUs)
	}
	return s
}

// FormatVRAM renders an estimate the way the table shows it ("3.3 GB").
func FormatVRAM(gb float64) string {
	return fmt.Sprintf("%.1f GB", gb)
}
