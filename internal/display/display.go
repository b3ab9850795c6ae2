// Package display renders CLI output (tables and indented JSON) for the VRAM table, estimates,
// the catalog, detected hardware and settings.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/olekukonko/tablewriter"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/hardware"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/settings"
	"github.com/shayne-snap/llmvram/internal/table"
	"github.com/shayne-snap/llmvram/internal/vram"
)

var (
	systemTpl   *template.Template
	estimateTpl *template.Template
	infoTpl     *template.Template
)

func init() {
	systemTpl = template.Must(template.New("system").Parse(
		`
=== System Specifications ===
CPU: {{.CPUName}} ({{.TotalCPUCores}} cores)
Total RAM: {{.TotalRAMGB}}
Available RAM: {{.AvailableRAMGB}}
Backend: {{.Backend}}
{{.GpuBlock}}
{{if .Suggested}}
Suggested --gpu-memory: {{.Suggested}}
{{end}}
`))
	estimateTpl = template.Must(template.New("estimate").Parse(
		`
=== VRAM Estimate ===
File size: {{.FileSize}}{{if not .Parsed}} (unparsed, floor applies){{end}}
Quantization: {{.Quantization}} (x{{.Multiplier}})
Required VRAM: {{.Required}}
GPU memory: {{.GPUMemory}}
Run status: {{.Status}}
Required GPUs: {{.RequiredGPUs}}

`))
	infoTpl = template.Must(template.New("info").Parse(
		`
=== {{.Name}} ===

{{.Description}}
Variants: {{.Variants}}
Quantizations: {{.Quants}}

`))
}

func encodeJSON(out io.Writer, v interface{}) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }

func formatGB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " GB"
}

// System prints detected hardware (table or JSON).
func System(out io.Writer, specs *hardware.SystemSpecs, useJSON bool) {
	suggested, ok := specs.PerGPUMemoryGB()
	if useJSON {
		encodeJSON(out, SystemJSON(specs))
		return
	}
	data := struct {
		CPUName, Backend, GpuBlock, Suggested string
		TotalCPUCores                         int
		TotalRAMGB, AvailableRAMGB            string
	}{
		CPUName:        specs.CPUName,
		TotalCPUCores:  specs.TotalCPUCores,
		TotalRAMGB:     fmt.Sprintf("%.2f GB", specs.TotalRAMGB),
		AvailableRAMGB: fmt.Sprintf("%.2f GB", specs.AvailableRAMGB),
		Backend:        specs.Backend.String(),
		GpuBlock:       gpuBlock(specs),
	}
	if ok {
		data.Suggested = formatGB(settings.ClampGPUMemory(suggested))
	}
	_ = systemTpl.Execute(out, data)
}

func gpuBlock(specs *hardware.SystemSpecs) string {
	if len(specs.Gpus) == 0 {
		return "GPU: Not detected"
	}
	var lines []string
	for i, g := range specs.Gpus {
		prefix := "GPU: "
		if len(specs.Gpus) > 1 {
			prefix = fmt.Sprintf("GPU %d: ", i+1)
		}
		detail := g.Backend.String()
		if g.UnifiedMemory {
			detail = "unified memory, " + detail
		}
		lines = append(lines, fmt.Sprintf("%s%s [%s, via %s]", prefix, g.String(), detail, g.Source))
	}
	return strings.Join(lines, "\n")
}

// SystemJSON is the JSON document for detected hardware, with the suggested --gpu-memory when a card was found.
func SystemJSON(specs *hardware.SystemSpecs) map[string]interface{} {
	m := map[string]interface{}{"system": systemSpecsJSON(specs)}
	if v, ok := specs.PerGPUMemoryGB(); ok {
		m["suggested_gpu_memory_gb"] = settings.ClampGPUMemory(v)
	}
	return m
}

func systemSpecsJSON(specs *hardware.SystemSpecs) map[string]interface{} {
	gpus := make([]map[string]interface{}, 0, len(specs.Gpus))
	for _, g := range specs.Gpus {
		m := map[string]interface{}{
			"name":           g.Name,
			"backend":        g.Backend.String(),
			"count":          g.Count,
			"unified_memory": g.UnifiedMemory,
			"source":         g.Source,
		}
		if g.VRAMGB != nil {
			m["vram_gb"] = round2(*g.VRAMGB)
		}
		gpus = append(gpus, m)
	}
	return map[string]interface{}{
		"total_ram_gb":     round2(specs.TotalRAMGB),
		"available_ram_gb": round2(specs.AvailableRAMGB),
		"cpu_cores":        specs.TotalCPUCores,
		"cpu_name":         specs.CPUName,
		"has_gpu":          specs.HasGPU,
		"gpu_count":        specs.GPUCount(),
		"backend":          specs.Backend.String(),
		"wsl":              specs.WSL,
		"gpus":             gpus,
	}
}

func tableHeader(lang i18n.Language) []any {
	return []any{
		i18n.T(lang, i18n.KeyModelName),
		i18n.T(lang, i18n.KeyArch),
		i18n.T(lang, i18n.KeyParameters),
		i18n.T(lang, i18n.KeyFileSize),
		i18n.T(lang, i18n.KeyQuantization),
		i18n.T(lang, i18n.KeyVRAMEstimate),
		i18n.T(lang, i18n.KeyRequiredGPUs),
		i18n.T(lang, i18n.KeyRunStatus),
	}
}

// Table prints the VRAM table (table or JSON).
func Table(out io.Writer, rows []*table.Row, gpuMemory float64, quant string, lang i18n.Language, useJSON bool) {
	if useJSON {
		encodeJSON(out, TableJSON(rows, gpuMemory, quant, lang))
		return
	}
	if len(rows) == 0 {
		fmt.Fprintf(out, "\n%s\n", i18n.T(lang, i18n.KeyNoRows))
		return
	}
	fmt.Fprintf(out, "\n=== VRAM Table (%s: %s, %s) ===\n", i18n.T(lang, i18n.KeyGPUMemory), strconv.FormatFloat(gpuMemory, 'f', -1, 64), quantLabel(quant, lang))
	counts := table.Counts(rows)
	fmt.Fprintf(out, "%d model(s): %d %s, %d %s, %d %s\n\n", len(rows),
		counts[vram.CanRun], vram.CanRun.Label(lang),
		counts[vram.BarelyRun], vram.BarelyRun.Label(lang),
		counts[vram.CannotRun], vram.CannotRun.Label(lang))
	tbl := tablewriter.NewWriter(out)
	tbl.Header(tableHeader(lang)...)
	for _, r := range rows {
		tbl.Append([]string{
			r.FullModel,
			r.Arch,
			r.Parameters,
			r.FileSize,
			r.Quantization,
			table.FormatVRAM(r.RequiredVRAM),
			strconv.Itoa(r.RequiredGPUs),
			r.StatusEmoji() + " " + r.StatusText,
		})
	}
	_ = tbl.Render()
}

// TableJSON is the JSON document for a VRAM table.
func TableJSON(rows []*table.Row, gpuMemory float64, quant string, lang i18n.Language) map[string]interface{} {
	return map[string]interface{}{
		"gpu_memory_gb": gpuMemory,
		"quantization":  quant,
		"language":      lang.String(),
		"models":        rowsToJSON(rows),
	}
}

func quantLabel(quant string, lang i18n.Language) string {
	if quant == catalog.DefaultOption {
		return i18n.T(lang, i18n.KeyDefault)
	}
	return quant
}

func rowsToJSON(rows []*table.Row) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}{
			"key":               r.Key,
			"full_model":        r.FullModel,
			"family":            r.Family,
			"model":             r.Model,
			"arch":              r.Arch,
			"parameters":        r.Parameters,
			"file_size":         r.FileSize,
			"quantization":      r.Quantization,
			"quantization_info": r.QuantizationInfo,
			"url":               r.URL,
			"required_vram_gb":  round1(r.RequiredVRAM),
			"required_gpus":     r.RequiredGPUs,
			"run_status":        r.Status.String(),
			"status_text":       r.StatusText,
			"pull_command":      table.PullCommand(r),
		})
	}
	return out
}

// Estimation is the result of a single estimate command.
type Estimation struct {
	FileSize     string         `json:"file_size"`
	Parsed       bool           `json:"parsed"`
	Quantization string         `json:"quantization"`
	Multiplier   float64        `json:"multiplier"`
	RequiredGB   float64        `json:"required_vram_gb"`
	GPUMemoryGB  float64        `json:"gpu_memory_gb"`
	Status       vram.RunStatus `json:"run_status"`
	StatusText   string         `json:"status_text"`
	RequiredGPUs int            `json:"required_gpus"`
}

// NewEstimation runs the estimator and classifier for one file size and quantization.
func NewEstimation(fileSize, quant string, gpuMemory float64, lang i18n.Language) Estimation {
	est := vram.DefaultEstimator()
	_, parsed := vram.ParseFileSizeGB(fileSize)
	required := est.Estimate(fileSize, quant)
	c := vram.ClassifyRun(required, gpuMemory, lang)
	return Estimation{
		FileSize:     fileSize,
		Parsed:       parsed,
		Quantization: quant,
		Multiplier:   est.Multiplier(quant),
		RequiredGB:   required,
		GPUMemoryGB:  gpuMemory,
		Status:       c.Status,
		StatusText:   c.Label,
		RequiredGPUs: vram.RequiredGPUs(required, gpuMemory),
	}
}

// Estimate prints one estimate (text or JSON).
func Estimate(out io.Writer, e Estimation, useJSON bool) {
	if useJSON {
		e.RequiredGB = round2(e.RequiredGB)
		encodeJSON(out, e)
		return
	}
	_ = estimateTpl.Execute(out, map[string]interface{}{
		"FileSize":     e.FileSize,
		"Parsed":       e.Parsed,
		"Quantization": e.Quantization,
		"Multiplier":   e.Multiplier,
		"Required":     table.FormatVRAM(e.RequiredGB),
		"GPUMemory":    formatGB(e.GPUMemoryGB),
		"Status":       e.StatusText + " (" + e.Status.String() + ")",
		"RequiredGPUs": e.RequiredGPUs,
	})
}

// Families prints the catalog families (table or JSON).
func Families(out io.Writer, db *catalog.DB, families []catalog.Family, lang i18n.Language, useJSON bool) {
	if useJSON {
		encodeJSON(out, FamiliesJSON(db, families, lang))
		return
	}
	fmt.Fprintln(out, "\n=== Model Families ===")
	fmt.Fprintf(out, "Total families: %d\n\n", len(families))
	tbl := tablewriter.NewWriter(out)
	tbl.Header("Family", "Models", "Description")
	for _, f := range families {
		tbl.Append([]string{f.Name, strconv.Itoa(len(db.Details(f.Name))), f.Describe(lang)})
	}
	_ = tbl.Render()
}

// FamiliesJSON is the JSON document listing families with their record counts.
func FamiliesJSON(db *catalog.DB, families []catalog.Family, lang i18n.Language) map[string]interface{} {
	list := make([]map[string]interface{}, 0, len(families))
	for _, f := range families {
		list = append(list, map[string]interface{}{
			"name":        f.Name,
			"description": f.Describe(lang),
			"models":      len(db.Details(f.Name)),
			"output_file": f.OutputFile,
		})
	}
	return map[string]interface{}{"families": list}
}

// Quants prints the quantization selector options (table or JSON).
func Quants(out io.Writer, options []catalog.Option, lang i18n.Language, useJSON bool) {
	if useJSON {
		encodeJSON(out, QuantsJSON(options))
		return
	}
	tbl := tablewriter.NewWriter(out)
	tbl.Header(i18n.T(lang, i18n.KeyQuantization), "Value", "Multiplier")
	est := vram.DefaultEstimator()
	for _, o := range options {
		mult := "-"
		if o.Value != catalog.DefaultOption {
			mult = "x" + strconv.FormatFloat(est.Multiplier(o.Value), 'f', -1, 64)
		}
		tbl.Append([]string{o.Label, o.Value, mult})
	}
	_ = tbl.Render()
}

// QuantsJSON is the JSON document for the quantization selector.
func QuantsJSON(options []catalog.Option) map[string]interface{} {
	if options == nil {
		options = []catalog.Option{}
	}
	return map[string]interface{}{
		"quantizations": options,
		"initial":       catalog.DefaultQuant(options),
	}
}

// Info prints one family: its description, the rows for the selected quantization and the pull commands.
func Info(out io.Writer, fam *catalog.Family, description string, rows []*table.Row, options []catalog.Option, lang i18n.Language, useJSON bool) {
	if useJSON {
		quants := make([]string, 0, len(options))
		for _, o := range options {
			quants = append(quants, o.Value)
		}
		encodeJSON(out, map[string]interface{}{
			"family":        fam.Name,
			"description":   description,
			"quantizations": quants,
			"models":        rowsToJSON(rows),
		})
		return
	}
	var quants []string
	for _, o := range options {
		quants = append(quants, o.Label)
	}
	_ = infoTpl.Execute(out, map[string]interface{}{
		"Name":        fam.Name,
		"Description": description,
		"Variants":    len(rows),
		"Quants":      strings.Join(quants, ", "),
	})
	if len(rows) == 0 {
		return
	}
	tbl := tablewriter.NewWriter(out)
	tbl.Header(i18n.T(lang, i18n.KeyModelName), i18n.T(lang, i18n.KeyVRAMEstimate), i18n.T(lang, i18n.KeyRunStatus), i18n.T(lang, i18n.KeyInstall))
	for _, r := range rows {
		tbl.Append([]string{r.Model, table.FormatVRAM(r.RequiredVRAM), r.StatusEmoji() + " " + r.StatusText, table.PullCommand(r)})
	}
	_ = tbl.Render()
}

// Settings prints the stored settings and where they live.
func Settings(out io.Writer, path string, s settings.Settings, useJSON bool) {
	if useJSON {
		encodeJSON(out, map[string]interface{}{"path": path, "settings": s})
		return
	}
	fmt.Fprintf(out, "Settings file: %s\n", path)
	tbl := tablewriter.NewWriter(out)
	tbl.Header("Key", "Value")
	tbl.Append([]string{"gpu_memory_setting", strconv.FormatFloat(s.GPUMemory, 'f', -1, 64)})
	tbl.Append([]string{"theme", s.Theme})
	tbl.Append([]string{"language", s.Language})
	_ = tbl.Render()
}
