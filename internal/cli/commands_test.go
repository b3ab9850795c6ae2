package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/hardware"
	"github.com/shayne-snap/llmvram/internal/settings"
	"github.com/shayne-snap/llmvram/internal/tui"
)

var fixture = fstest.MapFS{
	"catalog.json": {Data: []byte(`{"output_dirs":{"dirs":"models"},"models":[
		{"name":"Small","output_file":"small.json","description":"小模型","description_en":"Small models"},
		{"name":"Big","output_file":"big.json","description":"大模型"}]}`)},
	"models/small.json": {Data: []byte(`[
		{"model":"small:1b","is_default":true,"quantization":"Q4_K_M","quantization_info":"4-bit","arch":"s","parameters":"1B","file_size":"1 GB","url":"https://ollama.com/library/small:1b"},
		{"model":"small:1b-q8_0","quantization":"Q8_0","arch":"s","parameters":"1B","file_size":"1.5 GB","url":"https://ollama.com/library/small:1b-q8_0"}]`)},
	"models/big.json": {Data: []byte(`[
		{"model":"big:70b","is_default":true,"quantization":"Q4_K_M","arch":"b","parameters":"70B","file_size":"20 GB","url":"https://ollama.com/library/big:70b"},
		{"model":"big:70b-q8_0","quantization":"Q8_0","arch":"b","parameters":"70B","file_size":"75 GB","url":"https://ollama.com/library/big:70b-q8_0"}]`)},
}

func testOptions(specs *hardware.SystemSpecs) *options {
	return &options{
		detect: func() (*hardware.SystemSpecs, error) {
			if specs == nil {
				return nil, errors.New("no hardware in tests")
			}
			return specs, nil
		},
		loadDB: func(ctx context.Context) (*catalog.DB, error) {
			return catalog.Load(ctx, catalog.FSSource{FS: fixture})
		},
		runTUI: func(app *tui.App) error { return errors.New("TUI not expected") },
	}
}

// run executes the command tree with a settings file at cfg.
func run(t *testing.T, o *options, cfg string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LLMVRAM_LANG", "")
	t.Setenv("LANG", "C")
	t.Setenv("LLMVRAM_GPU_MEMORY", "")
	cmd := newRootCmd(o)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", cfg, "--log-level", "off"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func tempConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "settings.yaml")
}

type tableJSON struct {
	GPUMemory    float64 `json:"gpu_memory_gb"`
	Quantization string  `json:"quantization"`
	Models       []struct {
		Model     string `json:"model"`
		RunStatus string `json:"run_status"`
	} `json:"models"`
}

func (tj tableJSON) names() string {
	var out []string
	for _, m := range tj.Models {
		out = append(out, m.Model)
	}
	return strings.Join(out, ",")
}

func decode(t *testing.T, s string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", s, err)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	want := []string{"table", "estimate", "list", "quants", "info", "system", "config", "update-list", "generate", "serve"}
	got := make(map[string]bool)
	for _, c := range newRootCmd(testOptions(nil)).Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("root missing subcommand %q", name)
		}
	}
}

func TestRootCmd_Flags(t *testing.T) {
	root := newRootCmd(testOptions(nil))
	for _, name := range []string{"gpu-memory", "lang", "json", "family", "quant", "sort", "desc", "runnable", "limit", "config", "catalog-url", "log-level"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("root missing --%s", name)
		}
	}
	if root.Flags().Lookup("cli") == nil {
		t.Error("root missing --cli")
	}
	serve, _, err := root.Find([]string{"serve"})
	if err != nil || serve.Flags().Lookup("addr") == nil || serve.Flags().Lookup("cors-origin") == nil {
		t.Errorf("serve flags missing (%v)", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, testOptions(nil), tempConfig(t), "--version")
	if err != nil || strings.TrimSpace(out) != "dev" {
		t.Errorf("--version = %q, %v", out, err)
	}
}

func TestEstimateCmd(t *testing.T) {
	cfg := tempConfig(t)
	out, err := run(t, testOptions(nil), cfg, "estimate", "20 GB", "Q4_K_M", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var e struct {
		Required  float64 `json:"required_vram_gb"`
		RunStatus string  `json:"run_status"`
		GPUs      int     `json:"required_gpus"`
	}
	decode(t, out, &e)
	if e.Required != 26.4 || e.RunStatus != "barely-run" || e.GPUs != 2 {
		t.Errorf("estimate = %+v", e)
	}

	out, err = run(t, testOptions(nil), cfg, "estimate", "20 GB", "Q4_K_M", "--gpu-memory", "32", "--lang", "en")
	if err != nil || !strings.Contains(out, "Perfect Run (can-run)") || !strings.Contains(out, "Required VRAM: 26.4 GB") {
		t.Errorf("text estimate = %q, %v", out, err)
	}

	if _, err := run(t, testOptions(nil), cfg, "estimate", "20 GB"); err == nil {
		t.Error("estimate with one argument should fail")
	}
}

func TestTableCmd(t *testing.T) {
	cfg := tempConfig(t)
	tests := []struct {
		name  string
		args  []string
		names string
	}{
		{"defaults", nil, "big:70b,small:1b"},
		{"quant", []string{"--quant", "q8_0"}, "big:70b-q8_0,small:1b-q8_0"},
		{"runnable", []string{"--quant", "Q8_0", "--runnable"}, "small:1b-q8_0"},
		{"family", []string{"--family", "small"}, "small:1b"},
		{"family repeated", []string{"-f", "small", "-f", "Small"}, "small:1b"},
		{"sort desc", []string{"--sort", "name", "--desc"}, "small:1b,big:70b"},
		{"limit", []string{"--sort", "vram", "--limit", "1"}, "small:1b"},
	}
	for _, tt := range tests {
		out, err := run(t, testOptions(nil), cfg, append([]string{"table", "--json"}, tt.args...)...)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		var tj tableJSON
		decode(t, out, &tj)
		if got := tj.names(); got != tt.names {
			t.Errorf("%s: models = %s, want %s", tt.name, got, tt.names)
		}
	}
}

func TestTableCmd_Errors(t *testing.T) {
	cfg := tempConfig(t)
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--family", "nope"}, "unknown model family"},
		{[]string{"--quant", "Q3_K_S"}, "unknown quantization"},
		{[]string{"--gpu-memory", "abc"}, "invalid --gpu-memory"},
		{[]string{"--sort", "bogus"}, "bogus"},
	}
	for _, tt := range tests {
		_, err := run(t, testOptions(nil), cfg, append([]string{"table"}, tt.args...)...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%v: err = %v, want %q", tt.args, err, tt.want)
		}
	}
}

func TestTableCmd_Text(t *testing.T) {
	out, err := run(t, testOptions(nil), tempConfig(t), "table", "--lang", "en")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"=== VRAM Table", "2 model(s): 1 Perfect Run, 1 Full Load, 0 Cannot Run", "Big:big:70b"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGPUMemoryAuto(t *testing.T) {
	v := 80.0
	specs := &hardware.SystemSpecs{HasGPU: true, Gpus: []hardware.GpuInfo{{Name: "H100", VRAMGB: &v, Count: 1}}}
	out, err := run(t, testOptions(specs), tempConfig(t), "--json", "--gpu-memory", "auto")
	if err != nil {
		t.Fatal(err)
	}
	var tj tableJSON
	decode(t, out, &tj)
	if tj.GPUMemory != 80 || tj.Models[0].RunStatus != "can-run" {
		t.Errorf("auto = %+v", tj)
	}

	out, err = run(t, testOptions(&hardware.SystemSpecs{}), tempConfig(t), "--json", "--gpu-memory", "auto")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, out, &tj)
	if tj.GPUMemory != settings.DefaultGPUMemory {
		t.Errorf("no GPU fallback = %v", tj.GPUMemory)
	}

	if _, err := run(t, testOptions(nil), tempConfig(t), "--json", "--gpu-memory", "auto"); err == nil {
		t.Error("detection failure should be an error")
	}
}

func TestRootCmd_RunsTUI(t *testing.T) {
	o := testOptions(nil)
	var got *tui.App
	o.runTUI = func(app *tui.App) error {
		got = app
		return nil
	}
	cfg := tempConfig(t)
	if _, err := run(t, o, cfg, "--family", "Small", "--quant", "q8_0", "--gpu-memory", "12", "--lang", "en"); err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("TUI not started")
	}
	if got.Quant != "Q8_0" || got.GPUMemory() != 12 || got.SettingsPath != cfg || got.Specs != nil {
		t.Errorf("app quant=%q gpu=%v path=%q", got.Quant, got.GPUMemory(), got.SettingsPath)
	}
	if names := got.SelectedFamilyNames(); len(names) != 1 || names[0] != "Small" {
		t.Errorf("families = %v", names)
	}
	if got.QuantLabel() != "Q8_0" || got.Lang().String() != "en" {
		t.Errorf("label %q lang %v", got.QuantLabel(), got.Lang())
	}
}

func TestRootCmd_TUIUnknownQuant(t *testing.T) {
	o := testOptions(nil)
	o.runTUI = func(app *tui.App) error {
		t.Error("TUI should not start with an unknown quantization")
		return nil
	}
	_, err := run(t, o, tempConfig(t), "--quant", "Q3_K_S")
	if err == nil || !strings.Contains(err.Error(), "unknown quantization") {
		t.Errorf("err = %v", err)
	}
}

func TestRootCmd_CLI(t *testing.T) {
	out, err := run(t, testOptions(nil), tempConfig(t), "--cli", "--lang", "en")
	if err != nil || !strings.Contains(out, "=== VRAM Table") {
		t.Errorf("--cli = %q, %v", out, err)
	}
}

func TestListCmd(t *testing.T) {
	cfg := tempConfig(t)
	out, err := run(t, testOptions(nil), cfg, "list", "--lang", "en")
	if err != nil || !strings.Contains(out, "Total families: 2") || !strings.Contains(out, "Small models") {
		t.Errorf("list = %q, %v", out, err)
	}
	out, err = run(t, testOptions(nil), cfg, "list", "big", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var fams struct {
		Families []struct {
			Name   string `json:"name"`
			Models int    `json:"models"`
		} `json:"families"`
	}
	decode(t, out, &fams)
	if len(fams.Families) != 1 || fams.Families[0].Name != "Big" || fams.Families[0].Models != 2 {
		t.Errorf("list big = %+v", fams)
	}
	out, _ = run(t, testOptions(nil), cfg, "list", "zzz")
	if !strings.Contains(out, "No model family found matching 'zzz'") {
		t.Errorf("list zzz = %q", out)
	}
}

func TestQuantsCmd(t *testing.T) {
	out, err := run(t, testOptions(nil), tempConfig(t), "quants", "--json", "--family", "Big")
	if err != nil {
		t.Fatal(err)
	}
	var q struct {
		Quantizations []catalog.Option `json:"quantizations"`
		Initial       string           `json:"initial"`
	}
	decode(t, out, &q)
	if len(q.Quantizations) != 3 || q.Initial != catalog.DefaultOption || q.Quantizations[2].Value != "Q8_0" {
		t.Errorf("quants = %+v", q)
	}
}

func TestInfoCmd(t *testing.T) {
	cfg := tempConfig(t)
	out, err := run(t, testOptions(nil), cfg, "info", "small", "--json", "--lang", "en")
	if err != nil {
		t.Fatal(err)
	}
	var info struct {
		Family      string   `json:"family"`
		Description string   `json:"description"`
		Quants      []string `json:"quantizations"`
		Models      []struct {
			Model string `json:"model"`
		} `json:"models"`
	}
	decode(t, out, &info)
	if info.Family != "Small" || len(info.Models) != 1 || info.Models[0].Model != "small:1b" {
		t.Errorf("info = %+v", info)
	}
	if !strings.Contains(info.Description, "Quantization Info: 4-bit") {
		t.Errorf("description = %q", info.Description)
	}

	out, _ = run(t, testOptions(nil), cfg, "info", "模型")
	if !strings.Contains(out, "Multiple model families found") {
		t.Errorf("ambiguous info = %q", out)
	}
	out, _ = run(t, testOptions(nil), cfg, "info", "zzz")
	if !strings.Contains(out, "No model family found matching 'zzz'") {
		t.Errorf("missing info = %q", out)
	}
}

func TestSystemCmd(t *testing.T) {
	v := 24.0
	specs := &hardware.SystemSpecs{TotalRAMGB: 32, CPUName: "Test CPU", HasGPU: true, Gpus: []hardware.GpuInfo{{Name: "RTX 4090", VRAMGB: &v, Count: 1}}}
	out, err := run(t, testOptions(specs), tempConfig(t), "system", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	decode(t, out, &m)
	if m["suggested_gpu_memory_gb"] != 24.0 {
		t.Errorf("system = %v", m)
	}
}

func TestConfigCmd(t *testing.T) {
	cfg := tempConfig(t)
	if _, err := run(t, testOptions(nil), cfg, "config", "set", "gpu_memory", "48"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, testOptions(nil), cfg, "config", "set", "language", "en"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, testOptions(nil), cfg, "config", "show", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var shown struct {
		Path     string            `json:"path"`
		Settings settings.Settings `json:"settings"`
	}
	decode(t, out, &shown)
	if shown.Path != cfg || shown.Settings.GPUMemory != 48 || shown.Settings.Language != "en" {
		t.Errorf("config show = %+v", shown)
	}

	out, err = run(t, testOptions(nil), cfg, "table", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var tj tableJSON
	decode(t, out, &tj)
	if tj.GPUMemory != 48 {
		t.Errorf("table gpu memory = %v, want 48 from settings", tj.GPUMemory)
	}

	if _, err := run(t, testOptions(nil), cfg, "config", "set", "color", "red"); err == nil {
		t.Error("unknown key should fail")
	}
	if _, err := run(t, testOptions(nil), cfg, "config", "set", "theme", "blue"); err == nil {
		t.Error("bad theme should fail")
	}
}

func TestUpdateListCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := fixture[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(f.Data)
	}))
	defer srv.Close()

	dir := t.TempDir()
	out, err := run(t, testOptions(nil), tempConfig(t), "update-list", "--url", srv.URL, "--dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Updated model catalog (2 families, 4 models)") {
		t.Errorf("update-list = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "models", "big.json")); err != nil {
		t.Errorf("detail file not cached: %v", err)
	}
}

func TestGenerateCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/library/qwen2.5/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body>
			<div class="flex px-4 py-3"><a href="/library/qwen2.5:7b">qwen2.5:7b</a>
				<div class="flex items-baseline space-x-1 text-[13px] text-neutral-500"><span>845dbda0ea48</span> • <span>4.7GB</span></div></div>
			<div class="flex px-4 py-3"><a href="/library/qwen2.5:7b-instruct-q8_0">qwen2.5:7b-instruct-q8_0</a>
				<div class="flex items-baseline space-x-1 text-[13px] text-neutral-500"><span>2d9500c94841</span> • <span>8.1GB</span></div></div>
		</body></html>`))
	}))
	defer srv.Close()

	fsys := fstest.MapFS{
		"catalog.json": {Data: []byte(`{"output_dirs":{"dirs":"models"},"models":[
			{"name":"Qwen2.5","output_file":"qwen2_5.json","description":"千问","tags_url":"` + srv.URL + `/library/qwen2.5/tags","key":"qwen","version":"2.5"},
			{"name":"Manual","output_file":"manual.json","description":"手工"}]}`)},
		"models/qwen2_5.json": {Data: []byte(`[]`)},
		"models/manual.json":  {Data: []byte(`[]`)},
	}
	o := testOptions(nil)
	o.loadDB = func(ctx context.Context) (*catalog.DB, error) {
		return catalog.Load(ctx, catalog.FSSource{FS: fsys})
	}
	dir := t.TempDir()
	out, err := run(t, o, tempConfig(t), "generate", "--family", "qwen2.5", "--dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Generated 2 models for 1 families") {
		t.Errorf("generate = %q", out)
	}
	db, err := catalog.Load(context.Background(), catalog.FSSource{FS: os.DirFS(dir)})
	if err != nil {
		t.Fatal(err)
	}
	details := db.Details("Qwen2.5")
	if len(details) != 2 || details[0].Model != "qwen2.5:7b-instruct-q8_0" || details[1].Model != "qwen2.5:7b" || !details[1].IsDefault {
		t.Errorf("generated details = %+v", details)
	}

	if _, err := run(t, o, tempConfig(t), "generate", "--family", "Manual", "--dir", t.TempDir()); err == nil || !strings.Contains(err.Error(), "tags_url") {
		t.Errorf("generate without tags_url = %v", err)
	}
	if _, err := run(t, o, tempConfig(t), "generate", "--family", "nope", "--dir", t.TempDir()); !errors.Is(err, catalog.ErrUnknownFamily) {
		t.Errorf("generate unknown family = %v", err)
	}
}
