package cli

import (
	"testing"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/settings"
)

func TestGPUMemoryGB(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 24, false},
		{"16", 16, false},
		{" 12.7 ", 12, false},
		{"500", settings.MaxGPUMemory, false},
		{"0.5", settings.MinGPUMemory, false},
		{"0", 0, true},
		{"-8", 0, true},
		{"NaN", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		o := testOptions(nil)
		o.env.settings = settings.Default()
		o.gpuMemory = tt.in
		got, err := o.gpuMemoryGB()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("gpuMemoryGB(%q) = %v, %v; want %v (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestResolveQuant(t *testing.T) {
	options := []catalog.Option{{Label: "Default", Value: catalog.DefaultOption}, {Label: "Q4_K_M", Value: "Q4_K_M"}}
	o := testOptions(nil)
	if got, err := o.resolveQuant(options); err != nil || got != catalog.DefaultOption {
		t.Errorf("empty quant = %q, %v", got, err)
	}
	o.quant = "q4_k_m"
	if got, err := o.resolveQuant(options); err != nil || got != "Q4_K_M" {
		t.Errorf("q4_k_m = %q, %v", got, err)
	}
	o.quant = "FP16"
	if _, err := o.resolveQuant(options); err == nil {
		t.Error("FP16 should be unknown")
	}
}

func TestLanguage(t *testing.T) {
	o := testOptions(nil)
	o.env.settings = settings.Default()
	t.Setenv("LLMVRAM_LANG", "")
	if o.language() != i18n.Chinese {
		t.Error("settings default should be Chinese")
	}
	t.Setenv("LLMVRAM_LANG", "en_US.UTF-8")
	if o.language() != i18n.English {
		t.Error("LLMVRAM_LANG should win over settings")
	}
	o.lang = "zh"
	if o.language() != i18n.Chinese {
		t.Error("--lang should win over LLMVRAM_LANG")
	}
}
