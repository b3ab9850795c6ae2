package table

import (
	"strings"
	"testing"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/vram"
)

func details() []catalog.ModelDetail {
	return []catalog.ModelDetail{
		{ConfigName: "Qwen2.5", Model: "qwen2.5:7b", Quantization: "Q4_K_M", Arch: "qwen2", Parameters: "7.6B", FileSize: "4.7 GB", URL: "https://ollama.com/library/qwen2.5:7b", IsDefault: true},
		{ConfigName: "Qwen2.5", Model: "qwen2.5:0.5b", Quantization: "Q4_K_M", Arch: "qwen2", Parameters: "494M", FileSize: "398 MB", URL: "https://ollama.com/library/qwen2.5:0.5b"},
		{ConfigName: "DeepSeek R1", Model: "deepseek-r1:32b", Quantization: "Q4_K_M", Arch: "qwen2", Parameters: "32.8B", FileSize: "20 GB", URL: "https://ollama.com/library/deepseek-r1:32b"},
		{ConfigName: "Llama 3.1", Model: "llama3.1:405b", Quantization: "FP16", Arch: "llama", Parameters: "405B", FileSize: "812 GB", URL: "https://ollama.com/library/llama3.1:405b-instruct-fp16"},
	}
}

func TestBuild(t *testing.T) {
	rows := Build(details(), 24, i18n.English)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	r := rows[0]
	if r.Key != "Qwen2.5-qwen2.5:7b-Q4_K_M" || r.FullModel != "Qwen2.5:qwen2.5:7b" {
		t.Errorf("key/full = %q / %q", r.Key, r.FullModel)
	}
	if r.Status != vram.CanRun || r.StatusText != "Perfect Run" || r.RequiredGPUs != 1 {
		t.Errorf("row 0 = %+v", r)
	}
	// 20 GB Q4_K_M: 20*1.2*1.1 = 26.4, within 24*1.2.
	if rows[2].Status != vram.BarelyRun {
		t.Errorf("32b status = %v, want barely-run", rows[2].Status)
	}
	if rows[2].RequiredGPUs != 2 {
		t.Errorf("32b GPUs = %d, want 2", rows[2].RequiredGPUs)
	}
	if rows[1].RequiredVRAM != vram.FloorGB {
		t.Errorf("MB-sized model VRAM = %v, want floor", rows[1].RequiredVRAM)
	}
	if rows[3].Status != vram.CannotRun {
		t.Errorf("405b status = %v", rows[3].Status)
	}
}

func TestRelabel(t *testing.T) {
	rows := Build(details(), 24, i18n.English)
	Relabel(rows, i18n.Chinese)
	if rows[0].StatusText != "完美运行" || rows[3].StatusText != "不能运行" {
		t.Errorf("relabeled = %q, %q", rows[0].StatusText, rows[3].StatusText)
	}
}

func TestFilterStatus(t *testing.T) {
	rows := Build(details(), 24, i18n.English)
	if got := FilterStatus(rows, vram.CanRun); len(got) != 2 {
		t.Errorf("CanRun rows = %d, want 2", len(got))
	}
	if got := FilterStatus(rows, vram.BarelyRun); len(got) != 3 {
		t.Errorf("BarelyRun rows = %d, want 3", len(got))
	}
	if got := FilterStatus(rows, vram.CannotRun); len(got) != 4 {
		t.Errorf("CannotRun rows = %d, want 4", len(got))
	}
	c := Counts(rows)
	if c[vram.CanRun] != 2 || c[vram.BarelyRun] != 1 || c[vram.CannotRun] != 1 {
		t.Errorf("Counts = %v", c)
	}
}

func TestSort(t *testing.T) {
	models := func(rows []*Row) string {
		var s []string
		for _, r := range rows {
			s = append(s, r.Model)
		}
		return strings.Join(s, ",")
	}
	tests := []struct {
		col  Column
		desc bool
		want string
	}{
		{ColName, false, "deepseek-r1:32b,llama3.1:405b,qwen2.5:0.5b,qwen2.5:7b"},
		{ColParams, false, "qwen2.5:0.5b,qwen2.5:7b,deepseek-r1:32b,llama3.1:405b"},
		{ColSize, true, "llama3.1:405b,deepseek-r1:32b,qwen2.5:7b,qwen2.5:0.5b"},
		{ColVRAM, false, "qwen2.5:0.5b,qwen2.5:7b,deepseek-r1:32b,llama3.1:405b"},
		{ColStatus, true, "llama3.1:405b,deepseek-r1:32b,qwen2.5:7b,qwen2.5:0.5b"},
		{ColArch, false, "llama3.1:405b,qwen2.5:7b,qwen2.5:0.5b,deepseek-r1:32b"},
	}
	for _, tt := range tests {
		rows := Build(details(), 24, i18n.English)
		Sort(rows, tt.col, tt.desc)
		if got := models(rows); got != tt.want {
			t.Errorf("Sort(%s, desc=%v) = %s, want %s", tt.col, tt.desc, got, tt.want)
		}
	}
}

func TestParseColumn(t *testing.T) {
	for _, c := range Columns {
		got, err := ParseColumn(c.String())
		if err != nil || got != c {
			t.Errorf("ParseColumn(%q) = %v, %v", c.String(), got, err)
		}
	}
	if c, err := ParseColumn(""); err != nil || c != ColName {
		t.Errorf("ParseColumn(\"\") = %v, %v", c, err)
	}
	if _, err := ParseColumn("speed"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestParamCountAndSize(t *testing.T) {
	if ParamCount("494M") >= ParamCount("1.5B") {
		t.Error("494M should sort below 1.5B")
	}
	if ParamCount("671B") != 671e9 || ParamCount("n/a") != 0 {
		t.Errorf("ParamCount = %v, %v", ParamCount("671B"), ParamCount("n/a"))
	}
	if got := SizeGB("1.3 TB"); got != 1.3*1024 {
		t.Errorf("SizeGB(1.3 TB) = %v", got)
	}
	if got := SizeGB("512 MB"); got != 0.5 {
		t.Errorf("SizeGB(512 MB) = %v", got)
	}
	if SizeGB("?") != 0 {
		t.Error("SizeGB(?) should be 0")
	}
}

func TestPullCommandAndTooltip(t *testing.T) {
	rows := Build(details(), 24, i18n.English)
	if got := PullCommand(rows[3]); got != "ollama pull llama3.1:405b-instruct-fp16" {
		t.Errorf("PullCommand = %q", got)
	}
	if got := PullCommand(&Row{Model: "x:1b"}); got != "ollama pull x:1b" {
		t.Errorf("PullCommand without URL = %q", got)
	}
	if got := Tooltip(rows[0], i18n.English); got != "Required VRAM: 6.2GB" {
		t.Errorf("Tooltip = %q", got)
	}
	if got := Tooltip(rows[2], i18n.English); got != "Required VRAM: 26.4GB\nNeeds 2 GPUs" {
		t.Errorf("Tooltip multi = %q", got)
	}
	if FormatVRAM(3.3) != "3.3 GB" {
		t.Errorf("FormatVRAM = %q", FormatVRAM(3.3))
	}
}
