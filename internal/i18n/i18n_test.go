package i18n

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"en", English},
		{"en-US", English},
		{"en_GB.UTF-8", English},
		{"zh", Chinese},
		{"zh-CN", Chinese},
		{"zh_CN.UTF-8", Chinese},
		{"", Chinese},
		{"C", Chinese},
		{"not a tag!!", Chinese},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LLMVRAM_LANG", "en")
	t.Setenv("LANG", "zh_CN.UTF-8")
	if got := FromEnv(); got != English {
		t.Errorf("FromEnv() = %v, want en (LLMVRAM_LANG wins)", got)
	}
	t.Setenv("LLMVRAM_LANG", "")
	if got := FromEnv(); got != Chinese {
		t.Errorf("FromEnv() = %v, want zh from LANG", got)
	}
}

func TestT(t *testing.T) {
	if got := T(English, KeyDefault); got != "Default" {
		t.Errorf("T(en, default) = %q", got)
	}
	if got := T(Chinese, KeyDefault); got != "默认" {
		t.Errorf("T(zh, default) = %q", got)
	}
	if got := T(English, "missing.key"); got != "missing.key" {
		t.Errorf("T(missing) = %q", got)
	}
	if got := Tf(English, KeyNeedsGPUs, 3); got != "Needs 3 GPUs" {
		t.Errorf("Tf = %q", got)
	}
}

func TestLanguage_Toggle(t *testing.T) {
	if Chinese.Toggle() != English || English.Toggle() != Chinese {
		t.Error("Toggle should swap languages")
	}
	if Chinese.String() != "zh" || English.String() != "en" {
		t.Error("unexpected String()")
	}
}
