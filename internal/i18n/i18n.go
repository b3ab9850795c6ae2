// Package i18n resolves the display language (Chinese or English) and holds the UI strings.
package i18n

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the two supported display languages.
type Language int

const (
	Chinese Language = iota
	English
)

func (l Language) String() string {
	switch l {
	case English:
		return "en"
	default:
		return "zh"
	}
}

// Toggle returns the other language.
func (l Language) Toggle() Language {
	if l == English {
		return Chinese
	}
	return English
}

var matcher = language.NewMatcher([]language.Tag{
	language.Chinese, // first entry is the fallback
	language.English,
})

// Parse resolves a BCP 47 tag or POSIX locale ("en_US.UTF-8") to a Language. Unknown input maps to Chinese.
func Parse(s string) Language {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" || strings.EqualFold(s, "C") || strings.EqualFold(s, "POSIX") {
		return Chinese
	}
	tag, err := language.Parse(s)
	if err != nil {
		return Chinese
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Chinese
	}
	if idx == 1 {
		return English
	}
	return Chinese
}

// FromEnv reads LLMVRAM_LANG, then LANG.
func FromEnv() Language {
	if v := os.Getenv("LLMVRAM_LANG"); v != "" {
		return Parse(v)
	}
	return Parse(os.Getenv("LANG"))
}

// Message keys.
const (
	KeyModelName    = "col.model"
	KeyArch         = "col.arch"
	KeyParameters   = "col.params"
	KeyFileSize     = "col.file_size"
	KeyQuantization = "col.quant"
	KeyVRAMEstimate = "col.vram"
	KeyRequiredGPUs = "col.gpus"
	KeyRunStatus    = "col.status"
	KeyInstall      = "col.install"
	KeyDefault      = "quant.default"
	KeyQuantInfo    = "quant.info"
	KeyRequiredVRAM = "tip.required_vram"
	KeyNeedsGPUs    = "tip.needs_gpus"
	KeyCopied       = "copy.ok"
	KeyCopyFailed   = "copy.failed"
	KeyLoadFailed   = "load.failed"
	KeyGPUMemory    = "settings.gpu_memory"
	KeySelectModels = "settings.models"
	KeyNoRows       = "table.empty"
	KeyIntroduction = "table.intro"
	KeyStatusCanRun = "status.can_run"
	KeyStatusBarely = "status.barely_run"
	KeyStatusCannot = "status.cannot_run"
)

var messages = map[Language]map[string]string{
	Chinese: {
		KeyModelName:    "模型名称",
		KeyArch:         "架构",
		KeyParameters:   "参数量",
		KeyFileSize:     "文件大小",
		KeyQuantization: "量化方式",
		KeyVRAMEstimate: "显存估值",
		KeyRequiredGPUs: "所需显卡",
		KeyRunStatus:    "单卡运行状态",
		KeyInstall:      "安装模型",
		KeyDefault:      "默认",
		KeyQuantInfo:    "量化信息：",
		KeyRequiredVRAM: "需要显存: %.1fGB",
		KeyNeedsGPUs:    "需要 %d 张显卡",
		KeyCopied:       "命令复制成功：%s",
		KeyCopyFailed:   "复制失败，请手动复制：%s",
		KeyLoadFailed:   "加载配置失败",
		KeyGPUMemory:    "GPU 显存 (GB)",
		KeySelectModels: "选择模型",
		KeyNoRows:       "没有匹配的模型",
		KeyIntroduction: "模型介绍",
		KeyStatusCanRun: "完美运行",
		KeyStatusBarely: "满载运行",
		KeyStatusCannot: "不能运行",
	},
	English: {
		KeyModelName:    "Model Name",
		KeyArch:         "Architecture",
		KeyParameters:   "Parameters",
		KeyFileSize:     "File Size",
		KeyQuantization: "Quantization",
		KeyVRAMEstimate: "VRAM Estimate",
		KeyRequiredGPUs: "Required GPUs",
		KeyRunStatus:    "Single GPU Run Status",
		KeyInstall:      "Install Model",
		KeyDefault:      "Default",
		KeyQuantInfo:    "Quantization Info: ",
		KeyRequiredVRAM: "Required VRAM: %.1fGB",
		KeyNeedsGPUs:    "Needs %d GPUs",
		KeyCopied:       "Command Copied Successfully: %s",
		KeyCopyFailed:   "Copy failed, please copy manually: %s",
		KeyLoadFailed:   "Failed to load configuration",
		KeyGPUMemory:    "GPU Memory (GB)",
		KeySelectModels: "Select Models",
		KeyNoRows:       "No matching models",
		KeyIntroduction: "Model Introduction",
		KeyStatusCanRun: "Perfect Run",
		KeyStatusBarely: "Full Load",
		KeyStatusCannot: "Cannot Run",
	},
}

// T returns the message for key in lang, or key itself when missing.
func T(lang Language, key string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return key
}

// Tf formats the message for key with args.
func Tf(lang Language, key string, args ...interface{}) string {
	return fmt.Sprintf(T(lang, key), args...)
}
