// Package catalog loads the model catalog (families and their per-quantization detail records)
// and selects the records shown in the VRAM table.
package catalog

import "github.com/shayne-snap/llmvram/internal/i18n"

// OutputDirs names the directory, relative to the catalog root, holding the detail files.
type OutputDirs struct {
	Dirs string `json:"dirs"`
}

// Family is one model family entry in catalog.json. TagsURL, Kind and Version drive
// `llmvram generate`; families without a TagsURL are maintained by hand.
type Family struct {
	Name          string `json:"name"`
	OutputFile    string `json:"output_file"`
	Description   string `json:"description"`
	DescriptionEn string `json:"description_en,omitempty"`
	TagsURL       string `json:"tags_url,omitempty"`
	Kind          string `json:"key,omitempty"`
	Version       string `json:"version,omitempty"`
}

// Describe returns the family description in lang (English falls back to Chinese).
func (f *Family) Describe(lang i18n.Language) string {
	if lang == i18n.English && f.DescriptionEn != "" {
		return f.DescriptionEn
	}
	return f.Description
}

// Config is catalog.json.
type Config struct {
	OutputDirs OutputDirs `json:"output_dirs"`
	Models     []Family   `json:"models"`
}

// ModelDetail is one downloadable model variant (a tag at a given quantization).
type ModelDetail struct {
	Model            string `json:"model"`
	ConfigName       string `json:"configName,omitempty"`
	Description      string `json:"description,omitempty"`
	DescriptionEn    string `json:"description_en,omitempty"`
	IsDefault        bool   `json:"is_default"`
	Quantization     string `json:"quantization"`
	QuantizationInfo string `json:"quantization_info"`
	Arch             string `json:"arch"`
	Parameters       string `json:"parameters"`
	FileSize         string `json:"file_size"`
	URL              string `json:"url"`
}

// DefaultOption is the pseudo-quantization selecting each family's default tags.
const DefaultOption = "default"

// Option is one entry of the quantization selector.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
