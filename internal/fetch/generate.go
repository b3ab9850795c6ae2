package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shayne-snap/llmvram/internal/catalog"
)

// LibraryURL prefixes every generated model URL.
const LibraryURL = "https://ollama.com/library/"

// Family kinds understood by the tag cleaner (catalog.json "key").
const (
	KindDeepSeek = "deepseek"
	KindQwen     = "qwen"
	KindLlama    = "llama"
)

// DefaultTagQuant is the quantization ollama serves for a tag that names none.
const DefaultTagQuant = "Q4_K_M"

var (
	ErrUnsupportedKind = errors.New("unsupported model family kind")
	ErrNoTagsURL       = errors.New("family has no tags_url")
	ErrNoModels        = errors.New("no models found")
)

// baseQuant ranks a default tag ahead of every explicit quantization.
const baseQuant = "BASE"

type tagQuant struct {
	match  string // lower-case substring of the tag
	suffix string // tag suffix as ollama spells it
	label  string
}

// tagQuants is checked in order; the first match wins.
var tagQuants = []tagQuant{
	{"q2_k", "q2_K", "Q2_K"},
	{"q3_k_m", "q3_K_M", "Q3_K_M"},
	{"q3_k_s", "q3_K_S", "Q3_K_S"},
	{"q4_k_m", "q4_K_M", "Q4_K_M"},
	{"q4_k_s", "q4_K_S", "Q4_K_S"},
	{"q4_0", "q4_0", "Q4_0"},
	{"q5_0", "q5_0", "Q5_0"},
	{"q5_1", "q5_1", "Q5_1"},
	{"q5_k_m", "q5_K_M", "Q5_K_M"},
	{"q6_k", "q6_K", "Q6_K"},
	{"q8_0", "q8_0", "Q8_0"},
	{"fp16", "fp16", "FP16"},
}

var quantPriority = map[string]int{
	baseQuant: 0,
	"FP16":    1,
	"Q8_0":    2,
	"Q6_K":    3,
	"Q5_K_M":  4,
	"Q5_1":    5,
	"Q5_0":    6,
	"Q4_K_M":  7,
	"Q4_K_S":  8,
	"Q4_0":    9,
	"Q3_K_M":  10,
	"Q3_K_S":  11,
	"Q2_K":    12,
}

var quantInfo = map[string]string{
	"FP16":   "16-bit half precision, unquantized weights",
	"Q8_0":   "8-bit quantization, near-lossless",
	"Q6_K":   "6-bit K-quant, very close to 8-bit quality",
	"Q5_K_M": "5-bit K-quant (medium), high quality",
	"Q5_1":   "legacy 5-bit quantization with offset",
	"Q5_0":   "legacy 5-bit quantization",
	"Q4_K_M": "4-bit K-quant (medium), balanced size and quality",
	"Q4_K_S": "4-bit K-quant (small)",
	"Q4_0":   "legacy 4-bit quantization",
	"Q3_K_M": "3-bit K-quant (medium)",
	"Q3_K_S": "3-bit K-quant (small)",
	"Q2_K":   "2-bit K-quant, smallest size with noticeable quality loss",
}

// deepseekDistills maps DeepSeek distill sizes to the base architecture in their tag.
var deepseekDistills = map[string]string{
	"1.5b": "qwen",
	"7b":   "qwen",
	"14b":  "qwen",
	"32b":  "qwen",
	"8b":   "llama",
	"70b":  "llama",
}

var (
	tagSizeLabelRe   = regexp.MustCompile(`(\d+\.?\d*)b`)
	visionSizeRe     = regexp.MustCompile(`(\d+)b`)
	modelSizeLabelRe = regexp.MustCompile(`:(\d+\.?\d*)b`)
)

// variant is one catalog model derived from a tag.
type variant struct {
	model string
	quant string
	def   bool
}

func detectQuant(lower string) *tagQuant {
	for i := range tagQuants {
		if strings.Contains(lower, tagQuants[i].match) {
			return &tagQuants[i]
		}
	}
	return nil
}

// cleanTag maps a tag name to the catalog models it stands for. Tags without a size ("latest") yield none.
func cleanTag(id, kind, version string) ([]variant, error) {
	lower := strings.ToLower(id)
	m := tagSizeLabelRe.FindString(lower)
	if m == "" {
		return nil, nil
	}
	size := m
	q := detectQuant(lower)
	instruct := strings.Contains(lower, "instruct")

	switch kind {
	case KindDeepSeek:
		base := "deepseek-" + version + ":" + size
		ext := base
		if arch, ok := deepseekDistills[size]; ok {
			ext += "-" + arch + "-distill"
		}
		return withDefault(base, ext, q), nil
	case KindQwen:
		base := "qwen" + version + ":" + size
		ext := base
		if instruct {
			ext += "-instruct"
		}
		return withDefault(base, ext, q), nil
	case KindLlama:
		if strings.Contains(strings.ToLower(version), "vision") {
			if vm := visionSizeRe.FindStringSubmatch(lower); vm != nil {
				size = vm[1] + "b"
			}
		}
		base := "llama" + version + ":" + size
		if q == nil {
			return []variant{{model: base, quant: baseQuant, def: true}}, nil
		}
		if instruct {
			base += "-instruct"
		}
		return []variant{{model: base + "-" + q.suffix, quant: q.label}}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedKind, kind)
	}
}

// withDefault emits the plain size tag as the default model for tags that name no quantization
// or the default one, and the explicit variant otherwise.
func withDefault(base, ext string, q *tagQuant) []variant {
	if q == nil {
		return []variant{{model: base, quant: DefaultTagQuant, def: true}}
	}
	out := []variant{{model: ext + "-" + q.suffix, quant: q.label}}
	if q.label == DefaultTagQuant {
		out = append([]variant{{model: base, quant: DefaultTagQuant, def: true}}, out...)
	}
	return out
}

func archFor(kind, model string) string {
	switch kind {
	case KindDeepSeek:
		if m := modelSizeLabelRe.FindStringSubmatch(model); m != nil {
			switch deepseekDistills[m[1]+"b"] {
			case "qwen":
				return "qwen2"
			case "llama":
				return "llama"
			}
		}
		return "deepseek2"
	case KindQwen:
		return "qwen2"
	default:
		return kind
	}
}

// CleanTags turns the rows of a tags page into sorted catalog records: by parameter size, then
// quantization (default tag, FP16, Q8_0 ... Q2_K), then shorter names first. Repeats are dropped.
func CleanTags(tags []Tag, kind, version string) ([]catalog.ModelDetail, error) {
	switch kind {
	case KindDeepSeek, KindQwen, KindLlama:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedKind, kind)
	}
	type ranked struct {
		detail catalog.ModelDetail
		size   float64
		rank   int
	}
	seen := make(map[string]bool)
	var out []ranked
	for _, t := range tags {
		variants, err := cleanTag(t.Name, kind, version)
		if err != nil {
			return nil, err
		}
		for _, v := range variants {
			key := v.model + "-" + v.quant
			if seen[key] {
				continue
			}
			m := modelSizeLabelRe.FindStringSubmatch(strings.ToLower(v.model))
			if m == nil {
				continue
			}
			seen[key] = true
			size, _ := strconv.ParseFloat(m[1], 64)
			rank, ok := quantPriority[v.quant]
			if !ok {
				rank = 999
			}
			quant := v.quant
			if quant == baseQuant {
				quant = DefaultTagQuant
			}
			out = append(out, ranked{
				detail: catalog.ModelDetail{
					Model:            v.model,
					IsDefault:        v.def,
					Quantization:     quant,
					QuantizationInfo: quantInfo[quant],
					Arch:             archFor(kind, v.model),
					Parameters:       m[1] + "B",
					FileSize:         t.FileSize,
					URL:              LibraryURL + v.model,
				},
				size: size,
				rank: rank,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].size != out[j].size {
			return out[i].size < out[j].size
		}
		if out[i].rank != out[j].rank {
			return out[i].rank < out[j].rank
		}
		return len(out[i].detail.Model) < len(out[j].detail.Model)
	})
	details := make([]catalog.ModelDetail, len(out))
	for i, r := range out {
		details[i] = r.detail
	}
	return details, nil
}

// Generate scrapes fam's tags page and returns its catalog records.
func Generate(ctx context.Context, fam catalog.Family) ([]catalog.ModelDetail, error) {
	if fam.TagsURL == "" {
		return nil, fmt.Errorf("%s: %w", fam.Name, ErrNoTagsURL)
	}
	tags, err := FetchTags(ctx, fam.TagsURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fam.Name, err)
	}
	details, err := CleanTags(tags, fam.Kind, fam.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fam.Name, err)
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("%s: %w on %s", fam.Name, ErrNoModels, fam.TagsURL)
	}
	log.Debug().Str("family", fam.Name).Int("tags", len(tags)).Int("models", len(details)).Msg("generated model details")
	return details, nil
}

// GenerateCatalog regenerates the detail files of the named families (every family with a
// tags_url when none are named) and writes them, with catalog.json, under dir.
// Nothing is written unless every family succeeds.
func GenerateCatalog(ctx context.Context, cfg *catalog.Config, families []string, dir string) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var selected []catalog.Family
	if len(families) == 0 {
		for _, f := range cfg.Models {
			if f.TagsURL != "" {
				selected = append(selected, f)
			}
		}
	} else {
		byName := make(map[string]catalog.Family, len(cfg.Models))
		for _, f := range cfg.Models {
			byName[f.Name] = f
		}
		for _, n := range families {
			f, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("%w %q", catalog.ErrUnknownFamily, n)
			}
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no family has a tags_url")
	}

	var mu sync.Mutex
	files := make(map[string][]byte, len(selected)+1)
	res := &Result{Families: len(selected), Dir: dir}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, fam := range selected {
		fam := fam
		g.Go(func() error {
			details, err := Generate(gctx, fam)
			if err != nil {
				return err
			}
			body, err := marshalIndent(details)
			if err != nil {
				return err
			}
			mu.Lock()
			files[catalog.DetailPath(cfg, fam)] = body
			res.Models += len(details)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	body, err := marshalIndent(cfg)
	if err != nil {
		return nil, err
	}
	files[catalog.ConfigFile] = body
	if err := catalog.WriteCache(dir, files); err != nil {
		return nil, fmt.Errorf("could not write cache: %w", err)
	}
	log.Info().Int("families", res.Families).Int("models", res.Models).Str("dir", dir).Msg("catalog generated")
	return res, nil
}

func marshalIndent(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
