package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shayne-snap/llmvram/internal/i18n"
)

var firstIntRe = regexp.MustCompile(`\d+`)

// quantBits returns the first integer in a quantization label ("Q4_K_M" -> 4, "FP16" -> 16), or 0.
func quantBits(q string) int {
	m := firstIntRe.FindString(q)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

// QuantOptions builds the quantization selector for details: the default option first when any
// detail is a family default, then each distinct quantization ordered by its first integer.
func QuantOptions(details []ModelDetail, lang i18n.Language) []Option {
	var opts []Option
	hasDefault := false
	seen := make(map[string]bool)
	var quants []string
	for _, d := range details {
		if d.IsDefault {
			hasDefault = true
		}
		if d.Quantization == "" || seen[d.Quantization] {
			continue
		}
		seen[d.Quantization] = true
		quants = append(quants, d.Quantization)
	}
	sort.SliceStable(quants, func(i, j int) bool {
		bi, bj := quantBits(quants[i]), quantBits(quants[j])
		if bi != bj {
			return bi < bj
		}
		return quants[i] < quants[j]
	})
	if hasDefault {
		opts = append(opts, Option{Label: i18n.T(lang, i18n.KeyDefault), Value: DefaultOption})
	}
	for _, q := range quants {
		opts = append(opts, Option{Label: q, Value: q})
	}
	return opts
}

// DefaultQuant picks the initial selection: the default option if offered, else the first option.
func DefaultQuant(options []Option) string {
	for _, o := range options {
		if o.Value == DefaultOption {
			return DefaultOption
		}
	}
	if len(options) > 0 {
		return options[0].Value
	}
	return ""
}

// Matches reports whether d is selected by quant.
func Matches(d ModelDetail, quant string) bool {
	if quant == DefaultOption {
		return d.IsDefault
	}
	return d.Quantization == quant
}

// Filter keeps the details of the given families that match quant. Family names compare case-insensitively.
func Filter(details []ModelDetail, families []string, quant string) []ModelDetail {
	var out []ModelDetail
	for _, d := range details {
		if !containsFold(families, d.ConfigName) {
			continue
		}
		if Matches(d, quant) {
			out = append(out, d)
		}
	}
	return out
}

// Describe renders the description panel for the selected families:
// "【name】\n<description>\n<Quantization Info: ><info>" when a record of the family matches quant,
// otherwise only the description. Entries are separated by blank lines.
func Describe(db *DB, families []string, quant string, lang i18n.Language) string {
	var parts []string
	for _, name := range families {
		fam, ok := db.Family(name)
		if !ok {
			continue
		}
		desc := fam.Describe(lang)
		var match *ModelDetail
		for _, d := range db.Details(fam.Name) {
			if Matches(d, quant) {
				d := d
				match = &d
				break
			}
		}
		if match == nil {
			if desc != "" {
				parts = append(parts, desc)
			}
			continue
		}
		parts = append(parts, "【"+fam.Name+"】\n"+desc+"\n"+i18n.T(lang, i18n.KeyQuantInfo)+match.QuantizationInfo)
	}
	return strings.Join(parts, "\n\n")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
