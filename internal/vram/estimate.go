// Package vram estimates the GPU memory a quantized model needs and classifies
// whether a single GPU of a given size can run it.
package vram

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// OverheadFactor is the flat runtime surcharge (KV cache, allocator slack) applied to every estimate.
	OverheadFactor = 1.1
	// FloorGB is the smallest estimate ever returned, also the answer for unparseable sizes.
	FloorGB = 0.5
	// DefaultMultiplier applies to quantization labels missing from the table.
	DefaultMultiplier = 1.0
	tbToGB            = 1024
)

var fileSizeRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(GB|TB)`)

// MultiplierTable maps an upper-case quantization label to its memory multiplier.
// A MultiplierTable is never mutated after construction; use With to derive a new one.
type MultiplierTable struct {
	m map[string]float64
}

// NewMultiplierTable builds a table from label -> multiplier pairs (labels are upper-cased).
func NewMultiplierTable(entries map[string]float64) MultiplierTable {
	m := make(map[string]float64, len(entries))
	for k, v := range entries {
		m[strings.ToUpper(k)] = v
	}
	return MultiplierTable{m: m}
}

// Lookup returns the multiplier for quant (case-insensitive) and whether it was known.
func (t MultiplierTable) Lookup(quant string) (float64, bool) {
	v, ok := t.m[strings.ToUpper(quant)]
	return v, ok
}

// With returns a copy of t with additional or replaced entries.
func (t MultiplierTable) With(entries map[string]float64) MultiplierTable {
	m := make(map[string]float64, len(t.m)+len(entries))
	for k, v := range t.m {
		m[k] = v
	}
	for k, v := range entries {
		m[strings.ToUpper(k)] = v
	}
	return MultiplierTable{m: m}
}

// Labels returns the known labels (unordered).
func (t MultiplierTable) Labels() []string {
	out := make([]string, 0, len(t.m))
	for k := range t.m {
		out = append(out, k)
	}
	return out
}

var defaultMultipliers = NewMultiplierTable(map[string]float64{
	"FP16":   2.0,
	"Q8_0":   1.5,
	"Q6_K_M": 1.4,
	"Q6_K":   1.4,
	"Q5_K_M": 1.3,
	"Q5_0":   1.3,
	"Q5_1":   1.3,
	"Q4_K_M": 1.2,
	"Q4_0":   1.2,
	"Q4_1":   1.2,
	"Q3_K_S": 1.15,
	"Q3_K_M": 1.15,
	"Q3_K_L": 1.15,
	"Q2_K":   1.1,
})

// DefaultMultipliers returns the built-in quantization multiplier table.
func DefaultMultipliers() MultiplierTable {
	return defaultMultipliers
}

// Estimator turns a file size and quantization label into required VRAM (GB).
// The zero value is not useful; start from DefaultEstimator.
type Estimator struct {
	Multipliers       MultiplierTable
	DefaultMultiplier float64
	Overhead          float64
	FloorGB           float64
}

// DefaultEstimator returns an Estimator with the built-in table and constants.
func DefaultEstimator() Estimator {
	return Estimator{
		Multipliers:       defaultMultipliers,
		DefaultMultiplier: DefaultMultiplier,
		Overhead:          OverheadFactor,
		FloorGB:           FloorGB,
	}
}

// Multiplier returns the multiplier used for quant, falling back to DefaultMultiplier.
func (e Estimator) Multiplier(quant string) float64 {
	if v, ok := e.Multipliers.Lookup(quant); ok {
		return v
	}
	return e.DefaultMultiplier
}

// Estimate returns required VRAM in GB. Unparseable sizes yield FloorGB; results never go below it.
func (e Estimator) Estimate(fileSize, quant string) float64 {
	sizeGB, ok := ParseFileSizeGB(fileSize)
	if !ok {
		return e.FloorGB
	}
	required := sizeGB * e.Multiplier(quant)
	required *= e.Overhead
	if required < e.FloorGB {
		return e.FloorGB
	}
	return required
}

// ParseFileSizeGB extracts the first "<number> GB|TB" in s and returns it in GB.
func ParseFileSizeGB(s string) (float64, bool) {
	m := fileSizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(m[2], "TB") {
		size *= tbToGB
	}
	return size, true
}

// EstimateRequiredVRAM estimates with the default table and constants.
func EstimateRequiredVRAM(fileSize, quant string) float64 {
	return DefaultEstimator().Estimate(fileSize, quant)
}
