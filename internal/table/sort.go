package table

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shayne-snap/llmvram/internal/vram"
)

// Column is a sortable table column.
type Column int

const (
	ColName Column = iota
	ColArch
	ColParams
	ColSize
	ColQuant
	ColVRAM
	ColGPUs
	ColStatus
)

// Columns lists every column in display order.
var Columns = []Column{ColName, ColArch, ColParams, ColSize, ColQuant, ColVRAM, ColGPUs, ColStatus}

var columnNames = [...]string{"name", "arch", "params", "size", "quant", "vram", "gpus", "status"}

func (c Column) String() string {
	if c < ColName || c > ColStatus {
		return columnNames[ColName]
	}
	return columnNames[c]
}

// ParseColumn maps a flag value to a Column. Empty input is ColName.
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "model":
		return ColName, nil
	case "arch":
		return ColArch, nil
	case "params", "parameters":
		return ColParams, nil
	case "size", "file_size", "file-size":
		return ColSize, nil
	case "quant", "quantization":
		return ColQuant, nil
	case "vram", "memory":
		return ColVRAM, nil
	case "gpus", "gpu":
		return ColGPUs, nil
	case "status", "run_status":
		return ColStatus, nil
	}
	return ColName, fmt.Errorf("unknown sort column %q (valid: %s)", s, strings.Join(columnNames[:], ", "))
}

// Sort orders rows in place by col, ascending unless desc. Ties keep their input order.
func Sort(rows []*Row, col Column, desc bool) {
	less := lessFunc(col)
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func lessFunc(col Column) func(a, b *Row) bool {
	switch col {
	case ColArch:
		return func(a, b *Row) bool { return a.Arch < b.Arch }
	case ColParams:
		return func(a, b *Row) bool { return ParamCount(a.Parameters) < ParamCount(b.Parameters) }
	case ColSize:
		return func(a, b *Row) bool { return SizeGB(a.FileSize) < SizeGB(b.FileSize) }
	case ColQuant:
		return func(a, b *Row) bool { return a.Quantization < b.Quantization }
	case ColVRAM:
		return func(a, b *Row) bool { return a.RequiredVRAM < b.RequiredVRAM }
	case ColGPUs:
		return func(a, b *Row) bool { return a.RequiredGPUs < b.RequiredGPUs }
	case ColStatus:
		return func(a, b *Row) bool { return a.Status.Rank() < b.Status.Rank() }
	default:
		return func(a, b *Row) bool { return a.FullModel < b.FullModel }
	}
}

var paramRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*([KMBT]?)`)

// ParamCount parses a parameter label ("494M", "7B", "1.5B") into a raw count. Unparseable input is 0.
func ParamCount(s string) float64 {
	m := paramRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		n *= 1e3
	case "M":
		n *= 1e6
	case "B":
		n *= 1e9
	case "T":
		n *= 1e12
	}
	return n
}

var mbRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*MB`)

// SizeGB parses a file size label into GB, accepting MB in addition to GB and TB. Unparseable input is 0.
func SizeGB(s string) float64 {
	if gb, ok := vram.ParseFileSizeGB(s); ok {
		return gb
	}
	if m := mbRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return n / 1024
		}
	}
	return 0
}
