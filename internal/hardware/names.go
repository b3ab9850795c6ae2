package hardware

import "strings"

// vramByName maps GPU name fragments to typical VRAM in GB. Order matters: more specific
// fragments ("4070 ti") precede their prefixes ("4070").
var vramByName = []struct {
	frag string
	gb   float64
}{
	// NVIDIA RTX 50
	{"5090", 32}, {"5080", 16}, {"5070 ti", 16}, {"5070", 12}, {"5060 ti", 16}, {"5060", 8},
	// RTX 40
	{"4090", 24}, {"4080", 16}, {"4070 ti", 12}, {"4070", 12}, {"4060 ti", 16}, {"4060", 8},
	// RTX 30
	{"3090", 24}, {"3080 ti", 12}, {"3080", 10}, {"3070", 8}, {"3060 ti", 8}, {"3060", 12},
	// data center
	{"h200", 141}, {"h100", 80}, {"a100", 80}, {"l40", 48}, {"a6000", 48}, {"a10", 24}, {"t4", 16}, {"v100", 32},
	// AMD RX 9000/7000/6000/5000
	{"9070 xt", 16}, {"9070", 12}, {"7900 xtx", 24}, {"7900", 20}, {"7800", 16}, {"7700", 12}, {"7600", 8},
	{"6950", 16}, {"6900", 16}, {"6800", 16}, {"6750", 12}, {"6700", 12}, {"6650", 8}, {"6600", 8}, {"6500", 4},
	{"5700 xt", 8}, {"5700", 8}, {"5600", 6}, {"5500", 4},
	{"mi300", 192}, {"mi250", 128},
	// generic fallbacks
	{"rtx", 8}, {"gtx", 4}, {"rx ", 8}, {"radeon", 8},
}

// estimateVRAMFromName guesses per-card VRAM from the GPU name when the driver does not report it. 0 means unknown.
func estimateVRAMFromName(name string) float64 {
	l := strings.ToLower(name)
	for _, e := range vramByName {
		if strings.Contains(l, e.frag) {
			return e.gb
		}
	}
	return 0
}
