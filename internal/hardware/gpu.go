package hardware

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

func detectAllGPUs(totalRAMGB float64, cpuName string) []GpuInfo {
	var gpus []GpuInfo
	nv := detectNVML()
	if len(nv) == 0 {
		nv = detectNvidiaSMI()
	}
	gpus = append(gpus, nv...)
	if amd := detectAMDROCM(); amd != nil {
		gpus = append(gpus, *amd)
	} else if amd := detectAMDSysfs(); amd != nil {
		gpus = append(gpus, *amd)
	}
	for _, w := range detectWindowsGPU() {
		if !hasSimilarName(gpus, w.Name) {
			gpus = append(gpus, w)
		}
	}
	if found, vramGB := detectIntelGPU(); found && !hasSimilarName(gpus, "intel") {
		gpus = append(gpus, GpuInfo{Name: "Intel Arc", VRAMGB: vramGB, Backend: BackendSycl, Count: 1, Source: "sysfs"})
	}
	if v := detectAppleGPU(totalRAMGB); v > 0 {
		name := "Apple Silicon"
		if strings.Contains(strings.ToLower(cpuName), "apple") {
			name = cpuName
		}
		gpus = append(gpus, GpuInfo{Name: name, VRAMGB: &v, Backend: BackendMetal, Count: 1, UnifiedMemory: true, Source: "system_profiler"})
	}
	return gpus
}

func hasSimilarName(gpus []GpuInfo, name string) bool {
	n := strings.ToLower(name)
	for _, g := range gpus {
		e := strings.ToLower(g.Name)
		if strings.Contains(e, n) || strings.Contains(n, e) {
			return true
		}
	}
	return false
}

// groupCards merges identical cards (same name and VRAM) into counted groups, keeping first-seen order.
func groupCards(cards []GpuInfo) []GpuInfo {
	var out []GpuInfo
	for _, c := range cards {
		merged := false
		for i := range out {
			if out[i].Name == c.Name && sameVRAM(out[i].VRAMGB, c.VRAMGB) {
				out[i].Count += c.Count
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, c)
		}
	}
	return out
}

func sameVRAM(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func detectNvidiaSMI() []GpuInfo {
	out, err := runCmd("nvidia-smi", "--query-gpu=memory.total,name", "--format=csv,noheader,nounits")
	if err != nil {
		return nil
	}
	return parseNvidiaSMI(string(out))
}

// parseNvidiaSMI reads "memory.total(MiB), name" lines, one card per line.
func parseNvidiaSMI(text string) []GpuInfo {
	var cards []GpuInfo
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		mb, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			continue
		}
		name := "NVIDIA GPU"
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			name = strings.TrimSpace(parts[1])
		}
		vramGB := mb / 1024
		if vramGB < 0.1 {
			vramGB = estimateVRAMFromName(name)
		}
		cards = append(cards, GpuInfo{Name: name, VRAMGB: positive(vramGB), Backend: BackendCuda, Count: 1, Source: "nvidia-smi"})
	}
	return groupCards(cards)
}

func positive(v float64) *float64 {
	if v > 0 {
		return &v
	}
	return nil
}

func detectAMDROCM() *GpuInfo {
	out, err := runCmd("rocm-smi", "--showmeminfo", "vram")
	if err != nil {
		return nil
	}
	name := "AMD GPU"
	if out2, err := runCmd("rocm-smi", "--showproductname"); err == nil {
		if n := parseROCmProductName(string(out2)); n != "" {
			name = n
		}
	}
	return parseROCmMemInfo(string(out), name)
}

// parseROCmMemInfo sums the "Total Memory" lines; the per-card VRAM is the total divided by the card count.
func parseROCmMemInfo(text, name string) *GpuInfo {
	var totalBytes uint64
	var count uint32
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		l := strings.ToLower(sc.Text())
		if !strings.Contains(l, "total") || strings.Contains(l, "used") {
			continue
		}
		fields := strings.Fields(sc.Text())
		for i := len(fields) - 1; i >= 0; i-- {
			if n, err := strconv.ParseUint(fields[i], 10, 64); err == nil && n > 0 {
				totalBytes += n
				count++
				break
			}
		}
	}
	if count == 0 {
		count = 1
	}
	perCard := float64(totalBytes) / float64(count) / float64(gb)
	if totalBytes == 0 {
		perCard = estimateVRAMFromName(name)
	}
	return &GpuInfo{Name: name, VRAMGB: positive(perCard), Backend: BackendRocm, Count: count, Source: "rocm-smi"}
}

func parseROCmProductName(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		l := strings.ToLower(sc.Text())
		if strings.Contains(l, "card series") || strings.Contains(l, "card model") {
			if idx := strings.LastIndex(sc.Text(), ":"); idx >= 0 {
				if n := strings.TrimSpace(sc.Text()[idx+1:]); n != "" {
					return n
				}
			}
		}
	}
	return ""
}

const drmRoot = "/sys/class/drm"

func readSysfsUint(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	return n, err == nil && n > 0
}

func detectAMDSysfs() *GpuInfo {
	if runtime.GOOS != "linux" {
		return nil
	}
	entries, err := os.ReadDir(drmRoot)
	if err != nil {
		return nil
	}
	var cards []GpuInfo
	for _, e := range entries {
		card := e.Name()
		if !strings.HasPrefix(card, "card") || strings.Contains(card, "-") {
			continue
		}
		vendor, _ := os.ReadFile(filepath.Join(drmRoot, card, "device/vendor"))
		if strings.TrimSpace(string(vendor)) != "0x1002" {
			continue
		}
		name := amdNameFromLspci()
		if name == "" {
			name = "AMD GPU"
		}
		var v float64
		if n, ok := readSysfsUint(filepath.Join(drmRoot, card, "device/mem_info_vram_total")); ok {
			v = float64(n) / float64(gb)
		} else {
			v = estimateVRAMFromName(name)
		}
		cards = append(cards, GpuInfo{Name: name, VRAMGB: positive(v), Backend: BackendVulkan, Count: 1, Source: "sysfs"})
	}
	if groups := groupCards(cards); len(groups) > 0 {
		sortByVRAM(groups)
		return &groups[0]
	}
	return nil
}

func amdNameFromLspci() string {
	out, err := runCmd("lspci")
	if err != nil {
		return ""
	}
	return parseLspciAMDName(string(out))
}

// parseLspciAMDName returns the bracketed marketing name of the first AMD display controller.
func parseLspciAMDName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		l := strings.ToLower(line)
		if !containsAny(l, "vga", "3d") || !containsAny(l, "amd", "ati technologies", "/ati]", "radeon") {
			continue
		}
		parts := strings.Split(line, "]:")
		if len(parts) < 2 {
			continue
		}
		desc := strings.TrimSpace(parts[len(parts)-1])
		if start := strings.LastIndex(desc, "["); start >= 0 {
			if end := strings.LastIndex(desc, "]"); end > start {
				return desc[start+1 : end]
			}
		}
		return desc
	}
	return ""
}

func detectWindowsGPU() []GpuInfo {
	if runtime.GOOS != "windows" {
		return nil
	}
	ps := `Get-CimInstance Win32_VideoController | Select-Object Name,AdapterRAM | ForEach-Object { $_.Name + '|' + $_.AdapterRAM }`
	out, err := runCmd("powershell", "-NoProfile", "-Command", ps)
	if err != nil {
		return nil
	}
	return parseWindowsGPUList(string(out))
}

func parseWindowsGPUList(text string) []GpuInfo {
	var cards []GpuInfo
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		name := strings.TrimSpace(parts[0])
		l := strings.ToLower(name)
		if l == "" || strings.Contains(l, "microsoft") || strings.Contains(l, "basic") || strings.Contains(l, "virtual") {
			continue
		}
		var raw uint64
		if len(parts) > 1 {
			raw, _ = strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		}
		cards = append(cards, GpuInfo{
			Name: name, VRAMGB: resolveWmiVRAM(raw, name), Backend: inferGPUBackend(name), Count: 1, Source: "cim",
		})
	}
	return groupCards(cards)
}

// resolveWmiVRAM prefers the name-based estimate when AdapterRAM is missing or capped at 4 GB (a 32-bit WMI field).
func resolveWmiVRAM(rawBytes uint64, name string) *float64 {
	v := float64(rawBytes) / float64(gb)
	est := estimateVRAMFromName(name)
	if (v < 0.1 || (v <= 4.1 && est > 4.1)) && est > 0 {
		v = est
	}
	return positive(v)
}

func inferGPUBackend(name string) GpuBackend {
	l := strings.ToLower(name)
	switch {
	case containsAny(l, "nvidia", "geforce", "quadro", "tesla", "rtx"):
		return BackendCuda
	case containsAny(l, "amd", "radeon", "ati"):
		return BackendVulkan
	case containsAny(l, "intel", "arc"):
		return BackendSycl
	}
	return BackendVulkan
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func detectIntelGPU() (found bool, vramGB *float64) {
	if runtime.GOOS != "linux" {
		return false, nil
	}
	entries, _ := os.ReadDir(drmRoot)
	for _, e := range entries {
		dev := filepath.Join(drmRoot, e.Name(), "device")
		vendor, _ := os.ReadFile(filepath.Join(dev, "vendor"))
		if strings.TrimSpace(string(vendor)) != "0x8086" {
			continue
		}
		if n, ok := readSysfsUint(filepath.Join(dev, "mem_info_vram_total")); ok {
			v := float64(n) / float64(gb)
			return true, &v
		}
	}
	if out, err := runCmd("lspci"); err == nil {
		for _, line := range strings.Split(strings.ToLower(string(out)), "\n") {
			if strings.Contains(line, "intel") && strings.Contains(line, "arc") {
				return true, nil
			}
		}
	}
	return false, nil
}

// detectAppleGPU reports the unified memory size on Apple Silicon, 0 elsewhere.
func detectAppleGPU(totalRAMGB float64) float64 {
	if runtime.GOOS != "darwin" {
		return 0
	}
	out, err := runCmd("system_profiler", "SPDisplaysDataType")
	if err != nil {
		return 0
	}
	if bytes.Contains(bytes.ToLower(out), []byte("apple m")) || bytes.Contains(bytes.ToLower(out), []byte("apple gpu")) {
		return totalRAMGB
	}
	return 0
}

var (
	wslOnce sync.Once
	wslVal  bool
)

// IsRunningInWSL reports whether the process runs under WSL.
func IsRunningInWSL() bool {
	wslOnce.Do(func() {
		if runtime.GOOS != "linux" {
			return
		}
		if os.Getenv("WSL_INTEROP") != "" || os.Getenv("WSL_DISTRO_NAME") != "" {
			wslVal = true
			return
		}
		for _, p := range []string{"/proc/sys/kernel/osrelease", "/proc/version"} {
			b, _ := os.ReadFile(p)
			if strings.Contains(strings.ToLower(string(b)), "microsoft") {
				wslVal = true
				return
			}
		}
	})
	return wslVal
}

// String is a one-line summary like "2x NVIDIA GeForce RTX 4090 (24.0 GB each)".
func (g GpuInfo) String() string {
	s := g.Name
	if g.Count > 1 {
		s = fmt.Sprintf("%dx %s", g.Count, g.Name)
	}
	if g.VRAMGB == nil {
		return s + " (VRAM unknown)"
	}
	if g.Count > 1 {
		return fmt.Sprintf("%s (%.1f GB each)", s, *g.VRAMGB)
	}
	return fmt.Sprintf("%s (%.1f GB)", s, *g.VRAMGB)
}
