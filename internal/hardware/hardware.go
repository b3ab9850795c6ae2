// Package hardware detects the machine's GPUs (and RAM/CPU for context) to seed the assumed GPU memory.
package hardware

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// GpuBackend is the acceleration backend a GPU exposes (CUDA, Metal, ROCm, ...).
type GpuBackend int

const (
	BackendCuda GpuBackend = iota
	BackendMetal
	BackendRocm
	BackendVulkan
	BackendSycl
	BackendCpuArm
	BackendCpuX86
)

var backendNames = [...]string{"CUDA", "Metal", "ROCm", "Vulkan", "SYCL", "CPU (ARM)", "CPU (x86)"}

func (b GpuBackend) String() string {
	if b < BackendCuda || b > BackendCpuX86 {
		return backendNames[BackendCpuX86]
	}
	return backendNames[b]
}

// MarshalText encodes the backend by name.
func (b GpuBackend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// GpuInfo is a group of identical GPUs. VRAMGB is the memory of ONE card.
type GpuInfo struct {
	Name          string     `json:"name"`
	VRAMGB        *float64   `json:"vram_gb,omitempty"`
	Backend       GpuBackend `json:"backend"`
	Count         uint32     `json:"count"`
	UnifiedMemory bool       `json:"unified_memory"`
	Source        string     `json:"source"`
}

// TotalVRAMGB is the memory of all cards in the group.
func (g GpuInfo) TotalVRAMGB() float64 {
	if g.VRAMGB == nil {
		return 0
	}
	return *g.VRAMGB * float64(g.Count)
}

// SystemSpecs is what Detect found.
type SystemSpecs struct {
	TotalRAMGB     float64    `json:"total_ram_gb"`
	AvailableRAMGB float64    `json:"available_ram_gb"`
	TotalCPUCores  int        `json:"cpu_cores"`
	CPUName        string     `json:"cpu_name"`
	HasGPU         bool       `json:"has_gpu"`
	Backend        GpuBackend `json:"backend"`
	Gpus           []GpuInfo  `json:"gpus"`
	WSL            bool       `json:"wsl"`
}

// PerGPUMemoryGB returns the VRAM of the largest single card, and false when no GPU reported memory.
// Models are classified against one card, so several GPUs are not added together.
func (s *SystemSpecs) PerGPUMemoryGB() (float64, bool) {
	best := 0.0
	for _, g := range s.Gpus {
		if g.VRAMGB != nil && *g.VRAMGB > best {
			best = *g.VRAMGB
		}
	}
	return best, best > 0
}

// GPUCount is the number of cards across all groups.
func (s *SystemSpecs) GPUCount() uint32 {
	var n uint32
	for _, g := range s.Gpus {
		n += g.Count
	}
	return n
}

// Primary returns the group with the largest card, or nil.
func (s *SystemSpecs) Primary() *GpuInfo {
	if len(s.Gpus) == 0 {
		return nil
	}
	return &s.Gpus[0]
}

const gb = 1024 * 1024 * 1024

// runCmd runs an external probe and returns its stdout. Tests replace it.
var runCmd = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Detect probes RAM, CPU and GPUs. GPU groups are sorted by per-card VRAM, largest first.
func Detect() (*SystemSpecs, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("mem: %w", err)
	}
	totalRAMGB := float64(v.Total) / float64(gb)
	availableRAMGB := float64(v.Available) / float64(gb)
	if v.Available == 0 && v.Total > 0 {
		availableRAMGB = totalRAMGB * 0.8
	}

	cpuName := "Unknown CPU"
	if infos, _ := cpu.Info(); len(infos) > 0 {
		cpuName = infos[0].ModelName
		if cpuName == "" {
			cpuName = infos[0].VendorID
		}
	}

	gpus := detectAllGPUs(totalRAMGB, cpuName)
	sortByVRAM(gpus)

	specs := &SystemSpecs{
		TotalRAMGB:     totalRAMGB,
		AvailableRAMGB: availableRAMGB,
		TotalCPUCores:  runtime.NumCPU(),
		CPUName:        cpuName,
		HasGPU:         len(gpus) > 0,
		Backend:        backendCPU(cpuName),
		Gpus:           gpus,
		WSL:            IsRunningInWSL(),
	}
	if p := specs.Primary(); p != nil {
		specs.Backend = p.Backend
	}
	return specs, nil
}

func sortByVRAM(gpus []GpuInfo) {
	vram := func(g GpuInfo) float64 {
		if g.VRAMGB == nil {
			return 0
		}
		return *g.VRAMGB
	}
	sort.SliceStable(gpus, func(i, j int) bool { return vram(gpus[i]) > vram(gpus[j]) })
}

func backendCPU(cpuName string) GpuBackend {
	if strings.Contains(strings.ToLower(cpuName), "apple") || runtime.GOARCH == "arm64" {
		return BackendCpuArm
	}
	return BackendCpuX86
}
