package hardware

import (
	"errors"
	"runtime"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestParseWindowsGPUList(t *testing.T) {
	text := "NVIDIA GeForce RTX 4090|25769803776\nMicrosoft Basic Display|0\n\nAMD Radeon RX 7800|17179869184\n"
	gpus := parseWindowsGPUList(text)
	// Microsoft and empty lines skipped -> 2 GPUs
	if len(gpus) != 2 {
		t.Fatalf("parseWindowsGPUList len = %d, want 2", len(gpus))
	}
	if gpus[0].Name != "NVIDIA GeForce RTX 4090" || gpus[0].Backend != BackendCuda {
		t.Errorf("gpus[0] = %+v", gpus[0])
	}
	if gpus[1].Name != "AMD Radeon RX 7800" || gpus[1].Backend != BackendVulkan {
		t.Errorf("gpus[1] = %+v", gpus[1])
	}
}

func TestResolveWmiVRAM(t *testing.T) {
	// AdapterRAM capped at 4 GB but name known -> estimate
	if got := resolveWmiVRAM(4*1024*1024*1024, "NVIDIA GeForce RTX 4090"); got == nil || *got != 24 {
		t.Errorf("resolveWmiVRAM(4GB, RTX 4090) = %v, want 24", got)
	}
	if got := resolveWmiVRAM(32*1024*1024*1024, "Unknown GPU"); got == nil || *got != 32 {
		t.Errorf("resolveWmiVRAM(32GB, Unknown) = %v, want 32", got)
	}
	if got := resolveWmiVRAM(0, "Unknown GPU"); got != nil {
		t.Errorf("resolveWmiVRAM(0, Unknown) = %v, want nil", *got)
	}
}

func TestParseNvidiaSMI(t *testing.T) {
	text := "24564, NVIDIA GeForce RTX 4090\n24564, NVIDIA GeForce RTX 4090\n8192, NVIDIA GeForce RTX 3070\n\nbad line\n"
	gpus := parseNvidiaSMI(text)
	if len(gpus) != 2 {
		t.Fatalf("groups = %d, want 2", len(gpus))
	}
	if gpus[0].Count != 2 || gpus[0].VRAMGB == nil || *gpus[0].VRAMGB < 23.9 || *gpus[0].VRAMGB > 24 {
		t.Errorf("4090 group = %+v", gpus[0])
	}
	if gpus[1].Count != 1 || *gpus[1].VRAMGB != 8 {
		t.Errorf("3070 group = %+v", gpus[1])
	}
	// memory not reported -> name estimate
	est := parseNvidiaSMI("0, NVIDIA H100 PCIe\n")
	if len(est) != 1 || *est[0].VRAMGB != 80 {
		t.Errorf("H100 estimate = %+v", est)
	}
}

func TestParseROCm(t *testing.T) {
	mem := "GPU[0] : VRAM Total Memory (B): 25753026560\nGPU[0] : VRAM Total Used Memory (B): 1000\n" +
		"GPU[1] : VRAM Total Memory (B): 25753026560\n"
	g := parseROCmMemInfo(mem, "Radeon RX 7900 XTX")
	if g.Count != 2 || g.VRAMGB == nil {
		t.Fatalf("rocm = %+v", g)
	}
	if want := 25753026560.0 / gb; *g.VRAMGB != want {
		t.Errorf("per-card VRAM = %v, want %v", *g.VRAMGB, want)
	}
	if g := parseROCmMemInfo("", "Radeon RX 7900 XTX"); *g.VRAMGB != 24 || g.Count != 1 {
		t.Errorf("rocm estimate = %+v", g)
	}
	name := parseROCmProductName("GPU[0]\t\t: Card series:\t\tRadeon RX 7900 XTX\n")
	if name != "Radeon RX 7900 XTX" {
		t.Errorf("product name = %q", name)
	}
}

func TestParseLspciAMDName(t *testing.T) {
	text := "00:02.0 VGA compatible controller [0300]: Intel Corporation UHD Graphics\n" +
		"03:00.0 VGA compatible controller [0300]: Advanced Micro Devices, Inc. [AMD/ATI] Navi 31 [Radeon RX 7900 XTX]\n"
	if got := parseLspciAMDName(text); got != "Radeon RX 7900 XTX" {
		t.Errorf("parseLspciAMDName = %q", got)
	}
	if got := parseLspciAMDName("nothing here"); got != "" {
		t.Errorf("parseLspciAMDName(none) = %q", got)
	}
}

func TestPerGPUMemoryGB(t *testing.T) {
	s := &SystemSpecs{Gpus: []GpuInfo{
		{Name: "RTX 3070", VRAMGB: f(8), Count: 1},
		{Name: "RTX 4090", VRAMGB: f(24), Count: 4},
		{Name: "mystery", Count: 1},
	}}
	if got, ok := s.PerGPUMemoryGB(); !ok || got != 24 {
		t.Errorf("PerGPUMemoryGB = %v, %v, want 24 (largest single card, not the sum)", got, ok)
	}
	if s.GPUCount() != 6 {
		t.Errorf("GPUCount = %d, want 6", s.GPUCount())
	}
	if (&SystemSpecs{}).Primary() != nil {
		t.Error("Primary of empty specs should be nil")
	}
	if _, ok := (&SystemSpecs{Gpus: []GpuInfo{{Name: "x", Count: 1}}}).PerGPUMemoryGB(); ok {
		t.Error("PerGPUMemoryGB should report false without VRAM")
	}
}

func TestSortByVRAMAndString(t *testing.T) {
	gpus := []GpuInfo{{Name: "a", VRAMGB: f(8), Count: 1}, {Name: "b", Count: 1}, {Name: "c", VRAMGB: f(24), Count: 2}}
	sortByVRAM(gpus)
	if gpus[0].Name != "c" || gpus[2].Name != "b" {
		t.Errorf("order = %v", gpus)
	}
	if got := gpus[0].String(); got != "2x c (24.0 GB each)" {
		t.Errorf("String = %q", got)
	}
	if got := gpus[2].String(); got != "b (VRAM unknown)" {
		t.Errorf("String = %q", got)
	}
	if gpus[0].TotalVRAMGB() != 48 {
		t.Errorf("TotalVRAMGB = %v", gpus[0].TotalVRAMGB())
	}
}

func TestDetectAllGPUs_NoTools(t *testing.T) {
	orig := runCmd
	defer func() { runCmd = orig }()
	runCmd = func(name string, args ...string) ([]byte, error) {
		if name == "nvidia-smi" {
			return []byte("16384, Tesla T4\n"), nil
		}
		return nil, errors.New("not found")
	}
	gpus := detectAllGPUs(64, "Intel Xeon")
	if len(gpus) == 0 || gpus[0].Name != "Tesla T4" || *gpus[0].VRAMGB != 16 {
		t.Errorf("gpus = %+v", gpus)
	}
}

func TestInferGPUBackend(t *testing.T) {
	tests := []struct {
		name string
		want GpuBackend
	}{
		{"NVIDIA GeForce RTX 3080", BackendCuda},
		{"AMD Radeon RX 7900", BackendVulkan},
		{"Intel Arc A770", BackendSycl},
		{"Unknown GPU", BackendVulkan},
	}
	for _, tt := range tests {
		if got := inferGPUBackend(tt.name); got != tt.want {
			t.Errorf("inferGPUBackend(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEstimateVRAMFromName(t *testing.T) {
	tests := []struct {
		name string
		want float64
	}{
		{"NVIDIA GeForce RTX 4090", 24},
		{"RTX 4070 Ti", 12},
		{"NVIDIA H100 80GB HBM3", 80},
		{"A100", 80},
		{"AMD Radeon RX 7900 XTX", 24},
		{"RX 7800", 16},
		{"RTX 3060", 12},
		{"Unknown", 0},
	}
	for _, tt := range tests {
		if got := estimateVRAMFromName(tt.name); got != tt.want {
			t.Errorf("estimateVRAMFromName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackendCPU(t *testing.T) {
	if got := backendCPU("Apple M1 Pro"); got != BackendCpuArm {
		t.Errorf("backendCPU(Apple M1 Pro) = %v, want BackendCpuArm", got)
	}
	got := backendCPU("Intel Xeon")
	if runtime.GOARCH == "arm64" {
		if got != BackendCpuArm {
			t.Errorf("backendCPU(Intel Xeon) on arm64 = %v", got)
		}
	} else if got != BackendCpuX86 {
		t.Errorf("backendCPU(Intel Xeon) on %s = %v", runtime.GOARCH, got)
	}
	if BackendRocm.String() != "ROCm" || GpuBackend(99).String() != "CPU (x86)" {
		t.Error("GpuBackend.String mismatch")
	}
}
