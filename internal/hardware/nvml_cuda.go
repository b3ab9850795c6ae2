//go:build cuda

package hardware

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/rs/zerolog/log"
)

// detectNVML enumerates NVIDIA cards through libnvidia-ml. Returns nil when NVML is unavailable.
func detectNVML() []GpuInfo {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		log.Debug().Str("nvml", nvml.ErrorString(ret)).Msg("NVML unavailable, falling back to nvidia-smi")
		return nil
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil
	}
	var cards []GpuInfo
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS || name == "" {
			name = "NVIDIA GPU"
		}
		var v float64
		if memInfo, ret := dev.GetMemoryInfo(); ret == nvml.SUCCESS {
			v = float64(memInfo.Total) / float64(gb)
		} else {
			v = estimateVRAMFromName(name)
		}
		cards = append(cards, GpuInfo{Name: name, VRAMGB: positive(v), Backend: BackendCuda, Count: 1, Source: "nvml"})
	}
	return groupCards(cards)
}
