//go:build !cuda

package hardware

// detectNVML needs the cuda build tag; without it nvidia-smi is used.
func detectNVML() []GpuInfo { return nil }
