//go:build !nogpu

// Package gpu registers the WebGPU compute accelerator for raster
// evaluation.
//
// Import this package to offload large elementwise and correlation tiles
// to the GPU. If GPU initialization fails (no Vulkan available, shader
// compilation error), registration is skipped with a warning and
// evaluation stays on the CPU.
//
// Usage:
//
//	import _ "github.com/rasterkit/rasterkit/gpu" // enable GPU acceleration
package gpu

import (
	"github.com/rasterkit/rasterkit"
	"github.com/rasterkit/rasterkit/backend/wgpu"
)

func init() {
	if err := rasterkit.RegisterAccelerator(wgpu.New()); err != nil {
		rasterkit.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider points the accelerator at a GPU device owned by the
// host application instead of the one it creates itself. The provider
// should be a gpucontext.DeviceProvider with direct HAL access.
//
// Call this before evaluating rasters, after the blank import has
// registered the accelerator.
func SetDeviceProvider(provider any) error {
	return rasterkit.SetAcceleratorDeviceProvider(provider)
}
