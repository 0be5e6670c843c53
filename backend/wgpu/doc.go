// Package wgpu implements the rasterkit compute accelerator on WebGPU.
//
// The accelerator brings up a headless adapter and device through the
// wgpu HAL, compiles the embedded WGSL map kernels to SPIR-V with naga,
// and builds compute pipelines for elementwise and correlation work.
// Hosts that already own a GPU device can share it through a
// gpucontext.DeviceProvider instead of letting the accelerator create
// its own.
//
// Users normally do not import this package directly; blank-importing
// rasterkit/gpu registers the accelerator:
//
//	import _ "github.com/rasterkit/rasterkit/gpu"
package wgpu
