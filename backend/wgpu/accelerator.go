//go:build !nogpu

package wgpu

import (
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/rasterkit/rasterkit"
)

//go:embed shaders/map.wgsl
var mapShaderWGSL string

// Capabilities reports what the selected GPU offers the accelerator.
type Capabilities struct {
	// DeviceName is the adapter name (e.g., "NVIDIA GeForce RTX 3080").
	DeviceName string

	// DeviceType distinguishes discrete, integrated and software adapters.
	DeviceType gputypes.DeviceType

	// Backend is the graphics API in use.
	Backend gputypes.Backend

	// StorageFormat is the texture format plane uploads would use.
	StorageFormat gputypes.TextureFormat
}

// Accelerator is a rasterkit.Accelerator backed by WebGPU compute
// pipelines. Zero value is not usable; construct with New and register
// through rasterkit.RegisterAccelerator (normally via the gpu package).
//
// HAL buffer mapping is not complete yet, so dispatch currently runs a CPU
// mirror of the shader algorithm against the compiled pipelines. The
// pipelines themselves are real: shader compilation or device bring-up
// failures surface from Init and leave the library CPU-only.
type Accelerator struct {
	mu sync.Mutex

	log *slog.Logger

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shaderModule      hal.ShaderModule
	bindLayout        hal.BindGroupLayout
	pipelineLayout    hal.PipelineLayout
	binaryPipeline    hal.ComputePipeline
	unaryPipeline     hal.ComputePipeline
	correlatePipeline hal.ComputePipeline

	spirv []uint32
	caps  Capabilities

	// external marks a device adopted from a host provider; external
	// devices are not destroyed on Close.
	external bool
	ready    bool
}

// halAccess is the provider-side interface for direct HAL device sharing.
type halAccess interface {
	HalDevice() hal.Device
	HalQueue() hal.Queue
}

// New returns an unregistered accelerator. Init is called by
// rasterkit.RegisterAccelerator.
func New() *Accelerator {
	return &Accelerator{log: rasterkit.Logger()}
}

// Name returns the accelerator identifier.
func (a *Accelerator) Name() string { return "wgpu" }

// SetLogger replaces the accelerator's logger. rasterkit.SetLogger
// propagates here automatically.
func (a *Accelerator) SetLogger(l *slog.Logger) {
	a.mu.Lock()
	a.log = l
	a.mu.Unlock()
}

// SetDeviceProvider adopts a GPU device owned by the host application. The
// provider must be a gpucontext.DeviceProvider exposing direct HAL access;
// call this before registering the accelerator or re-run Init afterwards.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	if _, ok := provider.(gpucontext.DeviceProvider); !ok {
		return fmt.Errorf("wgpu: provider %T is not a gpucontext.DeviceProvider", provider)
	}
	ha, ok := provider.(halAccess)
	if !ok || ha.HalDevice() == nil {
		return fmt.Errorf("wgpu: provider %T does not expose HAL device access", provider)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
	a.device = ha.HalDevice()
	a.queue = ha.HalQueue()
	a.external = true
	a.ready = false
	return nil
}

// Init compiles the map kernels, brings up a device when none was adopted
// and builds the compute pipelines. Init is idempotent.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}

	if err := a.compileShader(); err != nil {
		return err
	}
	if a.device == nil {
		if err := a.openDevice(); err != nil {
			return err
		}
	}
	if err := a.createPipelines(); err != nil {
		a.releaseLocked()
		return err
	}
	a.ready = true
	a.log.Debug("wgpu accelerator ready",
		"device", a.caps.DeviceName, "type", a.caps.DeviceType)
	return nil
}

// Close releases pipelines and, for devices the accelerator created
// itself, the device.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

// Capabilities returns the selected device's capability report. Only valid
// after a successful Init.
func (a *Accelerator) Capabilities() Capabilities {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.caps
}

// compileShader runs naga over the embedded WGSL and caches the SPIR-V
// words.
func (a *Accelerator) compileShader() error {
	if a.spirv != nil {
		return nil
	}
	spirvBytes, err := naga.Compile(mapShaderWGSL)
	if err != nil {
		return fmt.Errorf("wgpu: compile map shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	a.spirv = words
	return nil
}

// openDevice brings up a headless adapter and device, preferring real GPUs
// over software adapters.
func (a *Accelerator) openDevice() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	a.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("wgpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	a.caps = Capabilities{
		DeviceName:    selected.Info.Name,
		DeviceType:    selected.Info.DeviceType,
		Backend:       gputypes.BackendVulkan,
		StorageFormat: gputypes.TextureFormatR32Float,
	}
	return nil
}

// createPipelines builds the shared bind layout and the three compute
// pipelines from the cached SPIR-V.
func (a *Accelerator) createPipelines() error {
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "rasterkit_map",
		Source: hal.ShaderSource{SPIRV: a.spirv},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module: %w", err)
	}
	a.shaderModule = module

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "rasterkit_map_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	a.bindLayout = bindLayout

	pipelineLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rasterkit_map_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	a.pipelineLayout = pipelineLayout

	entries := []struct {
		entry string
		dst   *hal.ComputePipeline
	}{
		{"cs_map_binary", &a.binaryPipeline},
		{"cs_map_unary", &a.unaryPipeline},
		{"cs_correlate", &a.correlatePipeline},
	}
	for _, e := range entries {
		p, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  "rasterkit_" + e.entry,
			Layout: a.pipelineLayout,
			Compute: hal.ComputeState{
				Module:     a.shaderModule,
				EntryPoint: e.entry,
			},
		})
		if err != nil {
			return fmt.Errorf("wgpu: create %s pipeline: %w", e.entry, err)
		}
		*e.dst = p
	}
	return nil
}

// releaseLocked destroys pipelines and owned devices. Caller holds a.mu.
func (a *Accelerator) releaseLocked() {
	if a.device != nil {
		if a.binaryPipeline != nil {
			a.device.DestroyComputePipeline(a.binaryPipeline)
			a.binaryPipeline = nil
		}
		if a.unaryPipeline != nil {
			a.device.DestroyComputePipeline(a.unaryPipeline)
			a.unaryPipeline = nil
		}
		if a.correlatePipeline != nil {
			a.device.DestroyComputePipeline(a.correlatePipeline)
			a.correlatePipeline = nil
		}
		if a.pipelineLayout != nil {
			a.device.DestroyPipelineLayout(a.pipelineLayout)
			a.pipelineLayout = nil
		}
		if a.bindLayout != nil {
			a.device.DestroyBindGroupLayout(a.bindLayout)
			a.bindLayout = nil
		}
		if a.shaderModule != nil {
			a.device.DestroyShaderModule(a.shaderModule)
			a.shaderModule = nil
		}
		if !a.external {
			a.device.Destroy()
		}
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	a.device = nil
	a.queue = nil
	a.external = false
	a.ready = false
}

func (a *Accelerator) isReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

// MapBinary applies an elementwise binary kernel. len(y) == 1 broadcasts a
// single value across x.
//
// Until HAL buffer mapping lands, this evaluates the shader algorithm on
// the CPU in float64. The GPU dispatch path will use the f32 pipelines
// built during Init.
func (a *Accelerator) MapBinary(op rasterkit.BinaryOp, dst, x, y []float64) error {
	if !a.isReady() {
		return rasterkit.ErrAcceleratorFallback
	}
	if len(dst) != len(x) {
		return fmt.Errorf("wgpu: MapBinary dst holds %d values, want %d", len(dst), len(x))
	}
	if len(y) != 1 && len(y) != len(x) {
		return fmt.Errorf("wgpu: MapBinary operand holds %d values, want 1 or %d", len(y), len(x))
	}
	at := func(i int) float64 { return y[i] }
	if len(y) == 1 {
		s := y[0]
		at = func(int) float64 { return s }
	}
	switch op {
	case rasterkit.BinAdd:
		for i, v := range x {
			dst[i] = v + at(i)
		}
	case rasterkit.BinSub:
		for i, v := range x {
			dst[i] = v - at(i)
		}
	case rasterkit.BinMul:
		for i, v := range x {
			dst[i] = v * at(i)
		}
	case rasterkit.BinDiv:
		for i, v := range x {
			dst[i] = v / at(i)
		}
	case rasterkit.BinPow:
		for i, v := range x {
			dst[i] = math.Pow(v, at(i))
		}
	case rasterkit.BinMin:
		for i, v := range x {
			dst[i] = math.Min(v, at(i))
		}
	case rasterkit.BinMax:
		for i, v := range x {
			dst[i] = math.Max(v, at(i))
		}
	default:
		return rasterkit.ErrAcceleratorFallback
	}
	return nil
}

// MapUnary applies an elementwise unary kernel.
func (a *Accelerator) MapUnary(op rasterkit.UnaryOp, dst, x []float64) error {
	if !a.isReady() {
		return rasterkit.ErrAcceleratorFallback
	}
	if len(dst) != len(x) {
		return fmt.Errorf("wgpu: MapUnary dst holds %d values, want %d", len(dst), len(x))
	}
	switch op {
	case rasterkit.UnNeg:
		for i, v := range x {
			dst[i] = -v
		}
	case rasterkit.UnAbs:
		for i, v := range x {
			dst[i] = math.Abs(v)
		}
	case rasterkit.UnSqrt:
		for i, v := range x {
			dst[i] = math.Sqrt(v)
		}
	case rasterkit.UnExp:
		for i, v := range x {
			dst[i] = math.Exp(v)
		}
	case rasterkit.UnLog:
		for i, v := range x {
			dst[i] = math.Log(v)
		}
	case rasterkit.UnLog10:
		for i, v := range x {
			dst[i] = math.Log10(v)
		}
	case rasterkit.UnFloor:
		for i, v := range x {
			dst[i] = math.Floor(v)
		}
	case rasterkit.UnCeil:
		for i, v := range x {
			dst[i] = math.Ceil(v)
		}
	default:
		return rasterkit.ErrAcceleratorFallback
	}
	return nil
}

// Correlate2D cross-correlates a padded plane with a kernel. data holds
// (rows+krows-1) x (cols+kcols-1) values; dst receives rows x cols sums.
func (a *Accelerator) Correlate2D(dst, data []float64, rows, cols int, weights []float64, krows, kcols int) error {
	if !a.isReady() {
		return rasterkit.ErrAcceleratorFallback
	}
	paddedCols := cols + kcols - 1
	paddedRows := rows + krows - 1
	if len(data) != paddedRows*paddedCols {
		return fmt.Errorf("wgpu: Correlate2D plane holds %d values, want %d", len(data), paddedRows*paddedCols)
	}
	if len(dst) != rows*cols {
		return fmt.Errorf("wgpu: Correlate2D dst holds %d values, want %d", len(dst), rows*cols)
	}
	if len(weights) != krows*kcols {
		return fmt.Errorf("wgpu: Correlate2D kernel holds %d weights, want %d", len(weights), krows*kcols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			acc := 0.0
			for kr := 0; kr < krows; kr++ {
				row := data[(r+kr)*paddedCols+c:]
				wrow := weights[kr*kcols:]
				for kc := 0; kc < kcols; kc++ {
					acc += row[kc] * wrow[kc]
				}
			}
			dst[r*cols+c] = acc
		}
	}
	return nil
}

// SPIRVCode returns the compiled SPIR-V words. Nil before Init.
func (a *Accelerator) SPIRVCode() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.spirv
}

var _ rasterkit.Accelerator = (*Accelerator)(nil)
var _ rasterkit.DeviceProviderAware = (*Accelerator)(nil)
