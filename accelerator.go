package rasterkit

import (
	"errors"
	"sync"
)

// ErrAcceleratorFallback indicates the accelerator cannot handle this tile.
// The caller should transparently fall back to CPU evaluation.
var ErrAcceleratorFallback = errors.New("rasterkit: falling back to CPU evaluation")

// BinaryOp identifies an elementwise binary kernel for accelerator dispatch.
type BinaryOp uint8

const (
	// BinAdd is elementwise addition.
	BinAdd BinaryOp = iota

	// BinSub is elementwise subtraction.
	BinSub

	// BinMul is elementwise multiplication.
	BinMul

	// BinDiv is elementwise true division.
	BinDiv

	// BinPow is elementwise exponentiation.
	BinPow

	// BinMin is the elementwise minimum.
	BinMin

	// BinMax is the elementwise maximum.
	BinMax
)

// UnaryOp identifies an elementwise unary kernel for accelerator dispatch.
type UnaryOp uint8

const (
	// UnNeg is elementwise negation.
	UnNeg UnaryOp = iota

	// UnAbs is the elementwise absolute value.
	UnAbs

	// UnSqrt is the elementwise square root.
	UnSqrt

	// UnExp is the elementwise natural exponential.
	UnExp

	// UnLog is the elementwise natural logarithm.
	UnLog

	// UnLog10 is the elementwise base-10 logarithm.
	UnLog10

	// UnFloor is the elementwise floor.
	UnFloor

	// UnCeil is the elementwise ceiling.
	UnCeil
)

// Accelerator is an optional compute acceleration provider.
//
// When registered via RegisterAccelerator, tile evaluation tries the
// accelerator first for supported kernels on large tiles. If the accelerator
// returns ErrAcceleratorFallback or any error, evaluation transparently falls
// back to the CPU path.
//
// Implementations should be provided by backend packages (e.g. rasterkit/gpu).
// Users opt in to acceleration via blank import:
//
//	import _ "github.com/rasterkit/rasterkit/gpu" // enables GPU acceleration
type Accelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes accelerator resources. Called once during registration.
	Init() error

	// Close releases accelerator resources.
	Close()

	// MapBinary applies op elementwise: dst[i] = op(a[i], b[i]).
	// When len(b) == 1 the single value broadcasts across a.
	// Returns ErrAcceleratorFallback if the kernel is not supported.
	MapBinary(op BinaryOp, dst, a, b []float64) error

	// MapUnary applies op elementwise: dst[i] = op(a[i]).
	// Returns ErrAcceleratorFallback if the kernel is not supported.
	MapUnary(op UnaryOp, dst, a []float64) error

	// Correlate2D cross-correlates a padded plane with a kernel. data holds
	// (rows+krows-1) x (cols+kcols-1) values; dst receives rows x cols
	// results, dst[r*cols+c] = sum over the kernel anchored at (r, c).
	// Returns ErrAcceleratorFallback if the kernel is not supported.
	Correlate2D(dst, data []float64, rows, cols int, weights []float64, krows, kcols int) error
}

// DeviceProviderAware is an optional interface for accelerators that can share
// GPU resources with an external provider (e.g., a host application that
// already owns a device). When SetDeviceProvider is called, the accelerator
// reuses the provided device instead of creating its own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a compute accelerator for optional
// accelerated tile evaluation.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one. The accelerator's Init() method is called during
// registration. If Init() fails, the accelerator is not registered and the
// error is returned.
//
// Typical usage via blank import in backend packages:
//
//	func init() {
//	    rasterkit.RegisterAccelerator(NewWGPUAccelerator())
//	}
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("rasterkit: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	Logger().Info("accelerator registered", "name", a.Name())
	if old != nil {
		old.Close()
	}
	return nil
}

// RegisteredAccelerator returns the currently registered accelerator, or nil
// if none.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator, enabling GPU device sharing. If no accelerator is registered
// or it doesn't support device sharing, this is a no-op.
func SetAcceleratorDeviceProvider(provider any) error {
	a := RegisteredAccelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// accelMinCells is the tile size below which the accelerator is skipped.
// Dispatch overhead dominates small tiles.
const accelMinCells = 64 * 64

// tryAccelBinary runs a binary kernel on the registered accelerator.
// Returns false when no accelerator is registered, the tile is too small,
// or the accelerator declines; the caller then uses the CPU path.
func tryAccelBinary(op BinaryOp, dst, a, b []float64) bool {
	acc := RegisteredAccelerator()
	if acc == nil || len(a) < accelMinCells {
		return false
	}
	if err := acc.MapBinary(op, dst, a, b); err != nil {
		if !errors.Is(err, ErrAcceleratorFallback) {
			Logger().Debug("accelerator MapBinary failed, using CPU", "name", acc.Name(), "err", err)
		}
		return false
	}
	return true
}

// tryAccelUnary runs a unary kernel on the registered accelerator.
func tryAccelUnary(op UnaryOp, dst, a []float64) bool {
	acc := RegisteredAccelerator()
	if acc == nil || len(a) < accelMinCells {
		return false
	}
	if err := acc.MapUnary(op, dst, a); err != nil {
		if !errors.Is(err, ErrAcceleratorFallback) {
			Logger().Debug("accelerator MapUnary failed, using CPU", "name", acc.Name(), "err", err)
		}
		return false
	}
	return true
}

// tryAccelCorrelate runs a correlation kernel on the registered accelerator.
func tryAccelCorrelate(dst, data []float64, rows, cols int, weights []float64, krows, kcols int) bool {
	acc := RegisteredAccelerator()
	if acc == nil || rows*cols < accelMinCells {
		return false
	}
	if err := acc.Correlate2D(dst, data, rows, cols, weights, krows, kcols); err != nil {
		if !errors.Is(err, ErrAcceleratorFallback) {
			Logger().Debug("accelerator Correlate2D failed, using CPU", "name", acc.Name(), "err", err)
		}
		return false
	}
	return true
}
