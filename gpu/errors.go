package gpu

import "github.com/pkg/errors"

// ErrNoGPU is wrapped by every failure to bring up an adapter or device.
// Callers fall back to the CPU path when errors.Is(err, ErrNoGPU).
var ErrNoGPU = errors.New("gpu unavailable")
