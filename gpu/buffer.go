package gpu

import (
	"time"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
)

// readTimeout bounds how long ReadBuffer polls for a mapping.
const readTimeout = 2 * time.Second

// NewFloatBuffer creates a buffer initialised with data.
func NewFloatBuffer(c *Context, label string, data []float32, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: wgpu.ToBytes(data),
		Usage:    usage,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create buffer %s", label)
	}
	return buf, nil
}

// ReadBuffer copies size floats out of buffer through a mappable staging buffer.
func ReadBuffer(c *Context, buffer *wgpu.Buffer, size int) ([]float32, error) {
	sizeBytes := uint64(size * 4)
	staging, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadStaging",
		Size:  sizeBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}
	defer staging.Destroy()

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create command encoder")
	}
	encoder.CopyBufferToBuffer(buffer, 0, staging, 0, sizeBytes)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, errors.Wrap(err, "finish copy")
	}
	c.Queue.Submit(cmd)

	done := make(chan struct{})
	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, sizeBytes, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = errors.Errorf("map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return nil, errors.Wrap(err, "map staging buffer")
	}

	timeout := time.After(readTimeout)
Loop:
	for {
		c.Device.Poll(false, nil)
		select {
		case <-done:
			break Loop
		case <-timeout:
			return nil, errors.Errorf("read buffer timed out after %s", readTimeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return nil, mapErr
	}

	data := staging.GetMappedRange(0, uint(sizeBytes))
	if data == nil {
		return nil, errors.New("mapped range is nil")
	}
	out := make([]float32, size)
	copy(out, wgpu.FromBytes[float32](data))
	staging.Unmap()
	return out, nil
}
