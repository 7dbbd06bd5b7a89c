package gpu

import (
	"sync"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger receives adapter selection and pipeline messages.
var Logger logrus.FieldLogger = logrus.StandardLogger()

// Context holds the single WebGPU context for the process.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Limits   wgpu.SupportedLimits
}

var (
	ctx     Context
	once    sync.Once
	initErr error
)

// GetContext returns the singleton GPU context, initializing it on first use.
// A failed initialization is remembered and returned on every later call.
func GetContext() (*Context, error) {
	once.Do(func() {
		initErr = ctx.init()
	})
	if initErr != nil {
		return nil, initErr
	}
	return &ctx, nil
}

func (c *Context) init() error {
	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return errors.Wrap(ErrNoGPU, "create WebGPU instance")
	}

	for _, a := range c.Instance.EnumerateAdapters(nil) {
		info := a.GetInfo()
		Logger.WithFields(logrus.Fields{
			"name":   info.Name,
			"vendor": info.VendorName,
			"type":   info.AdapterType.String(),
		}).Debug("adapter found")
	}

	var lastErr error
	for _, opts := range []*wgpu.RequestAdapterOptions{
		{PowerPreference: wgpu.PowerPreferenceHighPerformance},
		{PowerPreference: wgpu.PowerPreferenceLowPower},
		nil,
	} {
		adapter, err := c.Instance.RequestAdapter(opts)
		if err == nil && adapter != nil {
			c.Adapter = adapter
			break
		}
		lastErr = err
		Logger.WithError(err).Debug("adapter request failed, falling back")
	}
	if c.Adapter == nil {
		return errors.Wrapf(ErrNoGPU, "all adapter attempts failed: %v", lastErr)
	}

	info := c.Adapter.GetInfo()
	Logger.WithFields(logrus.Fields{
		"name":    info.Name,
		"vendor":  info.VendorName,
		"backend": info.BackendType.String(),
	}).Info("using GPU adapter")

	device, err := c.Adapter.RequestDevice(nil)
	if err != nil {
		return errors.Wrapf(ErrNoGPU, "request device: %v", err)
	}
	c.Device = device
	c.Queue = device.GetQueue()
	if c.Queue == nil {
		return errors.Wrap(ErrNoGPU, "device has no queue")
	}
	c.Limits = c.Adapter.GetLimits()
	return nil
}

// Available reports whether a device could be brought up.
func Available() bool {
	_, err := GetContext()
	return err == nil
}
