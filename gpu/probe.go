package gpu

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

// Report is a portable summary of the adapter backing the shared context.
type Report struct {
	WhenISO     string   `json:"when_iso"`
	Runtime     string   `json:"runtime"`
	Backend     string   `json:"backend"`
	AdapterType string   `json:"adapter_type"`
	VendorID    string   `json:"vendor_id_hex"`
	DeviceID    string   `json:"device_id_hex"`
	Name        string   `json:"name"`
	Driver      string   `json:"driver"`
	WorkgroupX  uint32   `json:"workgroup_x"`
	Limits      Limits   `json:"limits"`
	Features    []string `json:"features"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size"`
}

// Probe describes the adapter of the shared context.
func Probe() (*Report, error) {
	c, err := GetContext()
	if err != nil {
		return nil, err
	}

	info := c.Adapter.GetInfo()
	l := c.Limits.Limits
	var feats []string
	for _, f := range c.Adapter.EnumerateFeatures() {
		feats = append(feats, f.String())
	}
	wgX, _, _ := chooseWorkgroup(c.Limits)

	return &Report{
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Runtime:     detectRuntime(),
		Backend:     info.BackendType.String(),
		AdapterType: info.AdapterType.String(),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Driver:      strings.TrimSpace(info.DriverDescription),
		WorkgroupX:  wgX,
		Limits: Limits{
			MaxComputeInvocationsPerWorkgroup: l.MaxComputeInvocationsPerWorkgroup,
			MaxComputeWorkgroupSizeX:          l.MaxComputeWorkgroupSizeX,
			MaxComputeWorkgroupsPerDimension:  l.MaxComputeWorkgroupsPerDimension,
			MaxStorageBufferBindingSize:       l.MaxStorageBufferBindingSize,
			MaxBufferSize:                     l.MaxBufferSize,
		},
		Features: feats,
	}, nil
}

// ProbeJSON runs Probe and returns indented JSON.
func ProbeJSON() (string, error) {
	rep, err := Probe()
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// chooseWorkgroup picks the largest 1D workgroup the limits allow.
func chooseWorkgroup(l wgpu.SupportedLimits) (uint32, uint32, uint32) {
	maxX := l.Limits.MaxComputeWorkgroupSizeX
	maxTot := l.Limits.MaxComputeInvocationsPerWorkgroup

	for _, c := range []uint32{256, 128, 64, 32, 16, 8, 4, 1} {
		if c <= maxX && c <= maxTot {
			return c, 1, 1
		}
	}
	return 1, 1, 1
}

func detectRuntime() string {
	if runtime.GOOS == "js" {
		return "wasm"
	}
	return "native"
}
