package gpu

import (
	"fmt"
	"sync"

	"github.com/openfluke/tonenet/nn"
	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FeedForward computes feed-forward weighted sums on the GPU. It implements
// nn.Accelerator. Sums are computed in float32.
type FeedForward struct {
	ctx       *Context
	workgroup uint32

	mu      sync.Mutex
	kernels map[int]*kernel // by input width
}

type kernel struct {
	pipeline       *wgpu.ComputePipeline
	pipelineLayout *wgpu.PipelineLayout
	layout         *wgpu.BindGroupLayout
}

func (k *kernel) release() {
	if k.pipeline != nil {
		k.pipeline.Release()
	}
	if k.pipelineLayout != nil {
		k.pipelineLayout.Release()
	}
	if k.layout != nil {
		k.layout.Release()
	}
}

var _ nn.Accelerator = (*FeedForward)(nil)

// NewFeedForward brings up the shared context and sizes workgroups from the
// adapter limits. The error wraps ErrNoGPU when no device is available.
func NewFeedForward() (*FeedForward, error) {
	c, err := GetContext()
	if err != nil {
		return nil, err
	}
	wg, _, _ := chooseWorkgroup(c.Limits)
	return &FeedForward{
		ctx:       c,
		workgroup: wg,
		kernels:   make(map[int]*kernel),
	}, nil
}

// WeightedSums returns biases[i] + Σ inputs[i][j]*weights[i][j] for every row.
func (f *FeedForward) WeightedSums(inputs, weights [][]float64, biases []float64) ([]float64, error) {
	rows := len(biases)
	if rows == 0 {
		return nil, nil
	}
	flatIn, flatW, width, err := packRows(inputs, weights, rows)
	if err != nil {
		return nil, err
	}

	k, err := f.kernelFor(width)
	if err != nil {
		return nil, err
	}

	c := f.ctx
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	inBuf, err := NewFloatBuffer(c, "ff_in", flatIn, storage)
	if err != nil {
		return nil, err
	}
	defer inBuf.Destroy()
	wBuf, err := NewFloatBuffer(c, "ff_weights", flatW, storage)
	if err != nil {
		return nil, err
	}
	defer wBuf.Destroy()
	bBuf, err := NewFloatBuffer(c, "ff_biases", toFloat32(biases), storage)
	if err != nil {
		return nil, err
	}
	defer bBuf.Destroy()
	outBuf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ff_out",
		Size:  uint64(rows * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create output buffer")
	}
	defer outBuf.Destroy()

	bind, err := c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ff_bind",
		Layout: k.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: inBuf, Size: inBuf.GetSize()},
			{Binding: 1, Buffer: wBuf, Size: wBuf.GetSize()},
			{Binding: 2, Buffer: bBuf, Size: bBuf.GetSize()},
			{Binding: 3, Buffer: outBuf, Size: outBuf.GetSize()},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create bind group")
	}
	defer bind.Release()

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create command encoder")
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bind, nil)
	pass.DispatchWorkgroups((uint32(rows)+f.workgroup-1)/f.workgroup, 1, 1)
	if err := pass.End(); err != nil {
		return nil, errors.Wrap(err, "end compute pass")
	}
	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, errors.Wrap(err, "finish dispatch")
	}
	c.Queue.Submit(cmd)

	raw, err := ReadBuffer(c, outBuf, rows)
	if err != nil {
		return nil, err
	}
	sums := make([]float64, rows)
	for i, v := range raw {
		sums[i] = float64(v)
	}
	return sums, nil
}

func (f *FeedForward) kernelFor(width int) (*kernel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.kernels[width]; ok {
		return k, nil
	}

	label := fmt.Sprintf("ff_w%d", width)
	Logger.WithFields(logrus.Fields{
		"width":     width,
		"workgroup": f.workgroup,
	}).Debug("compiling weighted sum kernel")

	d := f.ctx.Device
	module, err := d.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: weightedSumShader(width, f.workgroup)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "compile shader")
	}
	defer module.Release()

	layout, err := d.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: label + "_bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create bind group layout")
	}
	pipelineLayout, err := d.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	pipeline, err := d.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label + "_pipe",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		pipelineLayout.Release()
		layout.Release()
		return nil, errors.Wrap(err, "create pipeline")
	}

	k := &kernel{pipeline: pipeline, pipelineLayout: pipelineLayout, layout: layout}
	f.kernels[width] = k
	return k, nil
}

// Release frees every cached pipeline and its layouts. The shared context
// stays up; later calls recompile on demand.
func (f *FeedForward) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for width, k := range f.kernels {
		k.release()
		delete(f.kernels, width)
	}
}

// weightedSumShader emits one invocation per row; each row owns width
// consecutive inputs and weights.
func weightedSumShader(width int, workgroup uint32) string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read> weights : array<f32>;
		@group(0) @binding(2) var<storage, read> biases : array<f32>;
		@group(0) @binding(3) var<storage, read_write> output : array<f32>;

		@compute @workgroup_size(%d)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let row = gid.x;
			let n_in = %du;
			if (row >= arrayLength(&output)) {
				return;
			}

			var sum: f32 = biases[row];
			let offset = row * n_in;
			for (var i: u32 = 0u; i < n_in; i++) {
				sum += weights[offset + i] * input[offset + i];
			}
			output[row] = sum;
		}
	`, workgroup, width)
}

// packRows flattens per-row inputs and weights into float32 row-major buffers.
// Every row must share one width.
func packRows(inputs, weights [][]float64, rows int) ([]float32, []float32, int, error) {
	if len(inputs) != rows || len(weights) != rows {
		return nil, nil, 0, errors.Wrapf(nn.ErrInvalidArgument,
			"row count mismatch: %d inputs, %d weights, %d biases", len(inputs), len(weights), rows)
	}
	width := len(weights[0])
	if width == 0 {
		return nil, nil, 0, errors.Wrap(nn.ErrInvalidArgument, "rows have no weights")
	}

	flatIn := make([]float32, 0, rows*width)
	flatW := make([]float32, 0, rows*width)
	for i := 0; i < rows; i++ {
		if len(inputs[i]) != width || len(weights[i]) != width {
			return nil, nil, 0, errors.Wrapf(nn.ErrInvalidArgument,
				"row %d has %d inputs and %d weights, want %d", i, len(inputs[i]), len(weights[i]), width)
		}
		for j := 0; j < width; j++ {
			flatIn = append(flatIn, float32(inputs[i][j]))
			flatW = append(flatW, float32(weights[i][j]))
		}
	}
	return flatIn, flatW, width, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
