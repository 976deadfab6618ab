//go:build !nogpu

// Package gpu computes splat depths with a wgpu/hal compute shader.
//
// The depth pass is the only part of a sort that touches every position
// with floating-point math, so it is the part worth moving to the GPU when
// the positions already live there. Ordering stays on the CPU: the depths
// are read back and handed to splatsort.Sorter.SortDepths.
//
// Usage with a shared device:
//
//	p, err := gpu.NewProjectorFromProvider(app.DeviceProvider())
//	if err != nil {
//	    // fall back to Sorter.Sort
//	}
//	defer p.Close()
//
//	s := splatsort.New()
//	err = p.Sort(s, positions, camera, order)
package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/splatsort"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

var (
	// ErrNilProvider is returned when a nil device provider is passed.
	ErrNilProvider = errors.New("splatsort/gpu: nil device provider")

	// ErrNoHAL is returned when a provider does not expose HAL types.
	ErrNoHAL = errors.New("splatsort/gpu: provider does not expose hal.Device and hal.Queue")

	// ErrNoAdapter is returned by Open when no GPU adapter is found.
	ErrNoAdapter = errors.New("splatsort/gpu: no GPU adapters found")

	// ErrClosed is returned when projecting with a closed Projector.
	ErrClosed = errors.New("splatsort/gpu: projector closed")
)

// waitTimeout bounds the fence wait of one projection.
const waitTimeout = 5 * time.Second

// Projector computes splat depths on the GPU.
//
// Buffers grow geometrically with the largest cloud seen and are reused
// across frames. A Projector serializes its own calls.
type Projector struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device, not destroyed on Close

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	metric splatsort.Metric
	axis   splatsort.Vec3

	// Frame resources, sized for capacity splats.
	capacity   int
	paramsBuf  hal.Buffer
	posBuf     hal.Buffer
	depthBuf   hal.Buffer
	stagingBuf hal.Buffer
	bindGroup  hal.BindGroup

	params   [paramsSize]byte
	upload   []byte
	readback []byte
	depths   []float32

	logger *slog.Logger
	closed bool
}

// NewProjector creates a Projector on an existing device and queue.
// The device is not destroyed by Close.
func NewProjector(device hal.Device, queue hal.Queue) (*Projector, error) {
	p := &Projector{
		device:   device,
		queue:    queue,
		external: true,
		axis:     splatsort.CanonicalForward,
	}
	if err := p.createPipeline(); err != nil {
		p.destroyPipeline()
		return nil, err
	}
	return p, nil
}

// NewProjectorFromProvider creates a Projector sharing the device of a
// gpucontext provider. The provider must also implement HalDevice() any
// and HalQueue() any returning hal.Device and hal.Queue.
func NewProjectorFromProvider(provider gpucontext.DeviceProvider) (*Projector, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return NewProjector(device, queue)
}

// Open creates a Projector on its own Vulkan device, preferring a discrete
// or integrated GPU.
func Open() (*Projector, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("splatsort/gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("splatsort/gpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("splatsort/gpu: open device: %w", err)
	}

	p, err := NewProjector(openDev.Device, openDev.Queue)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	p.instance = instance
	p.external = false
	p.log().Info("splatsort/gpu: projector opened", "adapter", selected.Info.Name)
	return p, nil
}

// SetLogger gives the projector its own logger. nil restores the
// splatsort package logger.
func (p *Projector) SetLogger(l *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

func (p *Projector) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return splatsort.Logger()
}

// SetMetric selects the depth metric. The default is MetricForward.
func (p *Projector) SetMetric(m splatsort.Metric) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metric = m
}

// SetForwardAxis sets the view direction of an unrotated camera.
// A zero axis is ignored.
func (p *Projector) SetForwardAxis(axis splatsort.Vec3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := axis.Normalize(); n != (splatsort.Vec3{}) {
		p.axis = n
	}
}

// Capacity returns the number of splats the GPU buffers hold.
func (p *Projector) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity
}

// Project writes the view depth of each position into depths[:len(positions)].
// It blocks until the GPU has finished and the results are read back.
func (p *Projector) Project(positions []splatsort.Position, cam splatsort.Camera, depths []float32) error {
	n := len(positions)
	if len(depths) < n {
		return &splatsort.PreconditionError{Op: "Project", VertexCount: n, Positions: n, Output: len(depths)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.project(positions, cam, depths)
}

func (p *Projector) project(positions []splatsort.Position, cam splatsort.Camera, depths []float32) error {
	n := len(positions)
	if p.closed {
		return ErrClosed
	}
	if n == 0 {
		return nil
	}
	if err := p.reserve(n); err != nil {
		return err
	}

	x, y, row := dispatchSize(n)
	forward := cam.Orientation.Rotate(p.axis)
	encodeParams(p.params[:], forward, cam.Position, p.metric, uint32(n), row) //nolint:gosec // splat counts fit uint32
	encodePositions(p.upload, positions)
	p.queue.WriteBuffer(p.paramsBuf, 0, p.params[:])
	p.queue.WriteBuffer(p.posBuf, 0, p.upload[:n*bytesPerPosition])

	size := uint64(n) * 4 //nolint:gosec // n > 0
	if err := p.dispatch(x, y, size); err != nil {
		return err
	}
	if err := p.queue.ReadBuffer(p.stagingBuf, 0, p.readback[:size]); err != nil {
		return fmt.Errorf("splatsort/gpu: readback: %w", err)
	}
	decodeDepths(depths[:n], p.readback)
	return nil
}

// Sort projects positions on the GPU and orders them with s.
// The depth metric and forward axis are the Projector's, not the Sorter's.
func (p *Projector) Sort(s *splatsort.Sorter, positions []splatsort.Position, cam splatsort.Camera, depthIndex []uint32) error {
	n := len(positions)
	if len(depthIndex) < n {
		return &splatsort.PreconditionError{Op: "Sort", VertexCount: n, Positions: n, Output: len(depthIndex)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cap(p.depths) < n {
		p.depths = make([]float32, n)
	}
	depths := p.depths[:n]
	if err := p.project(positions, cam, depths); err != nil {
		return err
	}
	s.SortDepths(depths, depthIndex)
	return nil
}

// Close releases all GPU resources. The device is destroyed only if the
// Projector opened it.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	p.destroyFrameResources()
	p.destroyPipeline()
	if !p.external {
		if p.device != nil {
			p.device.Destroy()
		}
		if p.instance != nil {
			p.instance.Destroy()
		}
	}
	p.device = nil
	p.queue = nil
	p.instance = nil
}

func (p *Projector) dispatch(x, y uint32, size uint64) error {
	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "splat_depth_encoder"})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("splat_depth"); err != nil {
		return fmt.Errorf("splatsort/gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "splat_depth_pass"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindGroup, nil)
	pass.Dispatch(x, y, 1)
	pass.End()

	encoder.CopyBufferToBuffer(p.depthBuf, p.stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("splatsort/gpu: end encoding: %w", err)
	}
	defer p.device.FreeCommandBuffer(cmdBuf)

	fence, err := p.device.CreateFence()
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create fence: %w", err)
	}
	defer p.device.DestroyFence(fence)

	if err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("splatsort/gpu: submit: %w", err)
	}
	ok, err := p.device.Wait(fence, 1, waitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("splatsort/gpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// reserve grows the frame buffers to hold n splats.
func (p *Projector) reserve(n int) error {
	if n <= p.capacity {
		return nil
	}
	newCap := max(n, 2*p.capacity)
	p.destroyFrameResources()

	posSize := uint64(newCap) * bytesPerPosition //nolint:gosec // newCap > 0
	depthSize := uint64(newCap) * 4              //nolint:gosec // newCap > 0

	var err error
	p.paramsBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "splat_depth_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create params buffer: %w", err)
	}
	p.posBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "splat_positions", Size: posSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create positions buffer: %w", err)
	}
	p.depthBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "splat_depths", Size: depthSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create depth buffer: %w", err)
	}
	p.stagingBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "splat_depth_staging", Size: depthSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create staging buffer: %w", err)
	}

	p.bindGroup, err = p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "splat_depth_bind", Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: p.paramsBuf.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: p.posBuf.NativeHandle(), Offset: 0, Size: posSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: p.depthBuf.NativeHandle(), Offset: 0, Size: depthSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create bind group: %w", err)
	}

	p.upload = make([]byte, newCap*bytesPerPosition)
	p.readback = make([]byte, newCap*4)
	p.log().Debug("splatsort/gpu: buffers grown", "from", p.capacity, "to", newCap)
	p.capacity = newCap
	return nil
}

func (p *Projector) destroyFrameResources() {
	if p.device == nil {
		return
	}
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	for _, b := range []*hal.Buffer{&p.paramsBuf, &p.posBuf, &p.depthBuf, &p.stagingBuf} {
		if *b != nil {
			p.device.DestroyBuffer(*b)
			*b = nil
		}
	}
	p.capacity = 0
}

func (p *Projector) createPipeline() error {
	code, err := CompileShaderToSPIRV(depthShaderSource)
	if err != nil {
		return fmt.Errorf("splatsort/gpu: %w", err)
	}
	p.shader, err = p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "splat_depth",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create shader module: %w", err)
	}

	p.bindLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "splat_depth_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create bind group layout: %w", err)
	}

	p.pipeLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "splat_depth_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create pipeline layout: %w", err)
	}

	p.pipeline, err = p.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "splat_depth_pipeline", Layout: p.pipeLayout,
		Compute: hal.ComputeState{Module: p.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("splatsort/gpu: create compute pipeline: %w", err)
	}
	return nil
}

func (p *Projector) destroyPipeline() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
