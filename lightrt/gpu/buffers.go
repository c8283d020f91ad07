package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/gekko-lights/lightrt/core"
	"github.com/gekko3d/gekko-lights/lightrt/lightset"
)

// Buffer is the part of *wgpu.Buffer the light buffers need.
type Buffer interface {
	GetSize() uint64
	Release()
}

// Backend creates and writes storage buffers. DeviceBackend is the wgpu
// implementation.
type Backend interface {
	CreateBuffer(label string, size uint64) (Buffer, error)
	WriteBuffer(buf Buffer, data []byte)
}

// DeviceBackend allocates storage buffers on a wgpu device.
type DeviceBackend struct {
	Device *wgpu.Device
}

func (b DeviceBackend) CreateBuffer(label string, size uint64) (Buffer, error) {
	buf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b DeviceBackend) WriteBuffer(buf Buffer, data []byte) {
	b.Device.GetQueue().WriteBuffer(buf.(*wgpu.Buffer), 0, data)
}

// LightBuffers uploads packed light sets into two storage buffers, one per
// set. It implements lightset.UploadSink.
type LightBuffers struct {
	backend Backend
	label   string
	logger  core.Logger

	DirectionalBuf Buffer
	PointSpotBuf   Buffer

	// Generation changes whenever a buffer is recreated. Bind groups built
	// against an older generation must be rebuilt.
	Generation uint64

	scratch  []byte
	released bool
}

// NewLightBuffers returns light buffers whose labels start with label.
func NewLightBuffers(backend Backend, label string, logger core.Logger) *LightBuffers {
	return &LightBuffers{
		backend: backend,
		label:   label,
		logger:  core.OrNop(logger),
	}
}

func (b *LightBuffers) Upload(snap *lightset.Snapshot) error {
	if b.released {
		return fmt.Errorf("gpu: upload to released light buffers %q", b.label)
	}
	if err := b.write("directional", &b.DirectionalBuf, snap.Directional); err != nil {
		return err
	}
	return b.write("pointspot", &b.PointSpotBuf, snap.PointSpot)
}

func (b *LightBuffers) write(name string, buf *Buffer, set lightset.PackedSet) error {
	b.scratch = set.AppendBytes(b.scratch[:0])
	neededSize := uint64(len(b.scratch))
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
			*buf = nil
		}
		label := b.label + "/" + name
		newBuf, err := b.backend.CreateBuffer(label, neededSize)
		if err != nil {
			return fmt.Errorf("gpu: create %s (%d bytes): %w", label, neededSize, err)
		}
		*buf = newBuf
		b.Generation++
		b.logger.Debugf("gpu: allocated %s, %d bytes", label, neededSize)
	}
	b.backend.WriteBuffer(*buf, b.scratch)
	return nil
}

// Release frees both buffers. Later calls do nothing.
func (b *LightBuffers) Release() {
	if b.released {
		return
	}
	b.released = true
	for _, buf := range []*Buffer{&b.DirectionalBuf, &b.PointSpotBuf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
}

func (b *LightBuffers) Released() bool { return b.released }

// BindGroupEntries returns storage bindings for the directional and
// point/spot buffers at base and base+1. Both buffers must have been
// created by a DeviceBackend.
func (b *LightBuffers) BindGroupEntries(base uint32) []wgpu.BindGroupEntry {
	if b.DirectionalBuf == nil || b.PointSpotBuf == nil {
		return nil
	}
	return []wgpu.BindGroupEntry{
		{Binding: base, Buffer: b.DirectionalBuf.(*wgpu.Buffer), Size: wgpu.WholeSize},
		{Binding: base + 1, Buffer: b.PointSpotBuf.(*wgpu.Buffer), Size: wgpu.WholeSize},
	}
}
