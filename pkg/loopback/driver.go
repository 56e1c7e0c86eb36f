package loopback

import (
	"fmt"
	"log/slog"

	"github.com/bootchain/loopbackx/pkg/disk"
)

// DriverName is the device-class identifier advertised to the host disk
// framework.
const DriverName = "loopbackx"

// Driver adapts a Registry to the host disk-framework entry points.
type Driver struct {
	reg *Registry
}

// NewDriver creates the driver adapter over reg. The registry stays owned
// by the caller and must outlive the driver.
func NewDriver(reg *Registry) *Driver {
	return &Driver{reg: reg}
}

// Name implements disk.Driver.
func (d *Driver) Name() string { return DriverName }

// Iterate reports device names to the framework. Virtual devices have no
// pull or prefetch class, so only PullNone enumerates anything.
func (d *Driver) Iterate(pull disk.Pull, visitor func(name string) bool) bool {
	if pull != disk.PullNone {
		return false
	}
	return d.reg.Iterate(visitor)
}

// Open binds a handle to the named device, computing its geometry.
func (d *Driver) Open(name string) (*disk.Handle, error) {
	dev := d.reg.Find(name)
	if dev == nil {
		slog.Error("driver_open_unknown_device", "name", name)
		return nil, fmt.Errorf("%w: %s", disk.ErrUnknownDevice, name)
	}

	geo := dev.Geometry()
	slog.Info("driver_device_opened",
		"name", name,
		"device_id", dev.ID(),
		"total_sectors", geo.TotalSectors,
		"size_known", geo.SizeKnown())

	return &disk.Handle{
		Name:     name,
		ID:       dev.ID(),
		Geometry: geo,
		Record:   dev,
	}, nil
}

// Read fills buf with count sectors starting at sector, translating the
// request into chain-relative byte reads.
func (d *Driver) Read(h *disk.Handle, sector, count uint64, buf []byte) error {
	dev, ok := h.Record.(*Device)
	if !ok {
		return fmt.Errorf("%w: stale handle %s", disk.ErrUnknownDevice, h.Name)
	}
	return readChain(dev, sector<<disk.SectorBits, count<<disk.SectorBits, buf)
}

// Write rejects every request; chain devices are read-only, backing
// resources are immutable sources.
func (d *Driver) Write(h *disk.Handle, sector, count uint64, buf []byte) error {
	return disk.ErrWriteUnsupported
}
