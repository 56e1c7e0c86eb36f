// Package loopback implements chained virtual disk devices: an ordered
// chain of up to four backing resources presented as a single contiguous,
// read-only, sector-addressed disk.
package loopback

import (
	"github.com/bootchain/loopbackx/pkg/disk"
	"github.com/bootchain/loopbackx/pkg/resource"
)

// MaxChainResources bounds the number of backing resources per device.
const MaxChainResources = 4

// Device is one virtual disk: its name, ordered backing resources, and
// identity. A device is owned exclusively by the registry that created it.
type Device struct {
	name      string
	id        uint64
	resources [MaxChainResources]resource.Resource
	nres      int
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// ID returns the device identity assigned at creation. IDs increase
// monotonically and are never reused, even after deletion.
func (d *Device) ID() uint64 { return d.id }

// Resources returns the chain in order.
func (d *Device) Resources() []resource.Resource {
	return d.resources[:d.nres]
}

// Sources returns the names the chain resources were opened with.
func (d *Device) Sources() []string {
	names := make([]string, 0, d.nres)
	for _, r := range d.resources[:d.nres] {
		names = append(names, r.Name())
	}
	return names
}

// Geometry derives the aggregate sector count and transfer cap from the
// chain. One unknown-size resource makes the whole size unknown; otherwise
// the byte sum is rounded up to whole sectors.
func (d *Device) Geometry() disk.Geometry {
	g := disk.Geometry{MaxTransferSectors: disk.MaxTransferSectors}

	var total uint64
	for _, r := range d.resources[:d.nres] {
		size := r.Size()
		if size == resource.SizeUnknown {
			g.TotalSectors = disk.TotalSectorsUnknown
			return g
		}
		total += uint64(size)
	}

	g.TotalSectors = disk.CeilSectors(total)
	return g
}

// closeAll closes every resource in order. Each resource is closed exactly
// once; the chain is emptied so a second call is a no-op.
func (d *Device) closeAll() error {
	var firstErr error
	for i := 0; i < d.nres; i++ {
		if err := d.resources[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.resources[i] = nil
	}
	d.nres = 0
	return firstErr
}
