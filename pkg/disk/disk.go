// Package disk defines the host disk-framework surface that polymorphic
// disk drivers plug into: sector addressing constants, derived geometry,
// device enumeration classes, and the driver entry points.
package disk

import "errors"

const (
	// SectorBits is log2 of the sector size.
	SectorBits = 9
	// SectorSize is the fixed addressing unit, in bytes.
	SectorSize = 1 << SectorBits
	// CacheBits is log2 of the host cache granularity, in sectors.
	CacheBits = 6

	// MaxTransferSectors caps any single aggregated transfer at 512 MiB
	// worth of sectors, bounding worst-case buffering.
	MaxTransferSectors = 1 << (29 - SectorBits - CacheBits)
)

// TotalSectorsUnknown marks a device whose aggregate size cannot be
// determined, because at least one backing resource has unknown size.
const TotalSectorsUnknown = ^uint64(0)

var (
	// ErrUnknownDevice is returned by Open for a name no driver knows.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrWriteUnsupported is returned by read-only drivers for any write.
	ErrWriteUnsupported = errors.New("write is not supported")
)

// Pull selects a device enumeration class. Drivers whose devices need no
// prefetch or resurrection report them only for PullNone.
type Pull int

const (
	PullNone Pull = iota
	PullRemovable
	PullResurrect
)

// Geometry is the derived sector count and transfer cap advertised for an
// open device. It is recomputed at open time, never stored.
type Geometry struct {
	// TotalSectors is the aggregate sector count, or TotalSectorsUnknown.
	TotalSectors uint64

	// MaxTransferSectors bounds a single transfer, in sectors.
	MaxTransferSectors uint64
}

// SizeKnown reports whether the geometry carries a concrete sector count.
func (g Geometry) SizeKnown() bool {
	return g.TotalSectors != TotalSectorsUnknown
}

// Handle binds an open device to its driver state.
type Handle struct {
	Name     string
	ID       uint64
	Geometry Geometry

	// Record is driver-private state attached at open time.
	Record any
}

// Driver is the set of entry points a disk driver exposes to the host
// framework.
type Driver interface {
	// Name returns the device-class identifier.
	Name() string

	// Iterate calls visitor with every device name in the given pull
	// class, stopping early if the visitor returns true. It reports
	// whether a visitor stopped the iteration.
	Iterate(pull Pull, visitor func(name string) bool) bool

	// Open binds a handle to the named device, computing its geometry.
	Open(name string) (*Handle, error)

	// Read fills buf with count sectors starting at sector.
	Read(h *Handle, sector, count uint64, buf []byte) error

	// Write stores count sectors starting at sector.
	Write(h *Handle, sector, count uint64, buf []byte) error
}

// CeilSectors converts a byte count to the number of whole sectors needed
// to hold it.
func CeilSectors(bytes uint64) uint64 {
	return (bytes + SectorSize - 1) / SectorSize
}
