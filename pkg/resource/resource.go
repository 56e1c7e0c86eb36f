// Package resource provides the backing-resource abstraction for chained
// virtual disks: an opaque, read-only byte source with a possibly-unknown
// size. Resources are opened by name through Open and are owned by exactly
// one device record after attachment.
package resource

import "io"

// SizeUnknown is returned by Size when the byte length of a resource
// cannot be determined up front (for example a decompressing stream).
const SizeUnknown int64 = -1

// Resource is an opaque readable byte range.
type Resource interface {
	io.ReaderAt

	// Size returns the byte length of the resource, or SizeUnknown.
	Size() int64

	// Name returns the name the resource was opened with.
	Name() string

	// Close releases the resource. A resource must not be closed twice
	// and must not be read after Close.
	Close() error
}

// Options control how a resource is opened.
type Options struct {
	// NoDecompress opens the raw bytes even when the name refers to a
	// compressed file. Chain devices operate on raw byte length, so
	// loopback opens always set this.
	NoDecompress bool

	// Loopback tags the open as serving virtual-disk aggregation so the
	// file layer can apply loopback policy.
	Loopback bool
}

// LoopbackOptions are the open flags used when attaching a resource to a
// chain device.
func LoopbackOptions() Options {
	return Options{NoDecompress: true, Loopback: true}
}
