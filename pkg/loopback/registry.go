package loopback

import (
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/bootchain/loopbackx/pkg/errors"
	"github.com/bootchain/loopbackx/pkg/resource"
)

var (
	// ErrDuplicateName is returned by Create when the name is taken.
	ErrDuplicateName = errors.New("device name already exists")

	// ErrMissingResource is returned by Create with an empty source list.
	ErrMissingResource = errors.New("at least one resource is required")

	// ErrTooManyResources is returned by Create when the chain would
	// exceed MaxChainResources.
	ErrTooManyResources = errors.New("too many resources for one chain")

	// ErrNotFound is returned by Delete for an unregistered name.
	ErrNotFound = errors.New("device not found")
)

// OpenFunc opens one backing resource by name.
type OpenFunc func(name string, opts resource.Options) (resource.Resource, error)

// Registry owns every live device record, keyed by unique name. It lives
// for the whole session and must be torn down explicitly; there is no
// concurrent mutation, all operations run from a single control flow.
type Registry struct {
	devices map[string]*Device
	order   []string
	nextID  uint64
	open    OpenFunc
}

// NewRegistry creates an empty registry opening resources via
// resource.Open.
func NewRegistry() *Registry {
	return NewRegistryWithOpener(resource.Open)
}

// NewRegistryWithOpener creates an empty registry with a custom resource
// opener.
func NewRegistryWithOpener(open OpenFunc) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		open:    open,
	}
}

// Create opens every source in order and registers a new device. The
// acquisition is all-or-nothing: if any open fails, every resource already
// opened in this attempt is closed again and the registry is unchanged.
func (r *Registry) Create(name string, sources []string) (*Device, error) {
	slog.Info("registry_create_device", "name", name, "sources", len(sources))

	if _, ok := r.devices[name]; ok {
		slog.Error("registry_duplicate_name", "name", name)
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if len(sources) == 0 {
		return nil, ErrMissingResource
	}
	if len(sources) > MaxChainResources {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyResources, len(sources), MaxChainResources)
	}

	dev := &Device{name: name}
	for _, src := range sources {
		res, err := r.open(src, resource.LoopbackOptions())
		if err != nil {
			slog.Error("registry_resource_open_failed", "name", name, "source", src, "error", err)
			dev.closeAll()
			return nil, apperrors.Wrap(err, fmt.Sprintf("failed to open %s", src))
		}
		dev.resources[dev.nres] = res
		dev.nres++
	}

	dev.id = r.nextID
	r.nextID++
	r.devices[name] = dev
	r.order = append(r.order, name)

	slog.Info("registry_device_created", "name", name, "device_id", dev.id, "resources", dev.nres)
	return dev, nil
}

// Restore re-registers a persisted device under its original id, keeping
// the id sequence strictly increasing. Acquisition semantics match Create.
func (r *Registry) Restore(id uint64, name string, sources []string) (*Device, error) {
	dev, err := r.Create(name, sources)
	if err != nil {
		return nil, err
	}

	dev.id = id
	r.nextID-- // undo the provisional id Create handed out
	if id >= r.nextID {
		r.nextID = id + 1
	}

	slog.Info("registry_device_restored", "name", name, "device_id", id)
	return dev, nil
}

// Delete removes the named device from the registry and closes its
// resources in order. The freed id is never reassigned.
func (r *Registry) Delete(name string) error {
	dev, ok := r.devices[name]
	if !ok {
		slog.Error("registry_device_not_found", "name", name)
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.devices, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	err := dev.closeAll()
	slog.Info("registry_device_deleted", "name", name, "device_id", dev.id)
	return err
}

// Find returns the named device, or nil.
func (r *Registry) Find(name string) *Device {
	return r.devices[name]
}

// Iterate calls visitor with every device name in registration order,
// stopping early if the visitor returns true. It reports whether a
// visitor stopped the iteration.
func (r *Registry) Iterate(visitor func(name string) bool) bool {
	for _, name := range r.order {
		if visitor(name) {
			return true
		}
	}
	return false
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Teardown closes every resource of every remaining device and empties
// the registry. Each resource is closed exactly once.
func (r *Registry) Teardown() error {
	slog.Info("registry_teardown", "devices", len(r.devices))

	var firstErr error
	for _, name := range r.order {
		if err := r.devices[name].closeAll(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.devices, name)
	}
	r.order = nil
	return firstErr
}
