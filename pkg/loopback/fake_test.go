package loopback

import (
	"fmt"
	"io"

	"github.com/bootchain/loopbackx/pkg/resource"
)

// fakeResource is an in-memory backing resource for tests.
type fakeResource struct {
	name        string
	data        []byte
	unknownSize bool
	failRead    bool
	reads       int
	closed      int
}

func (f *fakeResource) ReadAt(p []byte, off int64) (int, error) {
	f.reads++
	if f.failRead {
		return 0, fmt.Errorf("injected read failure")
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *fakeResource) Size() int64 {
	if f.unknownSize {
		return resource.SizeUnknown
	}
	return int64(len(f.data))
}

func (f *fakeResource) Name() string { return f.name }

func (f *fakeResource) Close() error {
	f.closed++
	return nil
}

// patterned returns n bytes where byte i is (seed+i)%251, so reads can be
// traced back to their source resource and offset.
func patterned(seed byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((int(seed) + i) % 251)
	}
	return b
}

// fakeOpener serves resources from a fixed table and fails for any source
// listed in failing.
type fakeOpener struct {
	opened  []*fakeResource
	failing map[string]bool
}

func (o *fakeOpener) open(name string, opts resource.Options) (resource.Resource, error) {
	if o.failing[name] {
		return nil, fmt.Errorf("injected open failure: %s", name)
	}
	res := &fakeResource{name: name, data: patterned(0, 64)}
	o.opened = append(o.opened, res)
	return res, nil
}

// adopt registers a prebuilt device, for tests that construct chains
// directly.
func (r *Registry) adopt(d *Device) {
	d.id = r.nextID
	r.nextID++
	r.devices[d.name] = d
	r.order = append(r.order, d.name)
}

// chainDevice builds a device directly from fakes for reader tests.
func chainDevice(name string, resources ...resource.Resource) *Device {
	d := &Device{name: name}
	for _, r := range resources {
		d.resources[d.nres] = r
		d.nres++
	}
	return d
}
