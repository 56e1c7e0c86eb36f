package loopback

import (
	"testing"

	"github.com/bootchain/loopbackx/pkg/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_OpenComputesGeometry(t *testing.T) {
	registry := NewRegistryWithOpener((&fakeOpener{}).open)
	driver := NewDriver(registry)

	dev, err := registry.Create("chain0", []string{"a.img", "b.img"})
	require.NoError(t, err)

	// Two 64-byte fakes: 128 bytes rounds up to one 512-byte sector.
	h, err := driver.Open("chain0")
	require.NoError(t, err)

	assert.Equal(t, dev.ID(), h.ID)
	assert.Equal(t, uint64(1), h.Geometry.TotalSectors)
	assert.Equal(t, uint64(disk.MaxTransferSectors), h.Geometry.MaxTransferSectors)
	assert.True(t, h.Geometry.SizeKnown())
}

func TestDriver_GeometryUnknownSize(t *testing.T) {
	registry := NewRegistryWithOpener((&fakeOpener{}).open)
	driver := NewDriver(registry)

	dev := chainDevice("stream",
		&fakeResource{name: "r1", data: patterned(0, 600)},
		&fakeResource{name: "r2", unknownSize: true},
	)
	registry.adopt(dev)

	h, err := driver.Open("stream")
	require.NoError(t, err)

	assert.False(t, h.Geometry.SizeKnown())
	assert.Equal(t, disk.TotalSectorsUnknown, h.Geometry.TotalSectors)
}

func TestDriver_OpenUnknownDevice(t *testing.T) {
	driver := NewDriver(NewRegistryWithOpener((&fakeOpener{}).open))

	_, err := driver.Open("missing")
	require.ErrorIs(t, err, disk.ErrUnknownDevice)
}

func TestDriver_ReadTranslatesSectors(t *testing.T) {
	registry := NewRegistryWithOpener((&fakeOpener{}).open)
	driver := NewDriver(registry)

	// 1000 bytes: sector 1 covers bytes 512..999 plus 24 zero bytes.
	dev := chainDevice("chain0", &fakeResource{name: "r1", data: patterned(0, 1000)})
	registry.adopt(dev)

	h, err := driver.Open("chain0")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.Geometry.TotalSectors)

	buf := make([]byte, disk.SectorSize)
	require.NoError(t, driver.Read(h, 1, 1, buf))

	assert.Equal(t, patterned(0, 1000)[512:], buf[:488])
	assert.Equal(t, make([]byte, 24), buf[488:], "rounded-up tail reads as zeros")
}

func TestDriver_WriteRejected(t *testing.T) {
	registry := NewRegistryWithOpener((&fakeOpener{}).open)
	driver := NewDriver(registry)

	res := &fakeResource{name: "r1", data: patterned(0, 64)}
	dev := chainDevice("chain0", res)
	registry.adopt(dev)

	h, err := driver.Open("chain0")
	require.NoError(t, err)

	err = driver.Write(h, 0, 1, make([]byte, disk.SectorSize))
	require.ErrorIs(t, err, disk.ErrWriteUnsupported)
	assert.Equal(t, patterned(0, 64), res.data, "backing resource untouched by rejected write")
}

func TestDriver_IteratePullClasses(t *testing.T) {
	registry := NewRegistryWithOpener((&fakeOpener{}).open)
	driver := NewDriver(registry)

	_, err := registry.Create("chain0", []string{"a.img"})
	require.NoError(t, err)

	var names []string
	driver.Iterate(disk.PullNone, func(name string) bool {
		names = append(names, name)
		return false
	})
	assert.Equal(t, []string{"chain0"}, names)

	driver.Iterate(disk.PullRemovable, func(name string) bool {
		t.Fatalf("virtual devices must not enumerate for pull class, got %s", name)
		return false
	})
}
