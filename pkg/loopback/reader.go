package loopback

import (
	"fmt"
	"io"

	apperrors "github.com/bootchain/loopbackx/pkg/errors"
	"github.com/bootchain/loopbackx/pkg/resource"
)

// readChain delivers length bytes of the device's aggregate address space
// starting at byte off, walking the chain in a single pass.
//
// cursor is measured from the start of the current resource and resets to
// zero at each boundary. An unknown-size resource can never be skipped by
// offset arithmetic, so it absorbs the rest of the request; resources
// behind it are unreachable. Any region beyond available data is
// zero-filled. On a resource read failure the walk stops, the remainder of
// buf is zero-filled, and the failure is reported.
func readChain(d *Device, off, length uint64, buf []byte) error {
	if uint64(len(buf)) < length {
		return fmt.Errorf("buffer too small: %d < %d", len(buf), length)
	}

	cursor := off
	remaining := length
	filled := uint64(0)
	var readErr error

	for _, res := range d.resources[:d.nres] {
		if remaining == 0 {
			break
		}

		size := res.Size()
		if size != resource.SizeUnknown && cursor >= uint64(size) {
			// Entirely before the requested range.
			cursor -= uint64(size)
			continue
		}

		take := remaining
		if size != resource.SizeUnknown {
			if avail := uint64(size) - cursor; take > avail {
				take = avail
			}
		}

		n, err := res.ReadAt(buf[filled:filled+take], int64(cursor))
		filled += uint64(n)
		remaining -= uint64(n)

		if err != nil {
			if size == resource.SizeUnknown && err == io.EOF {
				// Stream ran out of data; the tail is zero-filled below.
				break
			}
			readErr = apperrors.Wrap(err, fmt.Sprintf("failed to read resource %s", res.Name()))
			break
		}

		cursor = 0
	}

	// The tail of the last sector, requests beyond the chain, and the
	// unread remainder after a failure all read as zeros.
	clear(buf[filled:length])

	return readErr
}
