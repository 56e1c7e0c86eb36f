package resource

import (
	"compress/gzip"
	"io"
	"log/slog"
	"os"

	"github.com/bootchain/loopbackx/pkg/errors"
)

// gzipResource serves the decompressed bytes of a gzip file. The
// uncompressed length is not known up front, so Size reports SizeUnknown.
// The stream is sequential: backward offsets restart decompression from
// the beginning, forward offsets discard the gap.
type gzipResource struct {
	f    *os.File
	zr   *gzip.Reader
	name string
	pos  int64
}

func openGzip(name string) (Resource, error) {
	f, err := os.Open(name)
	if err != nil {
		slog.Error("resource_open_failed", "name", name, "error", err)
		return nil, errors.Wrap(err, "failed to open resource")
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		slog.Error("resource_gzip_open_failed", "name", name, "error", err)
		return nil, errors.Wrap(err, "failed to open gzip stream")
	}

	slog.Info("resource_opened", "name", name, "size", "unknown", "compressed", true)

	return &gzipResource{f: f, zr: zr, name: name}, nil
}

func (r *gzipResource) ReadAt(p []byte, off int64) (int, error) {
	if off < r.pos {
		if err := r.rewind(); err != nil {
			return 0, err
		}
	}
	if off > r.pos {
		n, err := io.CopyN(io.Discard, r.zr, off-r.pos)
		r.pos += n
		if err != nil {
			return 0, err
		}
	}

	n, err := io.ReadFull(r.zr, p)
	r.pos += int64(n)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func (r *gzipResource) rewind() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to rewind gzip stream")
	}
	if err := r.zr.Reset(r.f); err != nil {
		return errors.Wrap(err, "failed to reset gzip stream")
	}
	r.pos = 0
	return nil
}

func (r *gzipResource) Size() int64 { return SizeUnknown }

func (r *gzipResource) Name() string { return r.name }

func (r *gzipResource) Close() error {
	slog.Info("resource_closed", "name", r.name)
	zerr := r.zr.Close()
	ferr := r.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}
