package resource

import (
	"log/slog"
	"os"
	"strings"

	"github.com/bootchain/loopbackx/pkg/errors"
)

// Open opens the named local file as a resource. Unless opts.NoDecompress
// is set, a ".gz" name is opened as a decompressing stream whose size is
// unknown.
func Open(name string, opts Options) (Resource, error) {
	if !opts.NoDecompress && strings.HasSuffix(name, ".gz") {
		return openGzip(name)
	}

	f, err := os.Open(name)
	if err != nil {
		slog.Error("resource_open_failed", "name", name, "error", err)
		return nil, errors.Wrap(err, "failed to open resource")
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		slog.Error("resource_stat_failed", "name", name, "error", err)
		return nil, errors.Wrap(err, "failed to stat resource")
	}

	slog.Info("resource_opened", "name", name, "size", fi.Size(), "loopback", opts.Loopback)

	return &fileResource{f: f, name: name, size: fi.Size()}, nil
}

// fileResource serves a plain local file. Size is known from Stat at open
// time; the file is treated as immutable while attached.
type fileResource struct {
	f    *os.File
	name string
	size int64
}

func (r *fileResource) ReadAt(p []byte, off int64) (int, error) {
	return r.f.ReadAt(p, off)
}

func (r *fileResource) Size() int64 { return r.size }

func (r *fileResource) Name() string { return r.name }

func (r *fileResource) Close() error {
	slog.Info("resource_closed", "name", r.name)
	return r.f.Close()
}
