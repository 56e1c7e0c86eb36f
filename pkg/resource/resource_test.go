package resource

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestOpen_LocalFile(t *testing.T) {
	data := []byte("0123456789abcdef")
	path := writeFile(t, "plain.img", data)

	res, err := Open(path, LoopbackOptions())
	if err != nil {
		t.Fatalf("failed to open resource: %v", err)
	}
	defer res.Close()

	if res.Size() != int64(len(data)) {
		t.Errorf("size: got %d, want %d", res.Size(), len(data))
	}
	if res.Name() != path {
		t.Errorf("name: got %s, want %s", res.Name(), path)
	}

	buf := make([]byte, 6)
	if _, err := res.ReadAt(buf, 4); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != "456789" {
		t.Errorf("read: got %q, want %q", buf, "456789")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.img"), LoopbackOptions()); err == nil {
		t.Error("opening a missing file did not fail")
	}
}

func gzipFile(t *testing.T, payload []byte) string {
	t.Helper()
	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("failed to compress payload: %v", err)
	}
	zw.Close()
	return writeFile(t, "stream.gz", zipped.Bytes())
}

func TestOpen_GzipNoDecompressReadsRaw(t *testing.T) {
	payload := []byte("raw bytes, not decoded content, raw bytes matter")
	path := gzipFile(t, payload)

	fi, _ := os.Stat(path)

	// Loopback opens ask for raw byte length.
	res, err := Open(path, LoopbackOptions())
	if err != nil {
		t.Fatalf("failed to open resource: %v", err)
	}
	defer res.Close()

	if res.Size() != fi.Size() {
		t.Errorf("raw size: got %d, want %d", res.Size(), fi.Size())
	}
}

func TestOpen_GzipStreamUnknownSize(t *testing.T) {
	payload := bytes.Repeat([]byte("chained-disk-payload-"), 64)
	path := gzipFile(t, payload)

	res, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("failed to open resource: %v", err)
	}
	defer res.Close()

	if res.Size() != SizeUnknown {
		t.Errorf("stream size: got %d, want SizeUnknown", res.Size())
	}

	// Forward read.
	buf := make([]byte, 20)
	if _, err := res.ReadAt(buf, 42); err != nil {
		t.Fatalf("forward read failed: %v", err)
	}
	if !bytes.Equal(buf, payload[42:62]) {
		t.Errorf("forward read: got %q, want %q", buf, payload[42:62])
	}

	// Backward read restarts decompression.
	if _, err := res.ReadAt(buf, 0); err != nil {
		t.Fatalf("backward read failed: %v", err)
	}
	if !bytes.Equal(buf, payload[:20]) {
		t.Errorf("backward read: got %q, want %q", buf, payload[:20])
	}
}
