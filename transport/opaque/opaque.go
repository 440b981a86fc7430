// Package opaque implements spi.OpaqueProgrammer against a plain file or
// block device node, the way main.go originally opened a raw device path
// with os.Open. It gives the orchestrator a controller-agnostic backend for
// programmers (e.g. a memory-mapped debug interface, or a raw flash image
// used for dry runs) that expose only addressed read/write/erase and no
// SPI25 command visibility at all.
package opaque

import (
	"context"
	"fmt"
	"os"

	"github.com/gentam/spiflash/ferr"
)

// File adapts an *os.File to spi.OpaqueProgrammer. Erase is implemented in
// software by writing 0xFF over the requested range, since a raw file has no
// native erase primitive.
type File struct {
	f    *os.File
	size int64
}

// Open opens path and stats it for Size. The file must already exist and be
// at least as large as the chip it represents.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opaque: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opaque: stat %s: %w", path, err)
	}
	return &File{f: f, size: info.Size()}, nil
}

// Close releases the underlying file descriptor.
func (o *File) Close() error { return o.f.Close() }

func (o *File) Size() int64 { return o.size }

func (o *File) Read(ctx context.Context, addr int64, buf []byte) error {
	if _, err := o.f.ReadAt(buf, addr); err != nil {
		return &ferr.TransportError{Kind: ferr.Transient, Detail: "read", Err: err}
	}
	return nil
}

func (o *File) Write(ctx context.Context, addr int64, data []byte) error {
	if _, err := o.f.WriteAt(data, addr); err != nil {
		return &ferr.TransportError{Kind: ferr.Transient, Detail: "write", Err: err}
	}
	return nil
}

func (o *File) Erase(ctx context.Context, addr, length int64) error {
	fill := make([]byte, min(length, 1<<20))
	for i := range fill {
		fill[i] = 0xFF
	}
	for off := int64(0); off < length; off += int64(len(fill)) {
		n := int64(len(fill))
		if off+n > length {
			n = length - off
		}
		if _, err := o.f.WriteAt(fill[:n], addr+off); err != nil {
			return &ferr.TransportError{Kind: ferr.Transient, Detail: "erase", Err: err}
		}
	}
	return nil
}
