package orchestrate

import (
	"context"

	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/layout"
	"github.com/gentam/spiflash/spi"
)

// Backend is the top-level dispatch over the two programmer kinds: a SPI
// programmer driven through probe, protocol, and the erase planner, or an
// opaque controller that exposes only addressed read/write/erase and
// bypasses all of them. Region masking applies to both.
type Backend interface {
	// Size returns the addressable flash size in bytes.
	Size() int64
	Read(ctx context.Context, start int64, out []byte, progress ProgressFunc) error
	Write(ctx context.Context, start int64, data []byte, opts WriteOptions) error
	Erase(ctx context.Context, start, end int64, allowDangerous bool) error
	Verify(ctx context.Context, start int64, expected []byte) error
}

// SPIBackend pairs a spi.Programmer with the FlashContext probe built for
// the attached chip.
type SPIBackend struct {
	P  spi.Programmer
	FC *flashctx.FlashContext
}

// NewSPIBackend wraps a probed SPI programmer as a Backend.
func NewSPIBackend(p spi.Programmer, fc *flashctx.FlashContext) *SPIBackend {
	return &SPIBackend{P: p, FC: fc}
}

func (b *SPIBackend) Size() int64 { return b.FC.Descriptor.TotalSize }

func (b *SPIBackend) Read(ctx context.Context, start int64, out []byte, progress ProgressFunc) error {
	return Read(ctx, b.P, b.FC, start, out, progress)
}

func (b *SPIBackend) Write(ctx context.Context, start int64, data []byte, opts WriteOptions) error {
	return Write(ctx, b.P, b.FC, start, data, opts)
}

func (b *SPIBackend) Erase(ctx context.Context, start, end int64, allowDangerous bool) error {
	return Erase(ctx, b.P, b.FC, start, end, allowDangerous)
}

func (b *SPIBackend) Verify(ctx context.Context, start int64, expected []byte) error {
	return Verify(ctx, b.P, b.FC, start, expected)
}

// OpaqueBackend adapts a pre-built spi.OpaqueProgrammer. No FlashContext
// exists for it; only an optional layout constrains operations.
type OpaqueBackend struct {
	P      spi.OpaqueProgrammer
	Layout *layout.Layout
}

// NewOpaqueBackend wraps an opaque programmer as a Backend. l may be nil.
func NewOpaqueBackend(p spi.OpaqueProgrammer, l *layout.Layout) *OpaqueBackend {
	return &OpaqueBackend{P: p, Layout: l}
}

func (b *OpaqueBackend) Size() int64 { return b.P.Size() }

func (b *OpaqueBackend) Read(ctx context.Context, start int64, out []byte, progress ProgressFunc) error {
	if err := b.P.Read(ctx, start, out); err != nil {
		return err
	}
	report(progress, int64(len(out)), int64(len(out)))
	return nil
}

func (b *OpaqueBackend) Write(ctx context.Context, start int64, data []byte, opts WriteOptions) error {
	end := start + int64(len(data))
	if err := checkRegionPolicy(b.Layout, start, end, opts.AllowDangerous); err != nil {
		return err
	}
	if !opts.NoErase {
		if err := b.P.Erase(ctx, start, end-start); err != nil {
			return err
		}
	}
	if err := b.P.Write(ctx, start, data); err != nil {
		return err
	}
	report(opts.Progress, int64(len(data)), int64(len(data)))
	if !opts.NoVerify {
		return b.Verify(ctx, start, data)
	}
	return nil
}

func (b *OpaqueBackend) Erase(ctx context.Context, start, end int64, allowDangerous bool) error {
	if err := checkRegionPolicy(b.Layout, start, end, allowDangerous); err != nil {
		return err
	}
	return b.P.Erase(ctx, start, end-start)
}

func (b *OpaqueBackend) Verify(ctx context.Context, start int64, expected []byte) error {
	got := make([]byte, len(expected))
	if err := b.P.Read(ctx, start, got); err != nil {
		return err
	}
	return compare(start, got, expected)
}
