// Package probe identifies the attached SPI NOR chip and constructs the
// FlashContext that every other core operation consumes.
package probe

import (
	"context"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/internal/obs"
	"github.com/gentam/spiflash/protocol"
	"github.com/gentam/spiflash/spi"
)

// Options configures a Probe call.
type Options struct {
	// ExpectedName, if non-empty, must match the identified chip's name or
	// probe fails with *ferr.ChipMismatch.
	ExpectedName string
}

// Probe reads the attached chip's JEDEC ID over p, looks it up in db, and
// constructs a FlashContext for it. It fails with *ferr.ChipNotFound if the
// (manufacturer, device) pair has no database entry, or *ferr.ChipMismatch
// if opts.ExpectedName disagrees with what was found.
func Probe(ctx context.Context, p spi.Programmer, db *chip.Database, opts Options) (*flashctx.FlashContext, error) {
	mfg, dev, err := protocol.ReadJEDECID(ctx, p)
	if err != nil {
		return nil, err
	}

	descriptor, ok := db.Lookup(mfg, dev)
	if !ok {
		obs.Warn(obs.ComponentProbe, "chip not found", "manufacturer", mfg, "device", dev)
		return nil, &ferr.ChipNotFound{Manufacturer: mfg, Device: dev}
	}
	if opts.ExpectedName != "" && opts.ExpectedName != descriptor.Name {
		return nil, &ferr.ChipMismatch{Expected: opts.ExpectedName, Found: descriptor.Name}
	}

	fc := flashctx.New(descriptor)
	obs.Info(obs.ComponentProbe, "identified chip", "name", descriptor.Name, "addressing", fc.Addressing.String())

	if fc.RequiresExplicit4BAEntry() {
		if err := protocol.Enter4BA(ctx, p); err != nil {
			return nil, err
		}
	}

	return fc, nil
}
