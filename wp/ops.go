package wp

import (
	"context"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/internal/obs"
	"github.com/gentam/spiflash/protocol"
	"github.com/gentam/spiflash/spi"
)

// Status reads SR1 and (if present) SR2 and decodes the currently
// protected range into fc.WP.
func Status(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext) error {
	sr1, sr2, err := readSR(ctx, p, fc)
	if err != nil {
		return err
	}

	start, length, hw, err := Decode(sr1, sr2, fc.Descriptor.WPModel, fc.Descriptor.Features, fc.Descriptor.TotalSize)
	if err != nil {
		return err
	}
	fc.WP = flashctx.WPState{ProtectedStart: start, ProtectedLen: length, HWEnforced: hw}
	obs.Info(obs.ComponentWP, "read write protection", "start", start, "len", length, "hw_enforced", hw)
	return nil
}

func readSR(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext) (sr1, sr2 byte, err error) {
	sr1, err = protocol.ReadStatus(ctx, p, 1, fc.Descriptor.Features)
	if err != nil {
		return 0, 0, err
	}
	sr2, err = protocol.ReadStatus(ctx, p, 2, fc.Descriptor.Features)
	if err != nil {
		return 0, 0, err
	}
	return sr1, sr2, nil
}

// checkHWLock refuses a status-register write whenever SRP0 was set at the
// last status read (fc.WP.HWEnforced). The WP# pin level is not visible here,
// so a set SRP0 is treated as locked whether or not the pin is asserted.
func checkHWLock(fc *flashctx.FlashContext) error {
	if fc.WP.HWEnforced {
		return &ferr.WpHwLocked{}
	}
	return nil
}

// writeSR writes sr1 and, if the chip has a second status register, sr2,
// then refreshes fc.WP from the new values.
func writeSR(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, sr1, sr2 byte, volatile bool) error {
	values := []byte{sr1}
	if fc.Descriptor.Features.Has(chip.StatusReg2) {
		values = append(values, sr2)
	}
	if err := protocol.WriteStatus(ctx, p, values, volatile, fc.Descriptor.Features); err != nil {
		return err
	}
	return Status(ctx, p, fc)
}

// EnableHW sets SRP0, latching the current BP/TB/CMP bits against further
// change once the hardware WP# pin is asserted.
func EnableHW(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, volatile bool) error {
	if err := checkHWLock(fc); err != nil {
		return err
	}
	sr1, sr2, err := readSR(ctx, p, fc)
	if err != nil {
		return err
	}
	sr1 |= bitSRP0
	obs.Info(obs.ComponentWP, "enabling hardware write protection")
	return writeSR(ctx, p, fc, sr1, sr2, volatile)
}

// Disable clears BP, TB, CMP, and SRP0, fully unprotecting the chip.
func Disable(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, volatile bool) error {
	if err := checkHWLock(fc); err != nil {
		return err
	}
	sr1, sr2, err := readSR(ctx, p, fc)
	if err != nil {
		return err
	}
	sr1 &^= bitBP0 | bitBP1 | bitBP2 | bitTB | bitSRP0
	sr2 &^= bitCMP
	obs.Info(obs.ComponentWP, "disabling write protection")
	return writeSR(ctx, p, fc, sr1, sr2, volatile)
}

// SetRange protects exactly [start, start+length) by encoding it into BP/TB/
// CMP bits and writing the status register(s). It returns
// *ferr.WpUnrepresentable if no bit pattern produces that exact range.
func SetRange(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, start, length int64, volatile bool) error {
	if err := checkHWLock(fc); err != nil {
		return err
	}
	sr1, sr2, err := Encode(start, length, fc.Descriptor.WPModel, fc.Descriptor.Features, fc.Descriptor.TotalSize)
	if err != nil {
		return err
	}

	curSR1, _, err := readSR(ctx, p, fc)
	if err != nil {
		return err
	}
	sr1 |= curSR1 & bitSRP0 // preserve any existing hardware-lock intent

	obs.Info(obs.ComponentWP, "setting protected range", "start", start, "len", length)
	return writeSR(ctx, p, fc, sr1, sr2, volatile)
}

// SetRegion protects exactly the named region from fc.Layout.
func SetRegion(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, name string, volatile bool) error {
	if fc.Layout == nil {
		return &ferr.RegionUnknown{Name: name}
	}
	region, ok := fc.Layout.Find(name)
	if !ok {
		return &ferr.RegionUnknown{Name: name}
	}
	return SetRange(ctx, p, fc, region.Start, region.Len(), volatile)
}
