// Package orchestrate drives the protocol layer through whole read, write,
// erase, and verify operations: chunking to the programmer's transaction
// limits and the chip's 256-byte page boundary, polling BUSY after each
// program/erase, retrying transient transport errors, and enforcing layout
// region masks before a single byte is touched.
package orchestrate

import (
	"bytes"
	"context"
	"time"

	"github.com/gentam/spiflash/erase"
	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/internal/obs"
	"github.com/gentam/spiflash/layout"
	"github.com/gentam/spiflash/protocol"
	"github.com/gentam/spiflash/spi"
)

// ProgressEvent reports a monotonically increasing amount of work completed
// out of a known total, emitted after each chunk of a Read or Write.
type ProgressEvent struct {
	Done, Total int64
}

// ProgressFunc receives ProgressEvents. A nil ProgressFunc is valid and
// simply receives nothing.
type ProgressFunc func(ProgressEvent)

func report(sink ProgressFunc, done, total int64) {
	if sink != nil {
		sink(ProgressEvent{Done: done, Total: total})
	}
}

const maxRetries = 3

// pageSize is the SPI NOR page-program boundary; a single PP transaction
// must not cross it.
const pageSize = 256

// withRetry calls fn, retrying up to maxRetries times on a *ferr.TransportError
// whose Kind is ferr.Transient, sleeping 1ms*2^attempt between attempts via
// the programmer's own delay primitive. Permanent transport errors and any
// other error type are returned immediately.
func withRetry(p spi.Programmer, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		te, ok := err.(*ferr.TransportError)
		if !ok || te.Kind != ferr.Transient {
			return err
		}
		if attempt == maxRetries {
			break
		}
		backoff := time.Millisecond * time.Duration(1<<uint(attempt))
		p.DelayMicros(uint32(backoff.Microseconds()))
	}
	return lastErr
}

// checkRegionPolicy enforces the masking rules against every region in l
// that overlaps [start, end): a readonly region always rejects a write or
// erase, and a dangerous region rejects unless allowDangerous is set. A nil
// layout imposes no restriction.
func checkRegionPolicy(l *layout.Layout, start, end int64, allowDangerous bool) error {
	if l == nil {
		return nil
	}
	probe := layout.Region{Start: start, End: end - 1}
	for _, r := range l.Regions {
		if !r.Overlaps(probe) {
			continue
		}
		if r.Flags.Has(layout.Readonly) {
			return &ferr.RegionReadonly{Name: r.Name}
		}
		if r.Flags.Has(layout.Dangerous) && !allowDangerous {
			return &ferr.RegionDangerous{Name: r.Name}
		}
	}
	return nil
}

func readChunkSize(p spi.Programmer) int64 {
	n := int64(p.Features().MaxReadLen)
	if n <= 0 {
		return 1 << 20
	}
	return n
}

// Read fills out with the [start, start+len(out)) byte range of the chip,
// splitting the transfer into chunks no larger than the programmer's
// MaxReadLen. Each chunk is retried up to 3 times with exponential backoff
// on a transient transport error; a permanent error fails immediately.
// Progress is reported after every chunk.
func Read(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, start int64, out []byte, progress ProgressFunc) error {
	total := int64(len(out))
	chunkSize := readChunkSize(p)
	var done int64
	for done < total {
		n := min(chunkSize, total-done)
		buf := out[done : done+n]
		addr := start + done
		if err := withRetry(p, func() error {
			return protocol.Read(ctx, p, fc, addr, buf)
		}); err != nil {
			return err
		}
		done += n
		report(progress, done, total)
	}
	obs.Debug(obs.ComponentOrchestrate, "read complete", "start", start, "len", total)
	return nil
}

// WriteOptions configures a Write call. The zero value runs the common
// case: erase-then-program-then-verify, refusing any dangerous region.
type WriteOptions struct {
	// NoErase skips the erase pass before programming (--no-erase).
	NoErase bool
	// NoVerify skips the post-write read-back comparison. Verify is
	// on by default, opt-out.
	NoVerify bool
	// AllowDangerous permits writing into a region flagged dangerous.
	AllowDangerous bool
	Progress       ProgressFunc
}

// Write programs data at [start, start+len(data)) to the chip: optionally
// erasing that range first (via the erase planner), then issuing WREN+
// page-program+wait_ready per page-bounded chunk, then optionally reading
// the range back and comparing it byte-for-byte against data. The erase pass
// plans exactly [start, end), so unless NoErase is set a range that is not
// aligned to the chip's smallest erase block fails with *ferr.UnalignedRange.
func Write(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, start int64, data []byte, opts WriteOptions) error {
	end := start + int64(len(data))
	if err := checkRegionPolicy(fc.Layout, start, end, opts.AllowDangerous); err != nil {
		return err
	}

	if !opts.NoErase {
		if err := Erase(ctx, p, fc, start, end, opts.AllowDangerous); err != nil {
			return err
		}
	}

	total := int64(len(data))
	maxWrite := int64(p.Features().MaxWriteLen)
	if maxWrite <= 0 || maxWrite > pageSize {
		maxWrite = pageSize
	}
	ppTimeout := fc.Descriptor.Timing.PageProgramBound()

	var done int64
	for done < total {
		addr := start + done
		roomInPage := pageSize - addr%pageSize
		n := min(roomInPage, maxWrite, total-done)
		buf := data[done : done+n]

		if err := withRetry(p, func() error { return protocol.WriteEnable(ctx, p) }); err != nil {
			return err
		}
		if err := withRetry(p, func() error { return protocol.PageProgram(ctx, p, fc, addr, buf) }); err != nil {
			return err
		}
		if err := protocol.WaitReady(ctx, p, "page program", ppTimeout); err != nil {
			return &ferr.ProgramTimeout{Addr: addr}
		}

		done += n
		report(opts.Progress, done, total)
	}
	obs.Info(obs.ComponentOrchestrate, "write complete", "start", start, "len", total, "verify", !opts.NoVerify)

	if !opts.NoVerify {
		return Verify(ctx, p, fc, start, data)
	}
	return nil
}

// Erase runs the planner over [start, end) and executes each resulting op
// (WREN + erase opcode, then a poll bounded by the erased block's datasheet
// timing). A single op failure aborts the plan; the error reports how many
// ops already completed.
func Erase(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, start, end int64, allowDangerous bool) error {
	if err := checkRegionPolicy(fc.Layout, start, end, allowDangerous); err != nil {
		return err
	}

	plan, err := erase.Plan(start, end, fc.Descriptor.EraseBlocks, fc.Descriptor.TotalSize)
	if err != nil {
		return err
	}

	for i, op := range plan {
		if err := withRetry(p, func() error {
			return protocol.Erase(ctx, p, fc, op.Opcode, op.Addr, op.WholeChip)
		}); err != nil {
			return &ferr.EraseFailed{Addr: op.Addr, Opcode: op.Opcode, Done: i, Err: err}
		}
		timeout := fc.Descriptor.Timing.EraseBound(op.Size, op.WholeChip)
		if err := protocol.WaitReady(ctx, p, "erase", timeout); err != nil {
			return &ferr.EraseFailed{Addr: op.Addr, Opcode: op.Opcode, Done: i, Err: err}
		}
	}
	obs.Info(obs.ComponentOrchestrate, "erase complete", "start", start, "end", end, "ops", len(plan))
	return nil
}

// Verify reads [start, start+len(expected)) back from the chip and compares
// it byte-for-byte against expected, reporting the first mismatching offset
// and the total mismatch count.
func Verify(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, start int64, expected []byte) error {
	got := make([]byte, len(expected))
	if err := Read(ctx, p, fc, start, got, nil); err != nil {
		return err
	}
	return compare(start, got, expected)
}

func compare(start int64, got, expected []byte) error {
	if bytes.Equal(got, expected) {
		return nil
	}

	first := int64(-1)
	var count int64
	for i := range expected {
		if got[i] != expected[i] {
			if first < 0 {
				first = int64(i)
			}
			count++
		}
	}
	obs.Warn(obs.ComponentOrchestrate, "verify failed", "first_mismatch", start+first, "count", count)
	return &ferr.VerifyFailed{FirstMismatchOffset: start + first, MismatchCount: count}
}
