package chip

import "time"

// Timing carries the datasheet AC characteristics that bound how long an
// operation may keep the chip busy. A zero field means the value is not
// recorded for the chip; the Bound helpers fall back to the conservative
// defaults below.
type Timing struct {
	PowerUp     time.Duration // tRES1: /CS high to standby mode without ID read
	PowerDown   time.Duration // tDP: /CS high to power-down mode
	PageProgram time.Duration // tPP: page program time (256 bytes)
	Erase4K     time.Duration // tSE/tSSE: 4 KiB erase time
	Erase32K    time.Duration // tBE1: 32 KiB erase time
	Erase64K    time.Duration // tBE2/tSE: 64 KiB erase time
	EraseChip   time.Duration // tCE/tBE: whole-chip erase time
}

// Outer bounds for chips whose descriptor records no datasheet timing.
const (
	DefaultPowerUp     = 30 * time.Microsecond
	DefaultPageProgram = 3 * time.Millisecond
	DefaultEraseSector = 400 * time.Millisecond
	DefaultEraseBlock  = 2 * time.Second
	DefaultEraseChip   = 10 * time.Second
)

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// PowerUpBound returns how long to wait after Release Power-Down before the
// chip accepts further commands.
func (t Timing) PowerUpBound() time.Duration {
	return orDefault(t.PowerUp, DefaultPowerUp)
}

// PageProgramBound returns the outer bound for polling one page program.
func (t Timing) PageProgramBound() time.Duration {
	return orDefault(t.PageProgram, DefaultPageProgram)
}

// EraseBound returns the outer bound for polling one erase op of size bytes;
// wholeChip selects the chip-erase bound regardless of size.
func (t Timing) EraseBound(size int64, wholeChip bool) time.Duration {
	switch {
	case wholeChip:
		return orDefault(t.EraseChip, DefaultEraseChip)
	case size <= 4<<10:
		return orDefault(t.Erase4K, DefaultEraseSector)
	case size <= 32<<10:
		return orDefault(t.Erase32K, DefaultEraseBlock)
	default:
		return orDefault(t.Erase64K, DefaultEraseBlock)
	}
}
