// Package wp decodes and encodes the status-register bits that describe a
// SPI NOR chip's write-protected address range. The mapping from bits to
// address ranges is chip-family specific; this package refuses to decode
// any family it has not explicitly mapped rather than guess at an
// unverified table.
package wp

import (
	"errors"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/ferr"
)

// ErrUnmappedFamily is returned by Decode/Encode/ListRanges when the chip's
// WPModel (or its wp_sec sub-sector variant) has no explicit range table.
var ErrUnmappedFamily = errors.New("wp: chip's write-protection family is not mapped")

// Status register bit positions used by the generic-BP family.
const (
	bitBP0  = 1 << 2
	bitBP1  = 1 << 3
	bitBP2  = 1 << 4
	bitTB   = 1 << 5
	bitSRP0 = 1 << 7

	bitCMP = 1 << 6 // in status register 2
)

// genericBPDenominators maps a 3-bit BP value to the fraction N/D of the
// chip that is protected. Index 0 means "unprotected" (handled specially,
// never multiplied against D). Entries 6 and 7 intentionally collide at N/2:
// advancing the protected fraction past one half requires the complement
// (CMP) bit, not a larger BP value — on these parts BP=0b111 with CMP=0,
// TB=0 protects exactly the top half.
var genericBPDenominators = [8]int64{0, 64, 32, 16, 8, 4, 2, 2}

// Range is a protected address range as returned by Decode and enumerated by
// ListRanges.
type Range struct {
	Start, Len int64
}

func extractBP(sr1 byte) int {
	bp := 0
	if sr1&bitBP0 != 0 {
		bp |= 1
	}
	if sr1&bitBP1 != 0 {
		bp |= 2
	}
	if sr1&bitBP2 != 0 {
		bp |= 4
	}
	return bp
}

func buildBP(bp int) byte {
	var sr1 byte
	if bp&1 != 0 {
		sr1 |= bitBP0
	}
	if bp&2 != 0 {
		sr1 |= bitBP1
	}
	if bp&4 != 0 {
		sr1 |= bitBP2
	}
	return sr1
}

func checkSupported(model chip.WPModel, features chip.FeatureSet) error {
	if model != chip.WPModelGenericBP {
		return ErrUnmappedFamily
	}
	if features.Has(chip.WPSector) {
		// Sub-sector (wp_sec) range tables are family-specific and not
		// enumerated in the retrieved catalog; refuse rather than guess.
		return ErrUnmappedFamily
	}
	return nil
}

// Decode returns the protected subrange encoded by (sr1, sr2) for a chip of
// the given WP family, features, and size. hwEnforced reports whether the
// status-register-protect bit (SRP0) is set, which — combined with the WP#
// pin being asserted by hardware outside this package's view — would lock
// further status register writes.
func Decode(sr1, sr2 byte, model chip.WPModel, features chip.FeatureSet, chipSize int64) (start, length int64, hwEnforced bool, err error) {
	if err := checkSupported(model, features); err != nil {
		return 0, 0, false, err
	}

	bp := extractBP(sr1)
	hwEnforced = sr1&bitSRP0 != 0
	if bp == 0 {
		return 0, 0, hwEnforced, nil
	}

	l := chipSize / genericBPDenominators[bp]
	bottom := features.Has(chip.WPTopBottom) && sr1&bitTB != 0

	var cmp bool
	if features.Has(chip.WPComplement) {
		cmp = sr2&bitCMP != 0
	}

	start, length = rangeFor(bottom, cmp, l, chipSize)
	return start, length, hwEnforced, nil
}

// rangeFor computes the protected range for the four (bottom, cmp)
// combinations, given the table-derived length l and chip size n.
func rangeFor(bottom, cmp bool, l, n int64) (start, length int64) {
	switch {
	case !bottom && !cmp: // top, not inverted: [n-l, n)
		return n - l, l
	case bottom && !cmp: // bottom, not inverted: [0, l)
		return 0, l
	case !bottom && cmp: // top inverted -> complement is [0, n-l)
		return 0, n - l
	default: // bottom inverted -> complement is [l, n)
		return l, n - l
	}
}

// Encode chooses a status-register bit pattern whose decode yields exactly
// (start, length), taking the lowest BP value that matches, or returns
// *ferr.WpUnrepresentable if no exact pattern exists. sr2 is returned with only
// the CMP bit meaningful; other SR2 bits (e.g. QE) are left zero for the
// caller to OR in separately.
func Encode(start, length int64, model chip.WPModel, features chip.FeatureSet, chipSize int64) (sr1, sr2 byte, err error) {
	if err := checkSupported(model, features); err != nil {
		return 0, 0, err
	}

	if length == 0 && start == 0 {
		return 0, 0, nil
	}

	hasTB := features.Has(chip.WPTopBottom)
	hasCMP := features.Has(chip.WPComplement)

	// bp=0 is reserved for "unprotected"; search bp=1..7 for an exact match,
	// preferring the lowest bp index (resolves the 6/7 collision at N/2).
	for bp := 1; bp <= 7; bp++ {
		l := chipSize / genericBPDenominators[bp]

		if start == chipSize-l && length == l {
			return buildBP(bp), 0, nil // top, cmp=0
		}
		if hasTB && start == 0 && length == l {
			return buildBP(bp) | bitTB, 0, nil // bottom, cmp=0
		}
		if hasCMP && start == 0 && length == chipSize-l {
			return buildBP(bp), bitCMP, nil // top, cmp=1
		}
		if hasTB && hasCMP && start == l && length == chipSize-l {
			return buildBP(bp) | bitTB, bitCMP, nil // bottom, cmp=1
		}
	}

	return 0, 0, &ferr.WpUnrepresentable{Start: start, Len: length}
}

// ListRanges enumerates every representable (start, length) pair for the
// given family, features, and chip size, for UX and for the testable
// property that list_ranges contains (0,0) exactly once when wp_cmp=false.
func ListRanges(model chip.WPModel, features chip.FeatureSet, chipSize int64) ([]Range, error) {
	if err := checkSupported(model, features); err != nil {
		return nil, err
	}

	out := []Range{{0, 0}}
	hasTB := features.Has(chip.WPTopBottom)
	hasCMP := features.Has(chip.WPComplement)

	seen := map[Range]bool{{0, 0}: true}
	add := func(r Range) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}

	for bp := 1; bp <= 7; bp++ {
		l := chipSize / genericBPDenominators[bp]
		add(Range{chipSize - l, l}) // top, cmp=0
		if hasTB {
			add(Range{0, l}) // bottom, cmp=0
		}
		if hasCMP {
			add(Range{0, chipSize - l}) // top, cmp=1
		}
		if hasTB && hasCMP {
			add(Range{l, chipSize - l}) // bottom, cmp=1
		}
	}
	return out, nil
}
