package wp

import (
	"testing"

	"github.com/gentam/spiflash/chip"
)

const chipSize16M = 16 << 20

// W25Q128-style decode: SR1=0x1C, SR2=0x00, family has wp_tb and wp_cmp but
// not wp_sec. BP2:BP1:BP0 = 1:1:1 (bits 4,3,2 of 0x1C), TB=0, CMP=0, so the
// protected range is the top half of the chip.
func TestDecodeTopHalf(t *testing.T) {
	features := chip.WPTopBottom | chip.WPComplement
	start, length, hw, err := Decode(0x1C, 0x00, chip.WPModelGenericBP, features, chipSize16M)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wantStart := int64(chipSize16M / 2)
	wantLen := int64(chipSize16M / 2)
	if start != wantStart || length != wantLen {
		t.Fatalf("got (0x%X,0x%X), want (0x%X,0x%X)", start, length, wantStart, wantLen)
	}
	if hw {
		t.Fatalf("SRP0 is clear in 0x1C, hwEnforced should be false")
	}
}

func TestDecodeUnprotected(t *testing.T) {
	features := chip.WPTopBottom | chip.WPComplement
	start, length, _, err := Decode(0x00, 0x00, chip.WPModelGenericBP, features, chipSize16M)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if start != 0 || length != 0 {
		t.Fatalf("all-zero BP must decode unprotected, got (0x%X,0x%X)", start, length)
	}
}

// Invariant: all-zero BP decodes unprotected regardless of TB or CMP.
func TestDecodeZeroBPIgnoresTBAndCMP(t *testing.T) {
	features := chip.WPTopBottom | chip.WPComplement
	for _, sr1 := range []byte{0x00, bitTB, bitSRP0, bitTB | bitSRP0} {
		for _, sr2 := range []byte{0x00, bitCMP} {
			start, length, _, err := Decode(sr1, sr2, chip.WPModelGenericBP, features, chipSize16M)
			if err != nil {
				t.Fatalf("Decode(0x%02X,0x%02X): %v", sr1, sr2, err)
			}
			if start != 0 || length != 0 {
				t.Fatalf("Decode(0x%02X,0x%02X) = (0x%X,0x%X), want (0,0)", sr1, sr2, start, length)
			}
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	features := chip.WPTopBottom | chip.WPComplement
	ranges, err := ListRanges(chip.WPModelGenericBP, features, chipSize16M)
	if err != nil {
		t.Fatalf("ListRanges: %v", err)
	}
	for _, r := range ranges {
		sr1, sr2, err := Encode(r.Start, r.Len, chip.WPModelGenericBP, features, chipSize16M)
		if err != nil {
			t.Fatalf("Encode(0x%X,0x%X): %v", r.Start, r.Len, err)
		}
		start, length, _, err := Decode(sr1, sr2, chip.WPModelGenericBP, features, chipSize16M)
		if err != nil {
			t.Fatalf("Decode after Encode(0x%X,0x%X): %v", r.Start, r.Len, err)
		}
		if start != r.Start || length != r.Len {
			t.Fatalf("round trip for (0x%X,0x%X): got (0x%X,0x%X)", r.Start, r.Len, start, length)
		}
	}
}

func TestEncodeUnrepresentable(t *testing.T) {
	features := chip.WPTopBottom | chip.WPComplement
	_, _, err := Encode(0x1234, 0x5678, chip.WPModelGenericBP, features, chipSize16M)
	if err == nil {
		t.Fatal("expected an error for an arbitrary unaligned range")
	}
}

func TestListRangesContainsZeroOnce(t *testing.T) {
	features := chip.WPTopBottom // wp_cmp not present
	ranges, err := ListRanges(chip.WPModelGenericBP, features, chipSize16M)
	if err != nil {
		t.Fatalf("ListRanges: %v", err)
	}
	count := 0
	for _, r := range ranges {
		if r.Start == 0 && r.Len == 0 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("(0,0) must appear exactly once, appeared %d times", count)
	}
}

func TestUnmappedFamilyRefuses(t *testing.T) {
	if _, _, _, err := Decode(0x1C, 0, chip.WPModelNone, 0, chipSize16M); err != ErrUnmappedFamily {
		t.Fatalf("WPModelNone must refuse to decode, got %v", err)
	}
	if _, _, _, err := Decode(0x1C, 0, chip.WPModelGenericBP, chip.WPSector, chipSize16M); err != ErrUnmappedFamily {
		t.Fatalf("wp_sec chips must refuse to decode, got %v", err)
	}
}
