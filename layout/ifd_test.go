package layout

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gentam/spiflash/ferr"
)

// buildIFD assembles a minimal descriptor image: signature at offset 16,
// FLMAP0 at 20, and the region table at FRBA.
func buildIFD(entries []uint32) []byte {
	img := make([]byte, 4<<10)
	binary.LittleEndian.PutUint32(img[16:], 0x0FF0A55A)

	const frba = 0x40
	flmap0 := uint32(len(entries)-1)<<24 | uint32(frba>>4)<<16
	binary.LittleEndian.PutUint32(img[20:], flmap0)

	for i, e := range entries {
		binary.LittleEndian.PutUint32(img[frba+4*i:], e)
	}
	return img
}

func regionEntry(base, limit int64) uint32 {
	return uint32(base>>12)&0x7FFF | (uint32(limit>>12)&0x7FFF)<<16
}

// Three regions: descriptor 0-0xFFF, bios 0x1000-0x7FFFFF, me
// 0x800000-0xFFFFFF. Descriptor must come out readonly and dangerous, me
// dangerous.
func TestParseIFD(t *testing.T) {
	img := buildIFD([]uint32{
		regionEntry(0x000000, 0x000FFF),
		regionEntry(0x001000, 0x7FFFFF),
		regionEntry(0x800000, 0xFFFFFF),
	})

	l, err := ParseIFD(img)
	if err != nil {
		t.Fatalf("ParseIFD: %v", err)
	}
	if len(l.Regions) != 3 {
		t.Fatalf("got %d regions, want 3: %+v", len(l.Regions), l.Regions)
	}

	want := []Region{
		{Name: "descriptor", Start: 0, End: 0xFFF, Flags: Readonly | Dangerous},
		{Name: "bios", Start: 0x1000, End: 0x7FFFFF},
		{Name: "me", Start: 0x800000, End: 0xFFFFFF, Flags: Dangerous},
	}
	for i, w := range want {
		g := l.Regions[i]
		if g != w {
			t.Fatalf("region %d: got %+v, want %+v", i, g, w)
		}
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("IFD layout must validate: %v", err)
	}
}

// An entry whose base exceeds its limit marks an unused region slot and must
// be skipped, not reported.
func TestParseIFDAbsentRegion(t *testing.T) {
	img := buildIFD([]uint32{
		regionEntry(0x000000, 0x000FFF),
		0x00000FFF, // base 0xFFF000, limit 0x000FFF: absent
	})
	l, err := ParseIFD(img)
	if err != nil {
		t.Fatalf("ParseIFD: %v", err)
	}
	if len(l.Regions) != 1 || l.Regions[0].Name != "descriptor" {
		t.Fatalf("absent region leaked into layout: %+v", l.Regions)
	}
}

func TestParseIFDNotPresent(t *testing.T) {
	_, err := ParseIFD(make([]byte, 4<<10))
	var np *ferr.NotPresent
	if !errors.As(err, &np) {
		t.Fatalf("want NotPresent, got %v", err)
	}

	_, err = ParseIFD([]byte{1, 2, 3})
	if !errors.As(err, &np) {
		t.Fatalf("short input: want NotPresent, got %v", err)
	}
}
