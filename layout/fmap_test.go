package layout

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gentam/spiflash/ferr"
)

type fmapArea struct {
	offset, size uint32
	name         string
	flags        uint16
}

// buildFMAP assembles an FMAP blob at offset off (must be 8-aligned) inside
// an image of total bytes.
func buildFMAP(total, off int, verMajor byte, areas []fmapArea) []byte {
	img := make([]byte, total)
	p := off
	copy(img[p:], "__FMAP__")
	p += 8
	img[p] = verMajor
	img[p+1] = 1 // ver_minor
	p += 2
	binary.LittleEndian.PutUint64(img[p:], 0) // base
	p += 8
	binary.LittleEndian.PutUint32(img[p:], uint32(total)) // size
	p += 4
	copy(img[p:], "FMAP")
	p += 32
	binary.LittleEndian.PutUint16(img[p:], uint16(len(areas)))
	p += 2

	for _, a := range areas {
		binary.LittleEndian.PutUint32(img[p:], a.offset)
		binary.LittleEndian.PutUint32(img[p+4:], a.size)
		copy(img[p+8:p+8+32], a.name)
		binary.LittleEndian.PutUint16(img[p+8+32:], a.flags)
		p += 4 + 4 + 32 + 2
	}
	return img
}

func TestParseFMAP(t *testing.T) {
	img := buildFMAP(1<<16, 0x200, 1, []fmapArea{
		{offset: 0, size: 0x1000, name: "RO_SECTION", flags: 1 << 1},
		{offset: 0x1000, size: 0x2000, name: "RW_SECTION_A", flags: 0},
	})

	l, err := ParseFMAP(img)
	if err != nil {
		t.Fatalf("ParseFMAP: %v", err)
	}
	if l.Name != "FMAP" {
		t.Fatalf("layout name %q, want FMAP", l.Name)
	}
	if len(l.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(l.Regions))
	}

	ro := l.Regions[0]
	if ro.Name != "RO_SECTION" || ro.Start != 0 || ro.End != 0xFFF || !ro.Flags.Has(Readonly) {
		t.Fatalf("RO area parsed wrong: %+v", ro)
	}
	rw := l.Regions[1]
	if rw.Name != "RW_SECTION_A" || rw.Start != 0x1000 || rw.End != 0x2FFF || rw.Flags.Has(Readonly) {
		t.Fatalf("RW area parsed wrong: %+v", rw)
	}
}

// The signature is only recognized at 8-byte alignments; one placed at an
// odd offset must not be found.
func TestParseFMAPAlignment(t *testing.T) {
	img := make([]byte, 1024)
	copy(img[13:], "__FMAP__")
	_, err := ParseFMAP(img)
	var np *ferr.NotPresent
	if !errors.As(err, &np) {
		t.Fatalf("unaligned signature must not match, got %v", err)
	}
}

func TestParseFMAPVersionRejected(t *testing.T) {
	img := buildFMAP(1<<12, 0, 2, nil)
	_, err := ParseFMAP(img)
	var uv *ferr.UnsupportedFmapVersion
	if !errors.As(err, &uv) {
		t.Fatalf("want UnsupportedFmapVersion, got %v", err)
	}
	if uv.Major != 2 {
		t.Fatalf("reported major %d, want 2", uv.Major)
	}
}

func TestParseFMAPPreserveFlag(t *testing.T) {
	img := buildFMAP(1<<14, 8, 1, []fmapArea{
		{offset: 0, size: 0x100, name: "VPD", flags: 1 << 2},
	})
	l, err := ParseFMAP(img)
	if err != nil {
		t.Fatalf("ParseFMAP: %v", err)
	}
	if !l.Regions[0].Flags.Has(Preserve) {
		t.Fatalf("FMAP_AREA_PRESERVE not mapped: %+v", l.Regions[0])
	}
}
