package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/gentam/spiflash/ferr"
)

const fmapSignature = "__FMAP__"

// FMAP area flag bits, per the Chromium OS fmap.h reference.
const (
	fmapAreaStatic     = 1 << 0
	fmapAreaRO         = 1 << 1
	fmapAreaPreserve   = 1 << 2
	fmapAreaCompressed = 1 << 3
)

const (
	fmapNameLen   = 32
	fmapHeaderLen = 8 + 1 + 1 + 8 + 4 + fmapNameLen + 2 // sig+ver_major+ver_minor+base+size+name+nareas
	fmapAreaLen   = 4 + 4 + fmapNameLen + 2              // offset+size+name+flags
)

// ParseFMAP searches image for an "__FMAP__" signature at any 8-byte
// alignment and, if found, decodes its header and area table into a Layout.
// It returns *ferr.NotPresent if no signature is found, or
// *ferr.UnsupportedFmapVersion if the header's major version is not 1.
func ParseFMAP(image []byte) (*Layout, error) {
	off := findFMAPSignature(image)
	if off < 0 {
		return nil, &ferr.NotPresent{Source: "fmap"}
	}
	if off+fmapHeaderLen > len(image) {
		return nil, &ferr.LayoutParseError{Source: "fmap", Detail: "header truncated"}
	}

	p := off + 8 // past signature
	verMajor := image[p]
	verMinor := image[p+1]
	p++
	p++
	if verMajor != 1 {
		return nil, &ferr.UnsupportedFmapVersion{Major: verMajor, Minor: verMinor}
	}

	// base u64, size u32 are informational; skip over them.
	p += 8 // base
	p += 4 // size
	name := cString(image[p : p+fmapNameLen])
	p += fmapNameLen
	nareas := binary.LittleEndian.Uint16(image[p:])
	p += 2

	l := &Layout{Name: name}
	for i := 0; i < int(nareas); i++ {
		if p+fmapAreaLen > len(image) {
			return nil, &ferr.LayoutParseError{Source: "fmap", Detail: "area table truncated"}
		}
		areaOffset := binary.LittleEndian.Uint32(image[p:])
		areaSize := binary.LittleEndian.Uint32(image[p+4:])
		areaName := cString(image[p+8 : p+8+fmapNameLen])
		flags := binary.LittleEndian.Uint16(image[p+8+fmapNameLen:])
		p += fmapAreaLen

		if areaSize == 0 {
			continue
		}
		r := Region{
			Name:  areaName,
			Start: int64(areaOffset),
			End:   int64(areaOffset) + int64(areaSize) - 1,
		}
		if flags&fmapAreaRO != 0 {
			r.Flags |= Readonly
		}
		if flags&fmapAreaPreserve != 0 {
			r.Flags |= Preserve
		}
		if flags&fmapAreaStatic != 0 {
			r.Flags |= Static
		}
		if flags&fmapAreaCompressed != 0 {
			r.Flags |= Compressed
		}
		l.Regions = append(l.Regions, r)
	}

	return l, nil
}

func findFMAPSignature(image []byte) int {
	sig := []byte(fmapSignature)
	for off := 0; off+len(sig) <= len(image); off += 8 {
		if bytes.Equal(image[off:off+len(sig)], sig) {
			return off
		}
	}
	return -1
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
