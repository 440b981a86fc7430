package layout

import (
	"encoding/binary"

	"github.com/gentam/spiflash/ferr"
)

const (
	ifdSignature   = 0x0FF0A55A
	ifdSignatureOff = 16
	ifdFLMAP0Off    = 20
)

// ifdRegionNames maps a flash region index to its canonical name, per the
// Intel Flash Descriptor region numbering.
var ifdRegionNames = []string{
	"descriptor", // 0
	"bios",       // 1
	"me",         // 2
	"gbe",        // 3
	"platform",   // 4
	"devexp",     // 5
	"bios2",      // 6
	"ec",         // 7
}

// ParseIFD scans image for an Intel Flash Descriptor signature at offset 16
// and, if present, extracts its region map into a Layout. It returns
// *ferr.NotPresent if the signature is absent, which is not necessarily an
// error for a caller trying multiple layout sources in sequence.
func ParseIFD(image []byte) (*Layout, error) {
	if len(image) < ifdFLMAP0Off+4 {
		return nil, &ferr.NotPresent{Source: "ifd"}
	}
	if binary.LittleEndian.Uint32(image[ifdSignatureOff:]) != ifdSignature {
		return nil, &ferr.NotPresent{Source: "ifd"}
	}

	flmap0 := binary.LittleEndian.Uint32(image[ifdFLMAP0Off:])
	nr := int((flmap0>>24)&0x7) + 1 // FLMAP0 bits 24-26: number of regions minus one
	frba := int((flmap0>>16)&0xFF) << 4

	l := &Layout{Name: "ifd"}
	for i := 0; i < nr; i++ {
		off := frba + 4*i
		if off+4 > len(image) {
			return nil, &ferr.LayoutParseError{Source: "ifd", Detail: "region entry out of bounds"}
		}
		entry := binary.LittleEndian.Uint32(image[off:])
		base := int64(entry&0x7FFF) << 12
		limit := int64(((entry>>16)&0x7FFF)+1)<<12 - 1
		if base > limit {
			continue // absent region
		}

		name := regionName(i)
		r := Region{Name: name, Start: base, End: limit}
		switch name {
		case "descriptor":
			r.Flags |= Readonly | Dangerous
		case "me":
			r.Flags |= Dangerous
		}
		l.Regions = append(l.Regions, r)
	}

	return l, nil
}

func regionName(i int) string {
	if i >= 0 && i < len(ifdRegionNames) {
		return ifdRegionNames[i]
	}
	return "unknown"
}
