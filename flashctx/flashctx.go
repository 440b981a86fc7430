// Package flashctx defines the runtime state tracked for one attached chip
// across a sequence of operations: which descriptor was identified, the
// current addressing mode and IO mode, detected write protection, and an
// optional layout. A FlashContext is constructed once by probe and held
// exclusively by whichever operation is using it; it owns no reference to
// the transport, which callers pass in per operation.
package flashctx

import (
	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/layout"
	"github.com/gentam/spiflash/spi"
)

// AddressingMode is the chip's current address-byte width.
type AddressingMode uint8

const (
	Addr3Byte AddressingMode = iota
	Addr4Byte
)

func (m AddressingMode) String() string {
	if m == Addr4Byte {
		return "4-byte"
	}
	return "3-byte"
}

// Width returns the equivalent spi.AddrWidth.
func (m AddressingMode) Width() spi.AddrWidth {
	if m == Addr4Byte {
		return spi.Addr4Byte
	}
	return spi.Addr3Byte
}

// WPState summarizes the write-protection condition detected at probe time.
type WPState struct {
	ProtectedStart int64
	ProtectedLen   int64
	HWEnforced     bool
}

// FlashContext is the live state for one attached chip.
type FlashContext struct {
	Descriptor chip.Descriptor
	Addressing AddressingMode
	IOMode     spi.IOMode
	WP         WPState
	Layout     *layout.Layout
}

// New constructs a FlashContext for descriptor, coming up in 3-byte
// addressing if the chip is at most 16 MiB and 4-byte otherwise.
func New(descriptor chip.Descriptor) *FlashContext {
	mode := Addr3Byte
	if descriptor.TotalSize > 16<<20 {
		mode = Addr4Byte
	}
	return &FlashContext{
		Descriptor: descriptor,
		Addressing: mode,
		IOMode:     spi.Single,
	}
}

// RequiresExplicit4BAEntry reports whether the chip needs an explicit
// enter_4ba command (as opposed to having native 4-byte opcodes it can use
// without ever leaving 3-byte addressing mode).
func (fc *FlashContext) RequiresExplicit4BAEntry() bool {
	return fc.Addressing == Addr4Byte && !fc.Descriptor.Features.Has(chip.Addr4BA)
}
