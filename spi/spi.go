// Package spi describes a single SPI25 bus transaction and the capability
// contract a programmer must satisfy to execute one. It holds no state of
// its own; protocol.go builds Commands and hands them to a Programmer.
package spi

import "context"

// IOMode selects how many data lines a transaction uses.
type IOMode uint8

const (
	Single     IOMode = iota // one data line, both directions (3-wire or 4-wire)
	DualOutput               // command/address on one line, data read on two
	DualIO                   // command on one line, address+data on two
	QuadOutput               // command/address on one line, data read on four
	QuadIO                   // command on one line, address+data on four
	QPI                      // all phases on four lines, including the opcode
)

func (m IOMode) String() string {
	switch m {
	case Single:
		return "single"
	case DualOutput:
		return "dual-output"
	case DualIO:
		return "dual-io"
	case QuadOutput:
		return "quad-output"
	case QuadIO:
		return "quad-io"
	case QPI:
		return "qpi"
	default:
		return "unknown"
	}
}

// AddrWidth is the number of address bytes a Command carries.
type AddrWidth uint8

const (
	NoAddr    AddrWidth = 0
	Addr3Byte AddrWidth = 3
	Addr4Byte AddrWidth = 4
)

// Command is a single SPI transaction: an opcode, an optional address, an
// optional mode byte, a dummy-cycle count, and at most one of a write
// payload or a read buffer (the transport is treated as half-duplex at this
// layer; full-duplex transports simply ignore the unused half).
type Command struct {
	Opcode      byte
	AddrWidth   AddrWidth
	Addr        uint32
	HasMode     bool
	Mode        byte
	DummyCycles int
	Write       []byte
	Read        []byte
	IOMode      IOMode
}

// Valid reports whether the command satisfies the half-duplex invariant:
// a single transaction carries a write payload or a read buffer, never both.
func (c *Command) Valid() bool {
	return len(c.Write) == 0 || len(c.Read) == 0
}

// Capabilities describes what a Programmer supports. The protocol layer
// queries it once (typically at construction) and selects opcodes and IO
// modes accordingly; it never needs to special-case a programmer type.
type Capabilities struct {
	MaxReadLen       int
	MaxWriteLen      int
	SupportedOpcodes map[byte]bool
	SupportedIOModes map[IOMode]bool
}

// SupportsOpcode reports whether opcode is usable. A nil/empty
// SupportedOpcodes set means "all opcodes accepted" (the common case for a
// raw SPI bus that has no opcode-level filtering).
func (c Capabilities) SupportsOpcode(op byte) bool {
	if len(c.SupportedOpcodes) == 0 {
		return true
	}
	return c.SupportedOpcodes[op]
}

// SupportsIOMode reports whether mode is usable, with the same "empty means
// all" convention as SupportsOpcode.
func (c Capabilities) SupportsIOMode(m IOMode) bool {
	if len(c.SupportedIOModes) == 0 {
		return true
	}
	return c.SupportedIOModes[m]
}

// Programmer executes SPI25 Commands against an attached chip. Concrete
// implementations (transport/ftdi, dummytransport) adapt a real or
// simulated bus; the protocol and orchestration layers depend only on this
// interface.
type Programmer interface {
	// Features returns the programmer's fixed capability descriptor.
	Features() Capabilities
	// Execute performs one Command synchronously with respect to the
	// caller. It returns *ferr.TransportError on a medium-level failure or
	// *ferr.UnsupportedOpcode if the capability check rejects the command.
	Execute(ctx context.Context, cmd *Command) error
	// DelayMicros sleeps for approximately us microseconds. Exposed so the
	// protocol layer's polling loops can honor a transport's own notion of
	// timing (e.g. a simulated transport may compress delays).
	DelayMicros(us uint32)
}

// OpaqueProgrammer is the bypass interface for controllers that expose only
// read/write/erase at an address, with no SPI-level command visibility. The
// orchestrator dispatches directly to it and never constructs a
// FlashContext or invokes the protocol layer for this backend.
type OpaqueProgrammer interface {
	Size() int64
	Read(ctx context.Context, addr int64, buf []byte) error
	Write(ctx context.Context, addr int64, data []byte) error
	Erase(ctx context.Context, addr, length int64) error
}
