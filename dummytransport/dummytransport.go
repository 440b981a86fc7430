// Package dummytransport provides an in-memory spi.Programmer and
// spi.OpaqueProgrammer backed by a plain byte slice, for tests and
// scenario replay that need a chip without real hardware attached.
package dummytransport

import (
	"context"

	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/spi"
)

// SPI simulates a JEDEC-ish chip's command set directly in memory: RDID,
// RDSR1/2, WREN/WRDI, WRSR, READ/FAST_READ, page program, and any erase
// opcode pre-registered via EraseBlocks. It is single-threaded and makes no
// attempt to model timing beyond DelayMicros being a no-op counter.
type SPI struct {
	Mfg     byte
	Dev     uint32
	Mem     []byte
	SR1     byte
	SR2     byte
	wel     bool
	Caps    spi.Capabilities
	Delays  []uint32 // records every DelayMicros call, for tests
	Ops     []byte   // records every executed opcode, in order
	// BusyPolls makes the next n RDSR reads report BUSY before the chip
	// settles, for exercising wait_ready paths.
	BusyPolls int
	opcodes   map[byte]func(*SPI, *spi.Command) error
}

// EraseBlock registers an erase opcode that clears blockSize bytes at
// cmd.Addr to 0xFF.
type EraseBlock struct {
	Opcode    byte
	BlockSize int64
}

// NewSPI builds a simulated chip of size bytes, initialized to 0xFF
// (the erased state), with the given erase opcodes wired up.
func NewSPI(mfg byte, dev uint32, size int64, erases []EraseBlock) *SPI {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	s := &SPI{Mfg: mfg, Dev: dev, Mem: mem}
	s.opcodes = map[byte]func(*SPI, *spi.Command) error{
		0x9F: (*SPI).handleReadID,
		0x05: (*SPI).handleRDSR1,
		0x35: (*SPI).handleRDSR2,
		0x06: (*SPI).handleWREN,
		0x04: (*SPI).handleWRDI,
		0x01: (*SPI).handleWRSR,
		0x03: (*SPI).handleRead,
		0x0B: (*SPI).handleFastRead,
		0x13: (*SPI).handleRead,
		0x0C: (*SPI).handleFastRead,
		0x02: (*SPI).handlePageProgram,
		0x12: (*SPI).handlePageProgram,
		0x50: (*SPI).handleWREN, // volatile SR write enable
		0xAB: (*SPI).handleNop,  // release power-down
		0xB9: (*SPI).handleNop,  // deep power-down
		0xB7: (*SPI).handleNop,  // enter 4-byte addressing
		0xE9: (*SPI).handleNop,  // exit 4-byte addressing
	}
	for _, eb := range erases {
		eb := eb
		s.opcodes[eb.Opcode] = func(sp *SPI, cmd *spi.Command) error {
			return sp.handleErase(cmd, eb.BlockSize)
		}
	}
	return s
}

func (s *SPI) Features() spi.Capabilities { return s.Caps }

func (s *SPI) Execute(ctx context.Context, cmd *spi.Command) error {
	s.Ops = append(s.Ops, cmd.Opcode)
	h, ok := s.opcodes[cmd.Opcode]
	if !ok {
		return &ferr.UnsupportedOpcode{Opcode: cmd.Opcode}
	}
	return h(s, cmd)
}

func (s *SPI) DelayMicros(us uint32) { s.Delays = append(s.Delays, us) }

func (s *SPI) handleReadID(cmd *spi.Command) error {
	for i := range cmd.Read {
		switch i {
		case 0:
			cmd.Read[0] = s.Mfg
		case 1:
			cmd.Read[1] = byte(s.Dev >> 8)
		case 2:
			cmd.Read[2] = byte(s.Dev)
		default:
			cmd.Read[i] = 0
		}
	}
	return nil
}

func (s *SPI) handleRDSR1(cmd *spi.Command) error {
	if len(cmd.Read) > 0 {
		cmd.Read[0] = s.SR1
		if s.BusyPolls > 0 {
			s.BusyPolls--
			cmd.Read[0] |= 1 // BUSY
		}
	}
	return nil
}

func (s *SPI) handleNop(cmd *spi.Command) error { return nil }

func (s *SPI) handleRDSR2(cmd *spi.Command) error {
	if len(cmd.Read) > 0 {
		cmd.Read[0] = s.SR2
	}
	return nil
}

func (s *SPI) handleWREN(cmd *spi.Command) error {
	s.wel = true
	return nil
}

func (s *SPI) handleWRDI(cmd *spi.Command) error {
	s.wel = false
	return nil
}

func (s *SPI) handleWRSR(cmd *spi.Command) error {
	if !s.wel {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "WRSR without WREN"}
	}
	if len(cmd.Write) > 0 {
		s.SR1 = cmd.Write[0]
	}
	if len(cmd.Write) > 1 {
		s.SR2 = cmd.Write[1]
	}
	s.wel = false
	return nil
}

func (s *SPI) handleRead(cmd *spi.Command) error {
	return s.readAt(int64(cmd.Addr), cmd.Read)
}

func (s *SPI) handleFastRead(cmd *spi.Command) error {
	return s.readAt(int64(cmd.Addr), cmd.Read)
}

func (s *SPI) readAt(addr int64, buf []byte) error {
	if addr < 0 || addr+int64(len(buf)) > int64(len(s.Mem)) {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "read out of range"}
	}
	copy(buf, s.Mem[addr:addr+int64(len(buf))])
	return nil
}

func (s *SPI) handlePageProgram(cmd *spi.Command) error {
	if !s.wel {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "page program without WREN"}
	}
	addr := int64(cmd.Addr)
	if addr < 0 || addr+int64(len(cmd.Write)) > int64(len(s.Mem)) {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "program out of range"}
	}
	for i, b := range cmd.Write {
		s.Mem[addr+int64(i)] &= b // PP can only clear bits, matching real NOR behavior
	}
	s.wel = false
	return nil
}

func (s *SPI) handleErase(cmd *spi.Command, blockSize int64) error {
	if !s.wel {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "erase without WREN"}
	}
	addr := int64(cmd.Addr)
	size := blockSize
	if blockSize >= int64(len(s.Mem)) {
		addr, size = 0, int64(len(s.Mem))
	}
	if addr < 0 || addr+size > int64(len(s.Mem)) {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "erase out of range"}
	}
	for i := addr; i < addr+size; i++ {
		s.Mem[i] = 0xFF
	}
	s.wel = false
	return nil
}

// Opaque is a minimal in-memory spi.OpaqueProgrammer for exercising the
// orchestrator's opaque-backend path without any protocol-layer involvement.
type Opaque struct {
	Mem []byte
}

// NewOpaque builds an opaque backend of size bytes, erased to 0xFF.
func NewOpaque(size int64) *Opaque {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Opaque{Mem: mem}
}

func (o *Opaque) Size() int64 { return int64(len(o.Mem)) }

func (o *Opaque) Read(ctx context.Context, addr int64, buf []byte) error {
	if addr < 0 || addr+int64(len(buf)) > int64(len(o.Mem)) {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "read out of range"}
	}
	copy(buf, o.Mem[addr:addr+int64(len(buf))])
	return nil
}

func (o *Opaque) Write(ctx context.Context, addr int64, data []byte) error {
	if addr < 0 || addr+int64(len(data)) > int64(len(o.Mem)) {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "write out of range"}
	}
	copy(o.Mem[addr:addr+int64(len(data))], data)
	return nil
}

func (o *Opaque) Erase(ctx context.Context, addr, length int64) error {
	if addr < 0 || addr+length > int64(len(o.Mem)) {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "erase out of range"}
	}
	for i := addr; i < addr+length; i++ {
		o.Mem[i] = 0xFF
	}
	return nil
}
