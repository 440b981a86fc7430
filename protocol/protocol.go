// Package protocol implements the JEDEC SPI25 command sequences: RDID,
// RDSR/RDSR2/RDSR3, WREN/WRDI, READ/FAST_READ, page program, sector/block/
// chip erase, status-register writes, and BUSY polling. Every function here
// is pure over the spi.Programmer it is given — the package holds no state
// of its own.
package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/internal/obs"
	"github.com/gentam/spiflash/spi"
)

// JEDEC SPI25 opcodes:
//   - [N25Q32|Table 16: Command Set]
//   - [W25Q128|8.1.2 Instruction Set Table 1]
const (
	opPowerUp             = 0xAB // Release Power-Down
	opPowerDown           = 0xB9
	opReadID              = 0x9F
	opRDSR1               = 0x05
	opRDSR2               = 0x35
	opRDSR3               = 0x15
	opWRSR                = 0x01
	opWriteEnable         = 0x06
	opWriteEnableVolatile = 0x50
	opWriteDisable        = 0x04
	opRead                = 0x03
	opRead4BA             = 0x13
	opFastRead            = 0x0B
	opFastRead4BA         = 0x0C
	opPageProgram         = 0x02
	opPageProgram4BA      = 0x12
	opEnter4BA            = 0xB7
	opExit4BA             = 0xE9

	jep106Continuation = 0x7F
)

func exec(ctx context.Context, p spi.Programmer, cmd *spi.Command) error {
	caps := p.Features()
	if !caps.SupportsOpcode(cmd.Opcode) {
		return &ferr.UnsupportedOpcode{Opcode: cmd.Opcode}
	}
	if !caps.SupportsIOMode(cmd.IOMode) {
		return &ferr.UnsupportedOpcode{Opcode: cmd.Opcode}
	}
	return p.Execute(ctx, cmd)
}

// ReadJEDECID issues RDID (0x9F) and returns the manufacturer byte and
// 16-bit device ID. JEP106 manufacturer-bank continuation bytes (0x7F) are
// skipped before the manufacturer byte is reported.
func ReadJEDECID(ctx context.Context, p spi.Programmer) (mfg byte, dev uint32, err error) {
	buf := make([]byte, 3+8) // allow room for a few continuation bytes
	cmd := &spi.Command{Opcode: opReadID, Read: buf}
	if err = exec(ctx, p, cmd); err != nil {
		return 0, 0, err
	}

	i := 0
	for i < len(buf) && buf[i] == jep106Continuation {
		i++
	}
	if i+3 > len(buf) {
		return 0, 0, fmt.Errorf("protocol: RDID response exhausted while skipping JEP106 continuation bytes")
	}
	mfg = buf[i]
	dev = uint32(buf[i+1])<<8 | uint32(buf[i+2])
	obs.Debug(obs.ComponentProtocol, "read jedec id", "manufacturer", mfg, "device", dev)
	return mfg, dev, nil
}

// ReadStatus reads status register n (1, 2, or 3). If the chip's feature
// set lacks the register (n>1 requires StatusReg2/StatusReg3), it returns 0
// without issuing any transaction.
func ReadStatus(ctx context.Context, p spi.Programmer, n int, features chip.FeatureSet) (byte, error) {
	var opcode byte
	switch n {
	case 1:
		opcode = opRDSR1
	case 2:
		if !features.Has(chip.StatusReg2) {
			return 0, nil
		}
		opcode = opRDSR2
	case 3:
		if !features.Has(chip.StatusReg3) {
			return 0, nil
		}
		opcode = opRDSR3
	default:
		return 0, fmt.Errorf("protocol: status register %d does not exist", n)
	}

	buf := make([]byte, 1)
	if err := exec(ctx, p, &spi.Command{Opcode: opcode, Read: buf}); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteEnable issues WREN (0x06).
func WriteEnable(ctx context.Context, p spi.Programmer) error {
	return exec(ctx, p, &spi.Command{Opcode: opWriteEnable})
}

// WriteDisable issues WRDI (0x04).
func WriteDisable(ctx context.Context, p spi.Programmer) error {
	return exec(ctx, p, &spi.Command{Opcode: opWriteDisable})
}

// WriteStatus writes 1-3 status register bytes. If the chip needs WREN
// before a status write (WrsrWren feature), it is issued first, using the
// volatile enable opcode (0x50) instead of WREN (0x06) when volatile is
// requested.
func WriteStatus(ctx context.Context, p spi.Programmer, values []byte, volatile bool, features chip.FeatureSet) error {
	if len(values) == 0 || len(values) > 3 {
		return fmt.Errorf("protocol: WRSR takes 1-3 status bytes, got %d", len(values))
	}
	if features.Has(chip.WrsrWren) {
		enableOp := byte(opWriteEnable)
		if volatile {
			enableOp = opWriteEnableVolatile
		}
		if err := exec(ctx, p, &spi.Command{Opcode: enableOp}); err != nil {
			return err
		}
	}
	return exec(ctx, p, &spi.Command{Opcode: opWRSR, Write: values})
}

// Read performs a flash read of len(buf) bytes starting at addr, selecting
// FAST_READ (with 8 dummy cycles) when the chip supports it, and the
// 4-byte-address opcode variant when fc is in 4-byte addressing mode.
func Read(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, addr int64, buf []byte) error {
	opcode, dummy := byte(opRead), 0
	if fc.Descriptor.Features.Has(chip.FastRead) {
		opcode, dummy = opFastRead, 8
	}
	if fc.Addressing == flashctx.Addr4Byte {
		if opcode == opFastRead {
			opcode = opFastRead4BA
		} else {
			opcode = opRead4BA
		}
	}

	cmd := &spi.Command{
		Opcode:      opcode,
		AddrWidth:   fc.Addressing.Width(),
		Addr:        uint32(addr),
		DummyCycles: dummy,
		Read:        buf,
		IOMode:      fc.IOMode,
	}
	return exec(ctx, p, cmd)
}

// PageProgram issues a page-program command for data, which must not cross
// a 256-byte page boundary; callers (orchestrate) are responsible for
// chunking accordingly.
func PageProgram(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, addr int64, data []byte) error {
	if len(data) == 0 || len(data) > 256 {
		return fmt.Errorf("protocol: page program takes 1-256 bytes, got %d", len(data))
	}
	pageStart := addr &^ 0xFF
	if pageStart != (addr+int64(len(data))-1)&^0xFF {
		return fmt.Errorf("protocol: page program at 0x%X+%d crosses a 256-byte page boundary", addr, len(data))
	}

	opcode := byte(opPageProgram)
	if fc.Addressing == flashctx.Addr4Byte {
		opcode = opPageProgram4BA
	}
	cmd := &spi.Command{
		Opcode:    opcode,
		AddrWidth: fc.Addressing.Width(),
		Addr:      uint32(addr),
		Write:     data,
		IOMode:    fc.IOMode,
	}
	return exec(ctx, p, cmd)
}

// Erase issues WREN followed by an erase opcode+address. Chip-erase opcodes
// (whose block size equals the whole chip) take no address.
func Erase(ctx context.Context, p spi.Programmer, fc *flashctx.FlashContext, opcode byte, addr int64, wholeChip bool) error {
	if err := WriteEnable(ctx, p); err != nil {
		return err
	}
	cmd := &spi.Command{Opcode: opcode, IOMode: fc.IOMode}
	if !wholeChip {
		cmd.AddrWidth = fc.Addressing.Width()
		cmd.Addr = uint32(addr)
	}
	return exec(ctx, p, cmd)
}

// WaitReady polls RDSR until BUSY clears, with exponential backoff starting
// at 10us and capping at 1ms, honoring timeout as an overall deadline.
func WaitReady(ctx context.Context, p spi.Programmer, operation string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	delay := 10 * time.Microsecond
	const maxDelay = time.Millisecond

	for {
		buf := make([]byte, 1)
		if err := exec(ctx, p, &spi.Command{Opcode: opRDSR1, Read: buf}); err != nil {
			return err
		}
		if !StatusRegister(buf[0]).Busy() {
			return nil
		}
		if time.Now().After(deadline) {
			return &ferr.Timeout{Operation: operation, Elapsed: timeout.String()}
		}
		p.DelayMicros(uint32(delay.Microseconds()))
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// PowerUp issues Release Power-Down (0xAB) and waits the chip's tRES1 before
// returning, after which the part accepts further commands. Chips come out of
// reset in standby, but a previous tool run may have left one powered down.
func PowerUp(ctx context.Context, p spi.Programmer, timing chip.Timing) error {
	if err := exec(ctx, p, &spi.Command{Opcode: opPowerUp}); err != nil {
		return err
	}
	p.DelayMicros(uint32(timing.PowerUpBound().Microseconds()))
	return nil
}

// PowerDown issues Deep Power-Down (0xB9) and waits tDP. Only PowerUp (and on
// most parts RDID) will wake the chip afterwards.
func PowerDown(ctx context.Context, p spi.Programmer, timing chip.Timing) error {
	if err := exec(ctx, p, &spi.Command{Opcode: opPowerDown}); err != nil {
		return err
	}
	p.DelayMicros(uint32(timing.PowerDown.Microseconds()))
	return nil
}

// Enter4BA issues 0xB7 to put the chip into native 4-byte addressing mode.
func Enter4BA(ctx context.Context, p spi.Programmer) error {
	return exec(ctx, p, &spi.Command{Opcode: opEnter4BA})
}

// Exit4BA issues 0xE9 to return the chip to 3-byte addressing mode.
func Exit4BA(ctx context.Context, p spi.Programmer) error {
	return exec(ctx, p, &spi.Command{Opcode: opExit4BA})
}
