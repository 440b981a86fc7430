package ftdi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/spi"
)

// maxTxBytes bounds a single MPSSE transaction. [FTDI-AN_108]
const maxTxBytes = 65536

var hostInitialized atomic.Bool

// Programmer drives a SPI NOR chip over an FTDI FT2232H's second MPSSE
// channel in SPI mode.
type Programmer struct {
	ftdi *ftdi.FT232H
	cs   gpio.PinIO
	conn pspi.Conn
}

// Open finds the first attached FT2232H, configures its B channel for SPI
// mode 0 at clock, and takes pin D4 as the active-low chip select that
// Execute drives around each transaction.
func Open(clock physic.Frequency) (*Programmer, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	dev, err := findFT2232H()
	if err != nil {
		return nil, err
	}

	port, err := dev.SPI()
	if err != nil {
		return nil, fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI AN_114|1.2]: FTDI MPSSE only supports mode 0 and mode 2; SPI NOR
	// parts generally accept mode 0 or mode 3, so mode 0 is the common case.
	conn, err := port.Connect(clock, pspi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	return &Programmer{ftdi: dev, cs: dev.D4, conn: conn}, nil
}

func findFT2232H() (*ftdi.FT232H, error) {
	const (
		vendorID  = 0x0403
		productID = 0x6010
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}
	return nil, errors.New("ftdi: no FT2232H device found")
}

// Features reports the MPSSE transaction-size limit. Opcodes are unrestricted
// since the bus carries raw bytes; only the Single IO mode is supported.
func (p *Programmer) Features() spi.Capabilities {
	return spi.Capabilities{
		MaxReadLen:  maxTxBytes - 5,
		MaxWriteLen: maxTxBytes - 5,
		SupportedIOModes: map[spi.IOMode]bool{
			spi.Single: true,
		},
	}
}

// Execute asserts chip-select, shifts out opcode+address+dummy+write bytes,
// shifts in the read buffer, and deasserts chip-select, matching the
// half-duplex-over-a-full-duplex-bus pattern used throughout this family of
// MPSSE SPI drivers.
func (p *Programmer) Execute(ctx context.Context, cmd *spi.Command) error {
	if !cmd.Valid() {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "command carries both a write payload and a read buffer"}
	}
	header := []byte{cmd.Opcode}
	for i := int(cmd.AddrWidth) - 1; i >= 0; i-- {
		header = append(header, byte(cmd.Addr>>(8*i)))
	}
	if cmd.HasMode {
		header = append(header, cmd.Mode)
	}
	header = append(header, make([]byte, cmd.DummyCycles/8)...)

	var buf []byte
	switch {
	case len(cmd.Write) > 0:
		buf = append(header, cmd.Write...)
	case len(cmd.Read) > 0:
		buf = append(header, make([]byte, len(cmd.Read))...)
	default:
		buf = header
	}

	if err := p.cs.Out(gpio.Low); err != nil {
		return &ferr.TransportError{Kind: ferr.Permanent, Detail: "chip select assert", Err: err}
	}
	txErr := p.conn.Tx(buf, buf)
	if err := p.cs.Out(gpio.High); err != nil && txErr == nil {
		txErr = err
	}
	if txErr != nil {
		return &ferr.TransportError{Kind: ferr.Transient, Detail: "spi transaction", Err: txErr}
	}

	if len(cmd.Read) > 0 {
		copy(cmd.Read, buf[len(header):])
	}
	return nil
}

// DelayMicros sleeps for approximately us microseconds.
func (p *Programmer) DelayMicros(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
