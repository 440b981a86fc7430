package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/dummytransport"
	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/spi"
)

// rdidProgrammer answers RDID with a fixed byte sequence, for exercising the
// JEP106 continuation-skip logic that the in-memory chip never produces.
type rdidProgrammer struct {
	resp []byte
}

func (r *rdidProgrammer) Features() spi.Capabilities { return spi.Capabilities{} }
func (r *rdidProgrammer) DelayMicros(us uint32)      {}

func (r *rdidProgrammer) Execute(ctx context.Context, cmd *spi.Command) error {
	for i := range cmd.Read {
		if i < len(r.resp) {
			cmd.Read[i] = r.resp[i]
		} else {
			cmd.Read[i] = 0
		}
	}
	return nil
}

func TestReadJEDECID(t *testing.T) {
	p := &rdidProgrammer{resp: []byte{0xEF, 0x40, 0x18}}
	mfg, dev, err := ReadJEDECID(context.Background(), p)
	if err != nil {
		t.Fatalf("ReadJEDECID: %v", err)
	}
	if mfg != 0xEF || dev != 0x4018 {
		t.Fatalf("got (0x%02X, 0x%04X), want (0xEF, 0x4018)", mfg, dev)
	}
}

// Banks beyond the first prefix the ID with 0x7F continuation bytes; they
// must be skipped, not reported as the manufacturer.
func TestReadJEDECIDSkipsContinuations(t *testing.T) {
	p := &rdidProgrammer{resp: []byte{0x7F, 0x7F, 0x9D, 0x60, 0x16}}
	mfg, dev, err := ReadJEDECID(context.Background(), p)
	if err != nil {
		t.Fatalf("ReadJEDECID: %v", err)
	}
	if mfg != 0x9D || dev != 0x6016 {
		t.Fatalf("got (0x%02X, 0x%04X), want (0x9D, 0x6016)", mfg, dev)
	}
}

func TestReadStatusAbsentRegisterReturnsZero(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 1<<20, nil)
	s.SR2 = 0xAA

	// Without the StatusReg2 feature no transaction may be issued at all.
	v, err := ReadStatus(context.Background(), s, 2, 0)
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if v != 0 {
		t.Fatalf("absent register must read 0, got 0x%02X", v)
	}
	if len(s.Ops) != 0 {
		t.Fatalf("no transaction may be issued for an absent register, saw %v", s.Ops)
	}

	v, err = ReadStatus(context.Background(), s, 2, chip.StatusReg2)
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if v != 0xAA {
		t.Fatalf("got 0x%02X, want 0xAA", v)
	}
}

// With wrsr_wren the non-volatile path prepends WREN (0x06) and the volatile
// path prepends the volatile enable (0x50) instead.
func TestWriteStatusEnableOpcode(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 1<<20, nil)

	if err := WriteStatus(context.Background(), s, []byte{0x1C}, false, chip.WrsrWren); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if len(s.Ops) != 2 || s.Ops[0] != 0x06 || s.Ops[1] != 0x01 {
		t.Fatalf("non-volatile write issued %v, want [06 01]", s.Ops)
	}
	if s.SR1 != 0x1C {
		t.Fatalf("SR1 = 0x%02X, want 0x1C", s.SR1)
	}

	s.Ops = nil
	if err := WriteStatus(context.Background(), s, []byte{0x00}, true, chip.WrsrWren); err != nil {
		t.Fatalf("WriteStatus volatile: %v", err)
	}
	if len(s.Ops) != 2 || s.Ops[0] != 0x50 || s.Ops[1] != 0x01 {
		t.Fatalf("volatile write issued %v, want [50 01]", s.Ops)
	}
}

func TestWaitReadyPollsUntilClear(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 1<<20, nil)
	s.BusyPolls = 3
	if err := WaitReady(context.Background(), s, "test", time.Second); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if s.BusyPolls != 0 {
		t.Fatalf("expected all busy polls consumed, %d left", s.BusyPolls)
	}
	// Backoff starts at 10us and doubles; the recorded delays must be
	// non-decreasing.
	for i := 1; i < len(s.Delays); i++ {
		if s.Delays[i] < s.Delays[i-1] {
			t.Fatalf("backoff not monotonic: %v", s.Delays)
		}
	}
}

func TestWaitReadyTimeout(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 1<<20, nil)
	s.BusyPolls = 1 << 30
	err := WaitReady(context.Background(), s, "erase", time.Millisecond)
	var to *ferr.Timeout
	if !errors.As(err, &to) {
		t.Fatalf("want Timeout, got %v", err)
	}
	if to.Operation != "erase" {
		t.Fatalf("Timeout names %q, want erase", to.Operation)
	}
}

func TestReadOpcodeSelection(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 1<<20, nil)
	buf := make([]byte, 4)

	fast := flashctx.New(chip.Descriptor{TotalSize: 1 << 20, Features: chip.FastRead})
	if err := Read(context.Background(), s, fast, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Ops[len(s.Ops)-1] != 0x0B {
		t.Fatalf("fast_read chip must use 0x0B, used 0x%02X", s.Ops[len(s.Ops)-1])
	}

	slow := flashctx.New(chip.Descriptor{TotalSize: 1 << 20})
	if err := Read(context.Background(), s, slow, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Ops[len(s.Ops)-1] != 0x03 {
		t.Fatalf("plain chip must use 0x03, used 0x%02X", s.Ops[len(s.Ops)-1])
	}

	big := flashctx.New(chip.Descriptor{TotalSize: 32 << 20, Features: chip.FastRead})
	if big.Addressing != flashctx.Addr4Byte {
		t.Fatal("32 MiB chip must come up in 4-byte addressing")
	}
	s2 := dummytransport.NewSPI(0xEF, 0x4019, 32<<20, nil)
	if err := Read(context.Background(), s2, big, 0, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s2.Ops[len(s2.Ops)-1] != 0x0C {
		t.Fatalf("4-byte fast read must use 0x0C, used 0x%02X", s2.Ops[len(s2.Ops)-1])
	}
}

func TestPageProgramRejectsBoundaryCross(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 1<<20, nil)
	fc := flashctx.New(chip.Descriptor{TotalSize: 1 << 20})
	if err := PageProgram(context.Background(), s, fc, 0xF0, make([]byte, 0x20)); err == nil {
		t.Fatal("a program crossing a 256-byte boundary must be rejected")
	}
}

func TestStatusRegisterBits(t *testing.T) {
	sr := StatusRegister(0x1C)
	if !sr.BlockProtect0() || !sr.BlockProtect1() || !sr.BlockProtect2() {
		t.Fatal("0x1C sets BP0-2")
	}
	if sr.Busy() || sr.WriteEnabled() || sr.TopBottom() {
		t.Fatal("0x1C sets nothing else")
	}
	if s := StatusRegister(0x01).String(); s != "00000001 BUSY" {
		t.Fatalf("String() = %q", s)
	}
}
