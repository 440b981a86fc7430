package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/dummytransport"
	"github.com/gentam/spiflash/ferr"
	"github.com/gentam/spiflash/flashctx"
)

// Probing a simulated W25Q128 must yield its descriptor and 3-byte
// addressing, since the part is exactly 16 MiB.
func TestProbeW25Q128(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 16<<20, nil)
	fc, err := Probe(context.Background(), s, chip.Builtin(), Options{})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if fc.Descriptor.Name != "W25Q128.V" {
		t.Fatalf("got chip %q, want W25Q128.V", fc.Descriptor.Name)
	}
	if fc.Descriptor.TotalSize != 16<<20 {
		t.Fatalf("got size %d, want %d", fc.Descriptor.TotalSize, 16<<20)
	}
	if fc.Addressing != flashctx.Addr3Byte {
		t.Fatalf("16 MiB chip must come up in 3-byte addressing, got %s", fc.Addressing)
	}
}

func TestProbeUnknownChip(t *testing.T) {
	s := dummytransport.NewSPI(0x12, 0x3456, 1<<20, nil)
	_, err := Probe(context.Background(), s, chip.Builtin(), Options{})
	var nf *ferr.ChipNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("want ChipNotFound, got %v", err)
	}
	if nf.Manufacturer != 0x12 || nf.Device != 0x3456 {
		t.Fatalf("ChipNotFound carries wrong identity: %+v", nf)
	}
}

func TestProbeExpectedNameMismatch(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 16<<20, nil)
	_, err := Probe(context.Background(), s, chip.Builtin(), Options{ExpectedName: "N25Q032"})
	var mm *ferr.ChipMismatch
	if !errors.As(err, &mm) {
		t.Fatalf("want ChipMismatch, got %v", err)
	}
	if mm.Expected != "N25Q032" || mm.Found != "W25Q128.V" {
		t.Fatalf("ChipMismatch fields wrong: %+v", mm)
	}
}

func TestProbeExpectedNameMatch(t *testing.T) {
	s := dummytransport.NewSPI(0xEF, 0x4018, 16<<20, nil)
	if _, err := Probe(context.Background(), s, chip.Builtin(), Options{ExpectedName: "W25Q128.V"}); err != nil {
		t.Fatalf("Probe with matching expected name: %v", err)
	}
}
