package chip

import (
	"strings"
	"testing"
)

// Every catalog entry must present a sane erase menu: power-of-two sizes,
// ascending order, largest no bigger than the chip, smallest dividing the
// chip size evenly.
func TestBuiltinEraseMenus(t *testing.T) {
	for _, d := range Builtin().All() {
		if len(d.EraseBlocks) == 0 {
			t.Errorf("%s: empty erase menu", d.Name)
			continue
		}
		var prev int64
		for _, eb := range d.EraseBlocks {
			if eb.Size <= 0 || eb.Size&(eb.Size-1) != 0 {
				t.Errorf("%s: erase size %d is not a power of two", d.Name, eb.Size)
			}
			if eb.Size <= prev {
				t.Errorf("%s: erase menu not strictly ascending at %d", d.Name, eb.Size)
			}
			prev = eb.Size
		}
		largest := d.EraseBlocks[len(d.EraseBlocks)-1].Size
		if largest > d.TotalSize {
			t.Errorf("%s: largest erase block %d exceeds chip size %d", d.Name, largest, d.TotalSize)
		}
		if d.TotalSize%d.EraseBlocks[0].Size != 0 {
			t.Errorf("%s: smallest erase block %d does not divide chip size %d", d.Name, d.EraseBlocks[0].Size, d.TotalSize)
		}
	}
}

func TestBuiltinLookup(t *testing.T) {
	d, ok := Builtin().Lookup(0xEF, 0x4018)
	if !ok || d.Name != "W25Q128.V" {
		t.Fatalf("Lookup(EF,4018) = %+v, %v", d, ok)
	}
	if _, ok := Builtin().Lookup(0x00, 0x0000); ok {
		t.Fatal("absent key must not resolve")
	}
}

func TestNewDatabaseRejectsDuplicateKeys(t *testing.T) {
	_, err := NewDatabase([]Descriptor{
		{Name: "a", ManufacturerID: 0xEF, DeviceID: 0x4018},
		{Name: "b", ManufacturerID: 0xEF, DeviceID: 0x4018},
	})
	if err == nil {
		t.Fatal("duplicate (mfg, dev) keys must be rejected")
	}
}

const sampleDB = `
# winbond parts
vendor Winbond
manufacturer_id 0xEF

chip W25Q64.V
device_id 0x4017
total_size 8 MiB
voltage 2700 3600
feature wrsr_wren fast_read erase_4k erase_32k erase_64k
feature wp_tb wp_cmp status_reg_2
erase_block 0x20 4 KiB
erase_block 0x52 32 KiB
erase_block 0xD8 64 KiB
erase_block 0x60 8 MiB
wp_model generic-bp
tested probe=Ok read=Ok erase=Ok write=Nt wp=Dep
`

func TestLoadDatabase(t *testing.T) {
	db, err := LoadDatabase(strings.NewReader(sampleDB))
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	d, ok := db.Lookup(0xEF, 0x4017)
	if !ok {
		t.Fatal("loaded chip not found by key")
	}
	if d.Vendor != "Winbond" || d.Name != "W25Q64.V" {
		t.Fatalf("identity wrong: %+v", d)
	}
	if d.TotalSize != 8<<20 {
		t.Fatalf("total size %d, want %d", d.TotalSize, 8<<20)
	}
	if !d.Features.Has(WrsrWren | FastRead | Erase4K | WPTopBottom | WPComplement | StatusReg2) {
		t.Fatalf("features wrong: %b", d.Features)
	}
	if len(d.EraseBlocks) != 4 || d.EraseBlocks[0] != (EraseBlock{Opcode: 0x20, Size: 4 << 10}) {
		t.Fatalf("erase menu wrong: %+v", d.EraseBlocks)
	}
	if d.WPModel != WPModelGenericBP {
		t.Fatalf("wp model %q", d.WPModel)
	}
	if d.Tested.Write != TestedUnknown || d.Tested.WP != TestedDeprecated {
		t.Fatalf("tested states wrong: %+v", d.Tested)
	}
	if d.Voltage != (Voltage{MinMV: 2700, MaxMV: 3600}) {
		t.Fatalf("voltage wrong: %+v", d.Voltage)
	}
}

func TestLoadDatabaseUnknownFeature(t *testing.T) {
	const bad = `
vendor X
manufacturer_id 0x01
chip Y
device_id 0x0001
feature levitation
`
	if _, err := LoadDatabase(strings.NewReader(bad)); err == nil {
		t.Fatal("unknown feature names must be rejected")
	}
}

func TestLoadDatabaseDirectiveOutsideChip(t *testing.T) {
	const bad = `
vendor X
manufacturer_id 0x01
total_size 1 MiB
`
	if _, err := LoadDatabase(strings.NewReader(bad)); err == nil {
		t.Fatal("chip-scoped directive before any chip must be rejected")
	}
}

func TestTimingBounds(t *testing.T) {
	var zero Timing
	if zero.PageProgramBound() != DefaultPageProgram {
		t.Fatal("zero timing must fall back to the default page-program bound")
	}
	if zero.EraseBound(4<<10, false) != DefaultEraseSector {
		t.Fatal("zero timing must fall back to the sector default")
	}
	if zero.EraseBound(64<<10, false) != DefaultEraseBlock {
		t.Fatal("zero timing must fall back to the block default")
	}
	if zero.EraseBound(64<<10, true) != DefaultEraseChip {
		t.Fatal("whole-chip erase must use the chip bound")
	}

	d, _ := Builtin().Lookup(0xEF, 0x4018)
	if d.Timing.EraseBound(32<<10, false) != d.Timing.Erase32K {
		t.Fatal("recorded 32K timing must win over the default")
	}
}
