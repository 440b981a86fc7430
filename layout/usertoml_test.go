package layout

import (
	"errors"
	"strings"
	"testing"

	"github.com/gentam/spiflash/ferr"
)

const sampleLayout = `
[layout]
name = "board"
chip_size = "16 MiB"

[[region]]
name = "bios"
start = 0x001000
end   = 0x7FFFFF

[[region]]
name = "descriptor"
start = 0x000000
end   = 0x000FFF
readonly = true
dangerous = true
`

func TestParseUserLayout(t *testing.T) {
	l, err := ParseUserLayout(strings.NewReader(sampleLayout))
	if err != nil {
		t.Fatalf("ParseUserLayout: %v", err)
	}
	if l.Name != "board" {
		t.Fatalf("name %q, want board", l.Name)
	}
	if l.ChipSize != 16<<20 {
		t.Fatalf("chip size %d, want %d", l.ChipSize, 16<<20)
	}

	desc, ok := l.Find("descriptor")
	if !ok {
		t.Fatal("descriptor region missing")
	}
	if !desc.Flags.Has(Readonly) || !desc.Flags.Has(Dangerous) {
		t.Fatalf("descriptor flags wrong: %+v", desc)
	}
	bios, _ := l.Find("bios")
	if bios.Start != 0x1000 || bios.End != 0x7FFFFF || bios.Flags != 0 {
		t.Fatalf("bios region wrong: %+v", bios)
	}
}

func TestParseUserLayoutOverlapRejected(t *testing.T) {
	const overlapping = `
[layout]
name = "bad"
[[region]]
name = "a"
start = 0x0000
end   = 0x1FFF
[[region]]
name = "b"
start = 0x1000
end   = 0x2FFF
`
	_, err := ParseUserLayout(strings.NewReader(overlapping))
	var pe *ferr.LayoutParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want LayoutParseError, got %v", err)
	}
	if !strings.Contains(pe.Detail, "overlaps") {
		t.Fatalf("error does not name the violation: %v", pe)
	}
}

func TestParseUserLayoutDuplicateNameRejected(t *testing.T) {
	const dup = `
[layout]
name = "bad"
[[region]]
name = "a"
start = 0x0000
end   = 0x0FFF
[[region]]
name = "a"
start = 0x1000
end   = 0x1FFF
`
	if _, err := ParseUserLayout(strings.NewReader(dup)); err == nil {
		t.Fatal("duplicate region names must be rejected")
	}
}

func TestParseUserLayoutOutOfBoundsRejected(t *testing.T) {
	const oob = `
[layout]
name = "bad"
chip_size = "4 KiB"
[[region]]
name = "a"
start = 0x0000
end   = 0x1FFF
`
	if _, err := ParseUserLayout(strings.NewReader(oob)); err == nil {
		t.Fatal("region past chip_size must be rejected")
	}
}

func TestParseUserLayoutStartAfterEndRejected(t *testing.T) {
	const backwards = `
[layout]
name = "bad"
[[region]]
name = "a"
start = 0x2000
end   = 0x1000
`
	_, err := ParseUserLayout(strings.NewReader(backwards))
	var pe *ferr.LayoutParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want LayoutParseError, got %v", err)
	}
	if !strings.Contains(pe.Detail, `"a"`) {
		t.Fatalf("error must name the offending region: %v", pe)
	}
}
