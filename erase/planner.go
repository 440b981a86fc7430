// Package erase computes the minimal sequence of heterogeneous erase-block
// operations that exactly covers an arbitrary byte range.
package erase

import (
	"fmt"
	"sort"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/ferr"
)

// Op is one erase operation in a plan: an opcode, the absolute address it
// targets, and the number of bytes it erases. Whole-chip erase opcodes carry
// WholeChip == true, since chip-erase commands take no address.
type Op struct {
	Opcode    byte
	Addr      int64
	Size      int64
	WholeChip bool
}

type interval struct{ start, end int64 } // end exclusive

// Plan computes the minimal-count erase plan covering [start, end) on a chip
// of chipSize bytes, using menu, which must be sorted ascending by Size
// (smallest first), as chip.Descriptor.EraseBlocks guarantees. It returns
// *ferr.UnalignedRange if [start,end) is not aligned to the smallest block
// in menu.
//
// The algorithm is a greedy largest-block-first cover: at each step it picks
// the largest block size that fits somewhere in what's left to erase, and
// among equally-sized candidates it picks the lowest address, which makes
// the output deterministic. Because the smallest aligned position for a
// given block size within an interval is also the position most likely to
// fit (later aligned positions only have less room before the interval
// ends), checking just that position per interval is sufficient to find the
// best candidate for each size.
func Plan(start, end int64, menu []chip.EraseBlock, chipSize int64) ([]Op, error) {
	if len(menu) == 0 {
		return nil, fmt.Errorf("erase: empty erase-block menu")
	}
	if end <= start {
		return nil, fmt.Errorf("erase: range end 0x%X must be after start 0x%X", end, start)
	}

	smallest := menu[0].Size
	if start%smallest != 0 || end%smallest != 0 {
		return nil, &ferr.UnalignedRange{Start: start, End: end, RequiredAlign: smallest}
	}

	// Largest-first order for the greedy search.
	desc := make([]chip.EraseBlock, len(menu))
	copy(desc, menu)
	sort.Slice(desc, func(i, j int) bool { return desc[i].Size > desc[j].Size })

	remaining := []interval{{start, end}}
	var ops []Op

	for len(remaining) > 0 {
		block, idx, addr, ok := findBestFit(remaining, desc)
		if !ok {
			// Unreachable given the smallest-block alignment check above:
			// the smallest block always fits somewhere in any nonempty,
			// smallest-aligned remaining interval.
			return nil, fmt.Errorf("erase: no erase block fits remaining range")
		}

		ops = append(ops, Op{
			Opcode:    block.Opcode,
			Addr:      addr,
			Size:      block.Size,
			WholeChip: block.Size == chipSize,
		})
		remaining = consume(remaining, idx, addr, block.Size)
	}

	return ops, nil
}

// findBestFit returns the largest block (and the interval index and address
// it occupies) that fits anywhere in remaining, breaking ties by lowest
// address.
func findBestFit(remaining []interval, desc []chip.EraseBlock) (chip.EraseBlock, int, int64, bool) {
	for _, block := range desc {
		bestIdx := -1
		var bestAddr int64
		for i, iv := range remaining {
			addr := alignUp(iv.start, block.Size)
			if addr+block.Size > iv.end {
				continue
			}
			if bestIdx == -1 || addr < bestAddr {
				bestIdx, bestAddr = i, addr
			}
		}
		if bestIdx != -1 {
			return block, bestIdx, bestAddr, true
		}
	}
	return chip.EraseBlock{}, -1, 0, false
}

func alignUp(v, align int64) int64 {
	return (v + align - 1) / align * align
}

// consume removes [addr, addr+size) from remaining[idx], splitting it into
// up to two sub-intervals.
func consume(remaining []interval, idx int, addr, size int64) []interval {
	iv := remaining[idx]
	var repl []interval
	if addr > iv.start {
		repl = append(repl, interval{iv.start, addr})
	}
	if addr+size < iv.end {
		repl = append(repl, interval{addr + size, iv.end})
	}
	out := make([]interval, 0, len(remaining)-1+len(repl))
	out = append(out, remaining[:idx]...)
	out = append(out, repl...)
	out = append(out, remaining[idx+1:]...)
	return out
}
