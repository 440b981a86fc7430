package chip

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"
)

// LoadDatabase parses the text chip-database format from r and returns
// a Database built from it. The grammar is line-oriented and indentation-
// insensitive:
//
//	vendor <name>
//	  manufacturer_id <hex byte>
//	  chip <name>
//	    device_id <hex 16 or 24 bit>
//	    total_size <N unit>        # e.g. "16 MiB", "256 KiB"
//	    voltage <minMV> <maxMV>
//	    feature <flag> [<flag> ...]
//	    erase_block <hex opcode> <N unit>
//	    tested probe=<Ok|Nt|Bad|Dep> read=... erase=... write=... wp=...
//
// Multiple "chip" blocks may follow one "vendor"/"manufacturer_id" pair.
// "erase_block" lines accumulate into the chip's menu in the order given;
// the caller is responsible for supplying them smallest-first, which the
// erase planner requires.
func LoadDatabase(r io.Reader) (*Database, error) {
	scanner := bufio.NewScanner(r)
	var (
		descriptors    []Descriptor
		vendor         string
		manufacturerID byte
		cur            *Descriptor
		lineNo         int
	)

	flush := func() {
		if cur != nil {
			descriptors = append(descriptors, *cur)
			cur = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		kw := fields[0]
		args := fields[1:]

		switch kw {
		case "vendor":
			flush()
			vendor = strings.Join(args, " ")
		case "manufacturer_id":
			flush()
			id, err := parseHexByte(args)
			if err != nil {
				return nil, lineErr(lineNo, "manufacturer_id", err)
			}
			manufacturerID = id
		case "chip":
			flush()
			cur = &Descriptor{Vendor: vendor, ManufacturerID: manufacturerID, Name: strings.Join(args, " ")}
		case "device_id":
			if cur == nil {
				return nil, lineErr(lineNo, "device_id", errNoChip)
			}
			v, err := parseHexUint(args)
			if err != nil {
				return nil, lineErr(lineNo, "device_id", err)
			}
			cur.DeviceID = v
		case "total_size":
			if cur == nil {
				return nil, lineErr(lineNo, "total_size", errNoChip)
			}
			sz, err := parseByteSize(args)
			if err != nil {
				return nil, lineErr(lineNo, "total_size", err)
			}
			cur.TotalSize = sz
		case "voltage":
			if cur == nil {
				return nil, lineErr(lineNo, "voltage", errNoChip)
			}
			if len(args) != 2 {
				return nil, lineErr(lineNo, "voltage", fmt.Errorf("expected 2 fields, got %d", len(args)))
			}
			minMV, err1 := strconv.Atoi(args[0])
			maxMV, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil {
				return nil, lineErr(lineNo, "voltage", fmt.Errorf("non-integer millivolt value"))
			}
			cur.Voltage = Voltage{MinMV: minMV, MaxMV: maxMV}
		case "feature":
			if cur == nil {
				return nil, lineErr(lineNo, "feature", errNoChip)
			}
			for _, name := range args {
				f, ok := featureByName[name]
				if !ok {
					return nil, lineErr(lineNo, "feature", fmt.Errorf("unknown feature %q", name))
				}
				cur.Features |= f
			}
		case "wp_model":
			if cur == nil {
				return nil, lineErr(lineNo, "wp_model", errNoChip)
			}
			cur.WPModel = WPModel(strings.Join(args, " "))
		case "erase_block":
			if cur == nil {
				return nil, lineErr(lineNo, "erase_block", errNoChip)
			}
			if len(args) < 2 || len(args) > 3 {
				return nil, lineErr(lineNo, "erase_block", fmt.Errorf("expected opcode and size, got %d fields", len(args)))
			}
			op, err := parseHexByte(args[:1])
			if err != nil {
				return nil, lineErr(lineNo, "erase_block", err)
			}
			sz, err := parseByteSize(args[1:])
			if err != nil {
				return nil, lineErr(lineNo, "erase_block", err)
			}
			cur.EraseBlocks = append(cur.EraseBlocks, EraseBlock{Opcode: op, Size: sz})
		case "tested":
			if cur == nil {
				return nil, lineErr(lineNo, "tested", errNoChip)
			}
			ts, err := parseTested(args)
			if err != nil {
				return nil, lineErr(lineNo, "tested", err)
			}
			cur.Tested = ts
		default:
			return nil, lineErr(lineNo, kw, fmt.Errorf("unknown directive"))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("chip: reading database: %w", err)
	}
	flush()

	return NewDatabase(descriptors)
}

var errNoChip = fmt.Errorf("directive outside of a chip block")

func lineErr(line int, directive string, err error) error {
	return fmt.Errorf("chip database line %d (%s): %w", line, directive, err)
}

func parseHexByte(args []string) (byte, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one hex field")
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func parseHexUint(args []string) (uint32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one hex field")
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// parseByteSize parses the "N B|KiB|MiB" human unit form via go-bytesize.
// Its KB/MB/GB suffixes are 1024-based, so the binary KiB/MiB/GiB spellings
// are mapped onto them first; "4 KiB" and "4 KB" both mean 4096 bytes.
func parseByteSize(args []string) (int64, error) {
	s := strings.Join(args, " ")
	bs, err := bytesize.Parse(strings.Replace(s, "iB", "B", 1))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(bs), nil
}

var featureByName = map[string]FeatureSet{
	"wrsr_wren":  WrsrWren,
	"fast_read":  FastRead,
	"dual_io":    DualIO,
	"quad_io":    QuadIO,
	"otp":        OTP,
	"erase_4k":   Erase4K,
	"erase_32k":  Erase32K,
	"erase_64k":  Erase64K,
	"status_reg_2": StatusReg2,
	"status_reg_3": StatusReg3,
	"qe_sr2":     QESR2,
	"wp_tb":      WPTopBottom,
	"wp_sec":     WPSector,
	"wp_cmp":     WPComplement,
	"addr_4ba":   Addr4BA,
}

func parseTested(args []string) (TestedStatus, error) {
	var ts TestedStatus
	for _, kv := range args {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return ts, fmt.Errorf("malformed tested field %q", kv)
		}
		state, err := parseTestedState(parts[1])
		if err != nil {
			return ts, err
		}
		switch parts[0] {
		case "probe":
			ts.Probe = state
		case "read":
			ts.Read = state
		case "erase":
			ts.Erase = state
		case "write":
			ts.Write = state
		case "wp":
			ts.WP = state
		default:
			return ts, fmt.Errorf("unknown tested field %q", parts[0])
		}
	}
	return ts, nil
}

func parseTestedState(s string) (TestedState, error) {
	switch s {
	case "Ok":
		return TestedOK, nil
	case "Nt":
		return TestedUnknown, nil
	case "Bad":
		return TestedBad, nil
	case "Dep":
		return TestedDeprecated, nil
	default:
		return TestedUnknown, fmt.Errorf("unknown tested state %q", s)
	}
}
