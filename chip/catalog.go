package chip

import "time"

// builtinDescriptors is the static chip catalog embedded in the binary. In a
// production build this slice is the output of a build-time code generator
// reading vendor text files (see LoadDatabase for the runtime equivalent);
// here it is hand-authored to the same shape the generator would produce,
// covering the chip families exercised by the protocol, planner, and
// write-protection layers.
//
// Timing values come from the vendor datasheets:
//   - [W25Q128|9.6 AC Electrical Characteristics]
//   - [N25Q32|Table 38: AC Characteristics and Operating Conditions]
var w25q128Timing = Timing{
	PowerUp:     3 * time.Microsecond, // tRES1
	PowerDown:   3 * time.Microsecond, // tDP
	PageProgram: 3 * time.Millisecond, // tPP
	Erase4K:     400 * time.Millisecond,
	Erase32K:    1600 * time.Millisecond,
	Erase64K:    2000 * time.Millisecond,
	EraseChip:   200 * time.Second,
}

var builtinDescriptors = []Descriptor{
	{
		Name:           "W25Q128.V",
		Vendor:         "Winbond",
		ManufacturerID: 0xEF,
		DeviceID:       0x4018,
		TotalSize:      16 << 20,
		Features: WrsrWren | FastRead | DualIO | QuadIO | Erase4K | Erase32K | Erase64K |
			StatusReg2 | QESR2 | WPTopBottom | WPComplement,
		Voltage: Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0x52, Size: 32 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0x60, Size: 16 << 20},
		},
		WPModel: WPModelGenericBP,
		Timing:  w25q128Timing,
		Tested:  TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedOK, WP: TestedOK},
	},
	{
		Name:           "W25Q128JV-IM/JM",
		Vendor:         "Winbond",
		ManufacturerID: 0xEF,
		DeviceID:       0x7018,
		TotalSize:      16 << 20,
		Features: WrsrWren | FastRead | DualIO | QuadIO | Erase4K | Erase32K | Erase64K |
			StatusReg2 | QESR2 | WPTopBottom | WPComplement,
		Voltage: Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0x52, Size: 32 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0x60, Size: 16 << 20},
		},
		WPModel: WPModelGenericBP,
		Timing:  w25q128Timing,
		Tested:  TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedOK, WP: TestedOK},
	},
	{
		Name:           "W25Q32.V",
		Vendor:         "Winbond",
		ManufacturerID: 0xEF,
		DeviceID:       0x4016,
		TotalSize:      4 << 20,
		Features: WrsrWren | FastRead | DualIO | Erase4K | Erase32K | Erase64K |
			WPTopBottom | WPComplement,
		Voltage: Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0x52, Size: 32 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0x60, Size: 4 << 20},
		},
		WPModel: WPModelGenericBP,
		Tested:  TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedOK, WP: TestedOK},
	},
	{
		Name:           "N25Q032",
		Vendor:         "Micron",
		ManufacturerID: 0x20,
		DeviceID:       0xBA16,
		TotalSize:      4 << 20,
		Features:       WrsrWren | FastRead | Erase4K | Erase64K,
		Voltage:        Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0xC7, Size: 4 << 20},
		},
		WPModel: WPModelNone,
		Timing: Timing{
			PowerUp:     30 * time.Microsecond, // tRES1
			PageProgram: 5 * time.Millisecond,  // tPP
			Erase4K:     800 * time.Millisecond,
			Erase64K:    3 * time.Second,
			EraseChip:   60 * time.Second,
		},
		Tested: TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedOK, WP: TestedUnknown},
	},
	{
		Name:           "GD25Q128C",
		Vendor:         "GigaDevice",
		ManufacturerID: 0xC8,
		DeviceID:       0x4018,
		TotalSize:      16 << 20,
		Features: WrsrWren | FastRead | DualIO | QuadIO | Erase4K | Erase32K | Erase64K |
			StatusReg2 | QESR2 | WPTopBottom | WPComplement,
		Voltage: Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0x52, Size: 32 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0x60, Size: 16 << 20},
		},
		WPModel: WPModelGenericBP,
		Tested:  TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedOK, WP: TestedDeprecated},
	},
	{
		Name:           "MX25L12835F",
		Vendor:         "Macronix",
		ManufacturerID: 0xC2,
		DeviceID:       0x2018,
		TotalSize:      16 << 20,
		Features:       WrsrWren | FastRead | DualIO | QuadIO | Erase4K | Erase64K,
		Voltage:        Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0x60, Size: 16 << 20},
		},
		WPModel: WPModelNone,
		Tested:  TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedBad, WP: TestedUnknown},
	},
	{
		Name:           "W25Q256.V",
		Vendor:         "Winbond",
		ManufacturerID: 0xEF,
		DeviceID:       0x4019,
		TotalSize:      32 << 20,
		Features: WrsrWren | FastRead | DualIO | QuadIO | Erase4K | Erase32K | Erase64K |
			StatusReg2 | StatusReg3 | QESR2 | WPTopBottom | WPComplement | Addr4BA,
		Voltage: Voltage{MinMV: 2700, MaxMV: 3600},
		EraseBlocks: []EraseBlock{
			{Opcode: 0x20, Size: 4 << 10},
			{Opcode: 0x52, Size: 32 << 10},
			{Opcode: 0xD8, Size: 64 << 10},
			{Opcode: 0x60, Size: 32 << 20},
		},
		WPModel: WPModelGenericBP,
		Tested:  TestedStatus{Probe: TestedOK, Read: TestedOK, Erase: TestedOK, Write: TestedOK, WP: TestedDeprecated},
	},
}
