package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/gentam/spiflash/layout"
	"github.com/gentam/spiflash/orchestrate"
)

func progressBar() orchestrate.ProgressFunc {
	return func(ev orchestrate.ProgressEvent) {
		fmt.Fprintf(os.Stderr, "\r%d/%d bytes (%d%%)", ev.Done, ev.Total, ev.Done*100/ev.Total)
		if ev.Done == ev.Total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func readCommand(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var (
		bf      backendFlags
		start   int64
		n       int64
		region  string
		outFile string
	)
	bf.register(fs)
	fs.Int64Var(&start, "start", 0, "start address")
	fs.Int64Var(&n, "n", 0, "number of bytes to read (default: to end of chip)")
	fs.StringVar(&region, "region", "", "read a named layout region")
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump)")
	fs.Parse(args)

	ctx := context.Background()
	b := bf.open(ctx)
	start, n = resolveRange(b, backendLayout(b), region, start, n)

	out := make([]byte, n)
	if err := b.Read(ctx, start, out, progressBar()); err != nil {
		fatalf("read: %v", err)
	}

	if outFile == "" {
		fmt.Print(hex.Dump(out))
		return
	}
	if err := os.WriteFile(outFile, out, 0644); err != nil {
		fatalf("write file: %v", err)
	}
}

func probeCommand(args []string) {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	var bf backendFlags
	bf.register(fs)
	fs.Parse(args)

	if bf.image != "" {
		fatalUsage("probe needs SPI hardware; an image file has no JEDEC ID")
	}

	ctx := context.Background()
	b := bf.open(ctx)
	fc := b.(*orchestrate.SPIBackend).FC
	d := fc.Descriptor
	fmt.Printf("Chip:       %s %s\n", d.Vendor, d.Name)
	fmt.Printf("JEDEC ID:   %02X %04X\n", d.ManufacturerID, d.DeviceID)
	fmt.Printf("Size:       %d bytes\n", d.TotalSize)
	fmt.Printf("Voltage:    %d-%d mV\n", d.Voltage.MinMV, d.Voltage.MaxMV)
	fmt.Printf("Addressing: %s\n", fc.Addressing)
	for _, eb := range d.EraseBlocks {
		fmt.Printf("Erase:      opcode 0x%02X, %d bytes\n", eb.Opcode, eb.Size)
	}
}

func regionsCommand(args []string) {
	fs := flag.NewFlagSet("regions", flag.ExitOnError)
	var bf backendFlags
	bf.register(fs)
	fs.Parse(args)

	ctx := context.Background()
	b := bf.open(ctx)
	l := backendLayout(b)
	if l == nil {
		fatalUsage("no layout: pass -layout, -ifd, or -fmap")
	}
	for _, r := range l.Regions {
		flags := ""
		if r.Flags.Has(layout.Readonly) {
			flags += " ro"
		}
		if r.Flags.Has(layout.Dangerous) {
			flags += " dangerous"
		}
		fmt.Printf("%-16s 0x%08X-0x%08X%s\n", r.Name, r.Start, r.End, flags)
	}
}
