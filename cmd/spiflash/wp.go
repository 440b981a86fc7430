package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gentam/spiflash/orchestrate"
	"github.com/gentam/spiflash/wp"
)

func wpCommand(args []string) {
	fs := flag.NewFlagSet("wp", flag.ExitOnError)
	var (
		bf       backendFlags
		disable  bool
		enableHW bool
		setStart int64
		setLen   int64
		region   string
		list     bool
		volatile bool
	)
	bf.register(fs)
	fs.BoolVar(&disable, "disable", false, "clear all software write protection")
	fs.BoolVar(&enableHW, "enable-hw", false, "set SRP0 so the WP# pin locks the status register")
	fs.Int64Var(&setStart, "start", -1, "protect a range starting here (with -n)")
	fs.Int64Var(&setLen, "n", 0, "length of the range to protect")
	fs.StringVar(&region, "region", "", "protect a named layout region")
	fs.BoolVar(&list, "list", false, "list every protectable range for this chip")
	fs.BoolVar(&volatile, "volatile", false, "use volatile status register writes")
	fs.Parse(args)

	if bf.image != "" {
		fatalUsage("write protection lives in the chip's status register; an image file has none")
	}

	ctx := context.Background()
	b := bf.open(ctx).(*orchestrate.SPIBackend)
	p, fc := b.P, b.FC

	if list {
		ranges, err := wp.ListRanges(fc.Descriptor.WPModel, fc.Descriptor.Features, fc.Descriptor.TotalSize)
		if err != nil {
			fatalf("wp: %v", err)
		}
		for _, r := range ranges {
			fmt.Printf("start=0x%08X len=0x%08X\n", r.Start, r.Len)
		}
		return
	}

	if err := wp.Status(ctx, p, fc); err != nil {
		fatalf("wp status: %v", err)
	}

	switch {
	case disable:
		if err := wp.Disable(ctx, p, fc, volatile); err != nil {
			fatalf("wp disable: %v", err)
		}
	case enableHW:
		if err := wp.EnableHW(ctx, p, fc, volatile); err != nil {
			fatalf("wp enable-hw: %v", err)
		}
	case region != "":
		if err := wp.SetRegion(ctx, p, fc, region, volatile); err != nil {
			fatalf("wp set region: %v", err)
		}
	case setStart >= 0:
		if err := wp.SetRange(ctx, p, fc, setStart, setLen, volatile); err != nil {
			fatalf("wp set range: %v", err)
		}
	}

	st := fc.WP
	if st.ProtectedLen == 0 {
		fmt.Println("protection: none")
	} else {
		fmt.Printf("protection: [0x%08X, 0x%08X)\n", st.ProtectedStart, st.ProtectedStart+st.ProtectedLen)
	}
	fmt.Printf("hardware enforced: %v\n", st.HWEnforced)
}
