package main

import (
	"context"
	"flag"
	"os"

	"github.com/gentam/spiflash/orchestrate"
)

func writeCommand(args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	var (
		bf        backendFlags
		filename  string
		start     int64
		region    string
		noErase   bool
		noVerify  bool
		dangerous bool
	)
	bf.register(fs)
	fs.StringVar(&filename, "f", "", "input file")
	fs.Int64Var(&start, "start", 0, "start address")
	fs.StringVar(&region, "region", "", "write a named layout region")
	fs.BoolVar(&noErase, "no-erase", false, "skip erasing before programming")
	fs.BoolVar(&noVerify, "no-verify", false, "skip the post-write read-back check")
	fs.BoolVar(&dangerous, "dangerous", false, "allow writing regions flagged dangerous")
	fs.Parse(args)

	if filename == "" {
		fatalUsage("input file is required (-f)")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		fatalf("read input: %v", err)
	}

	ctx := context.Background()
	b := bf.open(ctx)
	if region != "" {
		var length int64
		start, length = resolveRange(b, backendLayout(b), region, 0, 0)
		if int64(len(data)) != length {
			fatalUsage("input is %d bytes but region %q is %d bytes", len(data), region, length)
		}
	}

	opts := orchestrate.WriteOptions{
		NoErase:        noErase,
		NoVerify:       noVerify,
		AllowDangerous: dangerous,
		Progress:       progressBar(),
	}
	if err := b.Write(ctx, start, data, opts); err != nil {
		fatalf("write: %v", err)
	}
}

func eraseCommand(args []string) {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	var (
		bf        backendFlags
		start     int64
		n         int64
		region    string
		dangerous bool
	)
	bf.register(fs)
	fs.Int64Var(&start, "start", 0, "start address")
	fs.Int64Var(&n, "n", 0, "number of bytes to erase (default: whole chip)")
	fs.StringVar(&region, "region", "", "erase a named layout region")
	fs.BoolVar(&dangerous, "dangerous", false, "allow erasing regions flagged dangerous")
	fs.Parse(args)

	ctx := context.Background()
	b := bf.open(ctx)
	start, n = resolveRange(b, backendLayout(b), region, start, n)

	if err := b.Erase(ctx, start, start+n, dangerous); err != nil {
		fatalf("erase: %v", err)
	}
}

func verifyCommand(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		bf       backendFlags
		filename string
		start    int64
		region   string
	)
	bf.register(fs)
	fs.StringVar(&filename, "f", "", "file with the expected contents")
	fs.Int64Var(&start, "start", 0, "start address")
	fs.StringVar(&region, "region", "", "verify a named layout region")
	fs.Parse(args)

	if filename == "" {
		fatalUsage("expected-contents file is required (-f)")
	}
	expected, err := os.ReadFile(filename)
	if err != nil {
		fatalf("read input: %v", err)
	}

	ctx := context.Background()
	b := bf.open(ctx)
	if region != "" {
		start, _ = resolveRange(b, backendLayout(b), region, 0, 0)
	}

	if err := b.Verify(ctx, start, expected); err != nil {
		fatalf("verify: %v", err)
	}
}
