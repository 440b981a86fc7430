package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gentam/spiflash/internal/obs"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	spiflash <command> [arguments]

Commands:
	probe	 identify the attached chip
	read	 read flash memory
	write	 write flash memory
	erase	 erase flash memory
	verify	 compare flash contents against a file
	wp	 inspect or change write protection
	regions	 list layout regions
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	if os.Getenv("SPIFLASH_DEBUG") != "" {
		obs.SetLogLevel(slog.LevelDebug)
	}

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "probe":
		probeCommand(args)
	case "read":
		readCommand(args)
	case "write":
		writeCommand(args)
	case "erase":
		eraseCommand(args)
	case "verify":
		verifyCommand(args)
	case "wp":
		wpCommand(args)
	case "regions":
		regionsCommand(args)
	default:
		fatalUsage("unknown command %q", flag.Arg(0))
	}
}
