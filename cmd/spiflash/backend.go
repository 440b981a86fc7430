package main

import (
	"context"
	"flag"
	"os"

	"periph.io/x/conn/v3/physic"

	"github.com/gentam/spiflash/chip"
	"github.com/gentam/spiflash/flashctx"
	"github.com/gentam/spiflash/layout"
	"github.com/gentam/spiflash/orchestrate"
	"github.com/gentam/spiflash/probe"
	"github.com/gentam/spiflash/protocol"
	"github.com/gentam/spiflash/transport/ftdi"
	"github.com/gentam/spiflash/transport/opaque"
)

// backendFlags are the connection options shared by every subcommand.
type backendFlags struct {
	image      string // opaque file backend instead of FTDI hardware
	chipName   string // expected chip name, refuse on mismatch
	chipDB     string // extra chip database file merged over the builtin one
	layoutFile string // user TOML layout
	ifd        bool   // derive the layout from the chip's Intel Flash Descriptor
	fmap       bool   // derive the layout from an FMAP in the chip
	clockMHz   int
}

func (bf *backendFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&bf.image, "image", "", "operate on a flash image file instead of hardware")
	fs.StringVar(&bf.chipName, "c", "", "expected chip name (refuse to run on a different chip)")
	fs.StringVar(&bf.chipDB, "db", "", "additional chip database file")
	fs.StringVar(&bf.layoutFile, "layout", "", "TOML layout file for region-scoped operations")
	fs.BoolVar(&bf.ifd, "ifd", false, "read the layout from the chip's Intel Flash Descriptor")
	fs.BoolVar(&bf.fmap, "fmap", false, "read the layout from the chip's FMAP")
	fs.IntVar(&bf.clockMHz, "clk", 30, "SPI clock in MHz")
}

func (bf *backendFlags) database() *chip.Database {
	if bf.chipDB == "" {
		return chip.Builtin()
	}
	f, err := os.Open(bf.chipDB)
	if err != nil {
		fatalf("open chip database: %v", err)
	}
	defer f.Close()
	extra, err := chip.LoadDatabase(f)
	if err != nil {
		fatalf("load chip database: %v", err)
	}
	// Entries from the file take precedence over builtin ones with the same key.
	descriptors := extra.All()
	for _, d := range chip.Builtin().All() {
		if _, ok := extra.Lookup(d.ManufacturerID, d.DeviceID); !ok {
			descriptors = append(descriptors, d)
		}
	}
	db, err := chip.NewDatabase(descriptors)
	if err != nil {
		fatalf("merge chip database: %v", err)
	}
	return db
}

// open builds the backend: an opaque file image when -image is given, else a
// probed FTDI SPI programmer. It also resolves the layout source.
func (bf *backendFlags) open(ctx context.Context) orchestrate.Backend {
	if bf.image != "" {
		img, err := opaque.Open(bf.image)
		if err != nil {
			fatalf("%v", err)
		}
		return orchestrate.NewOpaqueBackend(img, bf.loadLayoutFromBackendless(ctx, img))
	}

	p, err := ftdi.Open(physic.Frequency(bf.clockMHz) * physic.MegaHertz)
	if err != nil {
		fatalf("%v", err)
	}

	fc := bf.probeChip(ctx, p)
	bf.attachLayout(ctx, p, fc)
	return orchestrate.NewSPIBackend(p, fc)
}

func (bf *backendFlags) probeChip(ctx context.Context, p *ftdi.Programmer) *flashctx.FlashContext {
	// A previous tool run may have left the chip powered down; RDID would
	// then read all ones.
	if err := protocol.PowerUp(ctx, p, chip.Timing{}); err != nil {
		fatalf("release power down: %v", err)
	}
	fc, err := probe.Probe(ctx, p, bf.database(), probe.Options{ExpectedName: bf.chipName})
	if err != nil {
		fatalf("probe: %v", err)
	}
	return fc
}

// attachLayout resolves -layout/-ifd/-fmap into fc.Layout. IFD and FMAP are
// parsed out of the chip contents themselves: the descriptor lives in the
// first 4 KiB, an FMAP can sit anywhere, so -fmap reads the whole chip.
func (bf *backendFlags) attachLayout(ctx context.Context, p *ftdi.Programmer, fc *flashctx.FlashContext) {
	switch {
	case bf.layoutFile != "":
		fc.Layout = bf.loadUserLayout()
	case bf.ifd:
		buf := make([]byte, 4<<10)
		if err := orchestrate.Read(ctx, p, fc, 0, buf, nil); err != nil {
			fatalf("read descriptor area: %v", err)
		}
		l, err := layout.ParseIFD(buf)
		if err != nil {
			fatalf("parse IFD: %v", err)
		}
		fc.Layout = l
	case bf.fmap:
		buf := make([]byte, fc.Descriptor.TotalSize)
		if err := orchestrate.Read(ctx, p, fc, 0, buf, nil); err != nil {
			fatalf("read chip for FMAP scan: %v", err)
		}
		l, err := layout.ParseFMAP(buf)
		if err != nil {
			fatalf("parse FMAP: %v", err)
		}
		fc.Layout = l
	}
}

// loadLayoutFromBackendless resolves the layout for an opaque image backend,
// where the image bytes are directly at hand.
func (bf *backendFlags) loadLayoutFromBackendless(ctx context.Context, img *opaque.File) *layout.Layout {
	switch {
	case bf.layoutFile != "":
		return bf.loadUserLayout()
	case bf.ifd, bf.fmap:
		n := img.Size()
		if bf.ifd && n > 4<<10 {
			n = 4 << 10
		}
		buf := make([]byte, n)
		if err := img.Read(ctx, 0, buf); err != nil {
			fatalf("read image: %v", err)
		}
		var (
			l   *layout.Layout
			err error
		)
		if bf.ifd {
			l, err = layout.ParseIFD(buf)
		} else {
			l, err = layout.ParseFMAP(buf)
		}
		if err != nil {
			fatalf("parse layout: %v", err)
		}
		return l
	}
	return nil
}

func (bf *backendFlags) loadUserLayout() *layout.Layout {
	f, err := os.Open(bf.layoutFile)
	if err != nil {
		fatalf("open layout: %v", err)
	}
	defer f.Close()
	l, err := layout.ParseUserLayout(f)
	if err != nil {
		fatalf("parse layout: %v", err)
	}
	return l
}

// resolveRange turns either an explicit -start/-n pair or a -region name
// into a concrete [start, start+length) range, defaulting to the whole chip.
func resolveRange(b orchestrate.Backend, l *layout.Layout, region string, start, length int64) (int64, int64) {
	if region != "" {
		if l == nil {
			fatalUsage("-region requires a layout (-layout, -ifd, or -fmap)")
		}
		r, ok := l.Find(region)
		if !ok {
			fatalUsage("region %q not in layout", region)
		}
		return r.Start, r.Len()
	}
	if length == 0 {
		length = b.Size() - start
	}
	return start, length
}

// backendLayout recovers the layout attached to either backend kind.
func backendLayout(b orchestrate.Backend) *layout.Layout {
	switch be := b.(type) {
	case *orchestrate.SPIBackend:
		return be.FC.Layout
	case *orchestrate.OpaqueBackend:
		return be.Layout
	}
	return nil
}
