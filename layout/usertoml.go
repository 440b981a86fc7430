package layout

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/inhies/go-bytesize"

	"github.com/gentam/spiflash/ferr"
)

// userTOML is the on-disk shape of the user layout format, decoded
// directly by BurntSushi/toml before being converted into a Layout.
type userTOML struct {
	Layout struct {
		Name     string `toml:"name"`
		ChipSize string `toml:"chip_size"`
	} `toml:"layout"`
	Region []struct {
		Name      string `toml:"name"`
		Start     int64  `toml:"start"`
		End       int64  `toml:"end"`
		Readonly  bool   `toml:"readonly"`
		Dangerous bool   `toml:"dangerous"`
	} `toml:"region"`
}

// ParseUserLayout decodes the TOML user layout format from r. Regions
// must lie within the declared chip_size (if any), must not overlap, and
// must have unique names; violations are reported as *ferr.LayoutParseError
// naming the offending region.
func ParseUserLayout(r io.Reader) (*Layout, error) {
	var doc userTOML
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &ferr.LayoutParseError{Source: "user-toml", Detail: err.Error()}
	}

	l := &Layout{Name: doc.Layout.Name}
	if doc.Layout.ChipSize != "" {
		// go-bytesize's KB/MB suffixes are 1024-based; map KiB/MiB onto them.
		bs, err := bytesize.Parse(strings.Replace(doc.Layout.ChipSize, "iB", "B", 1))
		if err != nil {
			return nil, &ferr.LayoutParseError{Source: "user-toml", Detail: fmt.Sprintf("invalid chip_size %q: %v", doc.Layout.ChipSize, err)}
		}
		l.ChipSize = int64(bs)
	}

	for _, rg := range doc.Region {
		if rg.Start > rg.End {
			return nil, &ferr.LayoutParseError{Source: "user-toml", Detail: fmt.Sprintf("region %q: start 0x%X > end 0x%X", rg.Name, rg.Start, rg.End)}
		}
		var flags RegionFlag
		if rg.Readonly {
			flags |= Readonly
		}
		if rg.Dangerous {
			flags |= Dangerous
		}
		l.Regions = append(l.Regions, Region{Name: rg.Name, Start: rg.Start, End: rg.End, Flags: flags})
	}

	if err := l.Validate(); err != nil {
		return nil, &ferr.LayoutParseError{Source: "user-toml", Detail: err.Error()}
	}
	return l, nil
}
