package config

import (
	"flag"
	"fmt"
	"io"
)

// Flags is the parsed command line of a single render invocation.
type Flags struct {
	ConfigPath string

	set         map[string]bool
	imgW, imgH  int
	sizeX       float64
	sizeY       int
	x, y        int
	rng         int
	output      string
	orientation string
}

// flag names grouped by the setting they control
var aliases = map[string]string{
	"imgW": "imgW", "w": "imgW",
	"imgH": "imgH", "h": "imgH",
	"sizeX": "sizeX", "sizeY": "sizeY",
	"x": "x", "y": "y",
	"range": "range", "r": "range",
	"output-file": "output", "o": "output", "f": "output",
	"orientation": "orientation",
}

// ParseFlags parses args (without the program name). It returns flag.ErrHelp
// after printing usage when -help is given.
func ParseFlags(name string, args []string, out io.Writer) (*Flags, error) {
	def := Default()
	fl := &Flags{set: make(map[string]bool)}
	var help bool

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage of %s:\n", name)
		fs.PrintDefaults()
	}

	fs.BoolVar(&help, "help", false, "Print usage")
	fs.StringVar(&fl.ConfigPath, "config", "", "YAML configuration file; explicit flags override it")
	for _, n := range []string{"imgW", "w"} {
		fs.IntVar(&fl.imgW, n, def.Image.Width, "Image width")
	}
	for _, n := range []string{"imgH", "h"} {
		fs.IntVar(&fl.imgH, n, def.Image.Height, "Image height")
	}
	fs.Float64Var(&fl.sizeX, "sizeX", def.Hex.SizeX, "Hex horizontal size")
	fs.IntVar(&fl.sizeY, "sizeY", int(def.Hex.SizeY), "Hex vertical size")
	fs.IntVar(&fl.x, "x", def.Query.X, "Point horizontal location")
	fs.IntVar(&fl.y, "y", def.Query.Y, "Point vertical location")
	for _, n := range []string{"range", "r"} {
		fs.IntVar(&fl.rng, n, def.Query.Range, "Search range")
	}
	for _, n := range []string{"output-file", "o", "f"} {
		fs.StringVar(&fl.output, n, def.Image.Output, "PNG file output path")
	}
	fs.StringVar(&fl.orientation, "orientation", def.Hex.Orientation, "Hex orientation: pointy or flat")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if help {
		fs.Usage()
		return nil, flag.ErrHelp
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(out, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	fs.Visit(func(f *flag.Flag) {
		if setting, ok := aliases[f.Name]; ok {
			fl.set[setting] = true
		}
	})
	return fl, nil
}

// Resolve loads the -config file, if any, and applies the explicitly set flags on top.
func (fl *Flags) Resolve() (*Config, error) {
	cfg := Default()
	if fl.ConfigPath != "" {
		loaded, err := Load(fl.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	fl.apply(cfg)
	return cfg, nil
}

func (fl *Flags) apply(cfg *Config) {
	if fl.set["imgW"] {
		cfg.Image.Width = fl.imgW
	}
	if fl.set["imgH"] {
		cfg.Image.Height = fl.imgH
	}
	if fl.set["sizeX"] {
		cfg.Hex.SizeX = fl.sizeX
	}
	if fl.set["sizeY"] {
		cfg.Hex.SizeY = float64(fl.sizeY)
	}
	if fl.set["x"] {
		cfg.Query.X = fl.x
	}
	if fl.set["y"] {
		cfg.Query.Y = fl.y
	}
	if fl.set["range"] {
		cfg.Query.Range = fl.rng
	}
	if fl.set["output"] {
		cfg.Image.Output = fl.output
	}
	if fl.set["orientation"] {
		cfg.Hex.Orientation = fl.orientation
	}
}
