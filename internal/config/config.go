package config

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/hexrange/pkg/hex"
	"github.com/gravitas-games/hexrange/pkg/render"
)

// Config holds all renderer and service configuration
type Config struct {
	Image    ImageConfig    `yaml:"image"`
	Hex      HexConfig      `yaml:"hex"`
	Query    QueryConfig    `yaml:"query"`
	Palette  PaletteConfig  `yaml:"palette"`
	Server   ServerConfig   `yaml:"server"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
}

// ImageConfig holds output image settings
type ImageConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Output string `yaml:"output"` // PNG file path
}

// HexConfig holds the grid layout
type HexConfig struct {
	SizeX       float64 `yaml:"size_x"`
	SizeY       float64 `yaml:"size_y"`
	Orientation string  `yaml:"orientation"` // "pointy" or "flat"
	OriginX     float64 `yaml:"origin_x"`
	OriginY     float64 `yaml:"origin_y"`
}

// QueryConfig holds the point to search around
type QueryConfig struct {
	X     int `yaml:"x"`
	Y     int `yaml:"y"`
	Range int `yaml:"range"`
}

// PaletteConfig holds "#rrggbb" colors
type PaletteConfig struct {
	Background  string  `yaml:"background"`
	Base        string  `yaml:"base"`
	Accent      string  `yaml:"accent"`
	Border      string  `yaml:"border"`
	BorderWidth float64 `yaml:"border_width"` // 0 selects the default, negative disables outlines
}

// ServerConfig holds render service settings
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxPixels      int    `yaml:"max_pixels"` // upper bound on width*height per request
	MaxRange       int    `yaml:"max_range"`  // upper bound on range and ring radius per request
}

// JWTConfig holds token validation settings; an empty secret disables auth
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// RedisConfig holds render cache settings; an empty address disables the cache
type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Prefix     string `yaml:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// DatabaseConfig holds render history settings; an empty path disables history
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Image: ImageConfig{Width: 400, Height: 400, Output: "/tmp/hex.png"},
		Hex:   HexConfig{SizeX: 20.0, SizeY: 20, Orientation: "pointy"},
		Query: QueryConfig{X: 140, Y: 160, Range: 1},
		Palette: PaletteConfig{
			Background:  render.FormatHexColor(render.DefaultPalette.Background),
			Base:        render.FormatHexColor(render.DefaultPalette.Base),
			Accent:      render.FormatHexColor(render.DefaultPalette.Accent),
			Border:      render.FormatHexColor(render.DefaultPalette.Border),
			BorderWidth: render.DefaultBorderWidth,
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, TimeoutSeconds: 15, MaxPixels: 4096 * 4096, MaxRange: 256},
		JWT:    JWTConfig{Issuer: "hexrange"},
		Redis:  RedisConfig{Prefix: "hexrange:png:", TTLSeconds: 600},
	}
}

// Load reads configuration from a YAML file. Keys absent from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Zero is never meaningful for these
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 15
	}
	if cfg.Server.MaxPixels == 0 {
		cfg.Server.MaxPixels = 4096 * 4096
	}
	if cfg.Server.MaxRange == 0 {
		cfg.Server.MaxRange = 256
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 600
	}

	return cfg, nil
}

// Geometry builds the hex layout. The result is not validated.
func (c *Config) Geometry() (hex.Geometry, error) {
	o, err := hex.ParseOrientation(c.Hex.Orientation)
	if err != nil {
		return hex.Geometry{}, err
	}
	return hex.Geometry{
		SizeX:       c.Hex.SizeX,
		SizeY:       c.Hex.SizeY,
		Origin:      hex.Point{X: c.Hex.OriginX, Y: c.Hex.OriginY},
		Orientation: o,
	}, nil
}

// RenderPalette parses the configured colors.
func (c *Config) RenderPalette() (render.Palette, error) {
	var p render.Palette
	fields := []struct {
		name string
		in   string
		out  *color.RGBA
	}{
		{"background", c.Palette.Background, &p.Background},
		{"base", c.Palette.Base, &p.Base},
		{"accent", c.Palette.Accent, &p.Accent},
		{"border", c.Palette.Border, &p.Border},
	}
	for _, f := range fields {
		v, err := render.ParseHexColor(f.in)
		if err != nil {
			return render.Palette{}, fmt.Errorf("palette %s: %w", f.name, err)
		}
		*f.out = v
	}
	return p, nil
}

// Request assembles the render request described by the configuration.
func (c *Config) Request() (render.Request, error) {
	geom, err := c.Geometry()
	if err != nil {
		return render.Request{}, err
	}
	pal, err := c.RenderPalette()
	if err != nil {
		return render.Request{}, err
	}
	return render.Request{
		Geometry:    geom,
		Viewport:    render.Viewport{Width: c.Image.Width, Height: c.Image.Height},
		Point:       hex.Point{X: float64(c.Query.X), Y: float64(c.Query.Y)},
		Range:       c.Query.Range,
		Palette:     pal,
		BorderWidth: c.Palette.BorderWidth,
	}, nil
}

// Validate reports the first configuration problem, using the typed errors of
// the hex and render packages for sizes and ranges.
func (c *Config) Validate() error {
	req, err := c.Request()
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if c.Server.MaxRange <= 0 {
		return fmt.Errorf("server max_range must be positive, got %d", c.Server.MaxRange)
	}
	if c.Image.Output == "" {
		return fmt.Errorf("output path must not be empty")
	}
	return nil
}
