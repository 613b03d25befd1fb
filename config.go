package drawpipe

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/tsawler/drawpipe/clean"
	"github.com/tsawler/drawpipe/raster"
)

// Trace modes.
const (
	TraceAuto = "auto"
	TraceOff  = "off"
)

// extraFormats are the region formats that can be switched on beyond png
// and jpg.
var extraFormats = []string{"tif"}

// Config holds everything a run needs.
type Config struct {
	OutputDir    string
	DPI          int
	MinArea      float64 // px², regions must be strictly larger
	Padding      int     // px added around each region
	JPEGQuality  int
	Formats      []string // extra region formats, e.g. "tif"
	Vector       bool
	Raster       bool
	Rasterizer   string // auto, native or pdftoppm
	PdftoppmPath string
	PotracePath  string
	Trace        string // auto or off
	Workbook     bool
	Pages        []int // 1-indexed; empty means every page
	Clean        clean.Options
}

// DefaultConfig returns 300 DPI, both paths enabled and the cleaning and
// detection defaults.
func DefaultConfig() Config {
	return Config{
		OutputDir:    "output",
		DPI:          300,
		MinArea:      10000,
		Padding:      10,
		JPEGQuality:  95,
		Vector:       true,
		Raster:       true,
		Rasterizer:   raster.ModeAuto,
		PdftoppmPath: "pdftoppm",
		PotracePath:  "potrace",
		Trace:        TraceAuto,
		Clean:        clean.DefaultOptions(),
	}
}

// LoadConfig overlays DRAWPIPE_* environment variables on DefaultConfig.
func LoadConfig() Config {
	c := DefaultConfig()
	c.OutputDir = getEnv("DRAWPIPE_OUTPUT_DIR", c.OutputDir)
	c.DPI = getEnvAsInt("DRAWPIPE_DPI", c.DPI)
	c.MinArea = getEnvAsFloat("DRAWPIPE_MIN_AREA", c.MinArea)
	c.Padding = getEnvAsInt("DRAWPIPE_PADDING", c.Padding)
	c.JPEGQuality = getEnvAsInt("DRAWPIPE_JPEG_QUALITY", c.JPEGQuality)
	c.Rasterizer = getEnv("DRAWPIPE_RASTERIZER", c.Rasterizer)
	c.PdftoppmPath = getEnv("DRAWPIPE_PDFTOPPM", c.PdftoppmPath)
	c.PotracePath = getEnv("DRAWPIPE_POTRACE", c.PotracePath)
	c.Trace = getEnv("DRAWPIPE_TRACE", c.Trace)
	c.Workbook = getEnvAsBool("DRAWPIPE_WORKBOOK", c.Workbook)
	if v := getEnv("DRAWPIPE_FORMATS", ""); v != "" {
		c.Formats = splitList(v)
	}
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate reports the first invalid setting as an *Error wrapping
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return configError("output directory is required")
	}
	if c.DPI <= 0 {
		return configError("dpi must be positive, got %d", c.DPI)
	}
	if c.MinArea < 0 {
		return configError("min area must not be negative, got %g", c.MinArea)
	}
	if c.Padding < 0 {
		return configError("padding must not be negative, got %d", c.Padding)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return configError("jpeg quality must be within 1..100, got %d", c.JPEGQuality)
	}
	switch c.Rasterizer {
	case raster.ModeAuto, raster.ModeNative, raster.ModePdftoppm:
	default:
		return configError("unknown rasterizer %q", c.Rasterizer)
	}
	switch c.Trace {
	case TraceAuto, TraceOff:
	default:
		return configError("unknown trace mode %q", c.Trace)
	}
	for _, f := range c.Formats {
		if !slices.Contains(extraFormats, f) {
			return configError("unknown format %q", f)
		}
	}
	for _, p := range c.Pages {
		if p < 1 {
			return configError("page numbers start at 1, got %d", p)
		}
	}
	if !c.Vector && !c.Raster {
		return configError("both the vector and raster paths are disabled")
	}
	return nil
}

// wants reports whether the extra format f is enabled.
func (c *Config) wants(f string) bool {
	return slices.Contains(c.Formats, f)
}
