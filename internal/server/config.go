package server

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/pixel-snap-mcp/internal/palette"
	"github.com/ironsheep/pixel-snap-mcp/internal/pixelate"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLogLevel  = "PIXELSNAP_LOG_LEVEL"
	EnvMaxColors = "PIXELSNAP_MAX_COLORS"
	EnvSeed      = "PIXELSNAP_SEED"
)

// Config holds server-wide defaults. Tool arguments override them per call.
type Config struct {
	// Debug enables per-call logging with timings and calibration phases.
	Debug bool

	// MaxColors is the palette limit used when pixel_generate gets none.
	MaxColors int

	// Seed, when HasSeed is set, seeds palette initialisation and calibration
	// sampling. Without it quantization uses a fixed seed and calibration
	// samples a fixed stride.
	Seed    uint64
	HasSeed bool
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() Config {
	return Config{MaxColors: pixelate.DefaultMaxColors}
}

// ConfigFromEnv builds a Config from the PIXELSNAP_* environment variables.
func ConfigFromEnv() (Config, error) {
	return configFromLookup(os.Getenv)
}

func configFromLookup(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	cfg.Debug = strings.EqualFold(getenv(EnvLogLevel), "debug")

	if v := getenv(EnvMaxColors); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvMaxColors, v, err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvMaxColors, v, palette.ErrInvalidMaxColors)
		}
		cfg.MaxColors = n
	}

	if v := getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", EnvSeed, v, err)
		}
		cfg.Seed = seed
		cfg.HasSeed = true
	}

	return cfg, nil
}

// newRand returns the random source for one tool call. A per-call seed wins over
// the configured one; with neither, nil is returned and callers fall back to
// their deterministic defaults.
func (c Config) newRand(callSeed *uint64) *rand.Rand {
	switch {
	case callSeed != nil:
		return palette.NewRand(*callSeed)
	case c.HasSeed:
		return palette.NewRand(c.Seed)
	default:
		return nil
	}
}
