package server

import (
	"errors"
	"testing"

	"github.com/ironsheep/pixel-snap-mcp/internal/palette"
	"github.com/ironsheep/pixel-snap-mcp/internal/pixelate"
)

func TestConfigFromLookup(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		want      Config
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "empty environment",
			env:  map[string]string{},
			want: Config{MaxColors: pixelate.DefaultMaxColors},
		},
		{
			name: "debug logging",
			env:  map[string]string{EnvLogLevel: "DEBUG"},
			want: Config{Debug: true, MaxColors: pixelate.DefaultMaxColors},
		},
		{
			name: "other log level",
			env:  map[string]string{EnvLogLevel: "info"},
			want: Config{MaxColors: pixelate.DefaultMaxColors},
		},
		{
			name: "max colors",
			env:  map[string]string{EnvMaxColors: "16"},
			want: Config{MaxColors: 16},
		},
		{
			name: "decimal seed",
			env:  map[string]string{EnvSeed: "42"},
			want: Config{MaxColors: pixelate.DefaultMaxColors, Seed: 42, HasSeed: true},
		},
		{
			name: "hex seed",
			env:  map[string]string{EnvSeed: "0x5eed"},
			want: Config{MaxColors: pixelate.DefaultMaxColors, Seed: 0x5eed, HasSeed: true},
		},
		{
			name:    "non-numeric max colors",
			env:     map[string]string{EnvMaxColors: "lots"},
			wantErr: true,
		},
		{
			name:      "zero max colors",
			env:       map[string]string{EnvMaxColors: "0"},
			wantErr:   true,
			wantIsErr: palette.ErrInvalidMaxColors,
		},
		{
			name:    "negative seed",
			env:     map[string]string{EnvSeed: "-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := configFromLookup(func(k string) string { return tt.env[k] })
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.wantIsErr != nil && !errors.Is(err, tt.wantIsErr) {
					t.Errorf("error %v should wrap %v", err, tt.wantIsErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg != tt.want {
				t.Errorf("got %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvMaxColors, "8")
	t.Setenv(EnvSeed, "")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if !cfg.Debug || cfg.MaxColors != 8 || cfg.HasSeed {
		t.Errorf("got %+v, want debug with 8 colors and no seed", cfg)
	}
}

func TestConfig_NewRand(t *testing.T) {
	if r := DefaultConfig().newRand(nil); r != nil {
		t.Error("no seed anywhere should give a nil source")
	}

	seeded := Config{Seed: 9, HasSeed: true}
	a := seeded.newRand(nil).Uint64()
	b := palette.NewRand(9).Uint64()
	if a != b {
		t.Errorf("configured seed: got %d, want %d", a, b)
	}

	callSeed := uint64(3)
	c := seeded.newRand(&callSeed).Uint64()
	d := palette.NewRand(3).Uint64()
	if c != d {
		t.Errorf("call seed should win: got %d, want %d", c, d)
	}
}
