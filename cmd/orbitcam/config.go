package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/orbit"
)

// Config is the host configuration. The TOML file is applied over the
// defaults and the environment over the file.
type Config struct {
	ListenAddr   string  `toml:"listen_addr"   env:"ORBITCAM_LISTEN_ADDR"`
	FramesDir    string  `toml:"frames_dir"    env:"ORBITCAM_FRAMES_DIR"`
	LogFormat    string  `toml:"log_format"    env:"ORBITCAM_LOG_FORMAT"`
	LogLevel     string  `toml:"log_level"     env:"ORBITCAM_LOG_LEVEL"`
	LogFile      string  `toml:"log_file"      env:"ORBITCAM_LOG_FILE"`
	StepDegrees  float64 `toml:"step_degrees"  env:"ORBITCAM_STEP_DEGREES"`
	InitialOrbit string  `toml:"initial_orbit" env:"ORBITCAM_INITIAL_ORBIT"`
}

func DefaultConfig() Config {
	return Config{
		LogFormat:    "text",
		LogLevel:     "info",
		StepDegrees:  3,
		InitialOrbit: "0deg 0deg 100%",
	}
}

// LoadConfig reads path (skipped when empty) and then the environment.
// A nil environ reads the process environment.
func LoadConfig(path string, environ map[string]string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every value the host will act on.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q: want text or json", c.LogFormat)
	}
	if _, err := observability.ParseSlogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.StepDegrees <= 0 {
		return fmt.Errorf("step_degrees %v: must be positive", c.StepDegrees)
	}
	if _, err := orbit.Parse(c.InitialOrbit); err != nil {
		return fmt.Errorf("initial_orbit: %w", err)
	}
	return nil
}
