package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"catyard/server/logging"
)

// Config collects the tunables the yard server reads at startup. Every field
// has a default; a missing config file is not an error.
type Config struct {
	Addr         string  `yaml:"addr"`
	TickRate     int     `yaml:"tickRate"`
	CellSize     float64 `yaml:"cellSize"`
	YardWidth    float64 `yaml:"yardWidth"`
	YardHeight   float64 `yaml:"yardHeight"`
	StartingCats int     `yaml:"startingCats"`

	// Placement lifetimes, in seconds.
	FoodTTLSeconds  int `yaml:"foodTTLSeconds"`
	ToyTTLSeconds   int `yaml:"toyTTLSeconds"`
	LaserTTLSeconds int `yaml:"laserTTLSeconds"`

	// Storage is the gdata app name the roster persists under. Empty disables
	// persistence.
	StorageApp string `yaml:"storageApp"`

	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Sinks        []string `yaml:"sinks"`
	JSONFilePath string   `yaml:"jsonFilePath"`
	MinSeverity  string   `yaml:"minSeverity"`
}

// DefaultConfig mirrors the compile-time constants.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		TickRate:        defaultTickRate,
		CellSize:        defaultGridCellSize,
		YardWidth:       defaultYardWidth,
		YardHeight:      defaultYardHeight,
		StartingCats:    defaultStartingCats,
		FoodTTLSeconds:  int(defaultFoodTTL / time.Second),
		ToyTTLSeconds:   int(defaultToyTTL / time.Second),
		LaserTTLSeconds: int(defaultLaserTTL / time.Second),
		StorageApp:      "catyard",
		Logging: LoggingConfig{
			Sinks: []string{"console"},
		},
	}
}

// LoadConfig reads path and overlays it on the defaults. A missing file
// returns the defaults; a malformed or invalid file returns an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.TickRate <= 0 {
		return fmt.Errorf("tickRate must be positive, got %d", cfg.TickRate)
	}
	if cfg.CellSize <= 0 {
		return fmt.Errorf("cellSize must be positive, got %v", cfg.CellSize)
	}
	if cfg.YardWidth < 2*catHalf || cfg.YardHeight < 2*catHalf {
		return fmt.Errorf("yard %vx%v is too small for a cat", cfg.YardWidth, cfg.YardHeight)
	}
	if cfg.StartingCats < 0 {
		return fmt.Errorf("startingCats must not be negative, got %d", cfg.StartingCats)
	}
	for _, ttl := range []int{cfg.FoodTTLSeconds, cfg.ToyTTLSeconds, cfg.LaserTTLSeconds} {
		if ttl <= 0 {
			return fmt.Errorf("placement TTLs must be positive")
		}
	}
	return nil
}

// FoodTTL returns the food bowl lifetime as a duration.
func (c Config) FoodTTL() time.Duration { return time.Duration(c.FoodTTLSeconds) * time.Second }

// ToyTTL returns the toy lifetime as a duration.
func (c Config) ToyTTL() time.Duration { return time.Duration(c.ToyTTLSeconds) * time.Second }

// LaserTTL returns the laser point lifetime as a duration.
func (c Config) LaserTTL() time.Duration { return time.Duration(c.LaserTTLSeconds) * time.Second }

// Severity maps the configured severity name onto the logging scale,
// defaulting to info for unknown names.
func (l LoggingConfig) Severity() logging.Severity {
	switch l.MinSeverity {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}
