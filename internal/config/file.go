package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk client configuration.
type File struct {
	// ServerURL is the websocket endpoint, e.g. ws://host:port/world.
	ServerURL string `yaml:"server_url"`

	VisibilityRadius int     `yaml:"visibility_radius"`
	ShadowDistance   float32 `yaml:"shadow_distance"`
	WorkerCount      int     `yaml:"worker_count"`
	FPSLimit         int     `yaml:"fps_limit"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Defaults returns the configuration used when no file exists.
func Defaults() File {
	return File{
		ServerURL:        "ws://localhost:8700/world",
		VisibilityRadius: 8,
		ShadowDistance:   96,
		WorkerCount:      4,
		FPSLimit:         180,
		LogLevel:         "info",
	}
}

// Load reads a yaml config file, filling unset fields with defaults. A
// missing file is not an error.
func Load(path string) (File, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.VisibilityRadius <= 0 {
		cfg.VisibilityRadius = Defaults().VisibilityRadius
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = Defaults().WorkerCount
	}
	return cfg, nil
}

// Apply pushes the file's quality knobs into the global settings.
func (f File) Apply() {
	SetVisibilityRadius(f.VisibilityRadius)
	SetShadowDistance(f.ShadowDistance)
	SetWorkerCount(f.WorkerCount)
	SetFPSLimit(f.FPSLimit)
}
