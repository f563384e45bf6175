package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is lanebench's YAML configuration, unmarshalled the same way the
// teacher's cmd/demo does: one struct, one yaml.Unmarshal call, no layered
// overrides.
type Config struct {
	Lane struct {
		// Kind selects the runtime variant: "threads" or "abandoning".
		Kind           string `yaml:"kind"`
		Workers        int    `yaml:"workers"`
		WorkersMax     int    `yaml:"workers_max"`
		QueueLimit     int    `yaml:"queue_limit"`
		WaitersLimit   int    `yaml:"waiters_limit"`
		Strategy       string `yaml:"strategy"`        // "wait" or "failFast"
		Scheduling     string `yaml:"scheduling"`       // "fifo" or "lifo"
		ExecutionTimeout time.Duration `yaml:"execution_timeout"`
	} `yaml:"lane"`

	Bench struct {
		Jobs        int           `yaml:"jobs"`
		JobDuration time.Duration `yaml:"job_duration"`
	} `yaml:"bench"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if cfg.Lane.Kind == "" {
		cfg.Lane.Kind = "threads"
	}
	if cfg.Bench.Jobs <= 0 {
		cfg.Bench.Jobs = 1000
	}
	return &cfg, nil
}
