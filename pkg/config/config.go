// Package config holds the bench configuration. It can be imported by other
// programs without pulling in the bench command itself.
package config

import (
	"os"
	"time"

	"github.com/i5heu/GoOrderedQueue/internal/testbench"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Workload is an alias for testbench.Config.
type Workload = testbench.Config

// Config is the full bench configuration, usually read from a YAML file.
type Config struct {
	Iterations   int           `yaml:"iterations"`
	TestDuration time.Duration `yaml:"test_duration"`
	Workloads    []Workload    `yaml:"workloads"`
	LogLevel     string        `yaml:"log_level"`
	JSONFile     string        `yaml:"json_file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Iterations:   5,
		TestDuration: 2 * time.Second,
		Workloads: []Workload{
			{BatchSize: 16},
			{BatchSize: 256},
			{BatchSize: 4096},
		},
		LogLevel: logrus.InfoLevel.String(),
		JSONFile: "test-results.json",
	}
}

// Load reads a YAML file on top of Default. Fields missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "could not read config file %q", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "could not decode config file %q", path)
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return errors.Errorf("iterations must be positive, got %d", c.Iterations)
	}

	if c.TestDuration <= 0 {
		return errors.Errorf("test_duration must be positive, got %s", c.TestDuration)
	}

	if len(c.Workloads) == 0 {
		return errors.New("at least one workload is required")
	}

	for i, w := range c.Workloads {
		if w.BatchSize <= 0 {
			return errors.Errorf("workload %d: batch_size must be positive, got %d", i, w.BatchSize)
		}
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log_level")
	}

	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
