// Package config reads the plainrw configuration file.
package config

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store StoreConfig `yaml:"store"`

	// Disk names the storage in logs and metrics
	Disk string `yaml:"disk"`

	// StoragePathPrefix is the local path the storage is attached under
	StoragePathPrefix string `yaml:"storagePathPrefix"`

	// Workers bounds the number of prefix markers read concurrently on attach
	Workers int `yaml:"workers"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9500"
	MetricsAddr string `yaml:"metricsAddr"`
}

type StoreConfig struct {
	URL       string `yaml:"url"`
	Prefix    string `yaml:"prefix"`
	WriteOnce bool   `yaml:"writeOnce"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Disk:    "default",
		Workers: runtime.NumCPU() * 4,
	}
}

// Load reads a YAML configuration file. Fields the file does not set keep their defaults.
func Load(fn string) (*Config, error) {
	fc, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %s", fn)
	}

	res := Default()
	err = yaml.Unmarshal(fc, res)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %s", fn)
	}
	return res, nil
}

func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return errors.New("store.url is required")
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative: %d", c.Workers)
	}
	return nil
}
