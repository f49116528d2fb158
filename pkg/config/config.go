package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage/dbconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the name of the configuration file looked up
	// by Load.
	DefaultConfigFile = "neo-mpt.yml"
	// DefaultCollapseDepth is the depth the in-memory trie is collapsed to
	// after every commit if not configured.
	DefaultCollapseDepth = 10
)

// Version is the version of the node, set at build time.
var Version string

// Config top level struct representing the config
// for the node.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Load attempts to load the config from DefaultConfigFile in the given
// directory.
func Load(path string) (Config, error) {
	return LoadFile(filepath.Join(path, DefaultConfigFile))
}

// LoadFile loads config from the provided path. Unknown fields are
// rejected.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// Default returns the configuration used when nothing is overridden by
// the config file.
func Default() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			LogLevel: "info",
			DBConfiguration: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
			StateRoot: StateRoot{
				CollapseDepth: DefaultCollapseDepth,
			},
		},
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	return c.ApplicationConfiguration.Validate()
}
