// Package project loads the deployer project file, which holds the non-secret settings of a
// contract project: paths, compiler settings, named accounts and the default network.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/contractkit/deployer/config/network"
)

// DefaultFile is the project file name looked up in the working directory.
const DefaultFile = "deployer.yaml"

// Paths configures where the project keeps its inputs and outputs.
type Paths struct {
	Sources     string `yaml:"sources"`
	Cache       string `yaml:"cache"`
	Artifacts   string `yaml:"artifacts"`
	Deployments string `yaml:"deployments"`
}

// Optimizer configures the solc optimizer.
type Optimizer struct {
	Enabled bool `yaml:"enabled"`
	Runs    int  `yaml:"runs"`
}

// Solidity configures the compiler.
type Solidity struct {
	Version string `yaml:"version"`
	// BytecodeHash controls the metadata hash appended to the bytecode. "none" keeps the
	// bytecode independent of the metadata.
	BytecodeHash string    `yaml:"bytecode_hash"`
	Optimizer    Optimizer `yaml:"optimizer"`
}

// Config is the project configuration.
type Config struct {
	DefaultNetwork string            `yaml:"default_network"`
	Paths          Paths             `yaml:"paths"`
	Solidity       Solidity          `yaml:"solidity"`
	NamedAccounts  map[string]uint32 `yaml:"named_accounts"`
	DeployTimeout  time.Duration     `yaml:"deploy_timeout"`
}

// Default returns the configuration used when no project file exists.
func Default() *Config {
	return &Config{
		DefaultNetwork: string(network.Hardhat),
		Paths: Paths{
			Sources:     "./src",
			Cache:       "./cache_hardhat",
			Artifacts:   "./artifacts",
			Deployments: "./deployments",
		},
		Solidity: Solidity{
			Version:      "0.8.16",
			BytecodeHash: "none",
			Optimizer: Optimizer{
				Enabled: true,
				Runs:    800,
			},
		},
		NamedAccounts: map[string]uint32{
			"deployer": 0,
		},
		DeployTimeout: 30 * time.Second,
	}
}

// Load reads the project file at filePath over the defaults. A missing file is not an error.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate project file %s: %w", filePath, err)
	}

	return cfg, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if _, err := network.ParseName(c.DefaultNetwork); err != nil {
		return fmt.Errorf("default network: %w", err)
	}

	if c.Paths.Sources == "" || c.Paths.Artifacts == "" || c.Paths.Deployments == "" {
		return errors.New("paths sources, artifacts and deployments are required")
	}

	if _, err := c.Solidity.SemVer(); err != nil {
		return err
	}

	switch c.Solidity.BytecodeHash {
	case "none", "ipfs", "bzzr1":
	default:
		return fmt.Errorf("unsupported bytecode hash %q", c.Solidity.BytecodeHash)
	}

	if c.Solidity.Optimizer.Enabled && c.Solidity.Optimizer.Runs <= 0 {
		return errors.New("optimizer runs must be positive when the optimizer is enabled")
	}

	if _, ok := c.NamedAccounts["deployer"]; !ok {
		return errors.New(`named account "deployer" is required`)
	}

	if c.DeployTimeout <= 0 {
		return errors.New("deploy timeout must be positive")
	}

	return nil
}

// SemVer parses the configured compiler version. Only exact versions are accepted.
func (s Solidity) SemVer() (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid solidity version %q: %w", s.Version, err)
	}

	return v, nil
}
