// Package secrets resolves the credentials the deployer needs before it can do anything else.
//
// Values come from the process environment and, when present, a dotenv file. The environment
// always wins over the file. Resolution stops at the first missing value.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/viper"

	"github.com/contractkit/deployer/pkg/logger"
)

// Names of the required secrets, in the order they are validated.
const (
	Mnemonic        = "MNEMONIC"
	RPCToken        = "RPC_TOKEN"
	EtherscanAPIKey = "ETHERSCAN_API_KEY"

	// DatabaseURL optionally points the deployment record store at a Postgres database.
	DatabaseURL = "DEPLOYMENTS_DATABASE_URL"
)

// Required lists every secret the deployer refuses to start without.
var Required = []string{Mnemonic, RPCToken, EtherscanAPIKey}

// MissingSecretError reports the first required secret that has no value.
type MissingSecretError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingSecretError) Error() string {
	return fmt.Sprintf("missing required secret %q: set it in the environment or the .env file", e.Name)
}

// Secrets holds the resolved credentials.
//
// WARNING: This data type contains sensitive fields and should not be logged. String and
// GoString redact every value.
type Secrets struct {
	Mnemonic        string
	RPCToken        string
	EtherscanAPIKey string
}

// String implements fmt.Stringer without leaking values.
func (s Secrets) String() string {
	return fmt.Sprintf("Secrets{Mnemonic:%s RPCToken:%s EtherscanAPIKey:%s}",
		logger.Redact(s.Mnemonic), logger.Redact(s.RPCToken), logger.Redact(s.EtherscanAPIKey))
}

// GoString implements fmt.GoStringer so %#v is redacted as well.
func (s Secrets) GoString() string { return s.String() }

// Source is the configuration state secrets are looked up in. It is loaded once and is
// read-only afterwards.
type Source struct {
	v *viper.Viper
}

// Load builds a Source from the dotenv file at filePath, falling back to env vars only if the
// file does not exist. If the file exists, any env vars that are set override the values loaded
// from it. A variable exported with an empty value counts as set.
func Load(filePath string) (*Source, error) {
	v := viper.New()
	v.AllowEmptyEnv(true)

	if err := bindEnvs(v, append(slices.Clone(Required), DatabaseURL)); err != nil {
		return nil, err
	}

	if filePath != "" {
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			v.SetConfigFile(filePath)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read secrets file %s: %w", filePath, err)
			}
		}
	}

	return &Source{v: v}, nil
}

// LoadEnv builds a Source from the environment only.
func LoadEnv() (*Source, error) {
	return Load("")
}

// Resolve looks up each name in order and returns the values by name. It fails with a
// *MissingSecretError on the first name that has no value; later names are not inspected.
func (s *Source) Resolve(names ...string) (map[string]string, error) {
	resolved := make(map[string]string, len(names))
	for _, name := range names {
		value := s.v.GetString(name)
		if value == "" {
			return nil, &MissingSecretError{Name: name}
		}
		resolved[name] = value
	}

	return resolved, nil
}

// Secrets resolves all Required secrets.
func (s *Source) Secrets() (Secrets, error) {
	values, err := s.Resolve(Required...)
	if err != nil {
		return Secrets{}, err
	}

	return Secrets{
		Mnemonic:        values[Mnemonic],
		RPCToken:        values[RPCToken],
		EtherscanAPIKey: values[EtherscanAPIKey],
	}, nil
}

// Lookup returns an optional value, empty when unset.
func (s *Source) Lookup(name string) string {
	return s.v.GetString(name)
}

// bindEnvs binds each name both as the config key and as the environment variable. Dotenv keys
// are stored lower-cased by viper, which is why the key is bound explicitly.
func bindEnvs(v *viper.Viper, names []string) error {
	for _, name := range names {
		if err := v.BindEnv(name, name); err != nil {
			return err
		}
	}

	return nil
}
