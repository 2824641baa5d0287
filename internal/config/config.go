package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds connector configuration.
type Config struct {
	Vendor     VendorConfig
	Store      StoreConfig
	Archive    ArchiveConfig
	Classifier ClassifierConfig
}

// VendorConfig holds the banking provider credentials. These arrive as an
// opaque pair; the connector never interprets them beyond passing them to
// the vendor client.
type VendorConfig struct {
	Login    string
	Password string
}

// StoreConfig holds BigQuery settings.
type StoreConfig struct {
	ProjectID string `mapstructure:"project_id"`
	DatasetID string `mapstructure:"dataset_id"`
}

// ArchiveConfig holds raw payload archiving settings. An empty bucket
// disables archiving.
type ArchiveConfig struct {
	Bucket string
}

// ClassifierConfig holds model settings for transaction classification.
type ClassifierConfig struct {
	Model string
}

// Load reads configuration from file and env. Env var overrides use prefix BANKSYNC_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("vendor.login", "")
	v.SetDefault("vendor.password", "")
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.dataset_id", "banking")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("classifier.model", "gemini-2.5-flash")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("BANKSYNC_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "bank-sync"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BANKSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate reports the first missing required field. Credentials and the
// store project must be present before a run can start.
func (c Config) Validate() error {
	if c.Vendor.Login == "" {
		return fmt.Errorf("config: vendor.login is required")
	}
	if c.Vendor.Password == "" {
		return fmt.Errorf("config: vendor.password is required")
	}
	if c.Store.ProjectID == "" {
		return fmt.Errorf("config: store.project_id is required")
	}
	return nil
}
