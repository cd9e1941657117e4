// Package config loads CLI settings from flags, environment, and an
// optional lorevault.yaml file. Precedence follows viper: flag, then
// LOREVAULT_* environment variable, then config file, then default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Keys used across commands.
const (
	KeyDataDir  = "data_dir"
	KeyStoreDir = "store_dir"
	KeyLogLevel = "log_level"
)

// FileName is the config file base name, searched as lorevault.yaml.
const FileName = "lorevault"

// Settings is the resolved configuration a command runs with.
type Settings struct {
	DataDir  string
	StoreDir string
	LogLevel string
}

// New returns a viper instance with defaults and search paths set. The
// config file is searched in the working directory and in
// $HOME/.config/lorevault.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, "data")
	v.SetDefault(KeyStoreDir, "store")
	v.SetDefault(KeyLogLevel, "info")

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "lorevault"))
	}

	v.SetEnvPrefix("LOREVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file if one exists. A missing file is not an
// error; a malformed one is.
func Load(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Resolve extracts the settings every command needs.
func Resolve(v *viper.Viper) Settings {
	return Settings{
		DataDir:  v.GetString(KeyDataDir),
		StoreDir: v.GetString(KeyStoreDir),
		LogLevel: v.GetString(KeyLogLevel),
	}
}
