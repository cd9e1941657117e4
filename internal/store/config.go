package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFile is the per-store settings file name.
const ConfigFile = "store.toml"

// Config holds the repo-local settings for a store directory: where commits
// go and who they are attributed to.
type Config struct {
	Remote string `toml:"remote"`
	Branch string `toml:"branch"`
	Author Author `toml:"author"`
}

// Author identifies sync commits in the store repository.
type Author struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// DefaultConfig returns the settings a fresh store starts with.
func DefaultConfig() Config {
	return Config{
		Remote: "origin",
		Branch: "main",
		Author: Author{
			Name:  "lorevault",
			Email: "lorevault@localhost",
		},
	}
}

// LoadConfig reads store.toml from dir. A missing file yields the defaults,
// and fields absent from the file keep their default values.
func LoadConfig(dir string) (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(dir, ConfigFile)
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// WriteConfig writes cfg to store.toml in dir.
func WriteConfig(dir string, cfg Config) error {
	path := filepath.Join(dir, ConfigFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
