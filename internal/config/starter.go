package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// starterConfig is the shape written by WriteStarter. Field order here is
// the order in the generated file.
type starterConfig struct {
	DataDir  string `yaml:"data_dir"`
	StoreDir string `yaml:"store_dir"`
	LogLevel string `yaml:"log_level"`
}

// WriteStarter writes a starter lorevault.yaml with the given directories
// filled in. It refuses to overwrite an existing file.
func WriteStarter(path, dataDir, storeDir string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := yaml.Marshal(starterConfig{
		DataDir:  dataDir,
		StoreDir: storeDir,
		LogLevel: "info",
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
