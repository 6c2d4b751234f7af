package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type UpdateCfg struct {
	ReleaseURL string `yaml:"release_url"`
	IntervalS  int    `yaml:"interval_s"`
}

type Config struct {
	Addr      string    `yaml:"addr"`      // websocket bus listen address
	DataDir   string    `yaml:"data_dir"`  // userData.json and sidecars
	Workspace string    `yaml:"workspace"` // module workspace directory
	LogLevel  string    `yaml:"log_level"` // zerolog level name
	Update    UpdateCfg `yaml:"update,omitempty"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		Addr:     "127.0.0.1:7212",
		DataDir:  "data",
		LogLevel: "info",
		Update: UpdateCfg{
			ReleaseURL: "https://api.github.com/repos/example/vjdeck/releases/latest",
			IntervalS:  3600,
		},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Defaults()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// DocumentPath is the user data file inside the data dir.
func (c *Config) DocumentPath() string { return filepath.Join(c.DataDir, "userData.json") }

// AppStatePath is the transient state sidecar inside the data dir.
func (c *Config) AppStatePath() string { return filepath.Join(c.DataDir, "appState.json") }

// RecordingsPath is the recordings sidecar inside the data dir.
func (c *Config) RecordingsPath() string { return filepath.Join(c.DataDir, "recordings.json") }
