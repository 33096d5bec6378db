// Package config persists the small "IIPS" settings group IIPSComm reads on
// construction and writes back on destruction: the remote host's address
// and UDP port, and QGC's own local listening port. It replaces the
// original's QSettings-backed INI store with a YAML file, read with
// gopkg.in/yaml.v3 the way the APRS stack reads tocalls.yaml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults mirror IIPSComm's constructor defaults when a key is absent.
const (
	DefaultIipsIP   = "127.0.0.1"
	DefaultIipsPort = 8000
	DefaultQgcPort  = 8001
)

// Settings is the "IIPS" settings group.
type Settings struct {
	IipsIP   string `yaml:"iipsIp"`
	IipsPort int    `yaml:"iipsPort"`
	QgcPort  int    `yaml:"qgcPort"`
}

func defaults() Settings {
	return Settings{IipsIP: DefaultIipsIP, IipsPort: DefaultIipsPort, QgcPort: DefaultQgcPort}
}

// Store loads and saves a Settings value to a single YAML file, filling in
// defaults for keys missing on disk exactly as the constructor did for
// missing QSettings keys.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the settings file, falling back to defaults for any field the
// file doesn't set and for the file not existing at all. It never returns
// an error for a missing file, matching the original's "use the default and
// persist it" behavior; a malformed file is an error.
func (s *Store) Load() (Settings, error) {
	cfg := defaults()
	body, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Settings{}, fmt.Errorf("config: read %s: %w", s.path, err)
	}
	var onDisk Settings
	if err := yaml.Unmarshal(body, &onDisk); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", s.path, err)
	}
	if onDisk.IipsIP != "" {
		cfg.IipsIP = onDisk.IipsIP
	}
	if onDisk.IipsPort != 0 {
		cfg.IipsPort = onDisk.IipsPort
	}
	if onDisk.QgcPort != 0 {
		cfg.QgcPort = onDisk.QgcPort
	}
	return cfg, nil
}

// Save writes cfg to the settings file, matching the destructor's
// write-back of whatever values were in effect at shutdown.
func (s *Store) Save(cfg Settings) error {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, body, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", s.path, err)
	}
	return nil
}
