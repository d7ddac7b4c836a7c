// Copyright 2024 NodeFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"nodefs/internal/artifacts"
)

// EnvPrefix prefixes every environment override, e.g. NODEFS_MAX_WORKERS.
const EnvPrefix = "nodefs"

// getConfigDir returns the config directory path.
// Uses NODEFS_CONFIG_DIR env var if set, otherwise defaults to ~/.nodefs.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("NODEFS_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nodefs")
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// SettingsPath returns the settings file path
func SettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.yaml")
}

// Settings are the engine-wide knobs.
type Settings struct {
	LogLevel          string        `yaml:"log_level" envconfig:"LOG_LEVEL"`                     // trace, debug, info, warn, error, none
	MaxWorkers        int           `yaml:"max_workers" envconfig:"MAX_WORKERS"`                 // 0 = unbounded
	WatchInterval     time.Duration `yaml:"watch_interval" envconfig:"WATCH_INTERVAL"`           // default 5007ms
	RmRetryDelay      time.Duration `yaml:"rm_retry_delay" envconfig:"RM_RETRY_DELAY"`           // default 100ms
	OpendirBufferSize int           `yaml:"opendir_buffer_size" envconfig:"OPENDIR_BUFFER_SIZE"` // default 32
	NFSListen         string        `yaml:"nfs_listen" envconfig:"NFS_LISTEN"`
}

// ApplyDefaults fills zero-value fields with their defaults.
func (s *Settings) ApplyDefaults() {
	if s.LogLevel == "" {
		s.LogLevel = "none"
	}
	if s.MaxWorkers < 0 {
		s.MaxWorkers = 0
	}
	if s.WatchInterval <= 0 {
		s.WatchInterval = 5007 * time.Millisecond
	}
	if s.RmRetryDelay <= 0 {
		s.RmRetryDelay = 100 * time.Millisecond
	}
	if s.OpendirBufferSize <= 0 {
		s.OpendirBufferSize = 32
	}
	if s.NFSListen == "" {
		s.NFSListen = "127.0.0.1:0"
	}
}

// Default returns the embedded settings with defaults applied.
func Default() Settings {
	var s Settings
	if err := yaml.Unmarshal(artifacts.DefaultSettings, &s); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	s.ApplyDefaults()
	return s
}

// Load reads SettingsPath(), falling back to the embedded defaults when the
// file does not exist, then applies NODEFS_* environment overrides.
func Load() (*Settings, error) {
	return LoadFromPath(SettingsPath())
}

// LoadFromPath is Load for an explicit file.
func LoadFromPath(path string) (*Settings, error) {
	s, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, s); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	s.ApplyDefaults()
	return s, nil
}

// LoadFile reads SettingsPath() without environment overrides, so a caller
// that writes the result back does not persist its environment.
func LoadFile() (*Settings, error) {
	s, err := readFile(SettingsPath())
	if err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	return s, nil
}

func readFile(path string) (*Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	return &s, nil
}

// Keys lists the settings file keys in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("yaml"))
	}
	return keys
}

// Set parses value as the YAML scalar for key. Durations take Go syntax
// ("250ms", "5s").
func (s *Settings) Set(key, value string) error {
	known := false
	for _, k := range Keys() {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	node := yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: key},
			{Kind: yaml.ScalarNode, Value: value},
		},
	}
	next := *s
	if err := node.Decode(&next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	next.ApplyDefaults()
	*s = next
	return nil
}

// Save writes s to SettingsPath().
func Save(s *Settings) error {
	if err := os.MkdirAll(getConfigDir(), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	header := []byte("# nodefs engine settings\n\n")
	return os.WriteFile(SettingsPath(), append(header, data...), 0600)
}

// ConfigureLogging points logrus at w with the given level. "none" or an
// empty level discards all output.
func ConfigureLogging(level string, w io.Writer) {
	level = strings.ToLower(level)
	if level == "" || level == "none" {
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(w)
	switch level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.DebugLevel)
	}
}
