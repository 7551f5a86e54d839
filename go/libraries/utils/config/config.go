// Copyright 2026 Dolthub, Inc.
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

// Package config loads the settings of the pristine tools from YAML or TOML
// files, with key=value overrides applied on top.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// ErrConfigParamNotFound is returned when a requested parameter is not set.
var ErrConfigParamNotFound = errors.New("param not found")

const (
	DefaultURL           = "file://.pristine"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultNodeCacheSize = 1024
)

// Override keys accepted by Apply.
const (
	StorageURLKey           = "storage.url"
	StorageNoSyncKey        = "storage.nosync"
	StorageInitialSizeKey   = "storage.initial_size"
	StorageNodeCacheSizeKey = "storage.node_cache_size"
	LogLevelKey             = "log.level"
	LogFormatKey            = "log.format"
)

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	URLStr *string `yaml:"url,omitempty" toml:"url"`
	NoSync *bool   `yaml:"nosync,omitempty" toml:"nosync"`
	// InitialSizeStr is a size such as "16MiB".
	InitialSizeStr   *string `yaml:"initial_size,omitempty" toml:"initial_size"`
	NodeCacheEntries *int    `yaml:"node_cache_size,omitempty" toml:"node_cache_size"`
}

type LogConfig struct {
	LevelStr  *string `yaml:"level,omitempty" toml:"level"`
	FormatStr *string `yaml:"format,omitempty" toml:"format"`
}

// Config is the file form of the settings. Unset fields take their defaults.
type Config struct {
	Storage StorageConfig `yaml:"storage,omitempty" toml:"storage"`
	Log     LogConfig     `yaml:"log,omitempty" toml:"log"`
}

// NewYamlConfig parses |data| as YAML. Unknown fields are errors.
func NewYamlConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewTomlConfig parses |data| as TOML. Unknown fields are errors.
func NewTomlConfig(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown field '%s'", undecoded[0].String())
	}
	return &cfg, nil
}

// FromFile reads the config at |path|, choosing the format by extension.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file '%s'", path)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = NewYamlConfig(data)
	case ".toml":
		cfg, err = NewTomlConfig(data)
	default:
		return nil, errors.Errorf("unsupported config file '%s'", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file '%s'", path)
	}
	return cfg, cfg.Validate()
}

// Apply sets the fields named by the keys of |mc|.
func (cfg *Config) Apply(mc *MapConfig) error {
	var err error
	mc.Iter(func(k, v string) (stop bool) {
		err = cfg.set(k, v)
		return err != nil
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func (cfg *Config) set(k, v string) error {
	switch k {
	case StorageURLKey:
		cfg.Storage.URLStr = &v
	case StorageInitialSizeKey:
		cfg.Storage.InitialSizeStr = &v
	case LogLevelKey:
		cfg.Log.LevelStr = &v
	case LogFormatKey:
		cfg.Log.FormatStr = &v
	case StorageNoSyncKey:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "bad value for '%s'", k)
		}
		cfg.Storage.NoSync = &b
	case StorageNodeCacheSizeKey:
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "bad value for '%s'", k)
		}
		cfg.Storage.NodeCacheEntries = &n
	default:
		return errors.Errorf("unknown config key '%s'", k)
	}
	return nil
}

// Validate checks the values that are set.
func (cfg *Config) Validate() error {
	if _, err := logrus.ParseLevel(cfg.LogLevel()); err != nil {
		return err
	}
	if f := cfg.LogFormat(); f != "text" && f != "json" {
		return errors.Errorf("log format must be text or json, not '%s'", f)
	}
	if _, err := cfg.InitialSize(); err != nil {
		return err
	}
	if cfg.NodeCacheSize() <= 0 {
		return errors.Errorf("node cache size must be positive")
	}
	return nil
}

func (cfg *Config) URL() string {
	if cfg.Storage.URLStr == nil {
		return DefaultURL
	}
	return *cfg.Storage.URLStr
}

func (cfg *Config) NoSync() bool {
	return cfg.Storage.NoSync != nil && *cfg.Storage.NoSync
}

// InitialSize returns the configured page file size in bytes, or 0 for the
// engine default.
func (cfg *Config) InitialSize() (int64, error) {
	if cfg.Storage.InitialSizeStr == nil {
		return 0, nil
	}
	n, err := humanize.ParseBytes(*cfg.Storage.InitialSizeStr)
	if err != nil {
		return 0, errors.Wrapf(err, "bad initial size '%s'", *cfg.Storage.InitialSizeStr)
	}
	return int64(n), nil
}

func (cfg *Config) NodeCacheSize() int {
	if cfg.Storage.NodeCacheEntries == nil {
		return DefaultNodeCacheSize
	}
	return *cfg.Storage.NodeCacheEntries
}

func (cfg *Config) LogLevel() string {
	if cfg.Log.LevelStr == nil {
		return DefaultLogLevel
	}
	return strings.ToLower(*cfg.Log.LevelStr)
}

func (cfg *Config) LogFormat() string {
	if cfg.Log.FormatStr == nil {
		return DefaultLogFormat
	}
	return strings.ToLower(*cfg.Log.FormatStr)
}

// NewLogger returns a logger writing with the configured level and format.
func (cfg *Config) NewLogger() (*logrus.Entry, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetLevel(level)
	if cfg.LogFormat() == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(l), nil
}

// ParseOverrides builds a MapConfig from key=value arguments.
func ParseOverrides(args []string) (*MapConfig, error) {
	props := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, errors.Errorf("override '%s' is not of the form key=value", arg)
		}
		props[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return NewMapConfig(props), nil
}
