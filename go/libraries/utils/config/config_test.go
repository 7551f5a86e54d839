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

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultURL, cfg.URL())
	assert.False(t, cfg.NoSync())
	size, err := cfg.InitialSize()
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Equal(t, DefaultNodeCacheSize, cfg.NodeCacheSize())
	assert.Equal(t, "info", cfg.LogLevel())
	assert.Equal(t, "text", cfg.LogFormat())
}

func TestYamlConfig(t *testing.T) {
	cfg, err := NewYamlConfig([]byte(`
storage:
  url: bolt:///var/lib/pristine.bolt
  nosync: true
  initial_size: 16MiB
log:
  level: DEBUG
  format: json
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "bolt:///var/lib/pristine.bolt", cfg.URL())
	assert.True(t, cfg.NoSync())
	size, err := cfg.InitialSize()
	require.NoError(t, err)
	assert.Equal(t, int64(16<<20), size)
	assert.Equal(t, "debug", cfg.LogLevel())

	log, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Logger.Formatter)

	_, err = NewYamlConfig([]byte("storage:\n  colour: red\n"))
	assert.Error(t, err)
}

func TestTomlConfig(t *testing.T) {
	cfg, err := NewTomlConfig([]byte(`
[storage]
url = "leveldb://data"
node_cache_size = 64

[log]
level = "warn"
`))
	require.NoError(t, err)
	assert.Equal(t, "leveldb://data", cfg.URL())
	assert.Equal(t, 64, cfg.NodeCacheSize())
	assert.Equal(t, "warn", cfg.LogLevel())

	_, err = NewTomlConfig([]byte("[storage]\ncolour = \"red\"\n"))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "pristine.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("log:\n  level: trace\n"), 0644))
	cfg, err := FromFile(yml)
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.LogLevel())

	bad := filepath.Join(dir, "pristine.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[log]\nformat = \"xml\"\n"), 0644))
	_, err = FromFile(bad)
	assert.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "pristine.ini"))
	assert.Error(t, err)
	_, err = FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestOverrides(t *testing.T) {
	mc, err := ParseOverrides([]string{"storage.url=mem://", "storage.nosync=true", "log.level = error"})
	require.NoError(t, err)
	assert.Equal(t, 3, mc.Size())
	v, err := mc.GetString(LogLevelKey)
	require.NoError(t, err)
	assert.Equal(t, "error", v)
	_, err = mc.GetString("missing")
	assert.Equal(t, ErrConfigParamNotFound, err)

	var cfg Config
	require.NoError(t, cfg.Apply(mc))
	assert.Equal(t, "mem://", cfg.URL())
	assert.True(t, cfg.NoSync())
	assert.Equal(t, "error", cfg.LogLevel())

	for _, args := range [][]string{
		{"noequals"},
		{"=value"},
	} {
		_, err = ParseOverrides(args)
		assert.Error(t, err, "%v", args)
	}

	for _, kv := range []string{"storage.nosync=maybe", "storage.node_cache_size=lots", "storage.node_cache_size=0", "unknown.key=1", "log.level=loud"} {
		mc, err := ParseOverrides([]string{kv})
		require.NoError(t, err)
		var cfg Config
		assert.Error(t, cfg.Apply(mc), kv)
	}

	mc, err = ParseOverrides([]string{"storage.nosync=maybe"})
	require.NoError(t, err)
	err = (&Config{}).Apply(mc)
	assert.EqualError(t, err, `bad value for 'storage.nosync': strconv.ParseBool: parsing "maybe": invalid syntax`)
	var numErr *strconv.NumError
	assert.ErrorAs(t, errors.Cause(err), &numErr)
}

func TestMapConfig(t *testing.T) {
	mc := NewMapConfig(nil)
	require.NoError(t, mc.SetStrings(map[string]string{"b": "2", "a": "1"}))
	var keys []string
	mc.Iter(func(k, v string) bool {
		keys = append(keys, k)
		return false
	})
	assert.Equal(t, []string{"a", "b"}, keys)
	require.NoError(t, mc.Unset([]string{"a"}))
	assert.Equal(t, 1, mc.Size())
}
