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

// Package dbfactory opens storage backends by URL.
package dbfactory

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/store/pristine"
)

const (
	// FileScheme opens the paged pristine engine in a directory
	FileScheme = "file"

	// MemScheme opens a key/value store in memory
	MemScheme = "mem"

	// LevelDBScheme opens a key/value store over LevelDB
	LevelDBScheme = "leveldb"

	// BoltScheme opens a key/value store over a bolt database file
	BoltScheme = "bolt"

	defaultScheme = FileScheme
)

// Parameters understood by the factories. Unknown parameters are ignored.
const (
	// NoSyncParam (bool) skips flushing to disk at commit.
	NoSyncParam = "nosync"
	// InitialSizeParam (int64) is the minimum size of a new page file.
	InitialSizeParam = "initial_size"
	// NodeCacheSizeParam (int) bounds the decoded node cache.
	NodeCacheSizeParam = "node_cache_size"
	// LoggerParam (*logrus.Entry) is the logger of the store.
	LoggerParam = "logger"
	// MetricsParam (*pristine.Metrics) receives engine metrics.
	MetricsParam = "metrics"
)

// DBFactory is an interface for creating concrete storage.Database instances which may have different backing stores.
type DBFactory interface {
	CreateDB(ctx context.Context, urlObj *url.URL, params map[string]interface{}) (storage.Database, error)
}

// DBFactories is a map from url scheme name to DBFactory.  Additional factories can be added to the DBFactories map
// from external packages.
var DBFactories = map[string]DBFactory{
	FileScheme:    FileFactory{},
	MemScheme:     MemFactory{},
	LevelDBScheme: LevelDBFactory{},
	BoltScheme:    BoltFactory{},
}

// CreateDB creates a database based on the supplied urlStr, and creation params.  The DBFactory used for creation is
// determined by the scheme of the url.  Naked paths open the file backend.
func CreateDB(ctx context.Context, urlStr string, params map[string]interface{}) (storage.Database, error) {
	urlObj, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	scheme := urlObj.Scheme
	if len(scheme) == 0 {
		scheme = defaultScheme
	}

	if fact, ok := DBFactories[strings.ToLower(scheme)]; ok {
		return fact.CreateDB(ctx, urlObj, params)
	}

	return nil, fmt.Errorf("unknown url scheme: '%s'", urlObj.Scheme)
}

// localPath returns the filesystem path of |urlObj|. Host and path are
// joined so that file://rel/dir names a relative directory.
func localPath(urlObj *url.URL) (string, error) {
	path, err := url.PathUnescape(urlObj.Path)
	if err != nil {
		return "", err
	}
	path = filepath.FromSlash(urlObj.Host + path)
	if path == "" {
		return "", fmt.Errorf("url '%s' has no path", urlObj.String())
	}
	return path, nil
}

func boolParam(params map[string]interface{}, name string) bool {
	switch v := params[name].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func intParam(params map[string]interface{}, name string) int64 {
	switch v := params[name].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return 0
}

func loggerParam(params map[string]interface{}) *logrus.Entry {
	if l, ok := params[LoggerParam].(*logrus.Entry); ok {
		return l
	}
	return nil
}

func metricsParam(params map[string]interface{}) *pristine.Metrics {
	if m, ok := params[MetricsParam].(*pristine.Metrics); ok {
		return m
	}
	return nil
}
