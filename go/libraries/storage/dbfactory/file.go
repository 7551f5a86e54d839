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

package dbfactory

import (
	"context"
	"net/url"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/libraries/storage/pristinestore"
)

// FileFactory is a DBFactory implementation for creating local filesys backed databases
type FileFactory struct {
}

// CreateDB opens the pristine store in the directory named by |urlObj|,
// creating it if needed.
func (fact FileFactory) CreateDB(ctx context.Context, urlObj *url.URL, params map[string]interface{}) (storage.Database, error) {
	path, err := localPath(urlObj)
	if err != nil {
		return nil, err
	}
	return pristinestore.Open(path, pristinestore.Options{
		InitialSize:   intParam(params, InitialSizeParam),
		NodeCacheSize: int(intParam(params, NodeCacheSizeParam)),
		NoSync:        boolParam(params, NoSyncParam),
		Logger:        loggerParam(params),
		Metrics:       metricsParam(params),
	})
}
