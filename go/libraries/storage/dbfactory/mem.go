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
	"github.com/pristinedb/pristine/go/libraries/storage/kvstore"
	"github.com/pristinedb/pristine/go/libraries/storage/pristinestore"
	"github.com/pristinedb/pristine/go/store/blobstore"
)

// MemFactory is a DBFactory implementation for creating in memory backed databases
type MemFactory struct {
}

// CreateDB creates an in memory backed database. mem://pristine opens the
// paged engine over anonymous memory; any other mem url opens a key/value
// store.
func (fact MemFactory) CreateDB(ctx context.Context, urlObj *url.URL, params map[string]interface{}) (storage.Database, error) {
	if urlObj.Host == "pristine" {
		return pristinestore.OpenMemory(pristinestore.Options{
			InitialSize:   intParam(params, InitialSizeParam),
			NodeCacheSize: int(intParam(params, NodeCacheSizeParam)),
			Logger:        loggerParam(params),
			Metrics:       metricsParam(params),
		})
	}
	return kvstore.New(blobstore.NewInMemoryBlobstore(urlObj.Host), loggerParam(params)), nil
}
