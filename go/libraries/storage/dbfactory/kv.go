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
	"github.com/pristinedb/pristine/go/store/blobstore"
)

// LevelDBFactory opens a key/value store over the LevelDB directory named by
// the url.
type LevelDBFactory struct {
}

func (fact LevelDBFactory) CreateDB(ctx context.Context, urlObj *url.URL, params map[string]interface{}) (storage.Database, error) {
	path, err := localPath(urlObj)
	if err != nil {
		return nil, err
	}
	bs, err := blobstore.NewLevelDBBlobstore(path)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return kvstore.New(bs, loggerParam(params)), nil
}

// BoltFactory opens a key/value store over the bolt database file named by
// the url.
type BoltFactory struct {
}

func (fact BoltFactory) CreateDB(ctx context.Context, urlObj *url.URL, params map[string]interface{}) (storage.Database, error) {
	path, err := localPath(urlObj)
	if err != nil {
		return nil, err
	}
	bs, err := blobstore.NewBoltBlobstore(path)
	if err != nil {
		return nil, storage.Wrap(err)
	}
	return kvstore.New(bs, loggerParam(params)), nil
}
