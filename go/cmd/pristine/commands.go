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

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/libraries/storage/pristinestore"
	"github.com/pristinedb/pristine/go/libraries/utils/config"
	"github.com/pristinedb/pristine/go/store/pager"
)

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
	headColor = color.New(color.Bold)
)

func pristineInit(ctx context.Context, app *kingpin.Application, g *globals) (*kingpin.CmdClause, KingpinHandler) {
	cmd := app.Command("init", "Create the database if it does not exist.")
	return cmd, func(string) int {
		return g.withDB(ctx, func(db storage.Database, cfg *config.Config) error {
			okColor.Fprintf(g.out, "initialized %s\n", cfg.URL())
			return nil
		})
	}
}

func pristineInfo(ctx context.Context, app *kingpin.Application, g *globals) (*kingpin.CmdClause, KingpinHandler) {
	cmd := app.Command("info", "Show storage statistics.")
	return cmd, func(string) int {
		return g.withDB(ctx, func(db storage.Database, cfg *config.Config) error {
			headColor.Fprintln(g.out, cfg.URL())
			if ps, ok := db.(*pristinestore.Store); ok {
				st := ps.Env().Stats()
				fmt.Fprintf(g.out, "  path:         %s\n", ps.Env().Path())
				fmt.Fprintf(g.out, "  txn:          %d\n", st.Txn)
				fmt.Fprintf(g.out, "  pages:        %s (%s)\n", humanize.Comma(int64(st.Pages)), humanize.Bytes(st.Pages*pager.PageSize))
				fmt.Fprintf(g.out, "  free pages:   %s\n", humanize.Comma(int64(st.FreePages)))
				fmt.Fprintf(g.out, "  pending free: %s\n", humanize.Comma(int64(st.Pending)))
				fmt.Fprintf(g.out, "  readers:      %d\n", st.Readers)
			}
			fmt.Fprintf(g.out, "  capabilities: %s\n", strings.Join(storage.Capabilities(db), ", "))
			return nil
		})
	}
}

func pristineTables(ctx context.Context, app *kingpin.Application, g *globals) (*kingpin.CmdClause, KingpinHandler) {
	cmd := app.Command("tables", "List tables.")
	return cmd, func(string) int {
		return g.withDB(ctx, func(db storage.Database, _ *config.Config) error {
			if md, ok := db.(storage.Metadata); ok {
				metas, err := md.ScanTableMeta(ctx)
				if err != nil {
					return err
				}
				for _, m := range metas {
					fmt.Fprintf(g.out, "%s\t%s rows", m.Name, humanize.Comma(int64(m.Rows)))
					if len(m.Indexes) > 0 {
						fmt.Fprintf(g.out, "\tindexes: %s", strings.Join(m.Indexes, ", "))
					}
					fmt.Fprintln(g.out)
				}
				return nil
			}

			schemas, err := db.FetchAllSchemas(ctx)
			if err != nil {
				return err
			}
			for _, s := range schemas {
				fmt.Fprintln(g.out, s.TableName)
			}
			return nil
		})
	}
}

func pristineSchema(ctx context.Context, app *kingpin.Application, g *globals) (*kingpin.CmdClause, KingpinHandler) {
	cmd := app.Command("schema", "Print the schema of a table as JSON.")
	table := cmd.Arg("table", "table name").Required().String()
	return cmd, func(string) int {
		return g.withDB(ctx, func(db storage.Database, _ *config.Config) error {
			s, err := db.FetchSchema(ctx, *table)
			if err != nil {
				return err
			}
			if s == nil {
				return storage.ErrTableNotFound.New(*table)
			}
			b, err := storage.MarshalSchema(s)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err = json.Indent(&buf, b, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')
			_, err = io.Copy(g.out, &buf)
			return err
		})
	}
}

func pristineScan(ctx context.Context, app *kingpin.Application, g *globals) (*kingpin.CmdClause, KingpinHandler) {
	cmd := app.Command("scan", "Print the rows of a table in key order.")
	table := cmd.Arg("table", "table name").Required().String()
	limit := cmd.Flag("limit", "stop after this many rows, 0 for all").Default("0").Uint64()
	return cmd, func(string) int {
		return g.withDB(ctx, func(db storage.Database, _ *config.Config) error {
			iter, err := db.ScanData(ctx, *table)
			if err != nil {
				return err
			}
			defer iter.Close(ctx)

			var n uint64
			for *limit == 0 || n < *limit {
				kr, err := iter.Next(ctx)
				if err == io.EOF {
					break
				} else if err != nil {
					return err
				}
				fmt.Fprintf(g.out, "%s\t%s\n", kr.Key, kr.Row)
				n++
			}
			return nil
		})
	}
}

func pristineVerify(ctx context.Context, app *kingpin.Application, g *globals) (*kingpin.CmdClause, KingpinHandler) {
	cmd := app.Command("verify", "Check the on-disk structures of a pristine database.")
	return cmd, func(string) int {
		var report *pristinestore.VerifyReport
		code := g.withDB(ctx, func(db storage.Database, cfg *config.Config) error {
			ps, ok := db.(*pristinestore.Store)
			if !ok {
				return errors.Errorf("%s is not a pristine database", cfg.URL())
			}
			var err error
			report, err = ps.Verify(ctx)
			return err
		})
		if code != 0 {
			return code
		}

		fmt.Fprintf(g.out, "txn %d: %d tables, %s rows, %s pages\n", report.Txn, report.Tables,
			humanize.Comma(int64(report.Rows)), humanize.Comma(int64(report.Pages)))
		if len(report.Problems) == 0 {
			okColor.Fprintln(g.out, "ok")
			return 0
		}
		for _, p := range report.Problems {
			errColor.Fprintf(g.out, "problem: %s\n", p)
		}
		return 1
	}
}
