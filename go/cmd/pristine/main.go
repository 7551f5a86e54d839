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
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/pristinedb/pristine/go/libraries/storage"
	"github.com/pristinedb/pristine/go/libraries/storage/dbfactory"
	"github.com/pristinedb/pristine/go/libraries/utils/config"
)

type KingpinHandler func(input string) (exitCode int)
type KingpinCommand func(context.Context, *kingpin.Application, *globals) (*kingpin.CmdClause, KingpinHandler)

var kingpinCommands = []KingpinCommand{
	pristineInit,
	pristineInfo,
	pristineTables,
	pristineSchema,
	pristineScan,
	pristineVerify,
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := kingpin.New("pristine", "Inspect and maintain pristine databases.")
	app.HelpFlag.Short('h')
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	g := &globals{out: stdout, errOut: stderr}
	g.configPath = app.Flag("config", "config file (.yaml, .yml or .toml)").Short('c').String()
	g.overrides = app.Flag("set", "override a config value as key=value").Strings()
	g.url = app.Flag("url", "database url, overriding the config").Short('u').String()
	g.verbose = app.Flag("verbose", "log at debug level").Short('v').Bool()

	handlers := map[string]KingpinHandler{}
	for _, cmdFunction := range kingpinCommands {
		command, handler := cmdFunction(ctx, app, g)
		handlers[command.FullCommand()] = handler
	}

	input, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "pristine: %s\n", err)
		return 2
	}
	if handler := handlers[strings.Split(input, " ")[0]]; handler != nil {
		return handler(input)
	}
	return 0
}

// globals are the flags shared by every command.
type globals struct {
	out    io.Writer
	errOut io.Writer

	configPath *string
	overrides  *[]string
	url        *string
	verbose    *bool
}

func (g *globals) config() (*config.Config, error) {
	cfg := &config.Config{}
	if *g.configPath != "" {
		var err error
		if cfg, err = config.FromFile(*g.configPath); err != nil {
			return nil, err
		}
	}

	mc, err := config.ParseOverrides(*g.overrides)
	if err != nil {
		return nil, err
	}
	if *g.url != "" {
		_ = mc.SetStrings(map[string]string{config.StorageURLKey: *g.url})
	}
	if *g.verbose {
		_ = mc.SetStrings(map[string]string{config.LogLevelKey: "debug"})
	}
	if err = cfg.Apply(mc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open opens the configured database.
func (g *globals) open(ctx context.Context) (storage.Database, *config.Config, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	log.Logger.SetOutput(g.errOut)
	size, err := cfg.InitialSize()
	if err != nil {
		return nil, nil, err
	}

	db, err := dbfactory.CreateDB(ctx, cfg.URL(), map[string]interface{}{
		dbfactory.NoSyncParam:        cfg.NoSync(),
		dbfactory.InitialSizeParam:   size,
		dbfactory.NodeCacheSizeParam: cfg.NodeCacheSize(),
		dbfactory.LoggerParam:        log,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

// withDB opens the database, runs |fn| and closes it, reporting any error.
func (g *globals) withDB(ctx context.Context, fn func(db storage.Database, cfg *config.Config) error) int {
	db, cfg, err := g.open(ctx)
	if err != nil {
		g.fail(err)
		return 1
	}
	err = fn(db, cfg)
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		g.fail(err)
		return 1
	}
	return 0
}

func (g *globals) fail(err error) {
	errColor.Fprintf(g.errOut, "error: %s\n", storage.Cause(err))
}
