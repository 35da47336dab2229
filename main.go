// Copyright 2025 Magnus Pierre
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
	"log"
	"os"

	"github.com/spf13/pflag"

	"cdv/config"
	"cdv/data"
	"cdv/windows"
)

func main() {
	flags := pflag.NewFlagSet("cdv", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "path to the config file")
	query := flags.String("query", "", "SQL to run against the opened files on startup")
	tableName := flags.String("table-name", "", "register the first file under this name")
	flags.Int("row-limit", 0, "cap on rows a query materializes (0 = unlimited)")
	flags.String("theme", "", "color variant: dark or light")
	flags.Usage = func() {
		log.Printf("usage: cdv [flags] [file ...]")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgFile, flags)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	registry, err := data.NewRegistry(context.Background())
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	registry.SetRowLimit(cfg.RowLimit)

	mw := windows.CreateMainWindow(cfg, registry)

	names, errs := mw.SeedSources(flags.Args(), *tableName)
	for _, err := range errs {
		log.Printf("skipping source: %v", err)
	}
	switch {
	case *query != "":
		mw.Dispatch(windows.RunQuery{Query: data.SQLQuery(*query)})
	case len(names) > 0:
		mw.Dispatch(windows.RunQuery{Query: data.TableQuery(names[0])})
	}

	mw.Run()
}
