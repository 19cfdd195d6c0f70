// Copyright 2025 Poiesic Systems
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
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/docseek/config"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/metrics"
	"github.com/urfave/cli/v2"
)

// runtime is the state shared by every command once setup has run.
type runtime struct {
	cfg       *config.Config
	collector *metrics.Collector
	out       io.Writer
	errOut    io.Writer
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the caller is at fault and 1 otherwise.
func exitCode(err error) int {
	if core.IsClientFault(err) {
		return 2
	}
	return 1
}

func docsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "docs",
		Aliases: []string{"d"},
		Usage:   "Directory of .txt documents (default from config)",
	}
}

func newApp() *cli.App {
	r := &runtime{}
	return &cli.App{
		Name:  "docseek",
		Usage: "Semantic search over a directory of text documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default " + config.DefaultPath + " if present)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this file on exit",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Embedding provider (openai, mock)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Embedding cache backend (badger, sqlite)",
			},
			&cli.StringFlag{
				Name:  "cache-path",
				Usage: "Embedding cache location",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Vector index strategy (flat, bruteforce)",
			},
		},
		Before: r.setup,
		After:  r.writeMetrics,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Load documents, generate embeddings and build the index",
				Action: r.index,
				Flags: []cli.Flag{
					docsFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Regenerate every embedding, ignoring the cache",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Rank documents against a query",
				ArgsUsage: "QUERY...",
				Action:    r.search,
				Flags: []cli.Flag{
					docsFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results (default from config)",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print timings for each search stage",
					},
				},
			},
			{
				Name:      "documents",
				Usage:     "List loaded documents, or show one by ID",
				ArgsUsage: "[DOC_ID]",
				Action:    r.documents,
				Flags:     []cli.Flag{docsFlag()},
			},
			{
				Name:   "stats",
				Usage:  "Show engine and cache statistics",
				Action: r.stats,
				Flags:  []cli.Flag{docsFlag()},
			},
			{
				Name:  "cache",
				Usage: "Inspect and manage the embedding cache",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List cached embeddings",
						Action: r.cacheList,
					},
					{
						Name:      "delete",
						Usage:     "Delete the cached embedding for a document",
						ArgsUsage: "DOC_ID",
						Action:    r.cacheDelete,
					},
					{
						Name:   "clear",
						Usage:  "Delete every cached embedding",
						Action: r.cacheClear,
					},
					{
						Name:   "stats",
						Usage:  "Show cache size",
						Action: r.cacheStats,
					},
				},
			},
			{
				Name:   "samples",
				Usage:  "Write sample machine learning documents",
				Action: r.samples,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Directory to write documents into",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of documents to write",
						Value:   20,
					},
				},
			},
		},
	}
}

func (r *runtime) setup(c *cli.Context) error {
	r.out, r.errOut = c.App.Writer, c.App.ErrWriter
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.errOut == nil {
		r.errOut = os.Stderr
	}

	if err := setupLogger(c, r.errOut); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return core.Validation("load config", err)
	}
	overrides := map[string]*string{
		"provider":   &cfg.Embedder.Provider,
		"backend":    &cfg.Storage.Backend,
		"cache-path": &cfg.Storage.Path,
		"strategy":   &cfg.Index.Strategy,
	}
	for flag, dst := range overrides {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return core.Validation("load config", err)
	}

	r.cfg = cfg
	r.collector = metrics.NewCollector()
	return nil
}

func (r *runtime) writeMetrics(c *cli.Context) error {
	path := c.String("metrics-file")
	if path == "" || r.collector == nil {
		return nil
	}
	if err := r.collector.WriteToTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	slog.Debug("metrics written", "path", path)
	return nil
}

func setupLogger(c *cli.Context, w io.Writer) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return core.Validation("setup", fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr))
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
