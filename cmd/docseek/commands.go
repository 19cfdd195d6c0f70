package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/poiesic/docseek"
	"github.com/poiesic/docseek/core"
	"github.com/poiesic/docseek/embedding"
	"github.com/poiesic/docseek/search"
	"github.com/poiesic/docseek/source"
	"github.com/poiesic/docseek/storage"
	"github.com/urfave/cli/v2"
)

// openLibrary opens the configured cache and provider.
func (r *runtime) openLibrary(ctx context.Context) (*docseek.Library, error) {
	lib, err := docseek.OpenConfig(ctx, r.cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	return lib, nil
}

// loadDocuments reads the --docs directory, or the configured one.
func (r *runtime) loadDocuments(c *cli.Context) ([]core.Document, error) {
	dir := c.String("docs")
	if dir == "" {
		dir = r.cfg.Search.DocumentsDir
	}
	docs, err := source.LoadDirectory(c.Context, dir)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, core.Validation("load documents", err)
	}
	return docs, nil
}

// openEngine opens the library and builds a ready engine over the documents
// in the --docs directory. Callers close both, engine first.
func (r *runtime) openEngine(c *cli.Context, force bool) (*docseek.Library, *search.Engine, *embedding.Report, error) {
	ctx := c.Context

	docs, err := r.loadDocuments(c)
	if err != nil {
		return nil, nil, nil, err
	}

	lib, err := r.openLibrary(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := docseek.EngineOptions(r.cfg)
	opts = append(opts,
		search.WithMonitor(r.collector),
		search.WithGeneratorOptions(embedding.WithProgress(r.errOut)),
	)
	engine, err := lib.NewEngine(opts...)
	if err != nil {
		lib.Close()
		return nil, nil, nil, err
	}

	report, err := engine.Initialize(ctx, docs, force)
	if err != nil {
		engine.Close()
		lib.Close()
		return nil, nil, report, err
	}
	return lib, engine, report, nil
}

func (r *runtime) index(c *cli.Context) error {
	lib, engine, report, err := r.openEngine(c, c.Bool("force"))
	if err != nil {
		if report != nil {
			printFailures(r, report)
		}
		return err
	}
	defer lib.Close()
	defer engine.Close()

	sel := engine.Selection()
	fmt.Fprintf(r.out, "Indexed %d documents (%d cached, %d embedded) in %s\n",
		len(report.Vectors), report.Hits, report.Misses, report.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(r.out, "Index strategy: %s\n", sel.Active)
	if sel.Fallback {
		fmt.Fprintf(r.out, "Warning: requested strategy %q unavailable, fell back to %s: %v\n",
			sel.Requested, sel.Active, sel.Reason)
	}
	return nil
}

func printFailures(r *runtime, report *embedding.Report) {
	for _, f := range report.Failures {
		fmt.Fprintf(r.errOut, "failed to embed %s: %v\n", f.DocID, f.Err)
	}
}

func (r *runtime) search(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if err := core.ValidateQuery(query); err != nil {
		return core.Validation("search", err)
	}
	topK := r.cfg.Search.TopK
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}
	if err := core.ValidateTopK(topK, r.cfg.Search.MaxTopK); err != nil {
		return core.Validation("search", err)
	}

	lib, engine, _, err := r.openEngine(c, false)
	if err != nil {
		return err
	}
	defer lib.Close()
	defer engine.Close()

	var monitor search.Monitor
	if c.Bool("verbose") {
		monitor = &printingMonitor{w: r.errOut}
	}
	results, err := engine.SearchWithMonitor(c.Context, query, topK, monitor)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Query: %q (%d results)\n\n", query, len(results))
	for _, res := range results {
		fmt.Fprintf(r.out, "%d. %s (%s)  score=%.4f\n", res.Rank, res.DocID, res.Filename, res.Score)
		fmt.Fprintf(r.out, "   %s\n", res.Explanation)
		fmt.Fprintf(r.out, "   %s\n\n", res.Preview)
	}
	return nil
}

// documents loads the --docs directory without embedding it.
func (r *runtime) documents(c *cli.Context) error {
	docs, err := r.loadDocuments(c)
	if err != nil {
		return err
	}
	lib, err := r.openLibrary(c.Context)
	if err != nil {
		return err
	}
	defer lib.Close()
	engine, err := lib.NewEngine(docseek.EngineOptions(r.cfg)...)
	if err != nil {
		return err
	}
	defer engine.Close()
	if err := engine.LoadDocuments(docs); err != nil {
		return err
	}

	if id := c.Args().First(); id != "" {
		doc, ok := engine.Document(id)
		if !ok {
			return core.Validation("documents", fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id))
		}
		fmt.Fprintf(r.out, "ID:       %s\n", doc.ID)
		fmt.Fprintf(r.out, "File:     %s\n", doc.Filename)
		fmt.Fprintf(r.out, "Path:     %s\n", doc.Path)
		fmt.Fprintf(r.out, "Length:   %d (raw %d)\n\n", doc.Length, doc.RawLength)
		fmt.Fprintln(r.out, doc.RawContent)
		return nil
	}

	list := engine.Documents()
	fmt.Fprintf(r.out, "%d documents\n", len(list))
	for _, doc := range list {
		fmt.Fprintf(r.out, "%-32s %-32s %s chars\n", doc.ID, doc.Filename, humanize.Comma(int64(doc.Length)))
	}
	return nil
}

func (r *runtime) stats(c *cli.Context) error {
	lib, engine, _, err := r.openEngine(c, false)
	if err != nil {
		return err
	}
	defer lib.Close()
	defer engine.Close()

	stats, err := engine.Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "State:            %s\n", stats.State)
	fmt.Fprintf(r.out, "Documents:        %d\n", stats.DocumentCount)
	fmt.Fprintf(r.out, "Embeddings ready: %t\n", stats.EmbeddingsReady)
	fmt.Fprintf(r.out, "Dimension:        %d\n", stats.Dimension)
	fmt.Fprintf(r.out, "Index strategy:   %s (fallback: %t)\n", stats.IndexStrategy, stats.IndexFallback)
	fmt.Fprintf(r.out, "Indexed vectors:  %d\n", stats.IndexedCount)
	printCacheStats(r, stats.Cache)
	return nil
}

func printCacheStats(r *runtime, stats core.CacheStats) {
	fmt.Fprintf(r.out, "Cache backend:    %s (%s)\n", r.cfg.Storage.Backend, r.cfg.Storage.ResolvedPath())
	fmt.Fprintf(r.out, "Cache entries:    %d\n", stats.EntryCount)
	fmt.Fprintf(r.out, "Cache size:       %s\n", humanize.Bytes(uint64(max(stats.StorageBytes, 0))))
}

func (r *runtime) withCache(c *cli.Context, fn func(storage.EmbeddingCache) error) error {
	lib, err := r.openLibrary(c.Context)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(lib.Cache())
}

func (r *runtime) cacheList(c *cli.Context) error {
	return r.withCache(c, func(cache storage.EmbeddingCache) error {
		entries, err := cache.Entries(c.Context)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(r.out, "Cache is empty")
			return nil
		}
		for _, e := range entries {
			hash := e.ContentHash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			fmt.Fprintf(r.out, "%-32s dim=%-5d hash=%s updated %s\n",
				e.DocID, e.Dimension, hash, humanize.Time(e.UpdatedAt))
		}
		return nil
	})
}

func (r *runtime) cacheDelete(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return core.Validation("cache delete", core.ErrEmptyDocumentID)
	}
	return r.withCache(c, func(cache storage.EmbeddingCache) error {
		if err := cache.Delete(c.Context, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return core.Validation("cache delete", err)
			}
			return err
		}
		fmt.Fprintf(r.out, "Deleted %s\n", id)
		return nil
	})
}

func (r *runtime) cacheClear(c *cli.Context) error {
	return r.withCache(c, func(cache storage.EmbeddingCache) error {
		if err := cache.Clear(c.Context); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Cache cleared")
		return nil
	})
}

func (r *runtime) cacheStats(c *cli.Context) error {
	return r.withCache(c, func(cache storage.EmbeddingCache) error {
		stats, err := cache.Stats(c.Context)
		if err != nil {
			return err
		}
		printCacheStats(r, stats)
		return nil
	})
}

func (r *runtime) samples(c *cli.Context) error {
	dir := c.String("out")
	paths, err := source.WriteSamples(dir, c.Int("count"))
	if err != nil {
		return core.Validation("write samples", err)
	}
	fmt.Fprintf(r.out, "Wrote %d sample documents to %s\n", len(paths), dir)
	return nil
}
