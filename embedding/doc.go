// Package embedding turns documents into vectors through a cache.
//
// A Generator looks every document up in a storage.EmbeddingCache and only
// sends the misses to the ai.Embedder. Misses are grouped into batches and
// run on an ants worker pool. Each embed call gets its own timeout and is
// retried with exponential backoff. When a batched call fails, the documents
// in it are retried one by one, so a single bad document is reported on its
// own instead of failing its batch.
//
// Fresh vectors are written to the cache as soon as they arrive. A run that
// is cancelled or partly fails therefore keeps its progress, and the next
// run only embeds what is still missing.
//
// Basic usage:
//
//	gen, err := embedding.NewGenerator(cache, embedder,
//	    embedding.WithPoolSize(4),
//	    embedding.WithProgress(os.Stderr),
//	)
//	if err != nil {
//	    return err
//	}
//	defer gen.Release()
//
//	report, err := gen.Generate(ctx, docs, false)
package embedding
