// Package document fetches class-notes documents from the backend, batching
// concurrent per-id lookups into bulk calls and caching results in Redis.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"notesync/internal/batch"
	"notesync/internal/coalesce"
	"notesync/internal/config"
	"notesync/internal/metrics"
	"notesync/internal/rpc"
	"notesync/pkg/model"
)

// Store is implemented by whatever persistence layer consumes fetched
// documents. The fetcher only writes through it; it never reads back.
type Store interface {
	SaveDocument(ctx context.Context, doc *model.Document) error
}

type Fetcher struct {
	client   rpc.DocumentServiceClient
	cache    *redis.Client
	store    Store
	cacheTTL time.Duration

	agg     *batch.Aggregator[string, model.Document]
	flights *coalesce.Coalescer[string, model.Document]
}

func NewFetcher(client rpc.DocumentServiceClient, cache *redis.Client, store Store, cfg config.CoordinatorConfig) *Fetcher {
	f := &Fetcher{
		client:   client,
		cache:    cache,
		store:    store,
		cacheTTL: cfg.CacheTTL,
	}
	f.agg = batch.New(f.bulkGet, batch.Options{
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay,
		OnFlush:    metrics.ObserveBatch,
	})
	f.flights = coalesce.New(f.load)
	return f
}

// Get returns the document with the given id, from cache when possible.
// Concurrent calls for the same id share one lookup.
func (f *Fetcher) Get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := f.flights.Do(ctx, id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetMany fetches a set of ids concurrently; ids the backend does not know
// are skipped. The aggregator folds the lookups into bulk calls.
func (f *Fetcher) GetMany(ctx context.Context, ids []string) ([]model.Document, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		docs     []model.Document
		fetchErr error
	)

	wg.Add(len(ids))
	for _, id := range ids {
		go func(id string) {
			defer wg.Done()

			doc, err := f.Get(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				docs = append(docs, *doc)
			case errors.Is(err, batch.ErrNotFound):
				// Missing ids are not an error for a bulk read.
			case fetchErr == nil:
				fetchErr = err
			}
		}(id)
	}
	wg.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	return docs, nil
}

// Cancel withdraws a pending fetch for id, if one is queued and not yet
// flushed.
func (f *Fetcher) Cancel(id string) {
	f.agg.Cancel(id)
}

// load is the coalesced miss path: cache check, then batched backend fetch,
// then cache and store write-back.
func (f *Fetcher) load(ctx context.Context, id string) (model.Document, error) {
	if doc, ok := f.getCached(ctx, id); ok {
		metrics.CacheHits.Inc()
		return *doc, nil
	}
	metrics.CacheMisses.Inc()

	doc, err := f.agg.Fetch(ctx, id)
	if err != nil {
		return model.Document{}, err
	}

	f.setCached(ctx, &doc)
	if f.store != nil {
		if err := f.store.SaveDocument(ctx, &doc); err != nil {
			log.Printf("Error saving document %s: %v", doc.Id, err)
		}
	}
	return doc, nil
}

func (f *Fetcher) bulkGet(ctx context.Context, ids []string) (map[string]model.Document, error) {
	resp, err := f.client.BatchGetDocuments(ctx, &rpc.BatchGetRequest{Ids: ids})
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.Document, len(resp.Documents))
	for _, doc := range resp.Documents {
		if doc == nil {
			continue
		}
		out[doc.Id] = *doc
	}
	return out, nil
}

func cacheKey(id string) string {
	return "document:" + id
}

func (f *Fetcher) getCached(ctx context.Context, id string) (*model.Document, bool) {
	data, err := f.cache.Get(ctx, cacheKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Error getting cache: %v", err)
		}
		return nil, false
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		log.Printf("Error unpacking cache data: %v", err)
		return nil, false
	}
	return &doc, true
}

func (f *Fetcher) setCached(ctx context.Context, doc *model.Document) {
	data, err := json.Marshal(doc)
	if err != nil {
		log.Printf("Error packing cache data: %v", err)
		return
	}
	if err := f.cache.Set(ctx, cacheKey(doc.Id), data, f.cacheTTL).Err(); err != nil {
		log.Printf("Error setting cache: %v", err)
	}
}
