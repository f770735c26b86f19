package uploader

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"csvcatalog/internal/common/models"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csvcatalog_record_cache_hits_total",
		Help: "Record lookups served from the in-memory cache",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csvcatalog_record_cache_misses_total",
		Help: "Record lookups that went to the catalog database",
	})
)

// CachedRepository keeps recently read records in an LRU with a TTL. Records
// never change after insert, so entries are only ever added.
type CachedRepository struct {
	Repository
	cache *expirable.LRU[string, *models.FileRecord]
}

func NewCachedRepository(repo Repository, maxSize int, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		Repository: repo,
		cache:      expirable.NewLRU[string, *models.FileRecord](maxSize, nil, ttl),
	}
}

func (c *CachedRepository) Insert(ctx context.Context, rec *models.FileRecord) error {
	if err := c.Repository.Insert(ctx, rec); err != nil {
		return err
	}
	c.cache.Add(rec.ID, cloneRecord(rec))
	return nil
}

func (c *CachedRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	if rec, ok := c.cache.Get(id); ok {
		cacheHitsTotal.Inc()
		return cloneRecord(rec), nil
	}
	cacheMissesTotal.Inc()

	rec, err := c.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, cloneRecord(rec))
	return rec, nil
}

// Len is the number of cached records
func (c *CachedRepository) Len() int {
	return c.cache.Len()
}

func cloneRecord(rec *models.FileRecord) *models.FileRecord {
	cp := *rec
	cp.Headers = append([]string{}, rec.Headers...)
	return &cp
}
