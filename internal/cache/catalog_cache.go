// Package cache provides the memoising identifier-resolution cache consulted
// when catalog records are turned into chunks.
package cache

import (
	"context"
	"fmt"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/internal/observability"
	"github.com/Karekin/influxdb/pkg/types"
)

// CatalogReader is the subset of the catalog the cache resolves against.
type CatalogReader interface {
	GetNamespace(ctx context.Context, id types.NamespaceID) (*types.Namespace, error)
	GetTable(ctx context.Context, id types.TableID) (*types.Table, error)
	GetPartition(ctx context.Context, id types.PartitionID) (*types.Partition, error)
}

// Config bounds the number of memoised entries per identifier kind.
type Config struct {
	TableCapacity     int
	NamespaceCapacity int
	PartitionCapacity int
}

// DefaultConfig returns the default capacities.
func DefaultConfig() Config {
	return Config{
		TableCapacity:     10000,
		NamespaceCapacity: 1000,
		PartitionCapacity: 100000,
	}
}

const (
	kindTable     = "table"
	kindNamespace = "namespace"
	kindPartition = "partition"
)

type tableInfo struct {
	name        string
	namespaceID types.NamespaceID
}

// CatalogCache resolves catalog ids to names. Successful lookups are
// memoised; concurrent misses for the same id share one catalog call. Ids
// the catalog does not know fail with CATALOG:UNRESOLVED_IDENTIFIER and are
// never cached.
type CatalogCache struct {
	catalog CatalogReader

	tables     *ttlcache.Cache[types.TableID, tableInfo]
	namespaces *ttlcache.Cache[types.NamespaceID, string]
	partitions *ttlcache.Cache[types.PartitionID, string]

	group singleflight.Group

	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
	lookups   *prometheus.CounterVec

	logger zerolog.Logger
}

// NewCatalogCache creates a cache over catalog.
func NewCatalogCache(catalog CatalogReader, cfg Config, reg *observability.Registry, logger zerolog.Logger) *CatalogCache {
	c := &CatalogCache{
		catalog:   catalog,
		hits:      reg.CounterVec("catalog_cache", "hits_total", "Identifier lookups served from the cache.", "kind"),
		misses:    reg.CounterVec("catalog_cache", "misses_total", "Identifier lookups not found in the cache.", "kind"),
		evictions: reg.CounterVec("catalog_cache", "evictions_total", "Entries evicted from the cache.", "kind"),
		lookups:   reg.CounterVec("catalog_cache", "catalog_lookups_total", "Catalog calls made on cache misses.", "kind", "result"),
		logger:    logger.With().Str("component", "catalog_cache").Logger(),
	}
	c.tables = newStore[types.TableID, tableInfo](cfg.TableCapacity, c.evictions.WithLabelValues(kindTable))
	c.namespaces = newStore[types.NamespaceID, string](cfg.NamespaceCapacity, c.evictions.WithLabelValues(kindNamespace))
	c.partitions = newStore[types.PartitionID, string](cfg.PartitionCapacity, c.evictions.WithLabelValues(kindPartition))
	return c
}

// newStore returns a capacity-bounded cache evicting the least recently used
// entry. Entries never expire; catalog ids are immutable.
func newStore[K comparable, V any](capacity int, evictions prometheus.Counter) *ttlcache.Cache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	store := ttlcache.New[K, V](
		ttlcache.WithCapacity[K, V](uint64(capacity)),
	)
	store.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[K, V]) {
		if reason == ttlcache.EvictionReasonCapacityReached {
			evictions.Inc()
		}
	})
	return store
}

// TableName returns the name of a table.
func (c *CatalogCache) TableName(ctx context.Context, id types.TableID) (string, error) {
	info, err := c.table(ctx, id)
	if err != nil {
		return "", err
	}
	return info.name, nil
}

// TableNamespaceID returns the namespace a table belongs to.
func (c *CatalogCache) TableNamespaceID(ctx context.Context, id types.TableID) (types.NamespaceID, error) {
	info, err := c.table(ctx, id)
	if err != nil {
		return 0, err
	}
	return info.namespaceID, nil
}

func (c *CatalogCache) table(ctx context.Context, id types.TableID) (tableInfo, error) {
	return load(ctx, c, kindTable, id, c.tables, func(ctx context.Context) (tableInfo, error) {
		t, err := c.catalog.GetTable(ctx, id)
		if err != nil {
			return tableInfo{}, err
		}
		return tableInfo{name: t.Name, namespaceID: t.NamespaceID}, nil
	})
}

// NamespaceName returns the name of a namespace.
func (c *CatalogCache) NamespaceName(ctx context.Context, id types.NamespaceID) (string, error) {
	return load(ctx, c, kindNamespace, id, c.namespaces, func(ctx context.Context) (string, error) {
		ns, err := c.catalog.GetNamespace(ctx, id)
		if err != nil {
			return "", err
		}
		return ns.Name, nil
	})
}

// OldGenPartitionKey returns "<sequencer id>-<partition key>" for a
// partition.
func (c *CatalogCache) OldGenPartitionKey(ctx context.Context, id types.PartitionID) (string, error) {
	return load(ctx, c, kindPartition, id, c.partitions, func(ctx context.Context) (string, error) {
		p, err := c.catalog.GetPartition(ctx, id)
		if err != nil {
			return "", err
		}
		return types.OldGenPartitionKey(p.SequencerID, p.PartitionKey), nil
	})
}

// load serves key from cache or fetches it once for all concurrent callers.
// The shared fetch runs detached from any single caller's cancellation; a
// cancelled caller stops waiting without affecting the others.
func load[K comparable, V any](
	ctx context.Context,
	c *CatalogCache,
	kind string,
	key K,
	cache *ttlcache.Cache[K, V],
	fetch func(ctx context.Context) (V, error),
) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if item := cache.Get(key); item != nil {
		c.hits.WithLabelValues(kind).Inc()
		return item.Value(), nil
	}
	c.misses.WithLabelValues(kind).Inc()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%s/%v", kind, key), func() (any, error) {
		v, err := fetch(detached)
		if err != nil {
			if apperrors.IsNotFound(err) {
				c.lookups.WithLabelValues(kind, "unknown").Inc()
				return nil, apperrors.NewUnresolvedIdentifierError(fmt.Sprintf("%s %v", kind, key), err)
			}
			c.lookups.WithLabelValues(kind, "error").Inc()
			return nil, err
		}
		c.lookups.WithLabelValues(kind, "ok").Inc()
		cache.Set(key, v, ttlcache.NoTTL)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Debug().Err(res.Err).Str("kind", kind).Interface("id", key).Msg("identifier lookup failed")
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Len returns the number of memoised entries across all kinds.
func (c *CatalogCache) Len() int {
	return c.tables.Len() + c.namespaces.Len() + c.partitions.Len()
}
