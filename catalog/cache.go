package catalog

import (
	"encoding/json"
	"log"

	"github.com/nci/gomemcache/memcache"
	"golang.org/x/net/context"
)

const DefaultCacheExpirySeconds = 6 * 3600

// CachedBackend memoizes search responses in memcached. Catalog records
// for a closed acquisition window rarely change within a run, and a
// multi-year run replays the same queries per stage.
type CachedBackend struct {
	Backend Backend
	mc      *memcache.Client
	Expiry  int32
}

func NewCachedBackend(backend Backend, mcURI string) *CachedBackend {
	// lazy connection; errors returned in .Get
	return &CachedBackend{
		Backend: backend,
		mc:      memcache.New(mcURI),
		Expiry:  DefaultCacheExpirySeconds,
	}
}

func (c *CachedBackend) Search(ctx context.Context, query *Query) ([]*Scene, error) {
	hash := query.Key()

	if cached, err := c.mc.Get(hash); err == nil {
		var scenes []*Scene
		if err := json.Unmarshal(cached.Value, &scenes); err == nil {
			return scenes, nil
		}
		log.Printf("discarding corrupt cache entry %s", hash)
	}

	scenes, err := c.Backend.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(scenes)
	if err == nil {
		// don't care about errors; memcache may not necessarily retain this anyway
		c.mc.Set(&memcache.Item{Key: hash, Value: payload, Expiration: c.Expiry})
	}

	return scenes, nil
}
