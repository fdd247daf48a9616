package catalog

import (
	"fmt"

	"github.com/SPohlabeln/S2-TCVIS/utils"
)

// NewFromConfig assembles the configured backend, optionally behind the
// memcached response cache.
func NewFromConfig(cfg *utils.CatalogConfig, verbose bool) (Backend, error) {
	var backend Backend
	switch cfg.Backend {
	case "stac", "":
		if len(cfg.STACURL) == 0 {
			return nil, fmt.Errorf("catalog backend 'stac' requires stac_url")
		}
		backend = NewSTACBackend(cfg.STACURL, verbose)
	case "postgres":
		if len(cfg.PostgresDSN) == 0 {
			return nil, fmt.Errorf("catalog backend 'postgres' requires postgres_dsn")
		}
		pg, err := NewPostgresBackend(cfg.PostgresDSN, 0)
		if err != nil {
			return nil, err
		}
		backend = pg
	default:
		return nil, fmt.Errorf("unknown catalog backend '%s', expecting 'stac' or 'postgres'", cfg.Backend)
	}

	if len(cfg.MemcacheURI) > 0 {
		backend = NewCachedBackend(backend, cfg.MemcacheURI)
	}

	return backend, nil
}
