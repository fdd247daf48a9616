package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/net/context"
)

// PostgresBackend serves searches from a local scene table, for sites
// that mirror the catalog into Postgres instead of hitting the STAC API
// for every run.
type PostgresBackend struct {
	DB       *sqlx.DB
	PoolSize int
}

func NewPostgresBackend(dsn string, poolSize int) (*PostgresBackend, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if poolSize <= 0 {
		poolSize = 8
	}
	db.SetMaxIdleConns(poolSize)
	db.SetMaxOpenConns(poolSize)
	return &PostgresBackend{DB: db, PoolSize: poolSize}, nil
}

type sceneRow struct {
	ID         string    `db:"id"`
	Acquired   time.Time `db:"acquired"`
	GridCode   string    `db:"grid_code"`
	CloudCover float64   `db:"cloud_cover"`
	EPSG       int       `db:"epsg"`
	Geometry   []byte    `db:"geometry"`
	Assets     []byte    `db:"assets"`
}

func (b *PostgresBackend) Search(ctx context.Context, query *Query) ([]*Scene, error) {
	// nullif() coerces Go's zero values for unset parameters into
	// proper null arguments so the predicates collapse to true.
	const stmt = `select id, acquired, grid_code, cloud_cover, epsg, geometry, assets
		from scenes
		where collection = $1
		and acquired between $2 and $3
		and (nullif($4, '') is null or grid_code = $4)
		and (nullif($5, 0) is null or cloud_cover <= $5)
		order by acquired`

	var rows []sceneRow
	err := b.DB.SelectContext(ctx, &rows, stmt,
		query.Collection,
		query.StartTime.UTC(),
		query.EndTime.UTC(),
		query.GridCode,
		query.MaxCloudCover,
	)
	if err != nil {
		return nil, fmt.Errorf("scene table query failed: %v", err)
	}

	scenes := make([]*Scene, 0, len(rows))
	for _, row := range rows {
		scene := &Scene{
			ID:         row.ID,
			Acquired:   row.Acquired.UTC(),
			GridCode:   row.GridCode,
			CloudCover: row.CloudCover,
			EPSG:       row.EPSG,
			Assets:     make(map[string]string),
		}

		scene.Geometry = json.RawMessage(row.Geometry)
		if _, err = scene.DecodeFootprint(); err != nil {
			return nil, err
		}

		if len(row.Assets) > 0 {
			err = json.Unmarshal(row.Assets, &scene.Assets)
			if err != nil {
				return nil, fmt.Errorf("scene %s: invalid assets document: %v", row.ID, err)
			}
		}

		scenes = append(scenes, scene)
	}

	return scenes, nil
}

func (b *PostgresBackend) Close() error {
	return b.DB.Close()
}
