package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	geo "github.com/nci/geometry"
	"golang.org/x/net/context"
)

// Scene is one catalog record: everything the pipeline needs to decide
// whether a scene is worth fetching, without touching any pixels.
type Scene struct {
	ID         string            `json:"id"`
	Acquired   time.Time         `json:"acquired"`
	GridCode   string            `json:"grid_code"`
	CloudCover float64           `json:"cloud_cover"`
	EPSG       int               `json:"epsg"`
	Geometry   json.RawMessage   `json:"geometry,omitempty"`
	Footprint  geo.Geometry      `json:"-"`
	BBox       []float64         `json:"bbox"`
	Assets     map[string]string `json:"assets"`
}

// DecodeFootprint parses the raw GeoJSON geometry carried on the record.
// Cached records come back with Footprint unset; callers go through here
// instead of touching Footprint directly.
func (s *Scene) DecodeFootprint() (geo.Geometry, error) {
	if s.Footprint != nil {
		return s.Footprint, nil
	}
	if len(s.Geometry) == 0 {
		return nil, nil
	}
	var gf geo.Feature
	featDoc := append([]byte(`{"type":"Feature","geometry":`), s.Geometry...)
	featDoc = append(featDoc, '}')
	err := json.Unmarshal(featDoc, &gf)
	if err != nil {
		return nil, fmt.Errorf("scene %s: problem unmarshalling GeoJSON object: %v", s.ID, err)
	}
	s.Footprint = gf.Geometry
	return s.Footprint, nil
}

// FootprintWKT renders the geographic footprint for OGR consumption.
func (s *Scene) FootprintWKT() string {
	geom, err := s.DecodeFootprint()
	if err != nil || geom == nil {
		return ""
	}
	return geom.MarshalWKT()
}

// Query restricts a catalog search to one acquisition window.
type Query struct {
	Collection    string
	StartTime     time.Time
	EndTime       time.Time
	GridCode      string
	MaxCloudCover int
	Limit         int
}

// Key is the cache key of a query. Two queries with the same key return
// the same scene set within the cache TTL.
func (q *Query) Key() string {
	sig := fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		q.Collection,
		q.StartTime.UTC().Format(time.RFC3339),
		q.EndTime.UTC().Format(time.RFC3339),
		q.GridCode,
		q.MaxCloudCover,
		q.Limit,
	)
	buff := md5.Sum([]byte(sig))
	return hex.EncodeToString(buff[:])
}

// Backend is a scene catalog. Search returns metadata only; asset hrefs
// are opened lazily by the harmonizer.
type Backend interface {
	Search(ctx context.Context, query *Query) ([]*Scene, error)
}
