package catalog

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/net/context"
)

const stacPage1 = `{
  "type": "FeatureCollection",
  "features": [
    {
      "id": "S2A_32UNE_20210712",
      "bbox": [10.3, 53.2, 11.5, 54.2],
      "geometry": {"type": "Polygon", "coordinates": [[[10.3,53.2],[11.5,53.2],[11.5,54.2],[10.3,54.2],[10.3,53.2]]]},
      "properties": {
        "datetime": "2021-07-12T10:26:31Z",
        "eo:cloud_cover": 12.5,
        "grid:code": "MGRS-32UNE",
        "proj:epsg": 32632
      },
      "assets": {
        "B02_10m": {
          "href": "https://example.com/B02.tif",
          "alternate": {"s3": {"href": "s3://bucket/B02.tif"}}
        },
        "B03_10m": {"href": "https://example.com/B03.tif"}
      }
    },
    {
      "id": "S2B_32UNE_20210714",
      "bbox": [10.3, 53.2, 11.5, 54.2],
      "geometry": {"type": "Polygon", "coordinates": [[[10.3,53.2],[11.5,53.2],[11.5,54.2],[10.3,54.2],[10.3,53.2]]]},
      "properties": {
        "datetime": "2021-07-14T10:26:31Z",
        "proj:code": "EPSG:32632"
      },
      "assets": {}
    },
    {
      "id": "BROKEN_NO_DATETIME",
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]},
      "properties": {},
      "assets": {}
    }
  ],
  "links": [
    {"rel": "next", "href": "%s/search", "method": "POST", "merge": true, "body": {"page": 2}}
  ]
}`

const stacPage2 = `{
  "type": "FeatureCollection",
  "features": [
    {
      "id": "S2A_32UNE_20210722",
      "bbox": [10.3, 53.2, 11.5, 54.2],
      "geometry": {"type": "Polygon", "coordinates": [[[10.3,53.2],[11.5,53.2],[11.5,54.2],[10.3,54.2],[10.3,53.2]]]},
      "properties": {"datetime": "2021-07-22T10:26:31Z"},
      "assets": {}
    }
  ],
  "links": []
}`

func TestSTACSearch(t *testing.T) {
	var requests []map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		var req map[string]interface{}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("malformed search request: %v", err)
		}
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		if _, paged := req["page"]; paged {
			fmt.Fprint(w, stacPage2)
			return
		}
		fmt.Fprintf(w, stacPage1, serverURL(r))
	}))
	defer ts.Close()

	backend := NewSTACBackend(ts.URL+"/", false)
	start, _ := time.Parse(time.RFC3339, "2021-07-01T00:00:00Z")
	end, _ := time.Parse(time.RFC3339, "2021-07-31T23:59:59Z")
	scenes, err := backend.Search(context.Background(), &Query{
		Collection:    "sentinel-2-l2a",
		StartTime:     start,
		EndTime:       end,
		GridCode:      "MGRS-32UNE",
		MaxCloudCover: 60,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	// the malformed record is skipped, both pages contribute
	if len(scenes) != 3 {
		t.Fatalf("expecting 3 scenes, actual %d", len(scenes))
	}
	if len(requests) != 2 {
		t.Fatalf("expecting 2 search requests, actual %d", len(requests))
	}

	first := scenes[0]
	if first.ID != "S2A_32UNE_20210712" {
		t.Errorf("unexpected first scene %s", first.ID)
	}
	if first.CloudCover != 12.5 || first.GridCode != "MGRS-32UNE" || first.EPSG != 32632 {
		t.Errorf("properties lost in parsing: %+v", first)
	}
	if first.Acquired.Format(time.RFC3339) != "2021-07-12T10:26:31Z" {
		t.Errorf("unexpected acquisition time %v", first.Acquired)
	}
	if len(first.FootprintWKT()) == 0 {
		t.Errorf("footprint did not decode")
	}

	// the object-store location wins over the canonical href
	if first.Assets["B02_10m"] != "s3://bucket/B02.tif" {
		t.Errorf("expecting the s3 alternate href, actual %s", first.Assets["B02_10m"])
	}
	if first.Assets["B03_10m"] != "https://example.com/B03.tif" {
		t.Errorf("expecting the canonical href, actual %s", first.Assets["B03_10m"])
	}

	// proj:code form resolves too
	if scenes[1].EPSG != 32632 {
		t.Errorf("proj:code EPSG not extracted: %d", scenes[1].EPSG)
	}
	if scenes[2].EPSG != 0 {
		t.Errorf("EPSG invented for a record carrying none: %d", scenes[2].EPSG)
	}

	req := requests[0]
	if req["datetime"] != "2021-07-01T00:00:00Z/2021-07-31T23:59:59Z" {
		t.Errorf("unexpected datetime window %v", req["datetime"])
	}
	filters, _ := req["query"].(map[string]interface{})
	if filters == nil {
		t.Fatalf("search request carries no query filters")
	}
	if _, ok := filters["eo:cloud_cover"]; !ok {
		t.Errorf("cloud cover filter missing from the search request")
	}
	if _, ok := filters["grid:code"]; !ok {
		t.Errorf("grid code filter missing from the search request")
	}
}

func serverURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestSTACSearchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", 502)
	}))
	defer ts.Close()

	backend := NewSTACBackend(ts.URL, false)
	if _, err := backend.Search(context.Background(), &Query{Collection: "sentinel-2-l2a"}); err == nil {
		t.Errorf("expecting error for a non-200 response")
	}
}

func TestGDALPath(t *testing.T) {
	cases := []struct {
		href string
		path string
	}{
		{"s3://bucket/key/B02.tif", "/vsis3/bucket/key/B02.tif"},
		{"https://example.com/B02.tif", "/vsicurl/https://example.com/B02.tif"},
		{"http://example.com/B02.tif", "/vsicurl/http://example.com/B02.tif"},
		{"/local/path/B02.tif", "/local/path/B02.tif"},
	}
	for _, c := range cases {
		if actual := GDALPath(c.href); actual != c.path {
			t.Errorf("GDALPath(%s) = %s, expecting %s", c.href, actual, c.path)
		}
	}
}

func TestQueryKey(t *testing.T) {
	start, _ := time.Parse(time.RFC3339, "2021-07-01T00:00:00Z")
	end, _ := time.Parse(time.RFC3339, "2021-07-31T23:59:59Z")
	q1 := &Query{Collection: "sentinel-2-l2a", StartTime: start, EndTime: end, GridCode: "MGRS-32UNE", MaxCloudCover: 60}
	q2 := &Query{Collection: "sentinel-2-l2a", StartTime: start, EndTime: end, GridCode: "MGRS-32UNE", MaxCloudCover: 60}
	if q1.Key() != q2.Key() {
		t.Errorf("equal queries produce different cache keys")
	}

	q3 := &Query{Collection: "sentinel-2-l2a", StartTime: start, EndTime: end, GridCode: "MGRS-32UNE", MaxCloudCover: 20}
	if q1.Key() == q3.Key() {
		t.Errorf("different queries share a cache key")
	}
	if len(q1.Key()) != 32 {
		t.Errorf("cache key is not an md5 hex digest: %s", q1.Key())
	}
}
