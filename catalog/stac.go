package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/context"
)

const DefaultSearchLimit = 100
const DefaultSearchTimeout = 60 * time.Second

// STACBackend searches a STAC API item-search endpoint. Only the
// search surface is used; asset pixels are read elsewhere.
type STACBackend struct {
	URL     string
	Client  *http.Client
	Verbose bool
}

func NewSTACBackend(url string, verbose bool) *STACBackend {
	return &STACBackend{
		URL:     strings.TrimRight(url, "/"),
		Client:  &http.Client{Timeout: DefaultSearchTimeout},
		Verbose: verbose,
	}
}

type stacAsset struct {
	Href      string `json:"href"`
	Alternate map[string]struct {
		Href string `json:"href"`
	} `json:"alternate"`
}

type stacFeature struct {
	ID         string                 `json:"id"`
	Geometry   json.RawMessage        `json:"geometry"`
	BBox       []float64              `json:"bbox"`
	Properties map[string]interface{} `json:"properties"`
	Assets     map[string]stacAsset   `json:"assets"`
}

type stacLink struct {
	Rel    string                 `json:"rel"`
	Href   string                 `json:"href"`
	Method string                 `json:"method"`
	Body   map[string]interface{} `json:"body"`
	Merge  bool                   `json:"merge"`
}

type stacSearchResponse struct {
	Features []*stacFeature `json:"features"`
	Links    []stacLink     `json:"links"`
}

func (b *STACBackend) Search(ctx context.Context, query *Query) ([]*Scene, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	body := map[string]interface{}{
		"collections": []string{query.Collection},
		"datetime":    fmt.Sprintf("%s/%s", query.StartTime.UTC().Format(ISOFormat), query.EndTime.UTC().Format(ISOFormat)),
		"limit":       limit,
	}

	filters := map[string]interface{}{}
	if query.MaxCloudCover > 0 {
		filters["eo:cloud_cover"] = map[string]interface{}{"lte": query.MaxCloudCover}
	}
	if len(query.GridCode) > 0 {
		filters["grid:code"] = map[string]interface{}{"eq": query.GridCode}
	}
	if len(filters) > 0 {
		body["query"] = filters
	}

	searchURL := b.URL + "/search"

	var scenes []*Scene
	for page := 0; ; page++ {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}

		if b.Verbose {
			log.Printf("stac_url:%s\tpost_body:%s", searchURL, string(payload))
		}

		req, err := http.NewRequest("POST", searchURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("POST request to %s failed. Error: %v", searchURL, err)
		}

		respBody, err := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("Error reading response body from %s. Error: %v", searchURL, err)
		}
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("%s returned status %d: %s", searchURL, resp.StatusCode, truncate(string(respBody), 300))
		}

		var sr stacSearchResponse
		err = json.Unmarshal(respBody, &sr)
		if err != nil {
			return nil, fmt.Errorf("Problem parsing JSON response from %s. Error: %v", searchURL, err)
		}

		for _, feat := range sr.Features {
			scene, err := sceneFromFeature(feat)
			if err != nil {
				log.Printf("skipping malformed catalog record '%s': %v", feat.ID, err)
				continue
			}
			scenes = append(scenes, scene)
		}

		next := nextLink(sr.Links)
		if next == nil || len(sr.Features) == 0 {
			break
		}
		if next.Merge {
			for k, v := range next.Body {
				body[k] = v
			}
		} else if next.Body != nil {
			body = next.Body
		}
		if len(next.Href) > 0 {
			searchURL = next.Href
		}
	}

	return scenes, nil
}

func nextLink(links []stacLink) *stacLink {
	for i := range links {
		if links[i].Rel == "next" {
			return &links[i]
		}
	}
	return nil
}

func sceneFromFeature(feat *stacFeature) (*Scene, error) {
	scene := &Scene{
		ID:     feat.ID,
		BBox:   feat.BBox,
		Assets: make(map[string]string),
	}

	dtStr, ok := feat.Properties["datetime"].(string)
	if !ok {
		return nil, fmt.Errorf("record has no datetime")
	}
	acquired, err := time.Parse(time.RFC3339, dtStr)
	if err != nil {
		return nil, fmt.Errorf("invalid datetime '%s': %v", dtStr, err)
	}
	scene.Acquired = acquired.UTC()

	if cc, ok := feat.Properties["eo:cloud_cover"].(float64); ok {
		scene.CloudCover = cc
	}
	if gc, ok := feat.Properties["grid:code"].(string); ok {
		scene.GridCode = gc
	}
	scene.EPSG = extractEPSG(feat.Properties)

	scene.Geometry = feat.Geometry
	if _, err = scene.DecodeFootprint(); err != nil {
		return nil, err
	}

	for key, asset := range feat.Assets {
		scene.Assets[key] = preferAlternate(asset)
	}

	return scene, nil
}

// extractEPSG reads the projection code off a record. Both the numeric
// proj:epsg form and the proj:code "EPSG:NNNNN" form occur in the wild.
func extractEPSG(properties map[string]interface{}) int {
	if v, ok := properties["proj:epsg"].(float64); ok {
		return int(v)
	}
	if code, ok := properties["proj:code"].(string); ok {
		if strings.HasPrefix(code, "EPSG:") {
			epsg, err := strconv.Atoi(code[5:])
			if err == nil {
				return epsg
			}
		}
	}
	return 0
}

// preferAlternate picks the object-store location of an asset when the
// record advertises one, otherwise the canonical href.
func preferAlternate(asset stacAsset) string {
	if alt, ok := asset.Alternate["s3"]; ok && len(alt.Href) > 0 {
		return alt.Href
	}
	return asset.Href
}

// GDALPath rewrites an asset href into the virtual filesystem path the
// raster readers open.
func GDALPath(href string) string {
	if strings.HasPrefix(href, "s3://") {
		return "/vsis3/" + strings.TrimPrefix(href, "s3://")
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return "/vsicurl/" + href
	}
	return href
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + " ..."
}

const ISOFormat = "2006-01-02T15:04:05Z"
