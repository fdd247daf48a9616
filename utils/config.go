package utils

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var LibexecDir = "."
var EtcDir = "."
var DataDir = "."

// string used to format Go ISO times
const ISOFormat = "2006-01-02T15:04:05.000Z"

const DefaultRecvMsgSize = 200 * 1024 * 1024
const DefaultCoverageThreshold = 0.4
const DefaultTileSize = 512
const DefaultSceneConcLimit = 4
const DefaultYearConcLimit = 1
const ReflectanceScale = 10000

// BandResolution classifies a band by its native ground sample
// distance relative to the reference grid. Bands are classified
// once at config load, never by runtime name matching.
type BandResolution int

const (
	RefRes BandResolution = iota
	CoarseRes
)

func (r BandResolution) String() string {
	if r == CoarseRes {
		return "coarse"
	}
	return "ref"
}

// BandDescriptor binds a catalog asset key to the semantic label
// used by all downstream processing. Downstream code indexes bands
// by Label exclusively.
type BandDescriptor struct {
	AssetKey   string `json:"asset_key"`
	Label      string `json:"label"`
	Resolution string `json:"resolution"`

	ResClass BandResolution `json:"-"`
}

// DefaultBands is the canonical Sentinel-2 L2A band set, in stacking order.
var DefaultBands = []BandDescriptor{
	{AssetKey: "B02_10m", Label: "Blue", Resolution: "ref"},
	{AssetKey: "B03_10m", Label: "Green", Resolution: "ref"},
	{AssetKey: "B04_10m", Label: "Red", Resolution: "ref"},
	{AssetKey: "B08_10m", Label: "NIR", Resolution: "ref"},
	{AssetKey: "B11_20m", Label: "SWIR1", Resolution: "coarse"},
	{AssetKey: "B12_20m", Label: "SWIR2", Resolution: "coarse"},
}

// StorageConfig carries the object-store session settings handed to the
// raster readers at construction. Core logic never consults the process
// environment for these.
type StorageConfig struct {
	S3Endpoint     string `json:"s3_endpoint"`
	S3Region       string `json:"s3_region"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	VirtualHosting bool   `json:"virtual_hosting"`
}

type CatalogConfig struct {
	Backend     string `json:"backend"`
	STACURL     string `json:"stac_url"`
	Collection  string `json:"collection"`
	PostgresDSN string `json:"postgres_dsn"`
	SceneFilter string `json:"scene_filter"`
	MemcacheURI string `json:"memcache_uri"`
}

type ServiceConfig struct {
	WorkerNodes        []string      `json:"worker_nodes"`
	ClassifierAddress  string        `json:"classifier_address"`
	Catalog            CatalogConfig `json:"catalog"`
	Storage            StorageConfig `json:"storage"`
	MaxGrpcRecvMsgSize int           `json:"max_grpc_recv_msg_size"`
}

// PipelineConfig describes one processing run: the AOI, the yearly
// acquisition windows and the band set.
type PipelineConfig struct {
	GridCode          string           `json:"grid_code"`
	MaxCloudCover     int              `json:"max_cloud_cover"`
	YearStart         int              `json:"year_start"`
	YearEnd           int              `json:"year_end"`
	MonthStart        string           `json:"month_start"`
	MonthEnd          string           `json:"month_end"`
	BBox              []float64        `json:"bbox"`
	CoverageThreshold float64          `json:"coverage_threshold"`
	SceneConcLimit    int              `json:"scene_conc_limit"`
	YearConcLimit     int              `json:"year_conc_limit"`
	OutDir            string           `json:"out_dir"`
	Bands             []BandDescriptor `json:"bands"`
}

// ClusterConfig holds the knobs of the shared mosaic worker cluster.
// The cluster itself is provisioned by mosaic-server instances; the
// pipeline only connects to it.
type ClusterConfig struct {
	TileSize      int `json:"tile_size"`
	GrpcConcLimit int `json:"grpc_conc_limit"`
	MemLimitMB    int `json:"memory_limit_mb"`
}

// Config is the single document driving a pipeline run.
type Config struct {
	ServiceConfig ServiceConfig  `json:"service_config"`
	Pipeline      PipelineConfig `json:"pipeline"`
	Cluster       ClusterConfig  `json:"cluster"`
}

// LoadConfigFile unmarshals the config.json document, applies defaults
// and resolves each band descriptor's resolution class.
func (config *Config) LoadConfigFile(configFile string) error {
	*config = Config{}
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	err = json.Unmarshal(cfg, config)
	if err != nil {
		return fmt.Errorf("Error at JSON parsing config document: %s. Error: %v", configFile, err)
	}

	if config.ServiceConfig.MaxGrpcRecvMsgSize <= 0 {
		config.ServiceConfig.MaxGrpcRecvMsgSize = DefaultRecvMsgSize
	}

	if len(config.Pipeline.Bands) == 0 {
		config.Pipeline.Bands = make([]BandDescriptor, len(DefaultBands))
		copy(config.Pipeline.Bands, DefaultBands)
	}

	for i, band := range config.Pipeline.Bands {
		switch band.Resolution {
		case "ref", "":
			config.Pipeline.Bands[i].ResClass = RefRes
		case "coarse":
			config.Pipeline.Bands[i].ResClass = CoarseRes
		default:
			return fmt.Errorf("band %s: unknown resolution class '%s', expecting 'ref' or 'coarse'", band.AssetKey, band.Resolution)
		}

		if len(band.Label) == 0 {
			return fmt.Errorf("band %s: empty label", band.AssetKey)
		}
	}

	if config.Pipeline.CoverageThreshold <= 0 {
		config.Pipeline.CoverageThreshold = DefaultCoverageThreshold
	}
	if config.Pipeline.SceneConcLimit <= 0 {
		config.Pipeline.SceneConcLimit = DefaultSceneConcLimit
	}
	if config.Pipeline.YearConcLimit <= 0 {
		config.Pipeline.YearConcLimit = DefaultYearConcLimit
	}
	if len(config.Pipeline.MonthStart) == 0 {
		config.Pipeline.MonthStart = "01-01"
	}
	if len(config.Pipeline.MonthEnd) == 0 {
		config.Pipeline.MonthEnd = "12-31"
	}

	if config.Pipeline.YearEnd < config.Pipeline.YearStart {
		return fmt.Errorf("year_end %d precedes year_start %d", config.Pipeline.YearEnd, config.Pipeline.YearStart)
	}

	if len(config.Pipeline.BBox) != 0 && len(config.Pipeline.BBox) != 4 {
		return fmt.Errorf("bbox must have 4 values (west, south, east, north), got %d", len(config.Pipeline.BBox))
	}

	if config.Cluster.TileSize <= 0 {
		config.Cluster.TileSize = DefaultTileSize
	}
	if config.Cluster.GrpcConcLimit <= 0 {
		config.Cluster.GrpcConcLimit = 2
	}

	if len(config.ServiceConfig.Catalog.Backend) == 0 {
		config.ServiceConfig.Catalog.Backend = "stac"
	}

	return nil
}

// Years expands the configured year range.
func (p *PipelineConfig) Years() []int {
	var years []int
	for y := p.YearStart; y <= p.YearEnd; y++ {
		years = append(years, y)
	}
	return years
}

// DateRange returns the acquisition window of one year, e.g.
// 2024-08-01T00:00:00Z .. 2024-08-31T23:59:59Z.
func (p *PipelineConfig) DateRange(year int) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", fmt.Sprintf("%d-%s", year, p.MonthStart))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month_start '%s': %v", p.MonthStart, err)
	}
	end, err := time.Parse("2006-01-02", fmt.Sprintf("%d-%s", year, p.MonthEnd))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month_end '%s': %v", p.MonthEnd, err)
	}
	end = end.Add(24*time.Hour - time.Second)
	return start.UTC(), end.UTC(), nil
}

func WatchConfig(infoLog, errLog *log.Logger, config *Config, configFile string) {
	// Catch SIGHUP to automatically reload config
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-sighup:
				infoLog.Println("Caught SIGHUP, reloading config...")
				newConf := &Config{}
				err := newConf.LoadConfigFile(configFile)
				if err != nil {
					errLog.Printf("Error in loading config file: %v\n", err)
					continue
				}
				*config = *newConf
			}
		}
	}()
}

func DumpConfig(config *Config) (string, error) {
	configJson, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		return "", err
	}
	return string(configJson), nil
}
