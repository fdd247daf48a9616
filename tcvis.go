package main

/* tcvis builds yearly cloud-free Sentinel-2 surface reflectance
   composites and their tasseled-cap projections. A run is staged:
   scenes are searched in a catalog, warped onto one working grid and
   stored locally, gated through an external cloud classifier, reduced
   to a per-pixel temporal median and finally projected onto the
   brightness/greenness/wetness axes. The heavy raster work runs on a
   cluster of mosaic-server nodes; this binary only orchestrates. */

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/classifier"
	"github.com/SPohlabeln/S2-TCVIS/metrics"
	proc "github.com/SPohlabeln/S2-TCVIS/processor"
	"github.com/SPohlabeln/S2-TCVIS/utils"

	"golang.org/x/crypto/ssh/terminal"
)

var (
	configFile    = flag.String("conf", "config.json", "Pipeline config file.")
	stage         = flag.String("stage", "all", "Stage to run: download | mask | median | tc | all.")
	serverDataDir = flag.String("data_dir", utils.DataDir, "Data directory holding the templates.")
	logDir        = flag.String("log_dir", "", "Metrics log directory. Empty logs metrics to stdout.")
	overwrite     = flag.Bool("overwrite", false, "Rebuild artifacts that already exist.")
	promptSecrets = flag.Bool("prompt_secrets", false, "Prompt for the object-store secret key instead of reading it from the config file.")
	dumpConf      = flag.Bool("dump_conf", false, "Dump the effective config and exit.")
	verbose       = flag.Bool("v", false, "Verbose mode for more outputs.")
)

var (
	Error *log.Logger
	Info  *log.Logger
)

var validStages = map[string]bool{"download": true, "mask": true, "median": true, "tc": true, "all": true}

func init() {
	Error = log.New(os.Stderr, "TCVIS: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "TCVIS: ", log.Ldate|log.Ltime|log.Lshortfile)

	flag.Parse()

	utils.DataDir = *serverDataDir

	utils.InitGdal()
}

func main() {
	if !validStages[*stage] {
		Error.Fatalf("unknown stage '%s', expecting download | mask | median | tc | all", *stage)
	}

	config := &utils.Config{}
	if err := config.LoadConfigFile(*configFile); err != nil {
		Error.Fatalf("Error in loading config file: %v", err)
	}
	utils.WatchConfig(Info, Error, config, *configFile)

	if *promptSecrets {
		fmt.Fprint(os.Stderr, "object-store secret key: ")
		secret, err := terminal.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			Error.Fatalf("Error reading secret: %v", err)
		}
		config.ServiceConfig.Storage.S3SecretKey = strings.TrimSpace(string(secret))
	}

	if *dumpConf {
		configJson, err := utils.DumpConfig(config)
		if err != nil {
			Error.Fatalf("Error in dumping config: %v", err)
		}
		log.Print(configJson)
		os.Exit(0)
	}

	utils.ApplyStorageConfig(&config.ServiceConfig.Storage)

	var metricsLogger metrics.Logger
	if len(*logDir) > 0 {
		metricsLogger = metrics.NewFileLogger(*logDir, 0, 0, *verbose)
	} else {
		metricsLogger = metrics.NewStdoutLogger()
	}

	cat, err := catalog.NewFromConfig(&config.ServiceConfig.Catalog, *verbose)
	if err != nil {
		Error.Fatalf("Error in setting up the catalog: %v", err)
	}

	filter, err := catalog.ParseSceneFilter(config.ServiceConfig.Catalog.SceneFilter)
	if err != nil {
		Error.Fatalf("Error in parsing scene_filter: %v", err)
	}

	cluster, err := proc.DialCluster(config.ServiceConfig.WorkerNodes, config.ServiceConfig.MaxGrpcRecvMsgSize, config.Cluster.GrpcConcLimit)
	if err != nil {
		Error.Fatalf("Error in connecting to the worker cluster: %v", err)
	}
	defer cluster.Close()

	classify := unconfiguredClassifier
	if len(config.ServiceConfig.ClassifierAddress) > 0 {
		cls, err := classifier.NewClassifier(config.ServiceConfig.ClassifierAddress, config.ServiceConfig.MaxGrpcRecvMsgSize)
		if err != nil {
			Error.Fatalf("Error in connecting to the classifier: %v", err)
		}
		defer cls.Close()
		classify = cls.Classify
	}

	pipeline := &proc.Pipeline{
		Catalog: cat,
		Filter:  filter,
		Harmonizer: &proc.Harmonizer{
			Cluster: cluster,
			Bands:   config.Pipeline.Bands,
			Verbose: *verbose,
		},
		Masker: &proc.CloudMasker{Classify: classify},
		Compositor: &proc.Compositor{
			Cluster:  cluster,
			TileSize: config.Cluster.TileSize,
			Verbose:  *verbose,
		},
		Config:    config,
		Overwrite: *overwrite,
		Verbose:   *verbose,
	}

	years := config.Pipeline.Years()
	Info.Printf("stage %s over years %v, output %s", *stage, years, config.Pipeline.OutDir)

	t0 := time.Now()
	yearErrs := make([]error, len(years))
	yearOutcomes := make([][]*proc.SceneOutcome, len(years))

	ctx := context.Background()
	yLimiter := proc.NewConcLimiter(config.Pipeline.YearConcLimit)
	for i, year := range years {
		yLimiter.Increase()
		go func(idx, year int) {
			defer yLimiter.Decrease()
			outcomes, err := pipeline.RunYear(ctx, year, *stage)
			yearOutcomes[idx] = outcomes
			yearErrs[idx] = err
			logYear(metricsLogger, year, *stage, outcomes, err)
		}(i, year)
	}
	yLimiter.Wait()

	failed := 0
	for i, year := range years {
		summary := summarize(yearOutcomes[i])
		if err := yearErrs[i]; err != nil {
			Error.Printf("year %d failed: %v", year, err)
			failed++
			continue
		}
		Info.Printf("year %d done: %s", year, summary)
	}
	Info.Printf("run finished in %v, %d/%d years failed", time.Since(t0), failed, len(years))

	if failed > 0 {
		os.Exit(1)
	}
}

func unconfiguredClassifier(ctx context.Context, planes [][]float32, height, width int) (*classifier.ClassMap, error) {
	return nil, fmt.Errorf("no classifier_address configured")
}

func summarize(outcomes []*proc.SceneOutcome) string {
	counts := make(map[proc.SceneStatus]int)
	for _, outcome := range outcomes {
		counts[outcome.Status]++
	}

	order := []proc.SceneStatus{
		proc.StatusDownloaded, proc.StatusMasked, proc.StatusMaskingFailed,
		proc.StatusExists, proc.StatusLowCoverageSkip, proc.StatusNoBands, proc.StatusFailed,
	}
	parts := make([]string, 0, len(order))
	for _, status := range order {
		if counts[status] > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", status, counts[status]))
		}
	}
	if len(parts) == 0 {
		return "no scenes"
	}
	return strings.Join(parts, " ")
}

func logYear(logger metrics.Logger, year int, stage string, outcomes []*proc.SceneOutcome, yearErr error) {
	yearInfo := &metrics.YearInfo{Year: year, StageDone: stage}
	if yearErr != nil {
		yearInfo.Error = yearErr.Error()
	}

	for _, outcome := range outcomes {
		yearInfo.NumScenes++
		yearInfo.RPCDuration += outcome.Duration
		switch outcome.Status {
		case proc.StatusDownloaded, proc.StatusMasked, proc.StatusMaskingFailed:
			yearInfo.NumComposed++
		case proc.StatusFailed:
			yearInfo.NumFailed++
		default:
			yearInfo.NumSkipped++
		}

		collector := metrics.NewMetricsCollector(logger)
		collector.Info.Stage = outcome.Stage
		sceneInfo := &metrics.SceneInfo{
			ID:     outcome.ID,
			Ratio:  outcome.Ratio,
			Status: string(outcome.Status),
		}
		if outcome.Stage == "mask" {
			sceneInfo.MaskDuration = outcome.Duration
		} else {
			sceneInfo.FetchDuration = outcome.Duration
		}
		if outcome.Err != nil {
			sceneInfo.Error = outcome.Err.Error()
		}
		collector.Info.Scene = sceneInfo
		collector.Log()
	}

	collector := metrics.NewMetricsCollector(logger)
	collector.Info.Stage = stage
	collector.Info.Year = yearInfo
	collector.Log()
}
