package metrics

import (
	"bytes"
	"encoding/json"
	"time"
)

// SceneInfo records the fate of one catalog scene within a run.
type SceneInfo struct {
	ID            string        `json:"id"`
	Ratio         float64       `json:"ratio"`
	Status        string        `json:"status"`
	FetchDuration time.Duration `json:"fetch_duration"`
	MaskDuration  time.Duration `json:"mask_duration"`
	Error         string        `json:"error,omitempty"`
}

// YearInfo aggregates one year of a run.
type YearInfo struct {
	Year        int           `json:"year"`
	NumScenes   int           `json:"num_scenes"`
	NumComposed int           `json:"num_composed"`
	NumSkipped  int           `json:"num_skipped"`
	NumFailed   int           `json:"num_failed"`
	RPCDuration time.Duration `json:"rpc_duration"`
	StageDone   string        `json:"stage_done"`
	Error       string        `json:"error,omitempty"`
}

// MetricsInfo is one log record. Exactly one of Scene or Year is set.
type MetricsInfo struct {
	RunTime string     `json:"run_time"`
	Stage   string     `json:"stage"`
	Scene   *SceneInfo `json:"scene,omitempty"`
	Year    *YearInfo  `json:"year,omitempty"`
}

// MetricsCollector accumulates one record and flushes it to the
// configured logger.
type MetricsCollector struct {
	Info   *MetricsInfo
	logger Logger
}

func NewMetricsCollector(logger Logger) *MetricsCollector {
	return &MetricsCollector{
		Info:   &MetricsInfo{RunTime: time.Now().UTC().Format(time.RFC3339)},
		logger: logger,
	}
}

func (m *MetricsCollector) Log() {
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *MetricsInfo) ToJSON() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err == nil {
		return buf.String(), nil
	}
	return "", err
}
