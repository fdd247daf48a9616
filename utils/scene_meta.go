package utils

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// SceneMeta is the sidecar document written next to every per-scene
// raster. The compositor reads sidecars to verify grid consistency
// across a year stack without opening the rasters themselves.
type SceneMeta struct {
	ID       string   `yaml:"id"`
	Datetime string   `yaml:"datetime"`
	Grid     Grid     `yaml:"grid"`
	Bands    []string `yaml:"bands"`
	Masked   bool     `yaml:"masked"`
}

func (m *SceneMeta) Write(rasterPath string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("Error marshalling sidecar for %s: %v", rasterPath, err)
	}
	return ioutil.WriteFile(SidecarPath(rasterPath), data, 0644)
}

func LoadSceneMeta(rasterPath string) (*SceneMeta, error) {
	data, err := ioutil.ReadFile(SidecarPath(rasterPath))
	if err != nil {
		return nil, err
	}

	meta := &SceneMeta{}
	if err := yaml.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("Error parsing sidecar for %s: %v", rasterPath, err)
	}
	return meta, nil
}

func SidecarPath(rasterPath string) string {
	return rasterPath[:len(rasterPath)-len(filepath.Ext(rasterPath))] + ".yaml"
}

// Artifact naming. File names key solely on year and scene identifier;
// the existence of the named file is the resumability signal used by
// all orchestration.

func SceneFileName(outDir string, year int, sceneID string, acquired time.Time) string {
	return filepath.Join(outDir, fmt.Sprintf("%d", year), fmt.Sprintf("%s_%s.tif", sceneID, acquired.Format("2006-01-02")))
}

func MedianFileName(outDir string, year int) string {
	return filepath.Join(outDir, fmt.Sprintf("median_%d.tif", year))
}

func TCFileName(outDir string, year int) string {
	return filepath.Join(outDir, fmt.Sprintf("tc_median_%d.tif", year))
}
