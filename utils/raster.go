package utils

import (
	"fmt"
)

type Raster interface {
	GetNoData() float64
}

type ByteRaster struct {
	Data          []uint8
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (r *ByteRaster) GetNoData() float64 {
	return r.NoData
}

type UInt16Raster struct {
	Data          []uint16
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (r *UInt16Raster) GetNoData() float64 {
	return r.NoData
}

type Float32Raster struct {
	Data          []float32
	Height, Width int
	NoData        float64
	NameSpace     string
}

func (r *Float32Raster) GetNoData() float64 {
	return r.NoData
}

// Grid pins a raster to the ground: projection, origin and pixel size.
// Two rasters share a grid iff all fields match.
type Grid struct {
	EPSG   int       `yaml:"epsg"`
	Geot   []float64 `yaml:"geotransform"`
	Width  int       `yaml:"width"`
	Height int       `yaml:"height"`
}

const gridEps = 1e-6

func (g *Grid) Equal(o *Grid) bool {
	if g.EPSG != o.EPSG || g.Width != o.Width || g.Height != o.Height {
		return false
	}
	if len(g.Geot) != len(o.Geot) {
		return false
	}
	for i := range g.Geot {
		d := g.Geot[i] - o.Geot[i]
		if d < -gridEps || d > gridEps {
			return false
		}
	}
	return true
}

// ValidateRasterSlice checks that all bands of a to-be-encoded raster
// agree on size and data type, returning the common geometry.
func ValidateRasterSlice(rs []Raster) (int, int, string, error) {
	var width, height int
	var rasterType string
	var err error

	for _, r := range rs {
		switch t := r.(type) {
		case *ByteRaster:
			if rasterType == "" {
				rasterType = "Byte"
			} else if rasterType != "Byte" {
				err = fmt.Errorf("Mixed types")
			}

			if width == 0 {
				width = t.Width
			} else if width != t.Width {
				err = fmt.Errorf("Mixed width sizes")
			}

			if height == 0 {
				height = t.Height
			} else if height != t.Height {
				err = fmt.Errorf("Mixed height sizes")
			}
		case *UInt16Raster:
			if rasterType == "" {
				rasterType = "UInt16"
			} else if rasterType != "UInt16" {
				err = fmt.Errorf("Mixed types")
			}

			if width == 0 {
				width = t.Width
			} else if width != t.Width {
				err = fmt.Errorf("Mixed width sizes")
			}

			if height == 0 {
				height = t.Height
			} else if height != t.Height {
				err = fmt.Errorf("Mixed height sizes")
			}
		case *Float32Raster:
			if rasterType == "" {
				rasterType = "Float32"
			} else if rasterType != "Float32" {
				err = fmt.Errorf("Mixed types")
			}

			if width == 0 {
				width = t.Width
			} else if width != t.Width {
				err = fmt.Errorf("Mixed width sizes")
			}

			if height == 0 {
				height = t.Height
			} else if height != t.Height {
				err = fmt.Errorf("Mixed height sizes")
			}
		default:
			err = fmt.Errorf("Raster type not implemented")
		}
	}
	return width, height, rasterType, err
}
