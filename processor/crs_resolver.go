package processor

import (
	"fmt"

	"github.com/SPohlabeln/S2-TCVIS/catalog"
	"github.com/SPohlabeln/S2-TCVIS/utils"
)

// WorkingCRS is the resolved coordinate frame of one year's mosaic: the
// working EPSG code, the geographic AOI and its projection into the
// working frame. Every scene of the year is warped into this frame.
type WorkingCRS struct {
	EPSG       int
	AOIGeo     []float64
	BoundsProj []float64
}

// ResolveCRS derives the working CRS for a scene set. The first scene
// declaring a projection wins; without any declaration the UTM zone of
// the AOI centroid is used. aoiOverride, when set, pins the geographic
// AOI; otherwise the union bounding box of the scene footprints is
// taken.
func ResolveCRS(scenes []*catalog.Scene, aoiOverride []float64) (*WorkingCRS, error) {
	if len(scenes) == 0 {
		return nil, &InsufficientInputError{Op: "ResolveCRS", Detail: "no scenes"}
	}

	aoiGeo := aoiOverride
	if len(aoiGeo) == 0 {
		var err error
		aoiGeo, err = unionFootprintBBox(scenes)
		if err != nil {
			return nil, err
		}
	}
	if len(aoiGeo) != 4 {
		return nil, fmt.Errorf("ResolveCRS: AOI bounding box must have 4 values, got %d", len(aoiGeo))
	}

	epsg := 0
	for _, scene := range scenes {
		if scene.EPSG > 0 {
			epsg = scene.EPSG
			break
		}
	}
	if epsg == 0 {
		lon := (aoiGeo[0] + aoiGeo[2]) / 2
		lat := (aoiGeo[1] + aoiGeo[3]) / 2
		epsg = utils.UTMZoneEPSG(lon, lat)
	}

	boundsProj, err := utils.ProjectBBox(aoiGeo, epsg)
	if err != nil {
		return nil, err
	}

	return &WorkingCRS{EPSG: epsg, AOIGeo: aoiGeo, BoundsProj: boundsProj}, nil
}

func unionFootprintBBox(scenes []*catalog.Scene) ([]float64, error) {
	var union []float64
	for _, scene := range scenes {
		bbox := scene.BBox
		if len(bbox) != 4 {
			wkt := scene.FootprintWKT()
			if len(wkt) == 0 {
				continue
			}
			var err error
			bbox, err = utils.FootprintBBox(wkt)
			if err != nil {
				return nil, fmt.Errorf("scene %s: %v", scene.ID, err)
			}
		}

		if union == nil {
			union = []float64{bbox[0], bbox[1], bbox[2], bbox[3]}
			continue
		}
		if bbox[0] < union[0] {
			union[0] = bbox[0]
		}
		if bbox[1] < union[1] {
			union[1] = bbox[1]
		}
		if bbox[2] > union[2] {
			union[2] = bbox[2]
		}
		if bbox[3] > union[3] {
			union[3] = bbox[3]
		}
	}

	if union == nil {
		return nil, &InsufficientInputError{Op: "ResolveCRS", Detail: "no scene carries a footprint or bounding box"}
	}
	return union, nil
}
