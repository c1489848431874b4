package report

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/geocrime/geocrime-cli/internal/cluster"
)

// HotspotsGeoJSON renders cluster centroids as a GeoJSON FeatureCollection
// of points, suitable for web maps.
func HotspotsGeoJSON(centroids []cluster.Centroid) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(centroids))}
	for _, c := range centroids {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude}),
			Properties: map[string]any{
				"cluster":   c.Label,
				"incidents": c.Size,
				"weight":    c.Weight,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "report: encode geojson")
	}
	return data, nil
}
