package exporter

import (
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

// RoadwayCollection builds the roadway network artifact, one LineString
// feature per link and time period
func RoadwayCollection(rows []domain.RoadwayNetworkRow) *geojson.FeatureCollection {
	fc := newCollection("roadway-network-comparisons")
	for _, r := range rows {
		fc.Append(feature(lineOrNil(r.Geometry), r.Properties()))
	}
	return fc
}

// TransitCollection builds the transit network artifact, one LineString
// feature per line segment and time period
func TransitCollection(rows []domain.TransitNetworkRow) *geojson.FeatureCollection {
	fc := newCollection("transit-network-comparisons")
	for _, r := range rows {
		fc.Append(feature(lineOrNil(r.Geometry), r.Properties()))
	}
	return fc
}

// ComparisonCollection builds the general comparison artifact, one feature
// per record. Records without geometry get a null geometry.
func ComparisonCollection(records []domain.ComparisonRecord) *geojson.FeatureCollection {
	fc := newCollection("other-comparisons")
	for _, r := range records {
		fc.Append(feature(r.Geometry, r.Properties()))
	}
	return fc
}

func newCollection(name string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{"name": name}
	return fc
}

func feature(g orb.Geometry, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties = props
	return f
}

func lineOrNil(ls orb.LineString) orb.Geometry {
	if len(ls) == 0 {
		return nil
	}
	return ls
}

// WriteGeoJSON encodes fc to path
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return apperrors.NewStorageError("failed to encode geojson", err).WithContext("path", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err).WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError("failed to write geojson", err).WithContext("path", path)
	}
	return nil
}
