package dataprocessing

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	apperrors "acceptcli/internal/errors"
)

// LinkShape is the geometry and end nodes of one network link
type LinkShape struct {
	ModelLinkID int64
	ANode       int64
	BNode       int64
	Geometry    orb.LineString
}

// ReadFeatureCollection decodes a GeoJSON feature collection
func ReadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read geojson", err).WithContext("path", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to decode geojson", err).WithContext("path", path)
	}
	return fc, nil
}

// ReadLinkShapes reads link LineStrings keyed by model_link_id.
// MultiLineStrings are flattened into one LineString in part order.
func ReadLinkShapes(path string) (map[int64]LinkShape, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	shapes := make(map[int64]LinkShape, len(fc.Features))
	for i, f := range fc.Features {
		id, err := intProperty(f, "model_link_id")
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("feature %d", i), err).WithContext("path", path)
		}
		a, _ := intProperty(f, "a_node")
		b, _ := intProperty(f, "b_node")

		var line orb.LineString
		switch g := f.Geometry.(type) {
		case orb.LineString:
			line = g
		case orb.MultiLineString:
			for _, part := range g {
				line = append(line, part...)
			}
		default:
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("link %d has %s geometry, want LineString", id, f.Geometry.GeoJSONType()), nil).
				WithContext("path", path)
		}

		shapes[id] = LinkShape{ModelLinkID: id, ANode: a, BNode: b, Geometry: line}
	}
	return shapes, nil
}

// NodePoints derives node coordinates from link end points
func NodePoints(shapes map[int64]LinkShape) map[int64]orb.Point {
	nodes := make(map[int64]orb.Point, len(shapes)*2)
	for _, s := range shapes {
		if len(s.Geometry) == 0 {
			continue
		}
		if s.ANode != 0 {
			nodes[s.ANode] = s.Geometry[0]
		}
		if s.BNode != 0 {
			nodes[s.BNode] = s.Geometry[len(s.Geometry)-1]
		}
	}
	return nodes
}

// ReadCentroids reads one point per feature keyed by the idProperty value.
// Polygon features are reduced to their area centroid.
func ReadCentroids(path, idProperty string) (map[string]orb.Point, error) {
	fc, err := ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	points := make(map[string]orb.Point, len(fc.Features))
	for i, f := range fc.Features {
		id := stringProperty(f, idProperty)
		if id == "" {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("feature %d has no %s property", i, idProperty), nil).WithContext("path", path)
		}
		switch g := f.Geometry.(type) {
		case orb.Point:
			points[id] = g
		case nil:
			continue
		default:
			c, _ := planar.CentroidArea(g)
			points[id] = c
		}
	}
	return points, nil
}

func intProperty(f *geojson.Feature, key string) (int64, error) {
	switch v := f.Properties[key].(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing property %s", key)
	default:
		return 0, fmt.Errorf("property %s has type %T", key, v)
	}
}

func stringProperty(f *geojson.Feature, key string) string {
	switch v := f.Properties[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
