package dataprocessing

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "acceptcli/internal/errors"
)

const networkJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "geometry": {"type": "LineString", "coordinates": [[-122.40, 37.79], [-122.41, 37.78], [-122.42, 37.77]]},
     "properties": {"model_link_id": 101, "a_node": 1, "b_node": 2}},
    {"type": "Feature",
     "geometry": {"type": "MultiLineString", "coordinates": [[[-122.42, 37.77], [-122.43, 37.76]], [[-122.43, 37.76], [-122.44, 37.75]]]},
     "properties": {"model_link_id": "102", "a_node": 2, "b_node": 3}}
  ]
}`

func TestReadLinkShapes(t *testing.T) {
	path := writeFile(t, "network.geojson", networkJSON)

	shapes, err := ReadLinkShapes(path)
	require.NoError(t, err)
	require.Len(t, shapes, 2)

	link := shapes[101]
	assert.Equal(t, int64(1), link.ANode)
	assert.Equal(t, int64(2), link.BNode)
	assert.Len(t, link.Geometry, 3)

	assert.Len(t, shapes[102].Geometry, 4, "multi line parts are concatenated")

	nodes := NodePoints(shapes)
	assert.Equal(t, orb.Point{-122.40, 37.79}, nodes[1])
	assert.Equal(t, orb.Point{-122.44, 37.75}, nodes[3])
}

func TestReadLinkShapes_BadGeometry(t *testing.T) {
	path := writeFile(t, "network.geojson", `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"model_link_id":1}}]}`)

	_, err := ReadLinkShapes(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestReadCentroids(t *testing.T) {
	path := writeFile(t, "tracts.geojson", `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[-122.1,37.5]},"properties":{"tract":"06001400100"}},
	  {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]},"properties":{"tract":6001400200}}]}`)

	points, err := ReadCentroids(path, "tract")
	require.NoError(t, err)

	assert.Equal(t, orb.Point{-122.1, 37.5}, points["06001400100"])
	assert.InDelta(t, 1.0, points["6001400200"][0], 1e-9)
	assert.InDelta(t, 1.0, points["6001400200"][1], 1e-9)
}

func TestReadFeatureCollection_Invalid(t *testing.T) {
	_, err := ReadFeatureCollection(writeFile(t, "bad.geojson", "{not json"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}
