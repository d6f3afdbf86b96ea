package formatter

import (
	"strings"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildJSON(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewPointFeature([]float64{1, 2, 3})
	f.ID = "strato-A-current"
	f.Properties["course"] = 90.0
	fc.AddFeature(f)

	b, err := NewResponseBuilder(false).BuildJSON(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"id": "strato-A-current",
			"geometry": {"type": "Point", "coordinates": [1, 2, 3]},
			"properties": {"course": 90}
		}]
	}`, string(b))
	assert.False(t, strings.Contains(string(b), "\n"))

	pretty, err := NewResponseBuilder(true).BuildJSON(fc)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  ")
	assert.JSONEq(t, string(b), string(pretty))
}

func TestBuildJSON_Empty(t *testing.T) {
	b, err := NewResponseBuilder(false).BuildJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(b))
}
