package converter

import (
	"errors"
	"net/url"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/etl-strato/config"
	"github.com/theoremus-urban-solutions/etl-strato/internal/fixtures"
)

func trackerOptions() Options {
	return OptionsFromEnvironment(config.Default())
}

func convert(t *testing.T, opts Options, rawURL string, body []byte) (*Result, error) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return NewConverter(opts, nil).Convert(u, body)
}

func byID(t *testing.T, fc *geojson.FeatureCollection, id string) *geojson.Feature {
	t.Helper()
	for _, f := range fc.Features {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("feature %q not found", id)
	return nil
}

func TestConvert_RejectsNonFeatureCollection(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "single feature", body: fixtures.LoadGeoJSON(t, "single_feature.json")},
		{name: "json array", body: []byte(`[]`)},
		{name: "not json", body: []byte(`<html>502</html>`)},
		{name: "missing type", body: []byte(`{"features": []}`)},
		{name: "lowercase type", body: []byte(`{"type": "featurecollection", "features": []}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(t, trackerOptions(), "https://api.example.com/track", tt.body)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}
}

func TestConvert_RejectsTooManyFeatures(t *testing.T) {
	_, err := convert(t, trackerOptions(), "https://api.example.com/track", fixtures.LoadGeoJSON(t, "too_many.geojson"))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "API Should only return 2 features", verr.Error())
}

func TestConvert_LimitAppliesAfterSatelliteFilter(t *testing.T) {
	body := fixtures.LoadGeoJSON(t, "mixed_satellites.geojson")

	_, err := convert(t, trackerOptions(), "https://api.example.com/track", body)
	require.Error(t, err)

	res, err := convert(t, trackerOptions(), "https://api.example.com/track?satellite=HBAL-999", body)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 2, res.Retained)
	assert.Len(t, res.Collection.Features, 2)
}

func TestConvert_SatelliteFilterIsCaseInsensitiveExactMatch(t *testing.T) {
	body := fixtures.LoadGeoJSON(t, "mixed_satellites.geojson")

	res, err := convert(t, trackerOptions(), "https://api.example.com/track?satellite=HBAL-123", body)
	require.NoError(t, err)

	require.Len(t, res.Collection.Features, 1)
	assert.Equal(t, "strato-hbal-123-current", res.Collection.Features[0].ID)
}

func TestFilterSatellite(t *testing.T) {
	named := func(name interface{}) *geojson.Feature {
		f := geojson.NewPointFeature([]float64{0, 0})
		if name != nil {
			f.Properties["name"] = name
		}
		return f
	}
	features := []*geojson.Feature{named("Alpha"), named("ALPHA"), named("alpha-2"), named(nil), named(42), nil}

	assert.Len(t, FilterSatellite(features, "alpha"), 2)
	assert.Len(t, FilterSatellite(features, ""), 5, "null features are always dropped")
	assert.Empty(t, FilterSatellite(features, "beta"))
}

func TestConvert_TrackerLayout(t *testing.T) {
	res, err := convert(t, trackerOptions(), "https://api.example.com/track", fixtures.LoadGeoJSON(t, "strato.geojson"))
	require.NoError(t, err)
	require.Len(t, res.Collection.Features, 2)
	assert.Equal(t, 1, res.Emitted[KindCurrent])
	assert.Equal(t, 1, res.Emitted[KindHistory])

	current := byID(t, res.Collection, "strato-HBAL-123-current")
	assert.Equal(t, geojson.GeometryPoint, current.Geometry.Type)
	assert.Equal(t, []float64{-105.2705, 40.015, 18288.5}, current.Geometry.Point)
	assert.Equal(t, 87.5, current.Properties["course"])
	assert.Equal(t, 12.4, current.Properties["speed"])
	metadata, ok := current.Properties["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "HBAL-123", metadata["name"])
	assert.Equal(t, "2026-10-18T06:00:00Z", metadata["launched"])
	assert.Equal(t, 18288.5, metadata["altitude"])

	history := byID(t, res.Collection, "strato-HBAL-123-history")
	assert.Equal(t, geojson.GeometryLineString, history.Geometry.Type)
	assert.Len(t, history.Geometry.LineString, 6, "not simplified by default")
	assert.Len(t, history.Properties, 1)
	assert.Contains(t, history.Properties, "metadata")
}

func TestConvert_OrderFollowsUpstream(t *testing.T) {
	body := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{"name":"B"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{"name":"B","altitude":5}}
	]}`)

	res, err := convert(t, trackerOptions(), "https://api.example.com/track", body)
	require.NoError(t, err)
	require.Len(t, res.Collection.Features, 2)
	assert.Equal(t, "strato-B-history", res.Collection.Features[0].ID)
	assert.Equal(t, "strato-B-current", res.Collection.Features[1].ID)
}

func TestConvert_TrackHistoryDisabled(t *testing.T) {
	opts := trackerOptions()
	opts.ShowTrackHistory = false

	res, err := convert(t, opts, "https://api.example.com/track", fixtures.LoadGeoJSON(t, "strato.geojson"))
	require.NoError(t, err)
	require.Len(t, res.Collection.Features, 1)
	assert.Equal(t, "strato-HBAL-123-current", res.Collection.Features[0].ID)
	assert.Equal(t, 1, res.SkippedTracks)
}

func TestConvert_SimplifiesTrack(t *testing.T) {
	opts := trackerOptions()
	opts.SimplifyTrackHistory = true
	opts.Tolerance = 0.01

	res, err := convert(t, opts, "https://api.example.com/track", fixtures.LoadGeoJSON(t, "strato.geojson"))
	require.NoError(t, err)

	history := byID(t, res.Collection, "strato-HBAL-123-history")
	assert.Equal(t, [][]float64{
		{-106.0, 40.0, 100.0},
		{-105.7, 40.0, 5000.0},
		{-105.6, 40.5, 9000.0},
		{-105.5, 40.0, 12000.0},
	}, history.Geometry.LineString)
	assert.Equal(t, 2, res.VerticesRemoved)
}

func TestConvert_CustomPrefixAndRemoveID(t *testing.T) {
	opts := trackerOptions()
	opts.IDPrefix = "balloon"
	opts.RemoveID = true

	res, err := convert(t, opts, "https://api.example.com/track", fixtures.LoadGeoJSON(t, "strato.geojson"))
	require.NoError(t, err)
	byID(t, res.Collection, "balloon-HBAL-123-current")
	byID(t, res.Collection, "balloon-HBAL-123-history")
}

func TestConvert_MissingNameAndAltitude(t *testing.T) {
	body := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"pos-7","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"speed":1}},
		{"type":"Feature","geometry":null,"properties":{"name":"ghost"}}
	]}`)

	res, err := convert(t, trackerOptions(), "https://api.example.com/track", body)
	require.NoError(t, err)
	require.Len(t, res.Collection.Features, 1)

	f := res.Collection.Features[0]
	assert.Equal(t, "strato-pos-7-current", f.ID)
	assert.Equal(t, []float64{3, 4}, f.Geometry.Point)
	assert.NotContains(t, f.Properties, "course")
	assert.Equal(t, 1.0, f.Properties["speed"])
}

func TestConvert_NameFallsBackToContentHash(t *testing.T) {
	body := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"pos-7","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"altitude":"120.5"}}
	]}`)
	opts := trackerOptions()
	opts.RemoveID = true

	res, err := convert(t, opts, "https://api.example.com/track", body)
	require.NoError(t, err)
	f := res.Collection.Features[0]
	assert.Regexp(t, `^strato-[0-9a-f-]{36}-current$`, f.ID)
	assert.Equal(t, []float64{3, 4, 120.5}, f.Geometry.Point)
}

func TestConvert_ReplacesExistingZ(t *testing.T) {
	body := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[3,4,99]},"properties":{"name":"Z","altitude":7}}
	]}`)

	res, err := convert(t, trackerOptions(), "https://api.example.com/track", body)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 7}, res.Collection.Features[0].Geometry.Point)
}

func TestConvert_PassthroughLayout(t *testing.T) {
	opts := trackerOptions()
	opts.Layout = config.LayoutPassthrough
	body := fixtures.LoadGeoJSON(t, "too_many.geojson")

	res, err := convert(t, opts, "https://api.example.com/track", body)
	require.NoError(t, err, "passthrough has no feature limit")
	require.Len(t, res.Collection.Features, 3)
	assert.Equal(t, 3, res.Emitted[KindPassthrough])

	again, err := convert(t, opts, "https://api.example.com/track", body)
	require.NoError(t, err)

	seen := map[interface{}]bool{}
	for i, f := range res.Collection.Features {
		assert.Equal(t, f.ID, again.Collection.Features[i].ID, "content hash IDs are stable")
		assert.Equal(t, []float64{float64(i + 1), float64(i + 1)}, f.Geometry.Point, "geometry untouched")
		seen[f.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestConvert_PassthroughKeepsProvidedID(t *testing.T) {
	opts := trackerOptions()
	opts.Layout = config.LayoutPassthrough
	body := fixtures.LoadGeoJSON(t, "strato.geojson")

	res, err := convert(t, opts, "https://api.example.com/track", body)
	require.NoError(t, err)
	assert.Equal(t, "hbal-123-pos", res.Collection.Features[0].ID)
	assert.Equal(t, "hbal-123-track", res.Collection.Features[1].ID)

	opts.RemoveID = true
	res, err = convert(t, opts, "https://api.example.com/track", body)
	require.NoError(t, err)
	assert.NotEqual(t, "hbal-123-pos", res.Collection.Features[0].ID)
	assert.Equal(t, ContentHash(res.Collection.Features[0]), res.Collection.Features[0].ID)
}

func TestContentHash_IgnoresID(t *testing.T) {
	a := geojson.NewPointFeature([]float64{1, 2})
	a.Properties["name"] = "x"
	b := geojson.NewPointFeature([]float64{1, 2})
	b.Properties["name"] = "x"
	b.ID = "upstream"

	assert.Equal(t, ContentHash(a), ContentHash(b))

	b.Properties["name"] = "y"
	assert.NotEqual(t, ContentHash(a), ContentHash(b))
}
