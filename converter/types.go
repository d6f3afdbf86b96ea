package converter

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/theoremus-urban-solutions/etl-strato/config"
)

// MaxTrackerFeatures is the number of features the tracker API contract allows
// per fetch: one current position and one track
const MaxTrackerFeatures = 2

// SatelliteParam is the query parameter the satellite filter reads
const SatelliteParam = "satellite"

// Kinds of emitted features
const (
	KindCurrent     = "current"
	KindHistory     = "history"
	KindPassthrough = "passthrough"
)

// Options contains everything the converter needs for one invocation.
// It has no dependency on how the options were loaded.
type Options struct {
	// Layout is config.LayoutTracker or config.LayoutPassthrough
	Layout string

	// IDPrefix prefixes synthesized tracker IDs
	IDPrefix string

	// RemoveID drops the upstream feature ID
	RemoveID bool

	// ShowTrackHistory emits non-Point features in the tracker layout
	ShowTrackHistory bool

	// SimplifyTrackHistory runs Ramer-Douglas-Peucker over the track with Tolerance
	SimplifyTrackHistory bool
	Tolerance            float64

	// MaxFeatures bounds the tracker layout; zero disables the check
	MaxFeatures int
}

// OptionsFromEnvironment maps a loaded environment onto converter options
func OptionsFromEnvironment(env config.Environment) Options {
	return Options{
		Layout:               env.Layout,
		IDPrefix:             env.IDPrefix,
		RemoveID:             env.RemoveID,
		ShowTrackHistory:     env.ShowTrackHistory,
		SimplifyTrackHistory: env.SimplifyTrackHistory,
		Tolerance:            env.Tolerance(),
		MaxFeatures:          MaxTrackerFeatures,
	}
}

// Result is the converted collection plus counters describing the pass
type Result struct {
	Collection *geojson.FeatureCollection

	// Fetched is the number of upstream features, Retained the number left
	// after the satellite filter
	Fetched  int
	Retained int

	// Emitted counts output features by kind
	Emitted map[string]int

	// SkippedTracks counts tracks dropped because track history is disabled
	SkippedTracks int

	// VerticesRemoved counts positions removed by simplification
	VerticesRemoved int
}

func newResult(fetched int) *Result {
	return &Result{
		Collection: geojson.NewFeatureCollection(),
		Fetched:    fetched,
		Emitted:    map[string]int{},
	}
}

func (r *Result) add(f *geojson.Feature, kind string) {
	r.Collection.AddFeature(f)
	r.Emitted[kind]++
}

// ValidationError reports an upstream document that breaks the API contract
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }
