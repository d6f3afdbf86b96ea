package converter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/etl-strato/config"
	"github.com/theoremus-urban-solutions/etl-strato/internal/logging"
	"github.com/theoremus-urban-solutions/etl-strato/simplify"
)

// Converter reshapes upstream feature collections according to Options
type Converter struct {
	opts Options
	log  *zap.Logger
}

// NewConverter creates a new converter instance
func NewConverter(opts Options, log *zap.Logger) *Converter {
	if opts.Layout == "" {
		opts.Layout = config.LayoutTracker
	}
	if opts.IDPrefix == "" {
		opts.IDPrefix = config.DefaultIDPrefix
	}
	return &Converter{opts: opts, log: logging.OrNop(log)}
}

// Decode parses body and checks it is a FeatureCollection
func Decode(body []byte) (*geojson.FeatureCollection, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ValidationError{Msg: "Response is not a JSON object", Err: err}
	}
	if envelope.Type != "FeatureCollection" {
		return nil, &ValidationError{Msg: "Only FeatureCollection is supported"}
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &ValidationError{Msg: "Malformed FeatureCollection", Err: err}
	}
	return fc, nil
}

// Convert runs one transform pass over body. requestURL is the URL the body
// was fetched from; its satellite parameter drives the name filter.
func (c *Converter) Convert(requestURL *url.URL, body []byte) (*Result, error) {
	in, err := Decode(body)
	if err != nil {
		return nil, err
	}

	res := newResult(len(in.Features))
	features := FilterSatellite(in.Features, satelliteFrom(requestURL))
	res.Retained = len(features)

	if c.opts.Layout == config.LayoutTracker && c.opts.MaxFeatures > 0 && len(features) > c.opts.MaxFeatures {
		return nil, &ValidationError{Msg: fmt.Sprintf("API Should only return %d features", c.opts.MaxFeatures)}
	}

	warnings := NewWarningAggregator()
	for _, f := range features {
		if c.opts.RemoveID {
			f.ID = nil
		}
		if f.Properties == nil {
			f.Properties = map[string]interface{}{}
		}
		switch c.opts.Layout {
		case config.LayoutPassthrough:
			c.passthrough(f, res)
		default:
			c.track(f, warnings, res)
		}
	}
	warnings.LogAll(c.log, c.opts.IDPrefix)

	c.log.Debug("converted feature collection",
		zap.Int("fetched", res.Fetched),
		zap.Int("retained", res.Retained),
		zap.Int("emitted", len(res.Collection.Features)),
		zap.Int("vertices_removed", res.VerticesRemoved),
	)
	return res, nil
}

// track implements the tracker layout for a single feature
func (c *Converter) track(f *geojson.Feature, w *WarningAggregator, res *Result) {
	if f.Geometry == nil {
		w.Add(WarningNoGeometry, describe(f))
		return
	}
	name := c.nameFor(f, w)

	if f.Geometry.IsPoint() {
		if len(f.Geometry.Point) < 2 {
			w.Add(WarningEmptyPosition, name)
			return
		}
		if alt, ok := altitude(f.Properties); ok {
			f.Geometry.Point = append(f.Geometry.Point[:2:2], alt)
		} else {
			w.Add(WarningNoAltitude, name)
		}

		out := geojson.NewFeature(f.Geometry)
		out.ID = c.featureID(name, KindCurrent)
		for _, key := range []string{"course", "speed"} {
			if v, ok := f.Properties[key]; ok {
				out.Properties[key] = v
			}
		}
		out.Properties["metadata"] = f.Properties
		res.add(out, KindCurrent)
		return
	}

	if !c.opts.ShowTrackHistory {
		res.SkippedTracks++
		return
	}
	if c.opts.SimplifyTrackHistory {
		res.VerticesRemoved += simplify.Geometry(f.Geometry, c.opts.Tolerance)
	}

	out := geojson.NewFeature(f.Geometry)
	out.ID = c.featureID(name, KindHistory)
	out.Properties["metadata"] = f.Properties
	res.add(out, KindHistory)
}

// passthrough forwards the feature, deriving an ID when none is left
func (c *Converter) passthrough(f *geojson.Feature, res *Result) {
	if !hasID(f) {
		f.ID = ContentHash(f)
	}
	res.add(f, KindPassthrough)
}

func (c *Converter) featureID(name, kind string) string {
	return c.opts.IDPrefix + "-" + name + "-" + kind
}

// nameFor returns the feature name, falling back to the upstream ID and then
// to the content hash
func (c *Converter) nameFor(f *geojson.Feature, w *WarningAggregator) string {
	if name, ok := f.Properties["name"].(string); ok && name != "" {
		return name
	}
	fallback := ContentHash(f)
	if hasID(f) {
		fallback = fmt.Sprint(f.ID)
	}
	w.Add(WarningNoName, fallback)
	return fallback
}

// FilterSatellite keeps features whose name equals satellite ignoring case.
// An empty satellite keeps everything except null features.
func FilterSatellite(features []*geojson.Feature, satellite string) []*geojson.Feature {
	want := strings.ToLower(satellite)
	out := make([]*geojson.Feature, 0, len(features))
	for _, f := range features {
		if f == nil {
			continue
		}
		if want != "" {
			name, ok := f.Properties["name"].(string)
			if !ok || strings.ToLower(name) != want {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func satelliteFrom(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Query().Get(SatelliteParam)
}

// altitude reads properties.altitude, accepting numbers and numeric strings
func altitude(props map[string]interface{}) (float64, bool) {
	switch v := props["altitude"].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func hasID(f *geojson.Feature) bool {
	switch id := f.ID.(type) {
	case nil:
		return false
	case string:
		return id != ""
	}
	return true
}

func describe(f *geojson.Feature) string {
	if name, ok := f.Properties["name"].(string); ok && name != "" {
		return name
	}
	if hasID(f) {
		return fmt.Sprint(f.ID)
	}
	return "unnamed"
}
