package formatter

import (
	"encoding/json"
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

type responseBuilder struct {
	indent string
}

// NewResponseBuilder creates a builder; pretty output indents with two spaces
func NewResponseBuilder(pretty bool) *responseBuilder {
	rb := &responseBuilder{}
	if pretty {
		rb.indent = "  "
	}
	return rb
}

// BuildJSON serializes a feature collection to JSON. A nil collection is
// encoded as an empty FeatureCollection.
func (rb *responseBuilder) BuildJSON(fc *geojson.FeatureCollection) ([]byte, error) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	var (
		b   []byte
		err error
	)
	if rb.indent != "" {
		b, err = json.MarshalIndent(fc, "", rb.indent)
	} else {
		b, err = json.Marshal(fc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}
	return b, nil
}
