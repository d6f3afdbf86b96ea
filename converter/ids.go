package converter

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
)

// idNamespace scopes content-hash IDs to this task
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/theoremus-urban-solutions/etl-strato"))

// ContentHash derives a stable ID from the feature geometry and properties.
// The upstream ID is not part of the hash.
func ContentHash(f *geojson.Feature) string {
	content := struct {
		Geometry   *geojson.Geometry      `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}{f.Geometry, f.Properties}

	b, err := json.Marshal(content)
	if err != nil {
		// NaN or Inf in properties; fmt prints maps with sorted keys
		b = fmt.Appendf(nil, "%v|%v", f.Geometry, f.Properties)
	}
	return uuid.NewSHA1(idNamespace, b).String()
}
