package task

import (
	"fmt"
	"strings"

	"github.com/theoremus-urban-solutions/etl-strato/config"
)

// SchemaType selects the input (environment) or output schema
type SchemaType string

// Flow is the platform data flow direction
type Flow string

const (
	SchemaInput  SchemaType = "input"
	SchemaOutput SchemaType = "output"

	FlowIncoming Flow = "incoming"
	FlowOutgoing Flow = "outgoing"
)

// ParseSchemaType parses "input" or "output", defaulting to input when empty
func ParseSchemaType(s string) (SchemaType, error) {
	switch SchemaType(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemaInput:
		return SchemaInput, nil
	case SchemaOutput:
		return SchemaOutput, nil
	}
	return "", fmt.Errorf("unknown schema type %q (want input or output)", s)
}

// ParseFlow parses "incoming" or "outgoing", defaulting to incoming when empty
func ParseFlow(s string) (Flow, error) {
	switch Flow(strings.ToLower(strings.TrimSpace(s))) {
	case "", FlowIncoming:
		return FlowIncoming, nil
	case FlowOutgoing:
		return FlowOutgoing, nil
	}
	return "", fmt.Errorf("unknown flow %q (want incoming or outgoing)", s)
}

// Schema returns the JSON schema for typ and flow. Only the incoming input
// schema has properties; every other combination is an empty object.
func Schema(typ SchemaType, flow Flow) map[string]interface{} {
	if flow == FlowIncoming && typ == SchemaInput {
		return environmentSchema()
	}
	return objectSchema(map[string]interface{}{})
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func keyValueList() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": objectSchema(map[string]interface{}{
			"key":   map[string]interface{}{"type": "string"},
			"value": map[string]interface{}{"type": "string"},
		}, "key", "value"),
	}
}

func environmentSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"URL": map[string]interface{}{
			"type": "string",
		},
		"QueryParams": keyValueList(),
		"Headers":     keyValueList(),
		"RemoveID": map[string]interface{}{
			"type":        "boolean",
			"default":     false,
			"description": "Remove the provided ID falling back to an Object Hash or Style Override",
		},
		"ShowTrackHistory": map[string]interface{}{
			"type":        "boolean",
			"default":     true,
			"description": "If true pass through historic track",
		},
		"SimplifyTrackHistory": map[string]interface{}{
			"type":        "boolean",
			"default":     false,
			"description": "Apply a simplification algo to the track history",
		},
		"SimplifyTrackHistoryTolerance": map[string]interface{}{
			"type":        "string",
			"default":     config.DefaultTolerance,
			"description": "Simplification tolerance for Ramer-Douglas-Peucker algorithm",
		},
		"IDPrefix": map[string]interface{}{
			"type":        "string",
			"default":     config.DefaultIDPrefix,
			"description": "Prefix of the synthesized current and history feature IDs",
		},
		"Layout": map[string]interface{}{
			"type":        "string",
			"enum":        []string{config.LayoutTracker, config.LayoutPassthrough},
			"default":     config.LayoutTracker,
			"description": "tracker splits current position and track; passthrough forwards features",
		},
		"TimeoutMS": map[string]interface{}{
			"type":        "integer",
			"minimum":     0,
			"default":     config.DefaultTimeoutMS,
			"description": "Upstream request timeout in milliseconds, 0 disables it",
		},
	}, "URL", "RemoveID", "ShowTrackHistory", "SimplifyTrackHistory", "SimplifyTrackHistoryTolerance")
}
