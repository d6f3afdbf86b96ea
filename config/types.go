package config

// Layouts select how fetched features are reshaped
const (
	LayoutTracker     = "tracker"
	LayoutPassthrough = "passthrough"
)

// Defaults
const (
	DefaultIDPrefix  = "strato"
	DefaultTolerance = "1"
	DefaultTimeoutMS = 10000
)

// KeyValue is a single query parameter or header
type KeyValue struct {
	Key   string `yaml:"key" json:"key" validate:"required"`
	Value string `yaml:"value" json:"value"`
}

// Environment contains the options recognized for one invocation
type Environment struct {
	URL         string     `yaml:"URL" validate:"required,url"`
	QueryParams []KeyValue `yaml:"QueryParams" validate:"dive"`
	Headers     []KeyValue `yaml:"Headers" validate:"dive"`

	// RemoveID drops the provided feature ID, falling back to a derived ID
	RemoveID bool `yaml:"RemoveID"`
	// ShowTrackHistory passes the historic track through
	ShowTrackHistory bool `yaml:"ShowTrackHistory"`
	// SimplifyTrackHistory applies Ramer-Douglas-Peucker to the track
	SimplifyTrackHistory          bool   `yaml:"SimplifyTrackHistory"`
	SimplifyTrackHistoryTolerance string `yaml:"SimplifyTrackHistoryTolerance" validate:"tolerance"`

	IDPrefix  string `yaml:"IDPrefix" validate:"required"`
	Layout    string `yaml:"Layout" validate:"oneof=tracker passthrough"`
	TimeoutMS int    `yaml:"TimeoutMS" validate:"gte=0"`
}

// Default returns an Environment populated with the documented defaults
func Default() Environment {
	return Environment{
		ShowTrackHistory:              true,
		SimplifyTrackHistoryTolerance: DefaultTolerance,
		IDPrefix:                      DefaultIDPrefix,
		Layout:                        LayoutTracker,
		TimeoutMS:                     DefaultTimeoutMS,
	}
}
