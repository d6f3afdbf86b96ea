package converter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Warning type constants
const (
	WarningNoName        = "no_name"
	WarningNoAltitude    = "no_altitude"
	WarningNoGeometry    = "no_geometry"
	WarningEmptyPosition = "empty_position"
)

// warningInfo holds aggregated information about a specific warning type
type warningInfo struct {
	count    int
	examples []string
}

// WarningAggregator collects warnings during conversion and outputs consolidated summaries
type WarningAggregator struct {
	warnings map[string]*warningInfo
	order    []string
}

// NewWarningAggregator creates a new warning aggregator
func NewWarningAggregator() *WarningAggregator {
	return &WarningAggregator{
		warnings: make(map[string]*warningInfo),
	}
}

// Add records a warning occurrence with an example ID
func (w *WarningAggregator) Add(warningType, exampleID string) {
	if w.warnings[warningType] == nil {
		w.warnings[warningType] = &warningInfo{
			examples: make([]string, 0, 3),
		}
		w.order = append(w.order, warningType)
	}

	info := w.warnings[warningType]
	info.count++

	// Store up to 3 examples
	if len(info.examples) < 3 {
		info.examples = append(info.examples, exampleID)
	}
}

// Count returns the number of occurrences recorded for warningType
func (w *WarningAggregator) Count(warningType string) int {
	if info := w.warnings[warningType]; info != nil {
		return info.count
	}
	return 0
}

// LogAll outputs all collected warnings in consolidated format, in the order
// they were first seen
func (w *WarningAggregator) LogAll(log *zap.Logger, source string) {
	for _, warningType := range w.order {
		info := w.warnings[warningType]
		log.Warn(w.formatWarningMessage(warningType, source, info),
			zap.String("warning", warningType),
			zap.Int("occurrences", info.count),
			zap.Strings("examples", info.examples),
		)
	}
}

// formatWarningMessage creates a human-readable warning message
func (w *WarningAggregator) formatWarningMessage(warningType, source string, info *warningInfo) string {
	var description, action string

	switch warningType {
	case WarningNoName:
		description = "features with no properties.name"
		action = "Using the provided ID or a content hash in the output ID"
	case WarningNoAltitude:
		description = "positions with no numeric properties.altitude"
		action = "Emitting the position without a third ordinate"
	case WarningNoGeometry:
		description = "features with a null geometry"
		action = "Dropping the feature"
	case WarningEmptyPosition:
		description = "Point features with fewer than two ordinates"
		action = "Dropping the feature"
	default:
		description = "unknown issue"
		action = "Continuing with fallback behavior"
	}

	return fmt.Sprintf("Feed %s has %s (%d occurrences). %s. Examples: %s",
		source, description, info.count, action, strings.Join(info.examples, ", "))
}
