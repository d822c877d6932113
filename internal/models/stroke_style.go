package models

// StrokeStyle is the HKSwimmingStrokeStyle code attached to a lap event.
type StrokeStyle int

const (
	StrokeUnknown StrokeStyle = iota
	StrokeMixed
	StrokeFreestyle
	StrokeBackstroke
	StrokeBreaststroke
	StrokeButterfly
	StrokeKick
)

// StyleMixed labels a group whose laps were swum in more than one style.
const StyleMixed = "Mixed"

type strokeStyleNames struct {
	label string
	name  string
}

// strokeStyles maps every known code to its table label and its long name.
var strokeStyles = map[StrokeStyle]strokeStyleNames{
	StrokeUnknown:      {"??", "Unknown"},
	StrokeMixed:        {StyleMixed, "Mixed"},
	StrokeFreestyle:    {"Fr", "Freestyle"},
	StrokeBackstroke:   {"Bc", "Backstroke"},
	StrokeBreaststroke: {"Br", "Breaststroke"},
	StrokeButterfly:    {"Fly", "Butterfly"},
	StrokeKick:         {"Kick", "Kick"},
}

// Label returns the short table label for a style code, and false when the
// code is outside the known set.
func (s StrokeStyle) Label() (string, bool) {
	n, ok := strokeStyles[s]
	return n.label, ok
}

// Name returns the long name ("Freestyle"), or "" for unmapped codes.
func (s StrokeStyle) Name() string {
	return strokeStyles[s].name
}
