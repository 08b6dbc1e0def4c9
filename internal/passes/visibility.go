package passes

// Visibility labels.
const (
	LabelVisible    = "Likely visible"
	LabelInShadow   = "Not visible (satellite in shadow)"
	LabelBrightSky  = "Not visible (sky too bright)"
	LabelNotVisible = "Not visible"
)

// DefaultTwilightDeg is the civil-twilight Sun altitude.
const DefaultTwilightDeg = -6.0

// Classify applies the naked-eye heuristic: the sky must be at least as dark as
// the twilight threshold and the satellite must be in sunlight.
func Classify(sunAltDeg float64, sunlit bool, twilightDeg float64) (visible bool, label string) {
	dark := sunAltDeg <= twilightDeg
	switch {
	case dark && sunlit:
		return true, LabelVisible
	case dark:
		return false, LabelInShadow
	case sunlit:
		return false, LabelBrightSky
	default:
		return false, LabelNotVisible
	}
}
