package room

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the fixed set of colors a room hands out to members before
// falling back to generated hues. Ten entries, matching the teacher's
// swatch row generalized from five to a full ten-color palette moved
// server-side.
var Palette = [10]string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
}

const goldenRatioConjugate = 0.618033988749895

// assignColor derives the next color for a joining member purely from the
// current membership set, per spec.md's "Color pool" design note: no
// separate free-list is tracked, so a color always reflects who is
// actually present rather than drifting out of sync with membership.
func assignColor(members map[string]*Session) string {
	used := make(map[string]bool, len(members))
	for _, s := range members {
		used[s.Color] = true
	}
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return rotatingHue(len(members))
}

// rotatingHue generates a deterministic color once the fixed palette is
// exhausted, rotating the hue by the golden ratio conjugate per seed step
// so consecutive colors stay visually distinct — the same technique used
// for cursor colors in the retrieved whiteboard-backend reference, ported
// from a package-global counter to a pure function of the seed so it never
// needs its own mutex.
func rotatingHue(seed int) string {
	hue := float64(seed) * goldenRatioConjugate
	hue -= float64(int(hue))
	return colorful.Hsl(hue*360, 0.85, 0.55).Hex()
}
