package roommanager

import "math/rand"

// Whimsical display names handed to joiners who don't supply one. No
// library in the retrieved corpus generates names like this — see
// DESIGN.md for why a small stdlib word list stays a plain-Go feature
// rather than reaching for a new, otherwise-unused dependency.
var (
	nameAdjectives = []string{
		"Curious", "Bright", "Quiet", "Swift", "Gentle", "Bold", "Lucky",
		"Clever", "Merry", "Vivid", "Nimble", "Cheerful", "Sunny", "Brave",
	}
	nameNouns = []string{
		"Otter", "Falcon", "Maple", "Comet", "Pebble", "Willow", "Lantern",
		"Sparrow", "Harbor", "Meadow", "Ember", "Marble", "Ripple", "Fox",
	}
)

func whimsicalName() string {
	adj := nameAdjectives[rand.Intn(len(nameAdjectives))]
	noun := nameNouns[rand.Intn(len(nameNouns))]
	return adj + " " + noun
}
