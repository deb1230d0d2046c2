package palette

import "strings"

// keyHues places the twelve pitch classes on the colour wheel.
var keyHues = map[string]float64{
	"C": 0, "C#": 30, "Db": 30,
	"D": 60, "D#": 90, "Eb": 90,
	"E": 120,
	"F": 150, "F#": 180, "Gb": 180,
	"G": 210, "G#": 240, "Ab": 240,
	"A": 270, "A#": 300, "Bb": 300,
	"B": 330,
}

// moodHues is used when the key is unknown.
var moodHues = map[string]float64{
	"happy":          50,
	"sad":            240,
	"tense":          0,
	"dreamy":         280,
	"bluesy":         30,
	"jazzy":          260,
	"spanish_exotic": 15,
	"universal":      120,
	"dark":           240,
	"bright":         50,
	"neutral":        120,
}

type modeModifier struct {
	hue, sat, light float64
}

var modeModifiers = map[string]modeModifier{
	"major":            {15, 0.10, 0.10},
	"ionian":           {15, 0.10, 0.10},
	"lydian":           {20, 0.15, 0.15},
	"mixolydian":       {10, 0.10, 0.05},
	"minor":            {-15, -0.10, -0.10},
	"aeolian":          {-15, -0.10, -0.10},
	"dorian":           {-5, 0, 0},
	"phrygian":         {-20, 0.05, -0.10},
	"locrian":          {-30, -0.15, -0.20},
	"harmonic_minor":   {-10, -0.05, -0.10},
	"melodic_minor":    {-5, 0, -0.05},
	"pentatonic_major": {10, 0.10, 0.05},
	"pentatonic_minor": {0, 0.05, -0.05},
	"blues":            {-10, 0.05, -0.10},
}

// KeyHue returns the wheel hue for a key such as "F#", "Bb" or "Am".
// A trailing "m" (minor) is ignored.
func KeyHue(key string) (float64, bool) {
	k := strings.TrimSpace(key)
	if len(k) > 1 && strings.HasSuffix(k, "m") {
		k = strings.TrimSuffix(k, "m")
	}
	if k == "" {
		return 0, false
	}
	k = strings.ToUpper(k[:1]) + k[1:]
	h, ok := keyHues[k]
	return h, ok
}

// MoodHue returns the wheel hue for a mood label.
func MoodHue(mood string) (float64, bool) {
	h, ok := moodHues[strings.ToLower(strings.TrimSpace(mood))]
	return h, ok
}
