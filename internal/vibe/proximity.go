package vibe

import "github.com/nerrad567/gray-logic-lux/internal/lighting"

// moodProximity lists, for each mood, its nearest neighbours in order of
// preference. ConstrainMood walks this list before using the fallback.
var moodProximity = map[string][]string{
	"peaceful":   {"calm", "dreamy", "playful"},
	"calm":       {"peaceful", "dreamy", "playful"},
	"dreamy":     {"calm", "peaceful", "playful"},
	"playful":    {"festive", "euphoric", "energetic", "calm"},
	"festive":    {"playful", "euphoric", "energetic"},
	"euphoric":   {"festive", "playful", "energetic", "dramatic"},
	"dark":       {"dramatic", "tense", "calm"},
	"dramatic":   {"dark", "tense", "energetic", "euphoric"},
	"aggressive": {"dramatic", "tense", "energetic", "dark"},
	"energetic":  {"dramatic", "euphoric", "festive", "playful"},
	"tense":      {"dramatic", "dark", "energetic", "aggressive"},
}

// emotionMoods groups moods under the meta-emotion they express.
var emotionMoods = map[lighting.MetaEmotion][]string{
	lighting.EmotionBright:  {"festive", "euphoric", "playful", "energetic"},
	lighting.EmotionDark:    {"dark", "dramatic", "tense", "aggressive"},
	lighting.EmotionNeutral: {"calm", "peaceful", "dreamy"},
}

// emotionOrder fixes the search order when no emotion matches directly.
var emotionOrder = []lighting.MetaEmotion{
	lighting.EmotionNeutral,
	lighting.EmotionBright,
	lighting.EmotionDark,
}

// closestMood returns the first neighbour of target that the vibe allows.
func closestMood(target string, p *Profile) (string, bool) {
	for _, candidate := range moodProximity[target] {
		if p.AllowsMood(candidate) {
			return candidate, true
		}
	}
	return "", false
}
