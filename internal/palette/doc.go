// Package palette derives the four-colour frame palette from music.
//
// The primary hue comes from the musical key on a circle-of-fifths colour
// wheel, falling back to the mood and then to the stable meta-emotion. The
// mode and the emotion nudge hue and saturation; energy only touches
// saturation and lightness, never hue. The colour strategy places the
// secondary, accent and ambient hues around the primary.
//
// When a constitution is supplied its forced strategy, tropical mirror and
// ambient lock shape the palette, and every colour is passed through
// Constitution.Apply so the result is always legal for the vibe.
package palette
