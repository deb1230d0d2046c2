// Package constitution enforces per-vibe colour law.
//
// Each vibe has a Constitution that decides which hues are legal and how
// saturated and bright colours may be. Illegal colours are never rejected;
// they are moved. Apply runs the rules in a fixed order:
//
//  1. hue normalisation into [0, 360)
//  2. thermal gravity toward the cold (240°) or warm (40°) pole
//  3. remap bands, which move whole hue bands to a target
//  4. elastic rotation out of forbidden or non-allowed hues
//  5. saturation and lightness clamp
//  6. mud guard, which lifts muddy yellows and oranges
//  7. neon protocol for non-primary roles
//
// Constitutions are immutable and loaded from an embedded YAML registry.
// An unknown vibe ID resolves to the idle constitution.
package constitution
