// Package lighting holds the shared vocabulary of the lux engine.
//
// It defines the categorical values that flow between the stabilizers, the
// vibe constraint provider, the colour constitutions and the orchestrator
// (meta-emotions, colour strategies, song sections, fixture zones) together
// with the HSL colour type used for all internal hue maths.
//
// Hue is carried in degrees internally and only converted to a [0,1]
// fraction of a turn when a LightingIntent is emitted.
package lighting
