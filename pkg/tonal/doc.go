// Package tonal estimates the key signature (tonic and mode) of a piece of
// music from its 12-bin pitch-class profile.
//
// Profiles are indexed in ascending semitones from C (0=C, 1=C#, ..., 11=B).
// The estimator correlates the unit-normalized input against the 24 rotations
// of the Krumhansl-Kessler major and minor key templates and returns the best
// scoring key. Everything in this package is pure and safe for concurrent use.
package tonal
