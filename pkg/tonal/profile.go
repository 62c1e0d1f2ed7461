package tonal

import "gonum.org/v1/gonum/floats"

// Profile is a 12-bin pitch-class energy vector indexed from C.
type Profile [NumPitchClasses]float64

// Krumhansl-Kessler probe-tone ratings for C major and C minor.
var (
	krumhanslMajor = Profile{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	krumhanslMinor = Profile{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// Unit-length templates, built once and only ever handed out by value.
var (
	majorTemplate = unitProfile(krumhanslMajor)
	minorTemplate = unitProfile(krumhanslMinor)
)

func unitProfile(raw Profile) Profile {
	var out Profile
	floats.ScaleTo(out[:], 1/floats.Norm(raw[:], 2), raw[:])
	return out
}

// MajorTemplate returns a copy of the unit-normalized C major template.
func MajorTemplate() Profile { return majorTemplate }

// MinorTemplate returns a copy of the unit-normalized C minor template.
func MinorTemplate() Profile { return minorTemplate }

// Rotate transposes p up by k semitones: the energy at pitch class j moves to
// pitch class j+k (mod 12). Rotating a C template by k therefore yields the
// template of the key whose tonic is k semitones above C. The result is an
// independent copy.
func Rotate(p Profile, k int) Profile {
	var out Profile
	for j, v := range p {
		out[mod12(j+k)] = v
	}
	return out
}

// Slice returns the profile as a freshly allocated slice.
func (p Profile) Slice() []float64 {
	out := make([]float64, NumPitchClasses)
	copy(out, p[:])
	return out
}
