package tonal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScoreTolerance is the distance below which two correlation scores are
// treated as equal when picking a winner.
const ScoreTolerance = 1e-9

// KeyAnalysis is the full outcome of scoring a profile against all 24 keys.
type KeyAnalysis struct {
	Key Key
	// Correlation is the score of the winning key, in [-1, 1].
	Correlation float64
	// MajorScores[i] and MinorScores[i] are the scores of the keys with tonic i.
	MajorScores [NumPitchClasses]float64
	MinorScores [NumPitchClasses]float64
}

// EstimateKey returns the key whose template correlates best with profile.
//
// Scores closer than ScoreTolerance are ties. Ties between tonics go to the
// lowest pitch class. Major is chosen only when the best major score exceeds
// the best minor score by more than ScoreTolerance, so a tie goes to minor.
func EstimateKey(profile []float64) (Key, error) {
	a, err := Analyze(profile)
	if err != nil {
		return Key{}, err
	}
	return a.Key, nil
}

// Analyze validates and scores profile and reports the winner together with
// every per-key score.
func Analyze(profile []float64) (KeyAnalysis, error) {
	normalized, err := normalize(profile)
	if err != nil {
		return KeyAnalysis{}, err
	}

	var a KeyAnalysis
	for i := 0; i < NumPitchClasses; i++ {
		major := Rotate(majorTemplate, i)
		minor := Rotate(minorTemplate, i)
		a.MajorScores[i] = floats.Dot(normalized[:], major[:])
		a.MinorScores[i] = floats.Dot(normalized[:], minor[:])
	}

	a.Key, a.Correlation = selectKey(a.MajorScores, a.MinorScores)
	return a, nil
}

func normalize(profile []float64) (Profile, error) {
	var out Profile
	if len(profile) != NumPitchClasses {
		return out, &ShapeError{Len: len(profile)}
	}
	for i, v := range profile {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, &DegenerateInputError{Reason: fmt.Sprintf("bin %d is not finite", i)}
		}
		if v < 0 {
			return out, &DegenerateInputError{Reason: fmt.Sprintf("bin %d is negative", i)}
		}
	}

	norm := floats.Norm(profile, 2)
	if norm == 0 {
		return out, &DegenerateInputError{Reason: "profile has no energy"}
	}
	floats.ScaleTo(out[:], 1/norm, profile)
	return out, nil
}

func selectKey(major, minor [NumPitchClasses]float64) (Key, float64) {
	bestMajor := argmax(major)
	bestMinor := argmax(minor)

	if major[bestMajor]-minor[bestMinor] > ScoreTolerance {
		return Key{Tonic: PitchClass(bestMajor), Mode: Major}, major[bestMajor]
	}
	return Key{Tonic: PitchClass(bestMinor), Mode: Minor}, minor[bestMinor]
}

// argmax returns the lowest index whose score is within ScoreTolerance of the
// maximum.
func argmax(scores [NumPitchClasses]float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	for i := 0; i < best; i++ {
		if scores[best]-scores[i] <= ScoreTolerance {
			return i
		}
	}
	return best
}
