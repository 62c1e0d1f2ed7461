// Package tempo estimates a global tempo from the autocorrelation of a
// signal's RMS energy envelope.
package tempo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBPM is reported when no periodicity can be found.
const DefaultBPM = 120.0

type Config struct {
	FrameSeconds  float64 // RMS frame length
	HopSeconds    float64 // RMS hop
	MinBPM        float64
	MaxBPM        float64
	PeakTolerance float64 // relative margin a slower peak needs to beat a faster one
	MinStrength   float64 // minimum normalized autocorrelation of the chosen peak
	MinVariation  float64 // minimum envelope std/mean; flatter envelopes have no beat
}

func DefaultConfig() Config {
	return Config{
		FrameSeconds:  0.1,
		HopSeconds:    0.025,
		MinBPM:        60,
		MaxBPM:        180,
		PeakTolerance: 0.02,
		MinStrength:   0.35,
		MinVariation:  0.05,
	}
}

type Result struct {
	BPM      float64
	Detected bool
	Strength float64 // autocorrelation at the chosen lag, 0 when not detected
}

func fallback() Result {
	return Result{BPM: DefaultBPM}
}

// Estimate returns the dominant tempo of samples. It never fails: signals that
// are too short, silent or aperiodic yield DefaultBPM with Detected=false.
func Estimate(samples []float64, sampleRate int, cfg Config) Result {
	if sampleRate <= 0 || cfg.HopSeconds <= 0 || cfg.FrameSeconds <= 0 || cfg.MinBPM <= 0 || cfg.MaxBPM <= cfg.MinBPM {
		return fallback()
	}

	frame := int(math.Round(cfg.FrameSeconds * float64(sampleRate)))
	hop := int(math.Round(cfg.HopSeconds * float64(sampleRate)))
	if frame < 1 || hop < 1 {
		return fallback()
	}

	env := Envelope(samples, frame, hop)
	if len(env) < 2 {
		return fallback()
	}
	if mean := stat.Mean(env, nil); mean <= 0 || stat.StdDev(env, nil)/mean < cfg.MinVariation {
		return fallback()
	}
	envRate := float64(sampleRate) / float64(hop)

	minLag := int(math.Ceil(60 * envRate / cfg.MaxBPM))
	maxLag := int(math.Floor(60 * envRate / cfg.MinBPM))
	if minLag < 1 {
		minLag = 1
	}
	if len(env) < 2*maxLag+2 || minLag >= maxLag {
		return fallback()
	}

	ac := autocorrelation(env, maxLag+1)
	if ac == nil {
		return fallback()
	}

	bestLag, bestVal := 0, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		v := ac[lag]
		if v <= 0 || v < ac[lag-1] || (lag+1 < len(ac) && v < ac[lag+1]) {
			continue
		}
		// Lags ascend, so earlier peaks are faster tempi; a slower one must be
		// clearly stronger to replace them.
		if bestLag == 0 || v > bestVal*(1+cfg.PeakTolerance) {
			bestLag, bestVal = lag, v
		}
	}

	if bestLag == 0 || bestVal < cfg.MinStrength {
		return fallback()
	}

	return Result{
		BPM:      math.Round(600*envRate/float64(bestLag)) / 10,
		Detected: true,
		Strength: bestVal,
	}
}

// Envelope returns the RMS of each frame-length window, advancing by hop.
func Envelope(samples []float64, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(samples) < frame {
		return nil
	}
	env := make([]float64, 0, (len(samples)-frame)/hop+1)
	for pos := 0; pos+frame <= len(samples); pos += hop {
		w := samples[pos : pos+frame]
		env = append(env, math.Sqrt(floats.Dot(w, w)/float64(frame)))
	}
	return env
}

// autocorrelation of the mean-removed envelope for lags 0..maxLag, normalized
// so that lag 0 equals 1. Returns nil for a constant envelope.
func autocorrelation(env []float64, maxLag int) []float64 {
	mean := stat.Mean(env, nil)
	x := make([]float64, len(env))
	copy(x, env)
	floats.AddConst(-mean, x)

	energy := floats.Dot(x, x)
	if energy <= 1e-12 {
		return nil
	}

	ac := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag && lag < len(x); lag++ {
		ac[lag] = floats.Dot(x[:len(x)-lag], x[lag:]) / energy
	}
	return ac
}
