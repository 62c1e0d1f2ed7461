// Package chroma folds the short-time power spectrum of a mono signal into
// 12 pitch-class bins and averages them into a pitch-class profile.
package chroma

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const numPitchClasses = 12

var (
	ErrEmptySignal   = errors.New("chroma: empty signal")
	ErrInvalidConfig = errors.New("chroma: invalid config")
)

type Config struct {
	WindowSize int     // samples per STFT frame
	HopSize    int     // samples between frame starts
	MinFreq    float64 // Hz, lowest bin folded into the chroma
	MaxFreq    float64 // Hz, highest bin folded into the chroma
	Tuning     float64 // Hz of A4
}

func DefaultConfig() Config {
	return Config{
		WindowSize: 4096,
		HopSize:    2048,
		MinFreq:    65,
		MaxFreq:    2100,
		Tuning:     440,
	}
}

func (c Config) validate() error {
	switch {
	case c.WindowSize <= 0:
		return fmt.Errorf("%w: window size %d", ErrInvalidConfig, c.WindowSize)
	case c.HopSize <= 0:
		return fmt.Errorf("%w: hop size %d", ErrInvalidConfig, c.HopSize)
	case c.MinFreq <= 0 || c.MaxFreq <= c.MinFreq:
		return fmt.Errorf("%w: frequency range %g-%g Hz", ErrInvalidConfig, c.MinFreq, c.MaxFreq)
	case c.Tuning <= 0:
		return fmt.Errorf("%w: tuning %g Hz", ErrInvalidConfig, c.Tuning)
	}
	return nil
}

// Chromagram holds one 12-bin vector per analysis frame.
type Chromagram struct {
	Frames     [][numPitchClasses]float64
	SampleRate int
	HopSize    int
}

// Mean returns the average frame, index 0 = C. A chromagram without frames
// yields twelve zeros.
func (c *Chromagram) Mean() []float64 {
	mean := make([]float64, numPitchClasses)
	if c == nil || len(c.Frames) == 0 {
		return mean
	}
	for i := range c.Frames {
		floats.Add(mean, c.Frames[i][:])
	}
	floats.Scale(1/float64(len(c.Frames)), mean)
	return mean
}

// Extract computes the chromagram of samples. Signals shorter than one window
// are analysed as a single frame of their own length.
func Extract(samples []float64, sampleRate int, cfg Config) (*Chromagram, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, sampleRate)
	}
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}

	frameSize, hop := cfg.WindowSize, cfg.HopSize
	if frameSize > len(samples) {
		frameSize = len(samples)
	}

	binClass := pitchClassMap(frameSize, sampleRate, cfg)
	win := window.Hann(frameSize)
	frame := make([]float64, frameSize)

	cg := &Chromagram{SampleRate: sampleRate, HopSize: hop}
	for pos := 0; pos+frameSize <= len(samples); pos += hop {
		copy(frame, samples[pos:pos+frameSize])
		floats.Mul(frame, win)
		spectrum := fft.FFTReal(frame)

		var chroma [numPitchClasses]float64
		for bin, pc := range binClass {
			if pc < 0 {
				continue
			}
			re, im := real(spectrum[bin]), imag(spectrum[bin])
			chroma[pc] += re*re + im*im
		}
		cg.Frames = append(cg.Frames, chroma)
	}
	return cg, nil
}

// pitchClassMap assigns each non-negative FFT bin its pitch class, or -1 when
// the bin lies outside [MinFreq, MaxFreq].
func pitchClassMap(frameSize, sampleRate int, cfg Config) []int {
	classes := make([]int, frameSize/2+1)
	for bin := range classes {
		freq := float64(bin) * float64(sampleRate) / float64(frameSize)
		if freq < cfg.MinFreq || freq > cfg.MaxFreq {
			classes[bin] = -1
			continue
		}
		classes[bin] = PitchClass(freq, cfg.Tuning)
	}
	return classes
}

// PitchClass returns the pitch class (0 = C) nearest to freq for the given A4 tuning.
func PitchClass(freq, tuning float64) int {
	midi := 69 + 12*math.Log2(freq/tuning)
	pc := int(math.Round(midi)) % numPitchClasses
	if pc < 0 {
		pc += numPitchClasses
	}
	return pc
}
