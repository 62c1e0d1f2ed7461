package models

import "time"

// ChordSegment is one entry of a chord timeline. Times are in seconds.
type ChordSegment struct {
	Start      float64
	End        float64
	Chord      string
	Confidence float64
}

// Analysis is the summary produced for one audio input.
type Analysis struct {
	ID            string // UUID
	Filename      string
	SourceURL     string // set when the audio came from YouTube
	DurationSec   float64
	SampleRate    int
	BPM           float64
	TempoDetected bool
	KeyTonic      string // empty when the key could not be determined
	KeyMode       string
	KeySignature  string // "<Tonic> <Mode>" or "Unknown"
	KeyConfidence float64
	Style         string
	Notes         string
	Chords        []ChordSegment
	CreatedAt     time.Time
}
