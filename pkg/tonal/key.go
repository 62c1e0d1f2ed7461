package tonal

import "fmt"

// NumPitchClasses is the number of bins in a pitch-class profile.
const NumPitchClasses = 12

// PitchClass is a semitone index above C, in the range 0..11.
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var pitchNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// String returns the sharp-spelled name of the pitch class.
func (p PitchClass) String() string {
	if p < 0 || int(p) >= NumPitchClasses {
		return fmt.Sprintf("PitchClass(%d)", int(p))
	}
	return pitchNames[p]
}

// Transpose returns the pitch class k semitones above p (k may be negative).
func (p PitchClass) Transpose(k int) PitchClass {
	return PitchClass(mod12(int(p) + k))
}

// Mode is the tonal quality of a key.
type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	switch m {
	case Major:
		return "Major"
	case Minor:
		return "Minor"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Key is a key estimate. Tonic and Mode are kept separate so callers can
// render them however they like; String gives the "<Tonic> <Mode>" form.
type Key struct {
	Tonic PitchClass
	Mode  Mode
}

func (k Key) String() string {
	return k.Tonic.String() + " " + k.Mode.String()
}

func mod12(i int) int {
	i %= NumPitchClasses
	if i < 0 {
		i += NumPitchClasses
	}
	return i
}
