package tonal

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestTemplatesAreUnitLength(t *testing.T) {
	for name, p := range map[string]Profile{"major": MajorTemplate(), "minor": MinorTemplate()} {
		if n := floats.Norm(p[:], 2); math.Abs(n-1) > 1e-12 {
			t.Errorf("%s template norm = %f, want 1", name, n)
		}
	}
}

func TestTemplatesCannotBeMutated(t *testing.T) {
	before := MajorTemplate()

	got := MajorTemplate()
	got[0] = 42
	rotated := Rotate(MajorTemplate(), 0)
	rotated[1] = 42
	s := MajorTemplate().Slice()
	s[2] = 42

	if MajorTemplate() != before {
		t.Error("canonical major template changed through a returned copy")
	}
}

func TestRotate(t *testing.T) {
	var p Profile
	for i := range p {
		p[i] = float64(i)
	}

	tests := []struct {
		k    int
		want Profile
	}{
		{0, p},
		{12, p},
		{1, Profile{11, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{-1, Profile{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 0}},
		{7, Profile{5, 6, 7, 8, 9, 10, 11, 0, 1, 2, 3, 4}},
		{25, Profile{11, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	}

	for _, tt := range tests {
		if got := Rotate(p, tt.k); got != tt.want {
			t.Errorf("Rotate(p, %d) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestRotateMovesTonic(t *testing.T) {
	major := MajorTemplate()
	for k := 0; k < 12; k++ {
		r := Rotate(major, k)
		if r[k] != major[0] {
			t.Errorf("Rotate(major, %d)[%d] = %f, want tonic weight %f", k, k, r[k], major[0])
		}
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Tonic: A, Mode: Minor}, "A Minor"},
		{Key{Tonic: CSharp, Mode: Major}, "C# Major"},
		{Key{Tonic: B, Mode: Major}, "B Major"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPitchClassTranspose(t *testing.T) {
	if got := A.Transpose(3); got != C {
		t.Errorf("A+3 = %s, want C", got)
	}
	if got := C.Transpose(-1); got != B {
		t.Errorf("C-1 = %s, want B", got)
	}
}
