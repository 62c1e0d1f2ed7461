package tonal

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"
)

func TestEstimateKeyTriads(t *testing.T) {
	tests := []struct {
		name    string
		profile []float64
		want    Key
	}{
		{
			name:    "C major triad",
			profile: []float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0},
			want:    Key{Tonic: C, Mode: Major},
		},
		{
			name:    "C minor triad",
			profile: []float64{1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0},
			want:    Key{Tonic: C, Mode: Minor},
		},
		{
			name:    "lone A",
			profile: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0},
			want:    Key{Tonic: A, Mode: Major},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateKey(tt.profile)
			if err != nil {
				t.Fatalf("EstimateKey failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("EstimateKey(%v) = %s, want %s", tt.profile, got, tt.want)
			}
		})
	}
}

func TestEstimateKeyTemplateSelfRecognition(t *testing.T) {
	major := MajorTemplate()
	minor := MinorTemplate()

	got, err := EstimateKey(major[:])
	if err != nil {
		t.Fatalf("EstimateKey(major) failed: %v", err)
	}
	if got != (Key{Tonic: C, Mode: Major}) {
		t.Errorf("major template estimated as %s, want C Major", got)
	}

	got, err = EstimateKey(minor[:])
	if err != nil {
		t.Fatalf("EstimateKey(minor) failed: %v", err)
	}
	if got != (Key{Tonic: C, Mode: Minor}) {
		t.Errorf("minor template estimated as %s, want C Minor", got)
	}
}

func TestEstimateKeyShapeError(t *testing.T) {
	for _, n := range []int{0, 11, 13, 24} {
		profile := make([]float64, n)
		for i := range profile {
			profile[i] = 0.1
		}

		_, err := EstimateKey(profile)
		if !errors.Is(err, ErrShape) {
			t.Fatalf("len %d: expected ErrShape, got %v", n, err)
		}
		var shapeErr *ShapeError
		if !errors.As(err, &shapeErr) || shapeErr.Len != n {
			t.Errorf("len %d: expected *ShapeError{Len: %d}, got %#v", n, n, err)
		}
		if errors.Is(err, ErrDegenerateInput) {
			t.Errorf("len %d: shape error must not match ErrDegenerateInput", n)
		}
	}
}

func TestEstimateKeyDegenerateInput(t *testing.T) {
	tests := []struct {
		name    string
		profile []float64
	}{
		{"silence", make([]float64, 12)},
		{"NaN", []float64{1, 0, 0, 0, math.NaN(), 0, 0, 1, 0, 0, 0, 0}},
		{"Inf", []float64{1, 0, 0, 0, 1, 0, 0, math.Inf(1), 0, 0, 0, 0}},
		{"negative", []float64{1, 0, 0, 0, 1, 0, 0, -1, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateKey(tt.profile)
			if !errors.Is(err, ErrDegenerateInput) {
				t.Fatalf("expected ErrDegenerateInput, got %v", err)
			}
			var degErr *DegenerateInputError
			if !errors.As(err, &degErr) {
				t.Errorf("expected *DegenerateInputError, got %T", err)
			}
		})
	}
}

// randomProfiles returns seeded random profiles whose winning key beats the
// runner-up by a clear margin, so float rounding cannot change the winner.
func randomProfiles(t *testing.T, n int) [][]float64 {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	var out [][]float64
	for len(out) < n {
		p := make([]float64, 12)
		for i := range p {
			p[i] = rng.Float64()
		}
		a, err := Analyze(p)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		scores := append(a.MajorScores[:], a.MinorScores[:]...)
		sort.Float64s(scores)
		if scores[len(scores)-1]-scores[len(scores)-2] > 1e-6 {
			out = append(out, p)
		}
	}
	return out
}

func TestEstimateKeyRotationEquivariance(t *testing.T) {
	profiles := randomProfiles(t, 25)
	profiles = append(profiles,
		[]float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0},
		[]float64{1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0},
		MajorTemplate().Slice(),
		MinorTemplate().Slice(),
	)

	for _, p := range profiles {
		base, err := EstimateKey(p)
		if err != nil {
			t.Fatalf("EstimateKey(%v) failed: %v", p, err)
		}

		var prof Profile
		copy(prof[:], p)
		for k := 0; k < 12; k++ {
			rotated := Rotate(prof, k)
			got, err := EstimateKey(rotated[:])
			if err != nil {
				t.Fatalf("EstimateKey(rotated by %d) failed: %v", k, err)
			}
			want := Key{Tonic: base.Tonic.Transpose(k), Mode: base.Mode}
			if got != want {
				t.Errorf("profile %v rotated by %d: got %s, want %s", p, k, got, want)
			}
		}
	}
}

func TestEstimateKeyScaleInvariance(t *testing.T) {
	profiles := randomProfiles(t, 25)

	for _, p := range profiles {
		base, err := EstimateKey(p)
		if err != nil {
			t.Fatalf("EstimateKey failed: %v", err)
		}
		for _, c := range []float64{1e-6, 0.5, 3, 1e6} {
			scaled := make([]float64, len(p))
			for i, v := range p {
				scaled[i] = c * v
			}
			got, err := EstimateKey(scaled)
			if err != nil {
				t.Fatalf("EstimateKey(scaled by %g) failed: %v", c, err)
			}
			if got != base {
				t.Errorf("scaling by %g changed key from %s to %s", c, base, got)
			}
		}
	}
}

func TestEstimateKeyTieBreak(t *testing.T) {
	average := func(a, b Profile) []float64 {
		out := make([]float64, 12)
		for i := range out {
			out[i] = (a[i] + b[i]) / 2
		}
		return out
	}

	major := MajorTemplate()
	tests := []struct {
		name    string
		profile []float64
		want    Key
	}{
		{"C and G major templates", average(Rotate(major, 0), Rotate(major, 7)), Key{Tonic: C, Mode: Major}},
		{"C and F major templates", average(Rotate(major, 0), Rotate(major, 5)), Key{Tonic: C, Mode: Major}},
		{"D and A major templates", average(Rotate(major, 2), Rotate(major, 9)), Key{Tonic: D, Mode: Major}},
		{"uniform profile", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, Key{Tonic: C, Mode: Minor}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				got, err := EstimateKey(tt.profile)
				if err != nil {
					t.Fatalf("EstimateKey failed: %v", err)
				}
				if got != tt.want {
					t.Fatalf("run %d: got %s, want %s", i, got, tt.want)
				}
			}
		})
	}
}

func TestSelectKeyMinorWinsExactTie(t *testing.T) {
	var major, minor [NumPitchClasses]float64
	for i := range major {
		major[i] = 0.1
		minor[i] = 0.1
	}
	major[4] = 0.8
	minor[9] = 0.8

	key, score := selectKey(major, minor)
	if key != (Key{Tonic: A, Mode: Minor}) {
		t.Errorf("selectKey = %s, want A Minor", key)
	}
	if score != 0.8 {
		t.Errorf("score = %f, want 0.8", score)
	}

	major[4] = 0.8 + 1e-3
	key, _ = selectKey(major, minor)
	if key != (Key{Tonic: E, Mode: Major}) {
		t.Errorf("selectKey = %s, want E Major", key)
	}
}

func TestSelectKeyTolerance(t *testing.T) {
	tests := []struct {
		name   string
		margin float64
		want   Mode
	}{
		{"within tolerance", ScoreTolerance / 2, Minor},
		{"beyond tolerance", ScoreTolerance * 10, Major},
		{"minor ahead", -ScoreTolerance * 10, Minor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var major, minor [NumPitchClasses]float64
			minor[9] = 0.5
			major[0] = 0.5 + tt.margin

			key, _ := selectKey(major, minor)
			if key.Mode != tt.want {
				t.Errorf("margin %g: mode = %s, want %s", tt.margin, key.Mode, tt.want)
			}
		})
	}
}

func TestArgmaxLowestIndex(t *testing.T) {
	var scores [NumPitchClasses]float64
	scores[3] = 0.5
	scores[7] = 0.5
	scores[11] = 0.5 + ScoreTolerance/2

	if got := argmax(scores); got != 3 {
		t.Errorf("argmax = %d, want 3", got)
	}

	scores[11] = 0.6
	if got := argmax(scores); got != 11 {
		t.Errorf("argmax = %d, want 11", got)
	}
}

func TestEstimateKeyConcurrent(t *testing.T) {
	profiles := randomProfiles(t, 8)
	want := make([]Key, len(profiles))
	for i, p := range profiles {
		k, err := EstimateKey(p)
		if err != nil {
			t.Fatalf("EstimateKey failed: %v", err)
		}
		want[i] = k
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64*len(profiles))
	for g := 0; g < 64; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, p := range profiles {
				got, err := EstimateKey(p)
				if err != nil || got != want[i] {
					errs <- got.String()
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	if n := len(errs); n > 0 {
		t.Errorf("%d concurrent estimates disagreed with the sequential result", n)
	}
}

func TestAnalyzeScores(t *testing.T) {
	major := MajorTemplate()
	a, err := Analyze(major[:])
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if math.Abs(a.MajorScores[0]-1) > 1e-12 {
		t.Errorf("self correlation = %f, want 1", a.MajorScores[0])
	}
	if a.Correlation != a.MajorScores[0] {
		t.Errorf("Correlation = %f, want %f", a.Correlation, a.MajorScores[0])
	}
	for i, s := range append(a.MajorScores[:], a.MinorScores[:]...) {
		if s < -1-1e-12 || s > 1+1e-12 {
			t.Errorf("score %d out of range: %f", i, s)
		}
	}
}
