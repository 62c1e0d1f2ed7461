package autochord

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/himanishpuri/AutoChord/pkg/autochord/audio"
	"github.com/himanishpuri/AutoChord/pkg/autochord/runner"
	"github.com/himanishpuri/AutoChord/pkg/models"
)

const testRate = 11025

type quietLogger struct{}

func (quietLogger) Infof(string, ...any)  {}
func (quietLogger) Warnf(string, ...any)  {}
func (quietLogger) Errorf(string, ...any) {}
func (quietLogger) Debugf(string, ...any) {}

type fakeRecognizer struct {
	segments []models.ChordSegment
	err      error
	calls    atomic.Int32
	lastPath atomic.Value
}

func (f *fakeRecognizer) Recognize(_ context.Context, wavPath string) ([]models.ChordSegment, error) {
	f.calls.Add(1)
	f.lastPath.Store(wavPath)
	return f.segments, f.err
}

func tones(seconds float64, freqs ...float64) []float64 {
	out := make([]float64, int(seconds*testRate))
	for i := range out {
		t := float64(i) / testRate
		for _, f := range freqs {
			out[i] += 0.25 * math.Sin(2*math.Pi*f*t)
		}
	}
	return out
}

func writeWav(t *testing.T, name string, samples []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := audio.WriteWav(path, samples, testRate); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	return path
}

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	base := []Option{
		WithDBPath(filepath.Join(t.TempDir(), "test.sqlite3")),
		WithTempDir(t.TempDir()),
		WithLogger(quietLogger{}),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestAnalyzeCMajorTriad(t *testing.T) {
	rec := &fakeRecognizer{segments: []models.ChordSegment{
		{Start: 0, End: 4, Chord: "C:maj", Confidence: 1},
	}}
	svc := newTestService(t, WithRecognizer(rec))

	path := writeWav(t, "triad.wav", tones(4, 261.63, 329.63, 392.00))
	got, err := svc.Analyze(context.Background(), path, "triad.wav")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if got.KeySignature != "C Major" || got.KeyTonic != "C" || got.KeyMode != "Major" {
		t.Errorf("key = %q (%s/%s), want C Major", got.KeySignature, got.KeyTonic, got.KeyMode)
	}
	if got.KeyConfidence <= 0 || got.KeyConfidence > 1 {
		t.Errorf("key confidence %v out of range", got.KeyConfidence)
	}
	if got.Style != DefaultStyle {
		t.Errorf("style = %q, want %q", got.Style, DefaultStyle)
	}
	if got.DurationSec != 4 || got.SampleRate != testRate {
		t.Errorf("duration/rate = %v/%d", got.DurationSec, got.SampleRate)
	}
	if len(got.Chords) != 1 || got.Chords[0].Chord != "C:maj" {
		t.Errorf("chords = %+v", got.Chords)
	}
	if rec.calls.Load() != 1 || rec.lastPath.Load() != path {
		t.Errorf("recognizer called %d times with %v", rec.calls.Load(), rec.lastPath.Load())
	}

	// A steady chord has no beat.
	if got.TempoDetected || got.BPM != 120 {
		t.Errorf("tempo = %v (detected=%v), want default 120", got.BPM, got.TempoDetected)
	}
	if !strings.HasPrefix(got.Notes, DefaultNotes) || !strings.Contains(got.Notes, noteTempoDefault) {
		t.Errorf("notes = %q", got.Notes)
	}

	stored, err := svc.GetAnalysis(got.ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if stored.KeySignature != got.KeySignature || len(stored.Chords) != 1 {
		t.Errorf("stored analysis differs: %+v", stored)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("stored analysis has no creation time")
	}
}

func TestAnalyzeAMinorTriad(t *testing.T) {
	svc := newTestService(t)

	path := writeWav(t, "aminor.wav", tones(3, 220.00, 261.63, 329.63))
	got, err := svc.Analyze(context.Background(), path, "aminor.wav")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.KeySignature != "A Minor" {
		t.Errorf("key = %q, want A Minor", got.KeySignature)
	}
	if got.Chords == nil || len(got.Chords) != 0 {
		t.Errorf("expected empty non-nil timeline, got %v", got.Chords)
	}
}

func TestAnalyzeSilenceHasUnknownKey(t *testing.T) {
	svc := newTestService(t, WithNotes("custom notes"), WithStyle("Jazz"))

	path := writeWav(t, "silence.wav", make([]float64, 2*testRate))
	got, err := svc.Analyze(context.Background(), path, "silence.wav")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if got.KeySignature != UnknownKey || got.KeyTonic != "" || got.KeyConfidence != 0 {
		t.Errorf("key = %q tonic=%q conf=%v, want Unknown", got.KeySignature, got.KeyTonic, got.KeyConfidence)
	}
	want := "custom notes; " + noteUnknownKey + "; " + noteTempoDefault
	if got.Notes != want {
		t.Errorf("notes = %q, want %q", got.Notes, want)
	}
	if got.Style != "Jazz" {
		t.Errorf("style = %q, want Jazz", got.Style)
	}
}

func TestAnalyzeRecognizerFailure(t *testing.T) {
	rec := &fakeRecognizer{err: runner.NewProcessError("autochord", "recognize", 1, "no model", nil)}
	svc := newTestService(t, WithRecognizer(rec))

	path := writeWav(t, "triad.wav", tones(1, 261.63, 329.63, 392.00))
	_, err := svc.Analyze(context.Background(), path, "triad.wav")

	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProcessError, got %v", err)
	}
	if pe.Stage != "recognize" {
		t.Errorf("stage = %q, want recognize", pe.Stage)
	}

	count, err := svc.CountAnalyses()
	if err != nil {
		t.Fatalf("CountAnalyses failed: %v", err)
	}
	if count != 0 {
		t.Errorf("failed analysis was stored (%d rows)", count)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), "nope.mp3")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestAnalyzeUndecodableInput(t *testing.T) {
	if !runner.New("ffmpeg").Available() {
		t.Skip("ffmpeg not available")
	}
	svc := newTestService(t)

	path := filepath.Join(t.TempDir(), "junk.mp3")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Analyze(context.Background(), path, "junk.mp3"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestAnalyzeYouTube(t *testing.T) {
	var gotURL string
	download := func(_ context.Context, url, outDir string) (string, error) {
		gotURL = url
		path := filepath.Join(outDir, "dQw4w9WgXcQ.wav")
		return path, audio.WriteWav(path, tones(2, 220.00, 261.63, 329.63), testRate)
	}
	tmp := t.TempDir()
	svc := newTestService(t, WithDownloader(download), WithTempDir(tmp))

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	got, err := svc.AnalyzeYouTube(context.Background(), url)
	if err != nil {
		t.Fatalf("AnalyzeYouTube failed: %v", err)
	}
	if gotURL != url || got.SourceURL != url {
		t.Errorf("source url = %q (downloaded %q)", got.SourceURL, gotURL)
	}
	if got.Filename != "dQw4w9WgXcQ.wav" {
		t.Errorf("filename = %q", got.Filename)
	}
	if _, err := os.Stat(filepath.Join(tmp, "dQw4w9WgXcQ.wav")); !os.IsNotExist(err) {
		t.Errorf("downloaded audio was not removed: %v", err)
	}
}

func TestAnalyzeYouTubeRejectsOtherHosts(t *testing.T) {
	called := false
	download := func(context.Context, string, string) (string, error) {
		called = true
		return "", nil
	}
	svc := newTestService(t, WithDownloader(download))

	if _, err := svc.AnalyzeYouTube(context.Background(), "https://vimeo.com/123"); err == nil {
		t.Error("expected error for non-YouTube URL")
	}
	if called {
		t.Error("downloader should not run for a rejected URL")
	}
}

func TestListAndDeleteAnalyses(t *testing.T) {
	svc := newTestService(t)

	path := writeWav(t, "triad.wav", tones(1, 261.63, 329.63, 392.00))
	var ids []string
	for i := 0; i < 3; i++ {
		a, err := svc.Analyze(context.Background(), path, "triad.wav")
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		ids = append(ids, a.ID)
	}

	list, err := svc.ListAnalyses()
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d analyses, want 3", len(list))
	}

	if err := svc.DeleteAnalysis(ids[0]); err != nil {
		t.Fatalf("DeleteAnalysis failed: %v", err)
	}
	if _, err := svc.GetAnalysis(ids[0]); !errors.Is(err, ErrAnalysisNotFound) {
		t.Errorf("expected ErrAnalysisNotFound, got %v", err)
	}
	if err := svc.DeleteAnalysis(ids[0]); !errors.Is(err, ErrAnalysisNotFound) {
		t.Errorf("expected ErrAnalysisNotFound on second delete, got %v", err)
	}

	count, err := svc.CountAnalyses()
	if err != nil || count != 2 {
		t.Errorf("CountAnalyses = %d, %v; want 2", count, err)
	}
}

func TestJoinNotes(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a; b"},
		{[]string{"", "b"}, "b"},
		{[]string{" a ", "  "}, "a"},
	}
	for _, tt := range tests {
		if got := joinNotes(tt.in); got != tt.want {
			t.Errorf("joinNotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// stubFFmpeg writes a shell script that copies fixture to its last argument,
// standing in for a successful ffmpeg conversion. exitCode > 0 makes it fail.
func stubFFmpeg(t *testing.T, fixture string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	script := "#!/bin/sh\nfor last; do :; done\n"
	if exitCode > 0 {
		script += fmt.Sprintf("echo 'Invalid data found when processing input' >&2\nexit %d\n", exitCode)
	} else {
		script += fmt.Sprintf("cp %q \"$last\"\n", fixture)
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return path
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	for _, e := range entries {
		t.Errorf("leftover temporary file %s", e.Name())
	}
}

func TestAnalyzeConvertedInputCleansTempDir(t *testing.T) {
	fixture := writeWav(t, "converted.wav", tones(2, 220.00, 261.63, 329.63))
	input := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(input, []byte("ID3 not really mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	recognizerErr := runner.NewProcessError("recognize", "recognize", 1, "boom", errors.New("exit status 1"))
	tests := []struct {
		name     string
		exitCode int
		recErr   error
		wantErr  error
	}{
		{"success", 0, nil, nil},
		{"recognizer failure", 0, recognizerErr, recognizerErr},
		{"conversion failure", 1, nil, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			rec := &fakeRecognizer{err: tt.recErr}
			svc := newTestService(t,
				WithTempDir(tempDir),
				WithFFmpegPath(stubFFmpeg(t, fixture, tt.exitCode)),
				WithRecognizer(rec),
			)

			got, err := svc.Analyze(context.Background(), input, "song.mp3")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Analyze failed: %v", err)
				}
				if got.Filename != "song.mp3" || got.DurationSec != 2 {
					t.Errorf("analysis = %+v", got)
				}
				if p, _ := rec.lastPath.Load().(string); filepath.Dir(p) != tempDir {
					t.Errorf("recognizer got %q, want a converted WAV in %s", p, tempDir)
				}
			}

			assertEmptyDir(t, tempDir)
			if _, err := os.Stat(input); err != nil {
				t.Errorf("input should be left in place: %v", err)
			}
		})
	}
}
