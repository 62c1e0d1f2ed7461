package autochord

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/himanishpuri/AutoChord/pkg/autochord/audio"
	"github.com/himanishpuri/AutoChord/pkg/autochord/chroma"
	"github.com/himanishpuri/AutoChord/pkg/autochord/tempo"
	"github.com/himanishpuri/AutoChord/pkg/logger"
	"github.com/himanishpuri/AutoChord/pkg/models"
	"github.com/himanishpuri/AutoChord/pkg/tonal"
	"github.com/himanishpuri/AutoChord/pkg/utils"
)

const (
	noteUnknownKey   = "unable to determine key"
	noteTempoDefault = "tempo not detected, defaulted to 120 BPM"
)

// analysisService is the default implementation of the Service interface.
type analysisService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("[analysis]")
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &analysisService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// Analyze extracts chords, tempo and key from the audio at audioPath and
// stores the result. filename is the name reported back to clients.
func (s *analysisService) Analyze(ctx context.Context, audioPath, filename string) (*models.Analysis, error) {
	return s.analyze(ctx, audioPath, filename, "")
}

// AnalyzeYouTube downloads the audio of a YouTube video and analyzes it.
func (s *analysisService) AnalyzeYouTube(ctx context.Context, youtubeURL string) (*models.Analysis, error) {
	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Downloading audio for YouTube video %s", videoID)
	path, err := s.config.Downloader(ctx, youtubeURL, s.config.TempDir)
	if err != nil {
		return nil, fmt.Errorf("youtube download failed: %w", err)
	}
	defer utils.DeleteFile(path)

	return s.analyze(ctx, path, videoID+filepath.Ext(path), youtubeURL)
}

func (s *analysisService) analyze(ctx context.Context, audioPath, filename, sourceURL string) (*models.Analysis, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("input audio: %w", err)
	}
	s.log.Infof("Analyzing %s", filename)

	wavPath, cleanup, err := s.prepareWAV(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	samples, err := audio.ReadWav(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}
	if len(samples.Data) == 0 {
		return nil, ErrEmptyAudio
	}

	// Chord recognition runs in an external process; the DSP path does not
	// depend on it.
	var (
		wg        sync.WaitGroup
		segments  []models.ChordSegment
		chordsErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		segments, chordsErr = s.config.Recognizer.Recognize(ctx, wavPath)
	}()

	key, keyErr := s.estimateKey(samples)
	beat := tempo.Estimate(samples.Data, samples.SampleRate, s.config.Tempo)

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chordsErr != nil {
		return nil, fmt.Errorf("chord recognition failed: %w", chordsErr)
	}
	if keyErr != nil && !errors.Is(keyErr, tonal.ErrDegenerateInput) {
		return nil, fmt.Errorf("key estimation failed: %w", keyErr)
	}
	if segments == nil {
		segments = []models.ChordSegment{}
	}

	notes := []string{s.config.Notes}
	result := &models.Analysis{
		ID:            uuid.NewString(),
		Filename:      filename,
		SourceURL:     sourceURL,
		DurationSec:   round(samples.Duration(), 2),
		SampleRate:    samples.SampleRate,
		BPM:           beat.BPM,
		TempoDetected: beat.Detected,
		Style:         s.config.Style,
		Chords:        segments,
	}

	if keyErr != nil {
		s.log.Warnf("Key estimation for %s: %v", filename, keyErr)
		result.KeySignature = UnknownKey
		notes = append(notes, noteUnknownKey)
	} else {
		result.KeyTonic = key.Key.Tonic.String()
		result.KeyMode = key.Key.Mode.String()
		result.KeySignature = key.Key.String()
		result.KeyConfidence = round(key.Correlation, 3)
	}
	if !beat.Detected {
		notes = append(notes, noteTempoDefault)
	}
	result.Notes = joinNotes(notes)

	if err := s.storage.SaveAnalysis(result); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	s.log.Infof("Analysis %s: key=%s bpm=%.1f chords=%d", result.ID, result.KeySignature, result.BPM, len(result.Chords))
	return result, nil
}

// prepareWAV returns a decodable WAV for audioPath. PCM WAV input is used as
// is; anything else is converted with ffmpeg into a temporary file that the
// returned cleanup removes.
func (s *analysisService) prepareWAV(ctx context.Context, audioPath string) (string, func(), error) {
	if audio.IsWAV(audioPath) {
		return audioPath, func() {}, nil
	}

	wavPath, err := audio.ConvertToMonoWAV(ctx, audioPath, s.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
		FFmpegPath: s.config.FFmpegPath,
	})
	if err != nil {
		var pe *ProcessError
		if errors.As(err, &pe) && !pe.NotInstalled() && pe.ExitCode > 0 {
			return "", nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return "", nil, fmt.Errorf("audio conversion failed: %w", err)
	}

	return wavPath, func() {
		if err := utils.DeleteFile(wavPath); err != nil {
			s.log.Warnf("Failed to remove %s: %v", wavPath, err)
		}
	}, nil
}

func (s *analysisService) estimateKey(samples *audio.Samples) (tonal.KeyAnalysis, error) {
	cg, err := chroma.Extract(samples.Data, samples.SampleRate, s.config.Chroma)
	if err != nil {
		return tonal.KeyAnalysis{}, err
	}
	profile := cg.Mean()
	s.log.Debugf("Pitch-class profile over %d frames: %v", len(cg.Frames), profile)
	return tonal.Analyze(profile)
}

// GetAnalysis returns a stored analysis by id.
func (s *analysisService) GetAnalysis(id string) (*models.Analysis, error) {
	return s.storage.GetAnalysis(id)
}

// ListAnalyses returns all stored analyses, newest first, without chords.
func (s *analysisService) ListAnalyses() ([]models.Analysis, error) {
	return s.storage.ListAnalyses()
}

// DeleteAnalysis removes an analysis and its chord timeline.
func (s *analysisService) DeleteAnalysis(id string) error {
	return s.storage.DeleteAnalysis(id)
}

func (s *analysisService) CountAnalyses() (int64, error) {
	return s.storage.CountAnalyses()
}

// Close releases all resources held by the service.
func (s *analysisService) Close() error {
	return s.storage.Close()
}

func joinNotes(notes []string) string {
	out := notes[:0]
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, "; ")
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
