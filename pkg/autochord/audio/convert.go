package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/AutoChord/pkg/autochord/runner"
	"github.com/himanishpuri/AutoChord/pkg/utils"
)

const DefaultSampleRate = 22050

// supportedContentTypes is the upload whitelist of the HTTP API.
var supportedContentTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/wav":   true,
	"audio/x-wav": true,
}

// IsSupportedContentType reports whether an upload's Content-Type is accepted.
// Parameters such as "; charset=binary" are ignored.
func IsSupportedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i != -1 {
		ct = strings.TrimSpace(ct[:i])
	}
	return supportedContentTypes[ct]
}

type ConvertWAVConfig struct {
	SampleRate int
	Timeout    time.Duration
	FFmpegPath string
}

// ConvertToMonoWAV decodes inputPath with ffmpeg into a mono 16-bit PCM WAV
// inside outputDir and returns the new file's path. The caller owns the file.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input audio: %w", err)
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, uuid.NewString()+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	_, err := runner.New(cfg.FFmpegPath).Run(ctx, "convert",
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-vn",
		"-ac", "1", // mono
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)
	if err != nil {
		return "", err
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}
