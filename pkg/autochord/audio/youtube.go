package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/AutoChord/pkg/autochord/runner"
	"github.com/himanishpuri/AutoChord/pkg/utils"
)

// DownloadYouTubeAudio fetches the audio track of a YouTube video with yt-dlp
// and extracts it to WAV inside outputDir. The caller owns the returned file.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL string, outputDir string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
	}

	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return "", err
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputTemplate := filepath.Join(outputDir, videoID+".%(ext)s")
	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		ExtractAudio().
		AudioFormat("wav").
		Output(outputTemplate)

	res, err := dl.Run(ctx, youtubeURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		exitCode, stderr := -1, ""
		if res != nil {
			exitCode, stderr = res.ExitCode, res.Stderr
		}
		return "", runner.NewProcessError("yt-dlp", "download", exitCode, stderr, err)
	}

	audioPath := filepath.Join(outputDir, videoID+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("downloaded audio not found for video %s", videoID)
		}
		return "", err
	}
	return audioPath, nil
}
