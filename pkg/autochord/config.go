package autochord

import (
	"context"

	"github.com/himanishpuri/AutoChord/pkg/autochord/audio"
	"github.com/himanishpuri/AutoChord/pkg/autochord/chords"
	"github.com/himanishpuri/AutoChord/pkg/autochord/chroma"
	"github.com/himanishpuri/AutoChord/pkg/autochord/storage"
	"github.com/himanishpuri/AutoChord/pkg/autochord/tempo"
)

const (
	DefaultStyle = "Pop"
	DefaultNotes = "Analysis from live AutoChord service."
)

// Downloader fetches the audio of a remote source into outDir and returns the
// local file path.
type Downloader func(ctx context.Context, url, outDir string) (string, error)

type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int
	FFmpegPath string
	Chroma     chroma.Config
	Tempo      tempo.Config
	Recognizer chords.Recognizer
	Downloader Downloader
	Style      string
	Notes      string
	Logger     Logger
	Storage    Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithFFmpegPath(path string) Option {
	return func(c *Config) {
		c.FFmpegPath = path
	}
}

func WithChroma(cfg chroma.Config) Option {
	return func(c *Config) {
		c.Chroma = cfg
	}
}

func WithTempo(cfg tempo.Config) Option {
	return func(c *Config) {
		c.Tempo = cfg
	}
}

func WithRecognizer(r chords.Recognizer) Option {
	return func(c *Config) {
		c.Recognizer = r
	}
}

func WithDownloader(d Downloader) Option {
	return func(c *Config) {
		c.Downloader = d
	}
}

// WithStyle sets the musical style reported with every analysis.
func WithStyle(style string) Option {
	return func(c *Config) {
		c.Style = style
	}
}

// WithNotes sets the analysis notes reported with every analysis.
func WithNotes(notes string) Option {
	return func(c *Config) {
		c.Notes = notes
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:     storage.DefaultDBFile,
		TempDir:    "/tmp",
		SampleRate: audio.DefaultSampleRate,
		FFmpegPath: "ffmpeg",
		Chroma:     chroma.DefaultConfig(),
		Tempo:      tempo.DefaultConfig(),
		Recognizer: chords.NopRecognizer{},
		Downloader: audio.DownloadYouTubeAudio,
		Style:      DefaultStyle,
		Notes:      DefaultNotes,
	}
}
