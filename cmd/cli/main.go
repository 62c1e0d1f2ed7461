//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/AutoChord/internal/config"
	"github.com/himanishpuri/AutoChord/pkg/autochord"
	"github.com/himanishpuri/AutoChord/pkg/autochord/audio"
	"github.com/himanishpuri/AutoChord/pkg/autochord/chords"
	"github.com/himanishpuri/AutoChord/pkg/logger"
	"github.com/himanishpuri/AutoChord/pkg/models"
	"github.com/himanishpuri/AutoChord/pkg/tonal"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
	recognizer string
	style      string
)

func registerFlags(cfg *config.Config) {
	flag.StringVar(&dbPath, "db", cfg.Analysis.DBPath, "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", cfg.Analysis.TempDir, "Directory for temporary audio conversion files")
	flag.IntVar(&sampleRate, "rate", cfg.Analysis.SampleRate, "Audio sample rate for processing")
	flag.StringVar(&recognizer, "recognizer", cfg.Analysis.RecognizerCommand, "Chord recognizer command (empty for none)")
	flag.StringVar(&style, "style", cfg.Analysis.Style, "Musical style reported with analyses")
}

// createService creates a new AutoChord service with configured options
func createService(cfg *config.Config) (autochord.Service, error) {
	var rec chords.Recognizer = chords.NopRecognizer{}
	if recognizer != "" {
		args := cfg.Analysis.RecognizerArgs
		if recognizer != cfg.Analysis.RecognizerCommand {
			args = nil
		}
		rec = chords.NewCommandRecognizer(recognizer, args...)
	}

	return autochord.NewService(
		autochord.WithDBPath(dbPath),
		autochord.WithTempDir(tempDir),
		autochord.WithSampleRate(sampleRate),
		autochord.WithFFmpegPath(cfg.Analysis.FFmpegPath),
		autochord.WithRecognizer(rec),
		autochord.WithStyle(style),
		autochord.WithNotes(cfg.Analysis.Notes),
	)
}

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if level, ok := logger.ParseLevel(cfg.Server.LogLevel); ok {
		log.SetLevel(level)
	}

	registerFlags(cfg)
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "analyze":
		handleAnalyze(cfg, args[1:])
	case "list":
		handleList(cfg)
	case "show":
		handleShow(cfg, args[1:])
	case "delete":
		handleDelete(cfg, args[1:])
	case "key":
		handleKey(args[1:])
	case "info":
		handleInfo(args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("❌ %s\n", msg)
	logger.GetLogger().Errorf("%s", msg)
	os.Exit(1)
}

// splitArgs separates the leading positional argument from the flags after it.
func splitArgs(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func handleAnalyze(cfg *config.Config, args []string) {
	audioPath, flagArgs := splitArgs(args)

	analyzeCmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	youtubeURL := analyzeCmd.String("youtube-url", "", "YouTube URL to download and analyze (alternative to audio file)")
	timeout := analyzeCmd.Duration("timeout", 5*time.Minute, "Analysis timeout")
	analyzeCmd.Parse(flagArgs)

	if *youtubeURL != "" && audioPath != "" {
		fail("cannot specify both audio file and --youtube-url")
	}
	if *youtubeURL == "" && audioPath == "" {
		fmt.Println("Error: audio file path or --youtube-url required")
		fmt.Println("Usage: autochord analyze <audio_file>")
		fmt.Println("   OR: autochord analyze --youtube-url <url>")
		os.Exit(1)
	}

	fmt.Println("\n🔧 Initializing service...")
	svc, err := createService(cfg)
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var analysis *models.Analysis
	if *youtubeURL != "" {
		fmt.Println("📥 Downloading audio from YouTube...")
		fmt.Println("   This may take a few moments depending on video length")
		analysis, err = svc.AnalyzeYouTube(ctx, *youtubeURL)
	} else {
		fmt.Println("🎵 Analyzing audio file...")
		analysis, err = svc.Analyze(ctx, audioPath, audioPath)
	}
	if err != nil {
		var pe *autochord.ProcessError
		if errors.As(err, &pe) && pe.NotInstalled() {
			fail("%s is not installed or not on PATH", pe.Tool)
		}
		fail("Analysis failed: %v", err)
	}

	fmt.Println("\n✅ Analysis complete!")
	printAnalysis(analysis)
}

func handleList(cfg *config.Config) {
	svc, err := createService(cfg)
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	list, err := svc.ListAnalyses()
	if err != nil {
		fail("Failed to list analyses: %v", err)
	}

	if len(list) == 0 {
		fmt.Println("\n📭 No analyses in database")
		return
	}

	fmt.Printf("\n📚 Found %d analysis(es):\n\n", len(list))
	for i, a := range list {
		fmt.Printf("%d. %s (ID: %s)\n", i+1, a.Filename, a.ID)
		fmt.Printf("   Key: %s | BPM: %.1f | Duration: %s\n", a.KeySignature, a.BPM, formatDuration(a.DurationSec))
		if a.SourceURL != "" {
			fmt.Printf("   Source: %s\n", a.SourceURL)
		}
		fmt.Println()
	}
}

func handleShow(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: autochord show <analysis_id>")
		os.Exit(1)
	}

	svc, err := createService(cfg)
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	analysis, err := svc.GetAnalysis(args[0])
	if err != nil {
		if errors.Is(err, autochord.ErrAnalysisNotFound) {
			fail("Analysis not found (ID: %s)", args[0])
		}
		fail("Failed to load analysis: %v", err)
	}
	printAnalysis(analysis)
}

func handleDelete(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: autochord delete <analysis_id>")
		os.Exit(1)
	}
	id := args[0]

	svc, err := createService(cfg)
	if err != nil {
		fail("Failed to create service: %v", err)
	}
	defer svc.Close()

	if err := svc.DeleteAnalysis(id); err != nil {
		if errors.Is(err, autochord.ErrAnalysisNotFound) {
			fail("Analysis not found (ID: %s)", id)
		}
		fail("Failed to delete analysis: %v", err)
	}

	fmt.Printf("\n✅ Successfully deleted analysis %s\n", id)
}

func handleInfo(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: autochord info <audio_file>")
		os.Exit(1)
	}

	meta, err := audio.ReadMetadataFFmpeg(context.Background(), args[0])
	if err != nil {
		fail("Failed to read metadata: %v", err)
	}

	fmt.Printf("\n🎧 %s\n", meta.Filename)
	if meta.Title != "" {
		fmt.Printf("   Title:    %s\n", meta.Title)
	}
	if meta.Artist != "" {
		fmt.Printf("   Artist:   %s\n", meta.Artist)
	}
	fmt.Printf("   Format:   %s (%s)\n", meta.Format, meta.Codec)
	fmt.Printf("   Duration: %s\n", formatDuration(meta.DurationSec))
	fmt.Printf("   Audio:    %d Hz, %d channel(s)\n", meta.SampleRate, meta.Channels)
}

// handleKey estimates a key from a pitch-class profile given on the command
// line, e.g. "autochord key 1,0,0,0,1,0,0,1,0,0,0,0".
func handleKey(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: autochord key <c,c#,d,d#,e,f,f#,g,g#,a,a#,b>")
		os.Exit(1)
	}

	profile, err := parseProfile(strings.Join(args, ","))
	if err != nil {
		fail("Invalid profile: %v", err)
	}

	result, err := tonal.Analyze(profile)
	if err != nil {
		fail("Key estimation failed: %v", err)
	}

	fmt.Printf("🎼 %s (correlation %.3f)\n", result.Key, result.Correlation)
	fmt.Println("\n   Tonic  Major   Minor")
	for i := 0; i < tonal.NumPitchClasses; i++ {
		fmt.Printf("   %-5s  %+.3f  %+.3f\n", tonal.PitchClass(i), result.MajorScores[i], result.MinorScores[i])
	}
}

// parseProfile reads comma or whitespace separated numbers.
func parseProfile(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		out = append(out, v)
	}
	return out, nil
}

func printAnalysis(a *models.Analysis) {
	fmt.Printf("   ID:       %s\n", a.ID)
	fmt.Printf("   File:     %s\n", a.Filename)
	if a.SourceURL != "" {
		fmt.Printf("   Source:   %s\n", a.SourceURL)
	}
	fmt.Printf("   Duration: %s\n", formatDuration(a.DurationSec))
	if a.KeyConfidence > 0 {
		fmt.Printf("   Key:      %s (%.3f)\n", a.KeySignature, a.KeyConfidence)
	} else {
		fmt.Printf("   Key:      %s\n", a.KeySignature)
	}
	tempoNote := ""
	if !a.TempoDetected {
		tempoNote = " (default)"
	}
	fmt.Printf("   BPM:      %.1f%s\n", a.BPM, tempoNote)
	fmt.Printf("   Style:    %s\n", a.Style)
	fmt.Printf("   Notes:    %s\n", a.Notes)

	if len(a.Chords) == 0 {
		return
	}
	fmt.Printf("\n🎸 Chords (%d):\n", len(a.Chords))
	for _, c := range a.Chords {
		fmt.Printf("   %7.2f - %7.2f  %s\n", c.Start, c.End, c.Chord)
	}
}

func formatDuration(sec float64) string {
	total := int(sec + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func printUsage() {
	fmt.Println("AutoChord - Chord, tempo and key analysis CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>          Path to SQLite database (env: AUTOCHORD_DB_PATH, default: autochord.sqlite3)")
	fmt.Println("  --temp <dir>         Temporary directory for audio conversion (default: /tmp)")
	fmt.Println("  --rate <hz>          Audio sample rate (default: 22050)")
	fmt.Println("  --recognizer <cmd>   Chord recognizer command, called with the WAV path appended")
	fmt.Println("  --style <name>       Musical style reported with analyses (default: Pop)")
	fmt.Println("\nUsage:")
	fmt.Println("  autochord [global-options] analyze <audio_file>")
	fmt.Println("  autochord [global-options] analyze --youtube-url <url>")
	fmt.Println("  autochord [global-options] list")
	fmt.Println("  autochord [global-options] show <analysis_id>")
	fmt.Println("  autochord [global-options] delete <analysis_id>")
	fmt.Println("  autochord key <12 comma-separated pitch-class weights>")
	fmt.Println("  autochord info <audio_file>")
	fmt.Println("\nExamples:")
	fmt.Println("  autochord --recognizer autochord-recognize analyze song.mp3")
	fmt.Println("  autochord analyze --youtube-url \"https://youtu.be/dQw4w9WgXcQ\"")
	fmt.Println("  autochord key 1,0,0,0,1,0,0,1,0,0,0,0")
}
