//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/AutoChord/pkg/autochord/audio"
	"github.com/himanishpuri/AutoChord/pkg/logger"
)

type options struct {
	inputDir  string
	outputDir string
	width     int
	height    int
	logScale  bool
}

var errNoInput = errors.New("-in is required")

func parseOptions(args []string) (options, error) {
	var opts options
	set := flag.NewFlagSet("spectrogram", flag.ContinueOnError)
	set.StringVar(&opts.inputDir, "in", "", "Directory (or single file) of WAV input (required)")
	set.StringVar(&opts.outputDir, "out", ".", "Directory for PNG output")
	set.IntVar(&opts.width, "width", 2048, "Image width in pixels")
	set.IntVar(&opts.height, "height", 512, "Image height in pixels (frequency bins)")
	set.BoolVar(&opts.logScale, "log", false, "Use a log10 magnitude scale")
	if err := set.Parse(args); err != nil {
		return opts, err
	}
	if opts.inputDir == "" {
		return opts, errNoInput
	}
	if opts.width <= 0 || opts.height <= 0 {
		return opts, fmt.Errorf("image size %dx%d must be positive", opts.width, opts.height)
	}
	return opts, nil
}

func main() {
	log := logger.GetLogger()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Fprintln(os.Stderr, "Usage: spectrogram -in <wav file or directory> [-out dir] [-width px] [-height px] [-log]")
		os.Exit(2)
	}

	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	count := 0
	err = filepath.WalkDir(opts.inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}

		fmt.Printf("Processing %s...\n", path)
		outputPath := filepath.Join(opts.outputDir, filepath.Base(path)+".png")
		if err := render(path, outputPath, opts.width, opts.height, opts.logScale); err != nil {
			log.Errorf("%s: %v", path, err)
			return nil
		}
		fmt.Printf("Saved spectrogram to %s\n", outputPath)
		count++
		return nil
	})
	if err != nil {
		log.Fatalf("walking %s: %v", opts.inputDir, err)
	}

	fmt.Printf("Done! %d spectrogram(s) written\n", count)
}

// render draws the FFT spectrogram of a WAV file, decoded the same way the
// analysis pipeline decodes it.
func render(wavPath, pngPath string, width, height int, logScale bool) error {
	samples, err := audio.ReadWav(wavPath)
	if err != nil {
		return err
	}
	if len(samples.Data) == 0 {
		return fmt.Errorf("no samples")
	}
	fmt.Printf("Read %d samples at %d Hz (%.1fs)\n", len(samples.Data), samples.SampleRate, samples.Duration())

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude.
	spectrogram.Drawfft(
		img,
		samples.Data,
		uint32(samples.SampleRate),
		uint32(height),
		false,
		false,
		true,
		logScale,
	)

	return spectrogram.SavePng(img, pngPath)
}
