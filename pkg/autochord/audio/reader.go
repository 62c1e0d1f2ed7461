package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrInvalidWAV     = errors.New("not a valid WAV file")
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Samples is decoded mono audio normalized to [-1, 1].
type Samples struct {
	Data       []float64
	SampleRate int
	Channels   int // channel count of the source file before downmixing
	BitDepth   int
}

// Duration returns the length of the audio in seconds.
func (s *Samples) Duration() float64 {
	if s == nil || s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Data)) / float64(s.SampleRate)
}

// IsWAV reports whether path holds a PCM WAV file ReadWav can decode.
func IsWAV(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return false
	}
	return d.WavAudioFormat == wavFormatPCM || d.WavAudioFormat == wavFormatExtensible
}

// ReadWav decodes an integer PCM WAV file, averaging channels down to mono.
func ReadWav(path string) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}
	if d.BitDepth == 0 || d.BitDepth > 32 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedWAV, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM data: %w", err)
	}

	channels := int(d.NumChans)
	return &Samples{
		Data:       downmix(buf.Data, channels, int(d.BitDepth)),
		SampleRate: int(d.SampleRate),
		Channels:   channels,
		BitDepth:   int(d.BitDepth),
	}, nil
}

func downmix(data []int, channels, bitDepth int) []float64 {
	if channels < 1 {
		channels = 1
	}
	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned; go-audio returns raw 0..255 values.
		out := make([]float64, len(data)/channels)
		for i := range out {
			var sum float64
			for c := 0; c < channels; c++ {
				sum += float64(data[i*channels+c]-128) / 128
			}
			out[i] = sum / float64(channels)
		}
		return out
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c]) * scale
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// WriteWav encodes mono samples in [-1, 1] as a 16-bit PCM WAV file.
func WriteWav(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * 32767))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return f.Close()
}
