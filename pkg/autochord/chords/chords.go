// Package chords obtains a chord timeline for a WAV file from an external
// recognizer.
package chords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/himanishpuri/AutoChord/pkg/autochord/runner"
	"github.com/himanishpuri/AutoChord/pkg/models"
)

// Recognizer produces the chord timeline of a mono WAV file.
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) ([]models.ChordSegment, error)
}

// NopRecognizer returns an empty timeline.
type NopRecognizer struct{}

func (NopRecognizer) Recognize(context.Context, string) ([]models.ChordSegment, error) {
	return []models.ChordSegment{}, nil
}

// CommandRecognizer runs an external program with the WAV path appended to
// its arguments and reads the timeline as JSON from its stdout.
type CommandRecognizer struct {
	runner *runner.Runner
	args   []string
}

// NewCommandRecognizer builds a recognizer for command. args precede the WAV path.
func NewCommandRecognizer(command string, args ...string) *CommandRecognizer {
	return &CommandRecognizer{
		runner: runner.New(command),
		args:   append([]string(nil), args...),
	}
}

func (r *CommandRecognizer) Recognize(ctx context.Context, wavPath string) ([]models.ChordSegment, error) {
	args := append(append([]string(nil), r.args...), wavPath)
	res, err := r.runner.Run(ctx, "recognize", args...)
	if err != nil {
		return nil, err
	}

	segments, err := ParseSegments([]byte(res.Stdout))
	if err != nil {
		return nil, runner.NewProcessError(r.runner.Tool, "recognize", 0, res.Stderr, err)
	}
	return segments, nil
}

var ErrMalformedOutput = errors.New("malformed recognizer output")

type objectSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Chord string  `json:"chord"`
	Label string  `json:"label"`
}

// ParseSegments decodes either [[start, end, "label"], ...] or
// [{"start": s, "end": e, "chord": "label"}, ...]. Times are rounded to two
// decimals and every segment gets confidence 1.0.
func ParseSegments(data []byte) ([]models.ChordSegment, error) {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	segments := make([]models.ChordSegment, 0, len(raw))
	for i, item := range raw {
		seg, err := parseSegment(item)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformedOutput, i, err)
		}
		if seg.End < seg.Start {
			return nil, fmt.Errorf("%w: segment %d ends before it starts", ErrMalformedOutput, i)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseSegment(item json.RawMessage) (models.ChordSegment, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(item, &tuple); err == nil {
		if len(tuple) != 3 {
			return models.ChordSegment{}, fmt.Errorf("expected 3 fields, got %d", len(tuple))
		}
		var start, end float64
		var label string
		if err := json.Unmarshal(tuple[0], &start); err != nil {
			return models.ChordSegment{}, fmt.Errorf("start: %v", err)
		}
		if err := json.Unmarshal(tuple[1], &end); err != nil {
			return models.ChordSegment{}, fmt.Errorf("end: %v", err)
		}
		if err := json.Unmarshal(tuple[2], &label); err != nil {
			return models.ChordSegment{}, fmt.Errorf("label: %v", err)
		}
		return newSegment(start, end, label), nil
	}

	var obj objectSegment
	if err := json.Unmarshal(item, &obj); err != nil {
		return models.ChordSegment{}, err
	}
	label := obj.Chord
	if label == "" {
		label = obj.Label
	}
	return newSegment(obj.Start, obj.End, label), nil
}

func newSegment(start, end float64, label string) models.ChordSegment {
	return models.ChordSegment{
		Start:      round2(start),
		End:        round2(end),
		Chord:      label,
		Confidence: 1.0,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
