package autochord

import (
	"errors"

	"github.com/himanishpuri/AutoChord/pkg/autochord/runner"
)

var (
	ErrAnalysisNotFound  = errors.New("analysis not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAudio        = errors.New("audio contains no samples")
)

// ProcessError reports a failed external tool invocation.
type ProcessError = runner.ProcessError

// UnknownKey is the key signature reported when the audio carries no usable
// pitch content.
const UnknownKey = "Unknown"
