package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/seslichat/sesli/pkg/Logger"
)

var (
	// ErrMissingInput means neither a usable audio payload nor
	// non-blank text was supplied.
	ErrMissingInput = errors.New("either an audio file or text input is required")
	// ErrInputResolution means the audio payload could not be turned
	// into text. Callers get this single uniform failure regardless of
	// what went wrong inside recognition.
	ErrInputResolution = errors.New("could not extract any user input from audio")
)

// Transcriber extracts text from a raw audio blob.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// InputResolver normalizes a user turn, spoken or typed, into text.
type InputResolver struct {
	stt    Transcriber
	logger *Logger.Logger
}

func NewInputResolver(stt Transcriber, logger *Logger.Logger) *InputResolver {
	return &InputResolver{stt: stt, logger: logger}
}

// Resolve returns the normalized text and whether it came from audio.
// An audio payload takes precedence; text-only turns are trimmed and
// rejected when blank.
func (r *InputResolver) Resolve(ctx context.Context, audio []byte, text string) (string, bool, error) {
	if len(audio) > 0 {
		resolved, err := r.stt.Transcribe(ctx, audio)
		if err != nil {
			r.logger.Errorf("audio input resolution failed: %v", err)
			return "", false, ErrInputResolution
		}
		resolved = strings.TrimSpace(resolved)
		if resolved == "" {
			return "", false, ErrInputResolution
		}
		return resolved, strings.TrimSpace(text) == "", nil
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false, ErrMissingInput
	}
	return trimmed, false, nil
}
