// Package tts defines the interface for speech synthesis.
//
// The assistant speaks the analysis back to the patient, so every successful
// consultation ends with a synthesis pass. Backends receive plain text and
// return a playable WAV clip; PrepareText flattens the markup the model
// likes to emit before it reaches a voice.
package tts

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrNoAudio reports a synthesis reply that carried no audio payload.
var ErrNoAudio = errors.New("synthesis returned no audio")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice overrides the configured voice name.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates spoken audio from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the synthesized audio as a WAV file.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Channels is the number of audio channels (typically 1).
	Channels int
}

var (
	linkRe         = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headerRe       = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	markupReplacer = strings.NewReplacer("**", "", "__", "", "*", "", "`", "")
)

// PrepareText flattens markdown-style markup to plain speech and bounds the
// length so one long analysis does not monopolize the synthesis quota.
// maxChars counts runes; zero disables truncation.
func PrepareText(text string, maxChars int) string {
	text = linkRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = markupReplacer.Replace(text)
	text = strings.TrimSpace(text)

	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars]) + "..."
		}
	}
	return text
}
