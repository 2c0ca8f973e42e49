// Package message defines the core data types flowing through the consultation pipeline.
package message

import (
	"encoding/base64"
	"time"
)

// ConsultRequest represents an incoming consultation from any transport.
//
// Audio and Image are raw bytes; the JSON encoding is standard base64 as
// produced by encoding/json for byte slices.
type ConsultRequest struct {
	// SessionID ties the request to an existing conversation. Empty means
	// the server assigns a new session.
	SessionID string `json:"session_id,omitempty"`

	// Audio is the patient's voice note. Nil when no recording was supplied.
	Audio []byte `json:"audio,omitempty"`

	// AudioContentType is the MIME type of the audio (e.g., "audio/webm",
	// "audio/wav"). Defaulted by the server when empty.
	AudioContentType string `json:"audio_content_type,omitempty"`

	// Image is the symptom photo. Nil when no image was supplied.
	Image []byte `json:"image,omitempty"`

	// ImageContentType is the MIME type of the uploaded image. Informational:
	// images are re-encoded as JPEG before transmission regardless.
	ImageContentType string `json:"image_content_type,omitempty"`

	// Question is the patient's typed question, if any.
	Question string `json:"question,omitempty"`

	// Language is the target language name for the localized analysis
	// (e.g., "Hindi"). Empty means English.
	Language string `json:"language,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// HasAudio returns true if the request carries a voice note.
func (r *ConsultRequest) HasAudio() bool {
	return len(r.Audio) > 0
}

// HasImage returns true if the request carries a photo.
func (r *ConsultRequest) HasImage() bool {
	return len(r.Image) > 0
}

// HasInput returns true if at least one of audio, image, or question is present.
func (r *ConsultRequest) HasInput() bool {
	return r.HasAudio() || r.HasImage() || r.Question != ""
}

// AnalysisResult is the normalized output of one analysis call.
type AnalysisResult struct {
	// Transcription is the verbatim transcription of the voice note.
	// Empty when no audio was supplied or the model produced none.
	Transcription string `json:"transcription"`

	// Analysis is the canonical English analysis text.
	Analysis string `json:"analysis"`

	// LocalizedAnalysis is the analysis translated into the requested
	// language. Empty when the target language is English.
	LocalizedAnalysis string `json:"localized_analysis,omitempty"`
}

// ConsultResult is the outcome of processing a consultation.
type ConsultResult struct {
	// SessionID identifies the conversation this turn belongs to.
	SessionID string `json:"session_id"`

	// FollowUp reports whether the turn continued an existing conversation.
	FollowUp bool `json:"follow_up"`

	// Transcription is what the model heard in the voice note.
	Transcription string `json:"transcription,omitempty"`

	// Analysis is the English analysis. On follow-up turns it carries the
	// accumulated conversation transcript.
	Analysis string `json:"analysis,omitempty"`

	// LocalizedAnalysis is the newest turn's analysis in the target language.
	LocalizedAnalysis string `json:"localized_analysis,omitempty"`

	// VoiceAudio is the synthesized reply as a base64-encoded WAV file.
	VoiceAudio string `json:"voice_audio,omitempty"`

	// VoiceContentType is the MIME type of VoiceAudio (e.g., "audio/wav").
	VoiceContentType string `json:"voice_content_type,omitempty"`

	// Error is set if the consultation failed at any stage.
	Error string `json:"error,omitempty"`
}

// SetVoiceAudioBytes base64-encodes raw audio bytes into VoiceAudio.
func (r *ConsultResult) SetVoiceAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.VoiceAudio = base64.StdEncoding.EncodeToString(audio)
	}
}
