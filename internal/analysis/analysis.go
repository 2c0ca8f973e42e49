// Package analysis defines the contract for multimodal consultation analysis.
//
// An analyzer takes a patient's voice note, photo, and typed question, sends
// them to a multimodal model in one request, and produces a normalized
// result. The model is asked for strict JSON; everything the model might do
// instead (code fences, legacy key names, placeholder transcriptions, junk
// output) is absorbed by the normalization in this package so callers never
// see a parse failure.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Anwarhacker/Medical-Assistant/internal/message"
)

// DefaultLanguage is the canonical analysis language. Localized output is
// only produced for other languages.
const DefaultLanguage = "English"

// FallbackAnalysis replaces a missing or implausibly short analysis.
const FallbackAnalysis = "Unable to generate an analysis for this input. Please try again with a clearer recording, image, or question."

// minAnalysisRunes is the length under which an analysis is considered unusable.
const minAnalysisRunes = 5

var (
	// ErrNoInput rejects a request with no audio, image, or question,
	// before any network call is made.
	ErrNoInput = errors.New("no audio, image, or question supplied")

	// ErrTimeout reports that the analysis call exceeded its deadline.
	ErrTimeout = errors.New("analysis request timed out")
)

// Request carries the inputs of one analysis call. Image bytes are expected
// to be prepared (bounded and JPEG-encoded) by the caller.
type Request struct {
	Audio     []byte
	AudioMIME string
	Image     []byte
	Question  string
	History   string // accumulated conversation transcript, empty on a fresh consultation
	Language  string // target language name, empty means DefaultLanguage
}

// HasAudio returns true if the request carries a voice note.
func (r *Request) HasAudio() bool { return len(r.Audio) > 0 }

// HasImage returns true if the request carries a photo.
func (r *Request) HasImage() bool { return len(r.Image) > 0 }

// TargetLanguage returns the normalized target language name.
func (r *Request) TargetLanguage() string {
	lang := strings.TrimSpace(r.Language)
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// Validate rejects requests with nothing to analyze.
func (r *Request) Validate() error {
	if !r.HasAudio() && !r.HasImage() && strings.TrimSpace(r.Question) == "" {
		return ErrNoInput
	}
	return nil
}

// Analyzer runs one multimodal analysis request.
type Analyzer interface {
	// Name returns the backend identifier (e.g., "gemini").
	Name() string

	// Analyze sends the request to the model and returns the normalized result.
	Analyze(ctx context.Context, req Request) (*message.AnalysisResult, error)

	// Close releases any resources held by the analyzer.
	Close() error
}

// SystemInstruction is the standing role and output contract sent with every
// analysis request.
const SystemInstruction = `You are a careful medical assistant. A patient gives you some combination of a recorded voice note, a photo, and a typed question. Explain what their symptoms suggest and what sensible next steps are, in plain language a layperson can follow. You are not their doctor: for anything urgent or severe, tell them to seek professional care.

Respond with a single JSON object containing exactly these keys:
  "transcription": verbatim transcription of the voice note, or null if no audio was provided
  "analysis_english": the full analysis in English
  "analysis_localized": the analysis translated into the requested language, or null if the request is in English

Return only the JSON object, with no surrounding prose or code fences.`

// BuildInstructions assembles the per-request instruction text. Its content
// varies with which inputs are present: history adds follow-up framing,
// audio adds transcription directives, an image adds examination directives,
// and a non-English target language adds the translation directive.
func BuildInstructions(req Request) string {
	var sb strings.Builder

	if req.History != "" {
		sb.WriteString("This is a follow-up to an ongoing consultation. Conversation so far:\n")
		sb.WriteString(req.History)
		sb.WriteString("\n\nAnswer the new inputs in the context of that conversation.\n\n")
	}
	if req.HasAudio() {
		sb.WriteString("Transcribe the voice note word for word and treat it as the patient's spoken question.\n")
	}
	if req.HasImage() {
		sb.WriteString("Examine the attached photo for visible symptoms, describe what you see, and factor it into the analysis.\n")
	}
	if q := strings.TrimSpace(req.Question); q != "" {
		sb.WriteString("The patient typed this question: ")
		sb.WriteString(q)
		sb.WriteString("\n")
	}
	if lang := req.TargetLanguage(); !IsDefaultLanguage(lang) {
		fmt.Fprintf(&sb, "Translate the complete analysis into %s and return it as analysis_localized.\n", lang)
	}

	sb.WriteString("Respond with the JSON object only.")
	return sb.String()
}

// IsDefaultLanguage reports whether lang names the canonical language.
func IsDefaultLanguage(lang string) bool {
	lang = strings.TrimSpace(lang)
	return lang == "" || strings.EqualFold(lang, DefaultLanguage)
}

// reply mirrors the model's JSON contract, including the legacy key names
// older prompt revisions used for the analysis field.
type reply struct {
	Transcription     string `json:"transcription"`
	AnalysisEnglish   string `json:"analysis_english"`
	AnalysisLocalized string `json:"analysis_localized"`
	Analysis          string `json:"analysis"`
	Diagnosis         string `json:"diagnosis"`
}

// ParseReply converts raw model output into a normalized AnalysisResult. It
// never fails: a reply that is not valid JSON becomes a best-effort result
// with the raw text as the analysis and an empty transcription.
func ParseReply(raw string, hasAudio bool, language string) *message.AnalysisResult {
	res := &message.AnalysisResult{}

	cleaned := StripCodeFences(raw)
	var rep reply
	if err := json.Unmarshal([]byte(cleaned), &rep); err != nil {
		res.Analysis = strings.TrimSpace(raw)
	} else {
		res.Transcription = NormalizeTranscription(rep.Transcription)
		res.Analysis = firstNonEmpty(rep.AnalysisEnglish, rep.Analysis, rep.Diagnosis)
		if !IsDefaultLanguage(language) {
			res.LocalizedAnalysis = strings.TrimSpace(rep.AnalysisLocalized)
		}
	}

	if !hasAudio {
		res.Transcription = ""
	}
	if utf8.RuneCountInString(res.Analysis) < minAnalysisRunes {
		res.Analysis = FallbackAnalysis
	}
	return res
}

// StripCodeFences removes a surrounding Markdown code fence, with or without
// a language tag.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NormalizeTranscription collapses placeholder transcriptions to empty.
// Tokens such as "null", "None." or "N/A" (case-insensitive, surrounding
// punctuation ignored) mean the model heard nothing.
func NormalizeTranscription(s string) string {
	t := strings.TrimSpace(s)
	stripped := strings.ToLower(strings.TrimFunc(t, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	}))
	switch stripped {
	case "", "null", "none", "n/a":
		return ""
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
