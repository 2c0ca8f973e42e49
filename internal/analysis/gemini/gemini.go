// Package gemini implements the analysis.Analyzer interface on Google's
// Generative AI API.
//
// One multimodal generateContent request carries the voice note, the photo,
// and the typed question together with the consultation instructions; the
// model replies with the structured JSON that the analysis package
// normalizes.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Anwarhacker/Medical-Assistant/internal/analysis"
	"github.com/Anwarhacker/Medical-Assistant/internal/config"
	"github.com/Anwarhacker/Medical-Assistant/internal/media"
	"github.com/Anwarhacker/Medical-Assistant/internal/message"
)

// Analyzer issues consultation requests against the Gemini API.
type Analyzer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a Gemini analyzer from config. The API client is constructed
// once and reused for every request; a missing API key fails here so the
// daemon refuses to start half-configured.
func New(ctx context.Context, gcfg config.GeminiConfig, acfg config.AnalysisConfig) (*Analyzer, error) {
	key := gcfg.Key()
	if key == "" {
		return nil, errors.New("missing Gemini API key (set GEMINI_API_KEY)")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Analyzer{
		client:  client,
		model:   strings.TrimSpace(acfg.Model),
		timeout: acfg.Timeout,
	}, nil
}

// Name returns the backend identifier.
func (a *Analyzer) Name() string { return "gemini" }

// Analyze sends one multimodal request and returns the normalized result.
func (a *Analyzer) Analyze(ctx context.Context, req analysis.Request) (*message.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m := a.client.GenerativeModel(a.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema,
	}
	m.SafetySettings = safetySettings
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(analysis.SystemInstruction)},
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := m.GenerateContent(callCtx, buildParts(req)...)
	if err != nil {
		return nil, mapCallError(callCtx, err)
	}

	raw := firstText(resp)
	if raw == "" {
		return nil, fmt.Errorf("gemini returned an empty reply")
	}

	result := analysis.ParseReply(raw, req.HasAudio(), req.Language)
	slog.Debug("analysis complete",
		"model", a.model,
		"duration", time.Since(started),
		"reply_length", len(raw),
		"has_transcription", result.Transcription != "")
	return result, nil
}

// Close releases the underlying API client.
func (a *Analyzer) Close() error { return a.client.Close() }

// --- Internal types and helpers ---

// resultSchema pins the model to the three-key consultation contract.
var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"transcription":      {Type: genai.TypeString, Nullable: true},
		"analysis_english":   {Type: genai.TypeString},
		"analysis_localized": {Type: genai.TypeString, Nullable: true},
	},
	Required: []string{"analysis_english"},
}

// safetySettings block only the highest-severity tier. Symptom descriptions
// and wound photos trip the default thresholds.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockOnlyHigh},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
}

// buildParts assembles the request in the order the instructions reference
// the attachments: audio blob, image blob, trailing instruction text.
func buildParts(req analysis.Request) []genai.Part {
	parts := make([]genai.Part, 0, 3)
	if req.HasAudio() {
		parts = append(parts, &genai.Blob{MIMEType: media.AudioMIME(req.AudioMIME), Data: req.Audio})
	}
	if req.HasImage() {
		parts = append(parts, &genai.Blob{MIMEType: media.ImageMIME, Data: req.Image})
	}
	parts = append(parts, genai.Text(analysis.BuildInstructions(req)))
	return parts
}

// mapCallError turns deadline expiry into the fixed timeout error so callers
// surface it instead of SDK internals.
func mapCallError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return analysis.ErrTimeout
	}
	return fmt.Errorf("gemini request: %w", err)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
