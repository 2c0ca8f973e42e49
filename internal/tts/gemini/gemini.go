// Package gemini implements the TTS Synthesizer against the Gemini speech
// generation endpoint.
//
// The preview TTS models answer generateContent requests that ask for the
// audio response modality with inline base64 PCM at 24 kHz mono 16-bit.
// This package issues that REST call and wraps the samples in a WAV
// container for playback.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Anwarhacker/Medical-Assistant/internal/audio"
	"github.com/Anwarhacker/Medical-Assistant/internal/config"
	"github.com/Anwarhacker/Medical-Assistant/internal/tts"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Synthesizer generates speech through the Gemini API.
type Synthesizer struct {
	apiKey   string
	model    string
	voice    string
	maxChars int
	baseURL  string
	client   *http.Client
}

// New creates a Gemini synthesizer from config. A missing API key fails here
// for the same reason the analyzer refuses one: every later request would
// fail anyway.
func New(gcfg config.GeminiConfig, tcfg config.TTSConfig) (*Synthesizer, error) {
	key := gcfg.Key()
	if key == "" {
		return nil, errors.New("missing Gemini API key (set GEMINI_API_KEY)")
	}
	return &Synthesizer{
		apiKey:   key,
		model:    strings.TrimSpace(tcfg.Model),
		voice:    tcfg.Voice,
		maxChars: tcfg.MaxChars,
		baseURL:  defaultBaseURL,
		client:   &http.Client{},
	}, nil
}

// Synthesize sends text to the speech model and returns the spoken WAV clip.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	text = tts.PrepareText(text, s.maxChars)
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: text}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating synthesis request: %w", err)
	}
	req.Header.Set("x-goog-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("synthesis failed (status %d): %s", resp.StatusCode, respBody)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding synthesis response: %w", err)
	}

	pcm, err := collectPCM(genResp)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, tts.ErrNoAudio
	}

	slog.Debug("synthesis complete", "voice", voice, "text_length", len(text), "pcm_bytes", len(pcm))
	return &tts.SynthesizeResult{
		Audio:       audio.EncodeWAV(pcm, audio.SampleRate, audio.Channels, audio.BitsPerSample),
		ContentType: "audio/wav",
		SampleRate:  audio.SampleRate,
		Channels:    audio.Channels,
	}, nil
}

// Close is a no-op — requests share one plain HTTP client.
func (s *Synthesizer) Close() error { return nil }

// --- Internal types and helpers ---

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// collectPCM concatenates every inline audio payload in reply order. Long
// clips arrive split across parts.
func collectPCM(resp generateResponse) ([]byte, error) {
	var pcm []byte
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData.Data == "" {
				continue
			}
			chunk, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding audio payload: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
	}
	return pcm, nil
}
