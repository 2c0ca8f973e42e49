// Package session implements the consultation state machine.
//
// The manager receives consultation requests from transports, decides
// whether each one continues the ongoing conversation or starts over, runs
// the analysis pipeline, and keeps the accumulated context that follow-up
// questions are answered against. A follow-up is any request whose image
// fingerprint matches the previous turn, including both turns having no
// image at all; a changed or newly added image starts a fresh consultation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Anwarhacker/Medical-Assistant/internal/analysis"
	"github.com/Anwarhacker/Medical-Assistant/internal/config"
	"github.com/Anwarhacker/Medical-Assistant/internal/history"
	"github.com/Anwarhacker/Medical-Assistant/internal/media"
	"github.com/Anwarhacker/Medical-Assistant/internal/message"
	"github.com/Anwarhacker/Medical-Assistant/internal/tts"
)

var (
	// ErrBusy rejects a consultation that overlaps one already running on
	// the same session.
	ErrBusy = errors.New("consultation already in progress")

	// ErrNotFound reports an unknown session ID.
	ErrNotFound = errors.New("session not found")

	// ErrSpeechDisabled reports that no synthesizer is configured.
	ErrSpeechDisabled = errors.New("speech synthesis is disabled")
)

// state is one session's mutable record. All access goes through the
// manager's mutex.
type state struct {
	id               string
	result           *message.AnalysisResult
	historyText      string
	lastFingerprint  string
	voiceAudio       []byte
	voiceContentType string
	busy             bool
	lastActive       time.Time
}

// Snapshot is a read-only view of a session. Voice audio is summarized by
// size; clients fetch the bytes from the consultation response.
type Snapshot struct {
	ID               string                  `json:"session_id"`
	Result           *message.AnalysisResult `json:"result,omitempty"`
	VoiceContentType string                  `json:"voice_content_type,omitempty"`
	VoiceBytes       int                     `json:"voice_bytes"`
	Busy             bool                    `json:"busy"`
	LastActive       time.Time               `json:"last_active"`
}

// Manager owns every live session.
type Manager struct {
	analyzer    analysis.Analyzer
	synthesizer tts.Synthesizer // nil if TTS is disabled
	store       *history.Store
	cfg         config.SessionConfig
	imageCfg    config.ImageConfig

	mu       sync.Mutex
	sessions map[string]*state
	clock    func() time.Time
}

// NewManager creates a session manager. synthesizer may be nil; store may be
// nil when the consultation log is not wanted.
func NewManager(analyzer analysis.Analyzer, synthesizer tts.Synthesizer, store *history.Store, cfg config.SessionConfig, imageCfg config.ImageConfig) *Manager {
	return &Manager{
		analyzer:    analyzer,
		synthesizer: synthesizer,
		store:       store,
		cfg:         cfg,
		imageCfg:    imageCfg,
		sessions:    make(map[string]*state),
		clock:       time.Now,
	}
}

// Consult processes a single consultation request through the full
// pipeline. This function backs transport.Handler for each transport.
//
// The returned result always carries whatever is known, including the error
// text on failure, so transports can serialize it directly; the error return
// drives status mapping.
func (m *Manager) Consult(ctx context.Context, req *message.ConsultRequest) (*message.ConsultResult, error) {
	start := time.Now()

	result := &message.ConsultResult{SessionID: req.SessionID}

	if !req.HasInput() {
		result.Error = analysis.ErrNoInput.Error()
		return result, analysis.ErrNoInput
	}

	// Media preparation runs before the session is touched: a request with
	// a broken image must not create or mutate anything.
	audioMIME := media.AudioMIME(req.AudioContentType)
	imageBytes := req.Image
	if req.HasImage() {
		prepared, err := media.PrepareImage(req.Image, m.imageCfg.MaxEdge, m.imageCfg.Quality)
		if err != nil {
			result.Error = err.Error()
			return result, err
		}
		imageBytes = prepared
	}
	fingerprint := media.Fingerprint(req.Image)

	m.mu.Lock()
	s := m.sessions[req.SessionID]
	if s == nil {
		id := req.SessionID
		if id == "" {
			id = uuid.NewString()
		}
		s = &state{id: id}
		m.sessions[id] = s
	}
	if s.busy {
		m.mu.Unlock()
		result.SessionID = s.id
		result.Error = ErrBusy.Error()
		return result, ErrBusy
	}
	s.busy = true
	followUp := s.result != nil && s.lastFingerprint == fingerprint
	if !followUp {
		// Fresh consultation: drop the prior context now so a snapshot
		// taken while the analysis runs never shows a stale result.
		s.result = nil
		s.historyText = ""
		s.voiceAudio = nil
		s.voiceContentType = ""
	}
	historyText := s.historyText
	s.lastActive = m.clock()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		s.busy = false
		m.mu.Unlock()
	}()

	result.SessionID = s.id
	result.FollowUp = followUp

	logger := slog.With("session_id", s.id, "follow_up", followUp)
	logger.Info("consultation started",
		"has_audio", req.HasAudio(),
		"has_image", req.HasImage(),
		"has_question", strings.TrimSpace(req.Question) != "",
		"language", req.Language)

	ares, err := m.analyzer.Analyze(ctx, analysis.Request{
		Audio:     req.Audio,
		AudioMIME: audioMIME,
		Image:     imageBytes,
		Question:  req.Question,
		History:   historyText,
		Language:  req.Language,
	})
	if err != nil {
		logger.Error("analysis failed", "error", err)
		result.Error = err.Error()
		return result, err
	}

	// Commit the turn. The displayed analysis is the accumulated
	// transcript; the localized text always reflects only the newest turn.
	m.mu.Lock()
	if followUp {
		asked := firstNonEmpty(strings.TrimSpace(req.Question), ares.Transcription, "(voice note)")
		s.historyText += "\n\nPatient asked: " + asked + "\nAssistant answered: " + ares.Analysis
	} else {
		s.historyText = ares.Analysis
	}
	displayed := *ares
	displayed.Analysis = s.historyText
	s.result = &displayed
	s.lastFingerprint = fingerprint
	s.lastActive = m.clock()
	m.mu.Unlock()

	result.Transcription = ares.Transcription
	result.Analysis = displayed.Analysis
	result.LocalizedAnalysis = ares.LocalizedAnalysis

	// Speak the newest turn, preferring the patient's language.
	voiceBytes := 0
	speak := ares.LocalizedAnalysis
	if speak == "" {
		speak = ares.Analysis
	}
	if m.synthesizer != nil && speak != "" {
		synthRes, err := m.synthesizer.Synthesize(ctx, speak, tts.SynthesizeOpts{})
		if err != nil {
			logger.Warn("TTS synthesis failed, continuing without audio", "error", err)
		} else {
			m.mu.Lock()
			s.voiceAudio = synthRes.Audio
			s.voiceContentType = synthRes.ContentType
			m.mu.Unlock()
			result.SetVoiceAudioBytes(synthRes.Audio)
			result.VoiceContentType = synthRes.ContentType
			voiceBytes = len(synthRes.Audio)
			logger.Info("TTS synthesis complete", "audio_bytes", voiceBytes)
		}
	}

	if m.store != nil {
		kind := history.KindFresh
		if followUp {
			kind = history.KindFollowUp
		}
		err := m.store.Append(ctx, history.Turn{
			SessionID:     s.id,
			Kind:          kind,
			Question:      strings.TrimSpace(req.Question),
			Transcription: ares.Transcription,
			Analysis:      ares.Analysis,
			Language:      req.Language,
			VoiceBytes:    voiceBytes,
		})
		if err != nil {
			logger.Warn("history append failed", "error", err)
		}
	}

	logger.Info("consultation complete", "duration", time.Since(start), "analysis_length", len(ares.Analysis))
	return result, nil
}

// Speak synthesizes arbitrary text outside any session.
func (m *Manager) Speak(ctx context.Context, text, voice string) (*tts.SynthesizeResult, error) {
	if m.synthesizer == nil {
		return nil, ErrSpeechDisabled
	}
	return m.synthesizer.Synthesize(ctx, text, tts.SynthesizeOpts{Voice: voice})
}

// Snapshot returns a read-only view of a session.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap := Snapshot{
		ID:               s.id,
		VoiceContentType: s.voiceContentType,
		VoiceBytes:       len(s.voiceAudio),
		Busy:             s.busy,
		LastActive:       s.lastActive,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap, nil
}

// Reset clears a session's accumulated context in one place: result,
// history, image fingerprint, and voice audio.
func (m *Manager) Reset(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.busy {
		return ErrBusy
	}
	s.result = nil
	s.historyText = ""
	s.lastFingerprint = ""
	s.voiceAudio = nil
	s.voiceContentType = ""
	s.lastActive = m.clock()
	return nil
}

// Run sweeps idle sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep drops sessions idle beyond the TTL. Busy sessions are never swept.
func (m *Manager) sweep() {
	ttl := m.cfg.IdleTTL
	if ttl <= 0 {
		return
	}
	cutoff := m.clock().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !s.busy && s.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("idle sessions swept", "count", removed, "remaining", len(m.sessions))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
