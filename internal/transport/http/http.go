// Package http implements the browser-facing HTTP transport.
//
// This transport exposes the consultation REST API plus the standalone
// speech endpoint and the swagger UI. It is what the web client records
// against: multipart uploads for voice notes and photos, JSON for
// programmatic callers.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/Anwarhacker/Medical-Assistant/internal/analysis"
	"github.com/Anwarhacker/Medical-Assistant/internal/media"
	"github.com/Anwarhacker/Medical-Assistant/internal/message"
	"github.com/Anwarhacker/Medical-Assistant/internal/session"
	"github.com/Anwarhacker/Medical-Assistant/internal/transport"
)

const maxBodyBytes = 25 << 20 // 25 MB

var errUnsupportedMedia = errors.New("unsupported content type")

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// routes builds the request mux. Split out so tests can drive the API
// without a listening socket.
func (t *Transport) routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/consult", func(w http.ResponseWriter, r *http.Request) {
		t.handleConsult(w, r, handler)
	})
	mux.HandleFunc("POST /v1/speak", func(w http.ResponseWriter, r *http.Request) {
		t.handleSpeak(w, r, handler)
	})
	mux.HandleFunc("GET /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		t.handleSnapshot(w, r, handler)
	})
	mux.HandleFunc("POST /v1/sessions/{id}/reset", func(w http.ResponseWriter, r *http.Request) {
		t.handleReset(w, r, handler)
	})

	// Swagger UI — serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// handleConsult processes a POST /v1/consult request.
//
// @Summary     Run one consultation turn
// @Description Accepts multipart/form-data with optional "audio" and "image" files plus "question",
// @Description "language", and "session_id" fields, or an equivalent JSON body with base64 audio/image.
// @Description The inputs are analyzed in the context of the session: a request whose image matches
// @Description the previous turn (including both having none) continues the conversation, anything
// @Description else starts fresh.
// @Tags        consult
// @Accept      mpfd
// @Accept      json
// @Produce     json
// @Param       audio       formData  file    false  "Voice note (webm/ogg/wav)"
// @Param       image       formData  file    false  "Symptom photo"
// @Param       question    formData  string  false  "Typed question"
// @Param       language    formData  string  false  "Target language for the localized analysis"
// @Param       session_id  formData  string  false  "Session to continue; omitted on the first turn"
// @Success     200  {object}  message.ConsultResult  "Analysis with optional voice audio"
// @Failure     400  {object}  message.ConsultResult  "No usable input or undecodable image"
// @Failure     409  {object}  message.ConsultResult  "Consultation already in progress"
// @Failure     504  {object}  message.ConsultResult  "Analysis timed out"
// @Router      /v1/consult [post]
func (t *Transport) handleConsult(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req, err := decodeConsultRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUnsupportedMedia) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	result, err := handler.Consult(r.Context(), req)
	if err != nil {
		slog.Error("consultation failed", "error", err)
		if result == nil {
			result = &message.ConsultResult{SessionID: req.SessionID, Error: err.Error()}
		}
		writeJSON(w, statusForError(err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSpeak processes a POST /v1/speak request.
//
// @Summary     Synthesize speech
// @Description Converts plain text to a spoken WAV clip (24 kHz mono 16-bit) without touching any session.
// @Tags        speak
// @Accept      json
// @Produce     audio/wav
// @Param       request  body  speakRequest  true  "Text and optional voice override"
// @Success     200  {file}    file    "WAV audio"
// @Failure     400  {string}  string  "Missing text"
// @Failure     503  {string}  string  "Speech synthesis disabled"
// @Router      /v1/speak [post]
func (t *Transport) handleSpeak(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	res, err := handler.Speak(r.Context(), req.Text, req.Voice)
	if err != nil {
		slog.Error("speech synthesis failed", "error", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Audio)))
	_, _ = w.Write(res.Audio)
}

// handleSnapshot processes a GET /v1/sessions/{id} request.
//
// @Summary     Inspect a session
// @Description Returns the session's current result, voice audio size, and busy state.
// @Tags        sessions
// @Produce     json
// @Param       id  path  string  true  "Session ID"
// @Success     200  {object}  session.Snapshot
// @Failure     404  {string}  string  "Unknown session"
// @Router      /v1/sessions/{id} [get]
func (t *Transport) handleSnapshot(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	snap, err := handler.Snapshot(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleReset processes a POST /v1/sessions/{id}/reset request.
//
// @Summary     Reset a session
// @Description Clears the session's result, history, image fingerprint, and voice audio in one step.
// @Tags        sessions
// @Param       id  path  string  true  "Session ID"
// @Success     204  {string}  string  "Cleared"
// @Failure     404  {string}  string  "Unknown session"
// @Failure     409  {string}  string  "Consultation in progress"
// @Router      /v1/sessions/{id}/reset [post]
func (t *Transport) handleReset(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	if err := handler.Reset(r.PathValue("id")); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// --- Request decoding and helpers ---

// speakRequest is the /v1/speak payload.
type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// decodeConsultRequest accepts the browser's multipart upload or a JSON
// body from programmatic callers.
func decodeConsultRequest(r *http.Request) (*message.ConsultRequest, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch {
	case mediaType == "application/json":
		var req message.ConsultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return &req, nil

	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		req := &message.ConsultRequest{
			SessionID: r.FormValue("session_id"),
			Question:  r.FormValue("question"),
			Language:  r.FormValue("language"),
		}

		audio, header, err := readFormFile(r, "audio")
		if err != nil {
			return nil, err
		}
		req.Audio = audio
		if header != nil {
			req.AudioContentType = header.Header.Get("Content-Type")
		}

		image, header, err := readFormFile(r, "image")
		if err != nil {
			return nil, err
		}
		req.Image = image
		if header != nil {
			req.ImageContentType = header.Header.Get("Content-Type")
		}
		return req, nil

	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedMedia, contentType)
	}
}

// readFormFile reads an optional upload; a missing file is not an error.
func readFormFile(r *http.Request, field string) ([]byte, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s upload: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s upload: %w", field, err)
	}
	return data, header, nil
}

// statusForError maps handler errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, analysis.ErrNoInput), errors.Is(err, media.ErrBadImage):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrSpeechDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
