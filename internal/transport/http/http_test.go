package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/Anwarhacker/Medical-Assistant/internal/analysis"
	"github.com/Anwarhacker/Medical-Assistant/internal/media"
	"github.com/Anwarhacker/Medical-Assistant/internal/message"
	"github.com/Anwarhacker/Medical-Assistant/internal/session"
	"github.com/Anwarhacker/Medical-Assistant/internal/tts"
)

// mockHandler records calls and returns canned responses.
type mockHandler struct {
	consultReq *message.ConsultRequest
	consultRes *message.ConsultResult
	consultErr error

	speakText  string
	speakVoice string
	speakRes   *tts.SynthesizeResult
	speakErr   error

	snapshotID  string
	snapshotRes session.Snapshot
	snapshotErr error

	resetID  string
	resetErr error
}

func (m *mockHandler) Consult(ctx context.Context, req *message.ConsultRequest) (*message.ConsultResult, error) {
	m.consultReq = req
	return m.consultRes, m.consultErr
}

func (m *mockHandler) Speak(ctx context.Context, text, voice string) (*tts.SynthesizeResult, error) {
	m.speakText = text
	m.speakVoice = voice
	return m.speakRes, m.speakErr
}

func (m *mockHandler) Snapshot(id string) (session.Snapshot, error) {
	m.snapshotID = id
	return m.snapshotRes, m.snapshotErr
}

func (m *mockHandler) Reset(id string) error {
	m.resetID = id
	return m.resetErr
}

func newTestServer(t *testing.T, mock *mockHandler) *httptest.Server {
	t.Helper()
	tr := New(0)
	srv := httptest.NewServer(tr.routes(mock))
	t.Cleanup(srv.Close)
	return srv
}

func TestConsultMultipart(t *testing.T) {
	mock := &mockHandler{consultRes: &message.ConsultResult{
		SessionID: "sess-1",
		Analysis:  "Rest and fluids.",
	}}
	srv := newTestServer(t, mock)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	audioHdr := textproto.MIMEHeader{}
	audioHdr.Set("Content-Disposition", `form-data; name="audio"; filename="note.webm"`)
	audioHdr.Set("Content-Type", "audio/webm;codecs=opus")
	part, err := w.CreatePart(audioHdr)
	if err != nil {
		t.Fatalf("creating audio part: %v", err)
	}
	if _, err := part.Write([]byte("fake-audio")); err != nil {
		t.Fatalf("writing audio part: %v", err)
	}

	imageHdr := textproto.MIMEHeader{}
	imageHdr.Set("Content-Disposition", `form-data; name="image"; filename="rash.png"`)
	imageHdr.Set("Content-Type", "image/png")
	part, err = w.CreatePart(imageHdr)
	if err != nil {
		t.Fatalf("creating image part: %v", err)
	}
	if _, err := part.Write([]byte("fake-image")); err != nil {
		t.Fatalf("writing image part: %v", err)
	}

	_ = w.WriteField("question", "what is this rash?")
	_ = w.WriteField("language", "Hindi")
	_ = w.WriteField("session_id", "sess-1")
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/consult", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("posting consult: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	req := mock.consultReq
	if req == nil {
		t.Fatal("handler never received a request")
	}
	if req.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", req.SessionID, "sess-1")
	}
	if req.Question != "what is this rash?" {
		t.Errorf("Question = %q", req.Question)
	}
	if req.Language != "Hindi" {
		t.Errorf("Language = %q", req.Language)
	}
	if string(req.Audio) != "fake-audio" {
		t.Errorf("Audio = %q", req.Audio)
	}
	if req.AudioContentType != "audio/webm;codecs=opus" {
		t.Errorf("AudioContentType = %q", req.AudioContentType)
	}
	if string(req.Image) != "fake-image" {
		t.Errorf("Image = %q", req.Image)
	}
	if req.ImageContentType != "image/png" {
		t.Errorf("ImageContentType = %q", req.ImageContentType)
	}

	var result message.ConsultResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Analysis != "Rest and fluids." {
		t.Errorf("Analysis = %q", result.Analysis)
	}
}

func TestConsultMultipartWithoutFiles(t *testing.T) {
	mock := &mockHandler{consultRes: &message.ConsultResult{SessionID: "sess-2"}}
	srv := newTestServer(t, mock)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("question", "just a typed question")
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/consult", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("posting consult: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	req := mock.consultReq
	if req == nil {
		t.Fatal("handler never received a request")
	}
	if req.Question != "just a typed question" {
		t.Errorf("Question = %q", req.Question)
	}
	if req.Audio != nil || req.Image != nil {
		t.Errorf("expected no uploads, got audio=%d image=%d bytes", len(req.Audio), len(req.Image))
	}
}

func TestConsultJSON(t *testing.T) {
	mock := &mockHandler{consultRes: &message.ConsultResult{SessionID: "sess-3"}}
	srv := newTestServer(t, mock)

	payload, err := json.Marshal(message.ConsultRequest{
		Question: "typed question",
		Audio:    []byte{1, 2, 3},
		Language: "Kannada",
	})
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/consult", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("posting consult: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	req := mock.consultReq
	if req == nil {
		t.Fatal("handler never received a request")
	}
	if req.Question != "typed question" {
		t.Errorf("Question = %q", req.Question)
	}
	if !bytes.Equal(req.Audio, []byte{1, 2, 3}) {
		t.Errorf("Audio = %v", req.Audio)
	}
	if req.Language != "Kannada" {
		t.Errorf("Language = %q", req.Language)
	}
}

func TestConsultUnsupportedContentType(t *testing.T) {
	mock := &mockHandler{}
	srv := newTestServer(t, mock)

	resp, err := http.Post(srv.URL+"/v1/consult", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("posting consult: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnsupportedMediaType)
	}
	if mock.consultReq != nil {
		t.Error("handler should not have been called")
	}
}

func TestConsultErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"no input", analysis.ErrNoInput, http.StatusBadRequest},
		{"bad image", media.ErrBadImage, http.StatusBadRequest},
		{"busy", session.ErrBusy, http.StatusConflict},
		{"timeout", analysis.ErrTimeout, http.StatusGatewayTimeout},
		{"internal", errors.New("model exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockHandler{
				consultRes: &message.ConsultResult{SessionID: "sess-4", Error: tc.err.Error()},
				consultErr: tc.err,
			}
			srv := newTestServer(t, mock)

			resp, err := http.Post(srv.URL+"/v1/consult", "application/json", strings.NewReader(`{"question":"hi"}`))
			if err != nil {
				t.Fatalf("posting consult: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
			var result message.ConsultResult
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if result.Error != tc.err.Error() {
				t.Errorf("Error = %q, want %q", result.Error, tc.err.Error())
			}
		})
	}
}

func TestConsultErrorWithoutResult(t *testing.T) {
	mock := &mockHandler{consultErr: errors.New("backend exploded")}
	srv := newTestServer(t, mock)

	resp, err := http.Post(srv.URL+"/v1/consult", "application/json", strings.NewReader(`{"question":"hi","session_id":"sess-9"}`))
	if err != nil {
		t.Fatalf("posting consult: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	var result message.ConsultResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Error != "backend exploded" {
		t.Errorf("Error = %q", result.Error)
	}
	if result.SessionID != "sess-9" {
		t.Errorf("SessionID = %q, want %q", result.SessionID, "sess-9")
	}
}

func TestSpeak(t *testing.T) {
	mock := &mockHandler{speakRes: &tts.SynthesizeResult{
		Audio:       []byte("RIFFdata"),
		ContentType: "audio/wav",
		SampleRate:  24000,
		Channels:    1,
	}}
	srv := newTestServer(t, mock)

	resp, err := http.Post(srv.URL+"/v1/speak", "application/json", strings.NewReader(`{"text":"Take rest.","voice":"Puck"}`))
	if err != nil {
		t.Fatalf("posting speak: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q, want %q", ct, "audio/wav")
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading audio: %v", err)
	}
	if string(audio) != "RIFFdata" {
		t.Errorf("audio = %q", audio)
	}
	if mock.speakText != "Take rest." {
		t.Errorf("text = %q", mock.speakText)
	}
	if mock.speakVoice != "Puck" {
		t.Errorf("voice = %q", mock.speakVoice)
	}
}

func TestSpeakRequiresText(t *testing.T) {
	mock := &mockHandler{}
	srv := newTestServer(t, mock)

	for _, body := range []string{`{}`, `{"text":"   "}`} {
		resp, err := http.Post(srv.URL+"/v1/speak", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("posting speak: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, resp.StatusCode, http.StatusBadRequest)
		}
	}
	if mock.speakText != "" {
		t.Error("handler should not have been called")
	}
}

func TestSpeakDisabled(t *testing.T) {
	mock := &mockHandler{speakErr: session.ErrSpeechDisabled}
	srv := newTestServer(t, mock)

	resp, err := http.Post(srv.URL+"/v1/speak", "application/json", strings.NewReader(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("posting speak: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestSnapshot(t *testing.T) {
	mock := &mockHandler{snapshotRes: session.Snapshot{
		ID:         "sess-5",
		VoiceBytes: 1024,
		Busy:       true,
	}}
	srv := newTestServer(t, mock)

	resp, err := http.Get(srv.URL + "/v1/sessions/sess-5")
	if err != nil {
		t.Fatalf("getting snapshot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if mock.snapshotID != "sess-5" {
		t.Errorf("snapshot id = %q", mock.snapshotID)
	}
	var snap session.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.ID != "sess-5" || snap.VoiceBytes != 1024 || !snap.Busy {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	mock := &mockHandler{snapshotErr: session.ErrNotFound}
	srv := newTestServer(t, mock)

	resp, err := http.Get(srv.URL + "/v1/sessions/nope")
	if err != nil {
		t.Fatalf("getting snapshot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestReset(t *testing.T) {
	mock := &mockHandler{}
	srv := newTestServer(t, mock)

	resp, err := http.Post(srv.URL+"/v1/sessions/sess-6/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("posting reset: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if mock.resetID != "sess-6" {
		t.Errorf("reset id = %q", mock.resetID)
	}
}

func TestResetErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", session.ErrNotFound, http.StatusNotFound},
		{"busy", session.ErrBusy, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockHandler{resetErr: tc.err}
			srv := newTestServer(t, mock)

			resp, err := http.Post(srv.URL+"/v1/sessions/x/reset", "application/json", nil)
			if err != nil {
				t.Fatalf("posting reset: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestSwaggerUI(t *testing.T) {
	srv := newTestServer(t, &mockHandler{})

	resp, err := http.Get(srv.URL + "/swagger/index.html")
	if err != nil {
		t.Fatalf("getting swagger ui: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
