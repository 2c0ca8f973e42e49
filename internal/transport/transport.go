// Package transport defines the interface for pluggable consultation
// transports.
//
// Each transport (HTTP, gRPC) implements this interface and serves the
// session manager's operations. The manager doesn't care how requests
// arrive — it only works with the Handler contract.
package transport

import (
	"context"

	"github.com/Anwarhacker/Medical-Assistant/internal/message"
	"github.com/Anwarhacker/Medical-Assistant/internal/session"
	"github.com/Anwarhacker/Medical-Assistant/internal/tts"
)

// Handler exposes the session manager's operations to transports.
// The session manager provides this handler to each transport.
type Handler interface {
	// Consult runs one consultation turn. The result is always safe to
	// serialize back to the caller, error or not.
	Consult(ctx context.Context, req *message.ConsultRequest) (*message.ConsultResult, error)

	// Speak synthesizes arbitrary text outside any session.
	Speak(ctx context.Context, text, voice string) (*tts.SynthesizeResult, error)

	// Snapshot returns a read-only view of a session.
	Snapshot(id string) (session.Snapshot, error)

	// Reset clears a session's accumulated context.
	Reset(id string) error
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts serving incoming requests against the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
