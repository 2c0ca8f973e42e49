// Package history persists finished consultation turns to SQLite.
//
// Live session state stays in memory (internal/session); this log is the
// durable record behind it. Retention mode "ephemeral" disables persistence
// entirely, which keeps patient data off disk by default.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Anwarhacker/Medical-Assistant/internal/config"
)

// Turn kinds.
const (
	KindFresh    = "fresh"
	KindFollowUp = "follow_up"
)

// Turn is one recorded consultation exchange.
type Turn struct {
	ID            int64
	SessionID     string
	Kind          string
	Question      string
	Transcription string
	Analysis      string
	Language      string
	VoiceBytes    int
	CreatedAt     time.Time
}

// Store wraps the SQLite-backed consultation log.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the log according to config. Ephemeral mode returns a
// store whose writes and reads are no-ops.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    question TEXT,
    transcription TEXT,
    analysis TEXT,
    language TEXT,
    voice_bytes INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session_created ON turns(session_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one finished turn.
func (s *Store) Append(ctx context.Context, t Turn) error {
	if s.db == nil {
		return nil
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns(session_id, kind, question, transcription, analysis, language, voice_bytes, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Kind, t.Question, t.Transcription, t.Analysis, t.Language, t.VoiceBytes, t.CreatedAt)
	return err
}

// ListSession retrieves up to limit turns for a session ordered ascending by time.
func (s *Store) ListSession(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, question, transcription, analysis, language, voice_bytes, created_at
		 FROM turns WHERE session_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var created string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Kind, &t.Question, &t.Transcription, &t.Analysis, &t.Language, &t.VoiceBytes, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Prune applies configured retention. It runs at startup; persistent
// deployments can also call it on a schedule.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxSessions > 0 {
		// Keep the most recently active sessions, drop every turn of the rest.
		_, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id IN (
			SELECT session_id FROM (
				SELECT session_id, MAX(created_at) AS last_at FROM turns
				GROUP BY session_id ORDER BY last_at DESC LIMIT -1 OFFSET ?
			)
		)`, s.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
