package history

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Anwarhacker/Medical-Assistant/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.HistoryConfig{RetentionMode: "ephemeral", Path: filepath.Join(t.TempDir(), "never.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Append(context.Background(), Turn{SessionID: "s1", Analysis: "text"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	turns, err := s.ListSession(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if turns != nil {
		t.Fatalf("ephemeral store must stay empty, got %v", turns)
	}
	if _, err := os.Stat(cfg.Path); !os.IsNotExist(err) {
		t.Fatalf("ephemeral store must not touch disk: %v", err)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "medassist.db")
	cfg := config.HistoryConfig{RetentionMode: "persistent", Path: path}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file on disk: %v", err)
	}
}

func TestAppendAndList(t *testing.T) {
	cfg := config.HistoryConfig{RetentionMode: "persistent", Path: filepath.Join(t.TempDir(), "medassist.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	turns := []Turn{
		{SessionID: "a", Kind: KindFresh, Question: "what is this rash?", Transcription: "what is this rash", Analysis: "Looks like contact dermatitis.", Language: "English", VoiceBytes: 2048, CreatedAt: base},
		{SessionID: "a", Kind: KindFollowUp, Analysis: "Keep it dry.", CreatedAt: base.Add(time.Minute)},
		{SessionID: "b", Kind: KindFresh, Analysis: "Unrelated turn.", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, turn := range turns {
		if err := s.Append(context.Background(), turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ListSession(context.Background(), "a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns for session a, got %d", len(got))
	}
	first := got[0]
	if first.Kind != KindFresh || first.Question != "what is this rash?" || first.Analysis != "Looks like contact dermatitis." || first.VoiceBytes != 2048 {
		t.Fatalf("unexpected first turn %+v", first)
	}
	if !first.CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, first.CreatedAt)
	}
	if got[1].Kind != KindFollowUp {
		t.Fatalf("expected ascending order, got %+v", got)
	}

	other, err := s.ListSession(context.Background(), "b", 10)
	if err != nil || len(other) != 1 {
		t.Fatalf("expected 1 turn for session b, got %v, %v", other, err)
	}
}

func TestAppendDefaultsCreatedAt(t *testing.T) {
	cfg := config.HistoryConfig{RetentionMode: "persistent", Path: filepath.Join(t.TempDir(), "medassist.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2026, 8, 21, 12, 30, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	if err := s.Append(context.Background(), Turn{SessionID: "a", Kind: KindFresh, Analysis: "text"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.ListSession(context.Background(), "a", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("list: %v, %v", got, err)
	}
	if !got[0].CreatedAt.Equal(now) {
		t.Fatalf("expected clock time %v, got %v", now, got[0].CreatedAt)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	cfg := config.HistoryConfig{
		RetentionMode: "persistent",
		Path:          filepath.Join(t.TempDir(), "medassist.db"),
		RetentionDays: 30,
		MaxSessions:   2,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	seed := []Turn{
		{SessionID: "expired", Kind: KindFresh, Analysis: "old", CreatedAt: now.Add(-40 * 24 * time.Hour)},
		{SessionID: "third", Kind: KindFresh, Analysis: "oldest kept day", CreatedAt: now.Add(-2 * time.Hour)},
		{SessionID: "second", Kind: KindFresh, Analysis: "recent", CreatedAt: now.Add(-time.Hour)},
		{SessionID: "first", Kind: KindFresh, Analysis: "newest", CreatedAt: now.Add(-time.Minute)},
	}
	for _, turn := range seed {
		if err := s.Append(context.Background(), turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	for session, want := range map[string]int{"expired": 0, "third": 0, "second": 1, "first": 1} {
		got, err := s.ListSession(context.Background(), session, 10)
		if err != nil {
			t.Fatalf("list %s: %v", session, err)
		}
		if len(got) != want {
			t.Fatalf("session %s: expected %d turns after prune, got %d", session, want, len(got))
		}
	}
}
