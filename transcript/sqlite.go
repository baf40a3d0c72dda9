package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps transcripts in a single local sqlite file. Suitable for
// single-process deployments and tests (use ":memory:").
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteTranscriptSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) SaveScene(ctx context.Context, summary SceneSummary, turns []Turn) error {
	if strings.TrimSpace(summary.SceneID) == "" {
		return fmt.Errorf("scene id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	agentsRaw, err := json.Marshal(summary.AgentIDs)
	if err != nil {
		return err
	}
	extra := summary.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraRaw, err := json.Marshal(extra)
	if err != nil {
		return err
	}

	startedAtMs := summary.StartedAt.UTC().UnixMilli()
	endedAtMs := summary.EndedAt.UTC().UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO scenes (
    scene_id, agents_json, started_at_ms, ended_at_ms, turn_count, speech_count, extra_json, created_at_ms, updated_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (scene_id) DO UPDATE
SET
    agents_json = excluded.agents_json,
    ended_at_ms = excluded.ended_at_ms,
    turn_count = excluded.turn_count,
    speech_count = excluded.speech_count,
    extra_json = excluded.extra_json,
    updated_at_ms = excluded.updated_at_ms
`, summary.SceneID, string(agentsRaw), startedAtMs, endedAtMs, summary.TurnCount, summary.SpeechCount, string(extraRaw), nowMs, nowMs)
	if err != nil {
		return err
	}

	for _, turn := range turns {
		_, err := tx.ExecContext(ctx, `
INSERT INTO scene_turns (scene_id, seq, agent_id, kind, text, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (scene_id, seq) DO UPDATE
SET
    agent_id = excluded.agent_id,
    kind = excluded.kind,
    text = excluded.text
`, summary.SceneID, turn.Seq, turn.AgentID, turn.Kind, turn.Text, nowMs)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetScene(ctx context.Context, sceneID string) (SceneSummary, []Turn, error) {
	if strings.TrimSpace(sceneID) == "" {
		return SceneSummary{}, nil, ErrNotFound
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var summary SceneSummary
	var agentsRaw, extraRaw []byte
	var startedAtMs, endedAtMs int64
	err := s.db.QueryRowContext(ctx, `
SELECT scene_id, agents_json, started_at_ms, ended_at_ms, turn_count, speech_count, extra_json
FROM scenes
WHERE scene_id = ?
`, sceneID).Scan(&summary.SceneID, &agentsRaw, &startedAtMs, &endedAtMs, &summary.TurnCount, &summary.SpeechCount, &extraRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SceneSummary{}, nil, ErrNotFound
		}
		return SceneSummary{}, nil, err
	}
	summary.StartedAt = time.UnixMilli(startedAtMs).UTC()
	summary.EndedAt = time.UnixMilli(endedAtMs).UTC()
	_ = json.Unmarshal(agentsRaw, &summary.AgentIDs)
	_ = json.Unmarshal(extraRaw, &summary.Extra)

	rows, err := s.db.QueryContext(ctx, `
SELECT seq, agent_id, kind, text
FROM scene_turns
WHERE scene_id = ?
ORDER BY seq ASC
`, sceneID)
	if err != nil {
		return SceneSummary{}, nil, err
	}
	defer rows.Close()

	turns := make([]Turn, 0, summary.TurnCount)
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.AgentID, &t.Kind, &t.Text); err != nil {
			return SceneSummary{}, nil, err
		}
		turns = append(turns, t)
	}
	return summary, turns, rows.Err()
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]SceneSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT scene_id, agents_json, started_at_ms, ended_at_ms, turn_count, speech_count, extra_json
FROM scenes
ORDER BY started_at_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]SceneSummary, 0, limit)
	for rows.Next() {
		var summary SceneSummary
		var agentsRaw, extraRaw []byte
		var startedAtMs, endedAtMs int64
		if err := rows.Scan(&summary.SceneID, &agentsRaw, &startedAtMs, &endedAtMs, &summary.TurnCount, &summary.SpeechCount, &extraRaw); err != nil {
			return nil, err
		}
		summary.StartedAt = time.UnixMilli(startedAtMs).UTC()
		summary.EndedAt = time.UnixMilli(endedAtMs).UTC()
		_ = json.Unmarshal(agentsRaw, &summary.AgentIDs)
		_ = json.Unmarshal(extraRaw, &summary.Extra)
		items = append(items, summary)
	}
	return items, rows.Err()
}

func ensureSQLiteTranscriptSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS scenes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scene_id TEXT NOT NULL,
    agents_json TEXT NOT NULL DEFAULT '[]',
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL,
    turn_count INTEGER NOT NULL DEFAULT 0,
    speech_count INTEGER NOT NULL DEFAULT 0,
    extra_json TEXT NOT NULL DEFAULT '{}',
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL,
    UNIQUE (scene_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_scenes_recent ON scenes(started_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS scene_turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scene_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    agent_id TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL,
    UNIQUE (scene_id, seq)
)`,
		`CREATE INDEX IF NOT EXISTS idx_scene_turns_scene_seq ON scene_turns(scene_id, seq)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
