package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps transcripts in a shared postgres database for
// multi-instance deployments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresTranscriptSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) SaveScene(ctx context.Context, summary SceneSummary, turns []Turn) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO scenes (scene_id, agents_json, started_at, ended_at, turn_count, speech_count, extra_json, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (scene_id) DO UPDATE
SET
    agents_json = excluded.agents_json,
    ended_at = excluded.ended_at,
    turn_count = excluded.turn_count,
    speech_count = excluded.speech_count,
    extra_json = excluded.extra_json,
    updated_at = NOW()
`, summary.SceneID, string(agentsRaw), summary.StartedAt.UTC(), summary.EndedAt.UTC(), summary.TurnCount, summary.SpeechCount, string(extraRaw))
	if err != nil {
		return err
	}

	for _, turn := range turns {
		_, err := tx.ExecContext(ctx, `
INSERT INTO scene_turns (scene_id, seq, agent_id, kind, text)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (scene_id, seq) DO UPDATE
SET
    agent_id = excluded.agent_id,
    kind = excluded.kind,
    text = excluded.text
`, summary.SceneID, turn.Seq, turn.AgentID, turn.Kind, turn.Text)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetScene(ctx context.Context, sceneID string) (SceneSummary, []Turn, error) {
	if strings.TrimSpace(sceneID) == "" {
		return SceneSummary{}, nil, ErrNotFound
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var summary SceneSummary
	var agentsRaw, extraRaw []byte
	err := s.db.QueryRowContext(ctx, `
SELECT scene_id, agents_json, started_at, ended_at, turn_count, speech_count, extra_json
FROM scenes
WHERE scene_id = $1
`, sceneID).Scan(&summary.SceneID, &agentsRaw, &summary.StartedAt, &summary.EndedAt, &summary.TurnCount, &summary.SpeechCount, &extraRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SceneSummary{}, nil, ErrNotFound
		}
		return SceneSummary{}, nil, err
	}
	_ = json.Unmarshal(agentsRaw, &summary.AgentIDs)
	_ = json.Unmarshal(extraRaw, &summary.Extra)

	rows, err := s.db.QueryContext(ctx, `
SELECT seq, agent_id, kind, text
FROM scene_turns
WHERE scene_id = $1
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

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]SceneSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT scene_id, agents_json, started_at, ended_at, turn_count, speech_count, extra_json
FROM scenes
ORDER BY started_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]SceneSummary, 0, limit)
	for rows.Next() {
		var summary SceneSummary
		var agentsRaw, extraRaw []byte
		if err := rows.Scan(&summary.SceneID, &agentsRaw, &summary.StartedAt, &summary.EndedAt, &summary.TurnCount, &summary.SpeechCount, &extraRaw); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(agentsRaw, &summary.AgentIDs)
		_ = json.Unmarshal(extraRaw, &summary.Extra)
		items = append(items, summary)
	}
	return items, rows.Err()
}

func ensurePostgresTranscriptSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS scenes (
    id BIGSERIAL PRIMARY KEY,
    scene_id TEXT NOT NULL UNIQUE,
    agents_json TEXT NOT NULL DEFAULT '[]',
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    turn_count INTEGER NOT NULL DEFAULT 0,
    speech_count INTEGER NOT NULL DEFAULT 0,
    extra_json TEXT NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS idx_scenes_recent ON scenes(started_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS scene_turns (
    id BIGSERIAL PRIMARY KEY,
    scene_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    agent_id TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    UNIQUE (scene_id, seq)
)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
