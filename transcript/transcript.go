// Package transcript persists finished scenes so they can be reviewed later.
package transcript

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("transcript: not found")

// Turn is one persisted tick outcome. Kind is the wire name of the outcome
// ("speech", "thought", "action", "nothing", "goodbye"); AgentID is empty
// for turns nobody acted on.
type Turn struct {
	Seq     int    `json:"seq"`
	AgentID string `json:"agent_id,omitempty"`
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
}

// SceneSummary is the header row for a stored scene.
type SceneSummary struct {
	SceneID     string         `json:"scene_id"`
	AgentIDs    []string       `json:"agent_ids"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     time.Time      `json:"ended_at"`
	TurnCount   int            `json:"turn_count"`
	SpeechCount int            `json:"speech_count"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Store persists scene transcripts. Saving the same scene ID again replaces
// the header and turns, so a scene may be checkpointed while still running.
type Store interface {
	SaveScene(ctx context.Context, summary SceneSummary, turns []Turn) error
	GetScene(ctx context.Context, sceneID string) (SceneSummary, []Turn, error)
	ListRecent(ctx context.Context, limit int) ([]SceneSummary, error)
	Close() error
}
