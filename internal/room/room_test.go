package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchtalk/scene"
	"benchtalk/scene/persona"
	"benchtalk/transcript"
)

type memStore struct {
	mu     sync.Mutex
	scenes map[string][]transcript.Turn
	last   transcript.SceneSummary
}

func newMemStore() *memStore {
	return &memStore{scenes: make(map[string][]transcript.Turn)}
}

func (m *memStore) SaveScene(_ context.Context, summary transcript.SceneSummary, turns []transcript.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[summary.SceneID] = turns
	m.last = summary
	return nil
}

func (m *memStore) GetScene(_ context.Context, sceneID string) (transcript.SceneSummary, []transcript.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns, ok := m.scenes[sceneID]
	if !ok {
		return transcript.SceneSummary{}, nil, transcript.ErrNotFound
	}
	return m.last, turns, nil
}

func (m *memStore) ListRecent(context.Context, int) ([]transcript.SceneSummary, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) lastSummary() transcript.SceneSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func testRegistry() *persona.Registry {
	r := persona.NewRegistry()
	r.Register(persona.Agent{ID: "a", Name: "Vlasta", Talkativeness: 0.9})
	r.Register(persona.Agent{ID: "b", Name: "Karel", Talkativeness: 0.3})
	return r
}

func newTestRoom(t *testing.T, gen scene.GenerateFunc, store transcript.Store) *Room {
	t.Helper()
	cfg := scene.DefaultConfig()
	cfg.Seed = 7
	engine, err := scene.NewEngine(cfg)
	require.NoError(t, err)

	r := New("room-test", Config{TickInterval: 10 * time.Millisecond}, engine, gen, testRegistry(), store, nil)
	t.Cleanup(r.Close)
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestRoom_StartSceneValidation(t *testing.T) {
	r := newTestRoom(t, nil, nil)

	assert.ErrorIs(t, r.StartScene("a", "ghost"), ErrUnknownAgent)
	assert.ErrorIs(t, r.StartScene("a", "a"), ErrUnknownAgent)

	require.NoError(t, r.StartScene("a", "b"))
	assert.ErrorIs(t, r.StartScene("a", "b"), ErrSceneActive)
}

func TestRoom_TicksAndPersistsOnEnd(t *testing.T) {
	store := newMemStore()
	gen := func(id string, _ scene.WorldEvent, _ string) *scene.NPCResponse {
		return &scene.NPCResponse{AgentID: id, Kind: scene.ResponseSpeech, Text: "Dneska je hezky venku."}
	}
	r := newTestRoom(t, gen, store)

	require.NoError(t, r.StartScene("a", "b"))
	waitFor(t, func() bool { return r.Snapshot().Turn >= 3 })

	require.NoError(t, r.EndScene())
	assert.ErrorIs(t, r.EndScene(), ErrNoActiveScene)

	summary := store.lastSummary()
	assert.NotEmpty(t, summary.SceneID)
	assert.ElementsMatch(t, []string{"a", "b"}, summary.AgentIDs)
	assert.GreaterOrEqual(t, summary.TurnCount, 3)
	assert.Equal(t, "requested", summary.Extra["ended_by"])

	_, turns, err := store.GetScene(context.Background(), summary.SceneID)
	require.NoError(t, err)
	assert.NotEmpty(t, turns)
}

func TestRoom_GoodbyeEndsScene(t *testing.T) {
	store := newMemStore()
	gen := func(id string, _ scene.WorldEvent, _ string) *scene.NPCResponse {
		return &scene.NPCResponse{AgentID: id, Kind: scene.ResponseGoodbye, Text: "Tak já půjdu."}
	}
	r := newTestRoom(t, gen, store)

	require.NoError(t, r.StartScene("a", "b"))
	waitFor(t, func() bool { return store.lastSummary().SceneID != "" })

	assert.Equal(t, "goodbye", store.lastSummary().Extra["ended_by"])
	assert.False(t, r.Snapshot().Active)
}

func TestRoom_ForceEventRequiresScene(t *testing.T) {
	r := newTestRoom(t, nil, nil)
	assert.ErrorIs(t, r.ForceEvent("Kolem někdo prošel."), ErrNoActiveScene)

	require.NoError(t, r.StartScene("a", "b"))
	assert.NoError(t, r.ForceEvent("Kolem někdo prošel."))
}

func TestRoom_CloseIsIdempotent(t *testing.T) {
	r := newTestRoom(t, nil, newMemStore())
	require.NoError(t, r.StartScene("a", "b"))
	r.Close()
	r.Close()
	assert.ErrorIs(t, r.StartScene("a", "b"), ErrRoomClosed)
}
