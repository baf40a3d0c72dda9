// Package room hosts one running scene behind an actor goroutine. All
// engine access happens on that goroutine; callers talk to it through a
// command channel.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"benchtalk/scene"
	"benchtalk/scene/persona"
	"benchtalk/transcript"
)

var (
	ErrRoomClosed    = errors.New("room closed")
	ErrSceneActive   = errors.New("a scene is already running")
	ErrNoActiveScene = errors.New("no active scene")
	ErrUnknownAgent  = errors.New("unknown agent id")
)

type Config struct {
	TickInterval time.Duration
}

// commandType enumerates the actor message kinds.
type commandType int

const (
	cmdStartScene commandType = iota
	cmdForceEvent
	cmdEndScene
	cmdClose
)

type command struct {
	Type        commandType
	AgentA      string
	AgentB      string
	Description string
	Response    chan error
}

// Room owns a behavior engine and drives it on a fixed tick. Outcomes are
// broadcast as JSON envelopes; finished scenes are persisted.
type Room struct {
	ID string

	cfg      Config
	engine   *scene.BehaviorEngine
	gen      scene.GenerateFunc
	registry *persona.Registry
	store    transcript.Store

	broadcast func(data []byte)

	commands  chan command
	snapshots chan chan scene.Snapshot
	done      chan struct{}
	stopOnce  sync.Once

	// Actor-confined state; only the run goroutine touches it.
	sceneID string
	started time.Time
	// pendingForced is consumed by the next tick.
	pendingForced string
}

func New(
	id string,
	cfg Config,
	engine *scene.BehaviorEngine,
	gen scene.GenerateFunc,
	registry *persona.Registry,
	store transcript.Store,
	broadcastFn func(data []byte),
) *Room {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 4 * time.Second
	}
	r := &Room{
		ID:        id,
		cfg:       cfg,
		engine:    engine,
		gen:       gen,
		registry:  registry,
		store:     store,
		broadcast: broadcastFn,
		commands:  make(chan command, 64),
		snapshots: make(chan chan scene.Snapshot, 16),
		done:      make(chan struct{}),
	}
	go r.run()
	log.Printf("[Room %s] Created (tick=%s)", id, cfg.TickInterval)
	return r
}

// StartScene seats two agents and begins ticking.
func (r *Room) StartScene(agentA, agentB string) error {
	return r.send(command{Type: cmdStartScene, AgentA: agentA, AgentB: agentB})
}

// ForceEvent injects a world description consumed by the next tick.
func (r *Room) ForceEvent(description string) error {
	return r.send(command{Type: cmdForceEvent, Description: description})
}

// EndScene stops the current scene and persists its transcript.
func (r *Room) EndScene() error {
	return r.send(command{Type: cmdEndScene})
}

// Close stops the actor. A running scene is persisted first.
func (r *Room) Close() {
	r.stopOnce.Do(func() {
		resp := make(chan error, 1)
		select {
		case r.commands <- command{Type: cmdClose, Response: resp}:
			<-resp
		case <-r.done:
		}
	})
}

// Snapshot is safe to call from any goroutine; the view is assembled on the
// actor goroutine between ticks.
func (r *Room) Snapshot() scene.Snapshot {
	resp := make(chan scene.Snapshot, 1)
	select {
	case r.snapshots <- resp:
	case <-r.done:
		return scene.Snapshot{}
	}
	select {
	case snap := <-resp:
		return snap
	case <-r.done:
		return scene.Snapshot{}
	}
}

func (r *Room) send(cmd command) error {
	cmd.Response = make(chan error, 1)
	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrRoomClosed
	}
	select {
	case err := <-cmd.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// run is the actor loop.
func (r *Room) run() {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-r.commands:
			err := r.handleCommand(cmd)
			if cmd.Response != nil {
				cmd.Response <- err
			}
			if cmd.Type == cmdClose {
				log.Printf("[Room %s] Actor stopped", r.ID)
				return
			}
		case resp := <-r.snapshots:
			resp <- r.engine.BuildSnapshot()
		case <-ticker.C:
			r.tick()
		case <-r.done:
			return
		}
	}
}

func (r *Room) handleCommand(cmd command) error {
	switch cmd.Type {
	case cmdStartScene:
		return r.handleStartScene(cmd.AgentA, cmd.AgentB)
	case cmdForceEvent:
		return r.handleForceEvent(cmd.Description)
	case cmdEndScene:
		return r.handleEndScene("requested")
	case cmdClose:
		if r.engine.IsActive() {
			_ = r.handleEndScene("shutdown")
		}
		close(r.done)
		return nil
	default:
		return fmt.Errorf("unknown command type: %d", cmd.Type)
	}
}

func (r *Room) handleStartScene(agentA, agentB string) error {
	if r.engine.IsActive() {
		return ErrSceneActive
	}
	a := r.registry.Get(agentA)
	b := r.registry.Get(agentB)
	if a == nil || b == nil || agentA == agentB {
		return ErrUnknownAgent
	}

	r.engine.StartScene(*a, *b)

	r.sceneID = fmt.Sprintf("%s-%d", r.ID, time.Now().UTC().UnixMilli())
	r.started = time.Now().UTC()
	r.pendingForced = ""

	log.Printf("[Room %s] Scene started: %s vs %s", r.ID, agentA, agentB)
	r.publish(sceneStartedMessage{Type: "scene_started", SceneID: r.sceneID, AgentIDs: []string{agentA, agentB}})
	return nil
}

func (r *Room) handleForceEvent(description string) error {
	if !r.engine.IsActive() {
		return ErrNoActiveScene
	}
	r.pendingForced = description
	return nil
}

func (r *Room) handleEndScene(reason string) error {
	if !r.engine.IsActive() {
		return ErrNoActiveScene
	}
	r.saveTranscript(reason)

	sceneID := r.sceneID
	r.sceneID = ""

	r.engine.EndScene()
	log.Printf("[Room %s] Scene ended: %s (%s)", r.ID, sceneID, reason)
	r.publish(sceneEndedMessage{Type: "scene_ended", SceneID: sceneID, Reason: reason})
	return nil
}

func (r *Room) tick() {
	if !r.engine.IsActive() {
		return
	}

	forced := r.pendingForced
	r.pendingForced = ""

	res := r.engine.ProcessTurn(r.gen, forced)

	msg := turnMessage{Type: "turn", Turn: r.engine.SceneSnapshot().TurnNumber}
	if res != nil {
		msg.AgentID = res.AgentID
		msg.Kind = scene.ResponseKindDictionary[res.Kind]
		msg.Text = res.Text
	} else {
		msg.Kind = "silence"
	}
	r.publish(msg)

	if r.engine.AssistedMode() {
		opts := r.engine.AssistedOptions()
		labels := make([]string, 0, len(opts))
		for _, o := range opts {
			labels = append(labels, o.Label)
		}
		r.publish(assistedMessage{Type: "assisted", Options: labels})
	}

	if res != nil && res.Kind == scene.ResponseGoodbye {
		_ = r.handleEndScene("goodbye")
	}
}

func (r *Room) saveTranscript(reason string) {
	if r.store == nil {
		return
	}

	sceneID := r.sceneID
	started := r.started
	if sceneID == "" {
		return
	}

	snap := r.engine.SceneSnapshot()
	history := r.engine.History()
	turns := make([]transcript.Turn, 0, len(history))
	for _, rec := range history {
		turns = append(turns, transcript.Turn{
			Seq:     rec.Turn,
			AgentID: rec.AgentID,
			Kind:    scene.ResponseKindDictionary[rec.Kind],
			Text:    rec.Text,
		})
	}

	summary := transcript.SceneSummary{
		SceneID:     sceneID,
		AgentIDs:    agentIDsOf(r.engine),
		StartedAt:   started,
		EndedAt:     time.Now().UTC(),
		TurnCount:   snap.TurnNumber,
		SpeechCount: snap.TotalSpeeches,
		Extra:       map[string]any{"ended_by": reason},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SaveScene(ctx, summary, turns); err != nil {
		log.Printf("[Room %s] save transcript failed: scene=%s err=%v", r.ID, sceneID, err)
	}
}

func agentIDsOf(e *scene.BehaviorEngine) []string {
	ids := make([]string, 0, 2)
	for _, a := range e.BuildSnapshot().Agents {
		ids = append(ids, a.AgentID)
	}
	return ids
}

func (r *Room) publish(v any) {
	if r.broadcast == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Room %s] marshal broadcast failed: %v", r.ID, err)
		return
	}
	r.broadcast(data)
}

type sceneStartedMessage struct {
	Type     string   `json:"type"`
	SceneID  string   `json:"scene_id"`
	AgentIDs []string `json:"agent_ids"`
}

type sceneEndedMessage struct {
	Type    string `json:"type"`
	SceneID string `json:"scene_id"`
	Reason  string `json:"reason"`
}

type turnMessage struct {
	Type    string `json:"type"`
	Turn    int    `json:"turn"`
	AgentID string `json:"agent_id,omitempty"`
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
}

type assistedMessage struct {
	Type    string   `json:"type"`
	Options []string `json:"options"`
}
