package scene

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"benchtalk/scene/persona"
	"benchtalk/scene/repetition"
)

// GenerateFunc is the external content-generation collaborator. It may return
// nil to indicate the agent produced nothing; the engine treats that as a
// normal silent outcome. The engine never retries or times the call out, that
// is the caller's concern.
type GenerateFunc func(agentID string, event WorldEvent, softInstruction string) *NPCResponse

// TurnRecord is one committed entry of the scene history. AgentID is empty
// for a "nothing" outcome so a silent agent is never treated as the last
// speaker.
type TurnRecord struct {
	AgentID string
	Kind    ResponseKind
	Text    string
	Turn    int
}

// BehaviorEngine orchestrates one scheduling tick end to end: regenerate,
// generate the world event, update drives, score and select, gate, invoke
// generation, post-process, commit. Single-threaded by contract; the caller
// must not re-enter ProcessTurn while a generation call is outstanding.
type BehaviorEngine struct {
	cfg Config
	rng *rand.Rand

	events     *WorldEventGenerator
	scorer     *SpeakScorer
	drives     *DriveUpdater
	antiRep    *repetition.Tracker
	addressing AddressingDetector

	states map[string]*NPCBehaviorState
	agents map[string]persona.Agent

	sceneCtx *SceneContext
	history  []TurnRecord
	intents  *intentLog

	lastSpeakerID      string
	consecutiveSpeaker int
	assisted           bool
}

// NewEngine creates an engine from cfg. Seed 0 means a time-based seed;
// any other seed makes every roll in a scene reproducible.
func NewEngine(cfg Config) (*BehaviorEngine, error) {
	return newEngine(cfg, time.Now)
}

func newEngine(cfg Config, now func() time.Time) (*BehaviorEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	return &BehaviorEngine{
		cfg:        cfg,
		rng:        rng,
		events:     NewWorldEventGenerator(DefaultEventParams(), rng, now),
		scorer:     NewSpeakScorer(DefaultScoreParams(), rng),
		drives:     NewDriveUpdater(DefaultDriveParams()),
		antiRep:    repetition.NewTracker(repetition.DefaultParams()),
		addressing: CzechAddressing{},
		states:     make(map[string]*NPCBehaviorState),
		agents:     make(map[string]persona.Agent),
		intents:    newIntentLog(cfg.IntentLogLimit),
	}, nil
}

// SetAddressingDetector swaps the language-specific addressing rules. Must be
// called before StartScene.
func (e *BehaviorEngine) SetAddressingDetector(d AddressingDetector) {
	if d != nil {
		e.addressing = d
	}
}

// IsActive reports whether a scene is running.
func (e *BehaviorEngine) IsActive() bool {
	return e.sceneCtx != nil
}

// StartScene initializes a fresh scene for two agents. Any previous scene
// state, history, repetition baseline and intent log is discarded.
func (e *BehaviorEngine) StartScene(a, b persona.Agent) {
	e.intents.clear()
	e.intents.add("start_scene", map[string]any{"agent_a": a.ID, "agent_b": b.ID})

	e.states = make(map[string]*NPCBehaviorState)
	e.agents = make(map[string]persona.Agent)
	for _, ag := range []persona.Agent{a.WithDefaults(), b.WithDefaults()} {
		e.states[ag.ID] = newBehaviorState(ag.ID, ag.Talkativeness)
		e.agents[ag.ID] = ag
	}

	e.sceneCtx = newSceneContext()
	e.history = nil
	e.lastSpeakerID = ""
	e.consecutiveSpeaker = 0
	e.assisted = false
	e.antiRep.Clear("")
}

// EndScene tears the scene down.
func (e *BehaviorEngine) EndScene() {
	if e.sceneCtx != nil {
		e.intents.add("end_scene", map[string]any{
			"total_turns":    e.sceneCtx.TurnNumber,
			"total_speeches": e.sceneCtx.TotalSpeeches,
		})
	}
	e.states = make(map[string]*NPCBehaviorState)
	e.agents = make(map[string]persona.Agent)
	e.sceneCtx = nil
	e.history = nil
	e.lastSpeakerID = ""
	e.consecutiveSpeaker = 0
	e.assisted = false
}

// ProcessTurn advances the scene by exactly one tick. forcedEvent, when
// non-empty, is user-injected text that overrides event generation. Returns
// the committed outcome, or nil when the tick ends in silence.
func (e *BehaviorEngine) ProcessTurn(gen GenerateFunc, forcedEvent string) *NPCResponse {
	if !e.IsActive() {
		return nil
	}

	ids := e.agentIDs()
	for _, id := range ids {
		e.states[id].OnTurnStart(e.cfg.EnergyRegenTurn)
	}

	// The last utterance always comes from committed history, never from a
	// cache that a downgrade could have left stale.
	lastText, lastSpeaker := e.lastFromHistory()
	lastWasQuestion := strings.Contains(lastText, "?")
	questionTarget := ""
	if lastWasQuestion && lastSpeaker != "" {
		questionTarget = DetectQuestionTarget(lastText, lastSpeaker, ids)
	}

	event := e.events.Generate(e.sceneCtx, forcedEvent, lastWasQuestion, questionTarget)
	e.intents.add("world_event", map[string]any{
		"kind":        EventKindDictionary[event.Kind],
		"description": event.Description,
		"intensity":   event.Intensity,
		"target":      event.PressureTarget,
	})

	penalties := e.antiRep.EstimatePenalties(ids)

	for _, id := range ids {
		state := e.states[id]
		agent := e.agents[id]

		wasAddressed := false
		wasAskedQuestion := false
		if lastText != "" && lastSpeaker != "" && lastSpeaker != id {
			wasAddressed = e.addressing.WasAddressed(lastText, agent.Name, agent.Title)
			wasAskedQuestion = e.addressing.WasAskedQuestion(lastText, agent.Name, agent.Title, len(e.states))
		}
		if wasAddressed {
			state.OnAddressed(e.sceneCtx.TurnNumber)
		}

		e.drives.UpdateDrives(state, agent, event, e.sceneCtx, penalties[id], wasAddressed, wasAskedQuestion)
	}

	top := e.scorer.SelectTopK(e.states, e.agents, event, penalties, e.cfg.TopK, e.sceneCtx.TurnNumber)
	for _, sc := range top {
		e.intents.add("candidate", map[string]any{
			"agent_id":  sc.AgentID,
			"score":     sc.Value,
			"breakdown": sc.Breakdown,
		})
	}

	var result *NPCResponse

	if !ShouldAnyoneSpeak(top, e.cfg.MinScoreToSpeak) {
		e.sceneCtx.OnSilence()
		if e.sceneCtx.IsDying() {
			e.assisted = true
			e.intents.add("assisted_mode", map[string]any{
				"consecutive_silence": e.sceneCtx.ConsecutiveSilence,
				"scene_energy":        e.sceneCtx.SceneEnergy,
			})
		}
	} else {
		result = e.runCandidates(gen, top, event)
		if result == nil {
			e.sceneCtx.OnSilence()
		}
	}

	// The only place the turn counter advances, whichever branch fired.
	e.sceneCtx.OnTurnEnd()
	return result
}

// runCandidates walks the top candidates in score order and commits the first
// outcome it obtains, scripted or generated.
func (e *BehaviorEngine) runCandidates(gen GenerateFunc, top []Score, event WorldEvent) *NPCResponse {
	for _, sc := range top {
		state := e.states[sc.AgentID]
		if state == nil {
			continue
		}
		state.OnSelected(e.sceneCtx.TurnNumber)

		// Permission gate: without social permission the agent does not get a
		// generation attempt. A strong enough urge to speak overrides.
		if state.EngagementDrive < 0.25 && state.SpeakDrive < 0.65 {
			e.intents.add("permission_denied", map[string]any{
				"agent_id":   sc.AgentID,
				"engagement": state.EngagementDrive,
				"speak":      state.SpeakDrive,
			})
			resp := NPCResponse{AgentID: sc.AgentID, Kind: ResponseNothing}
			if state.SpeakDrive > 0.45 {
				resp = NPCResponse{
					AgentID: sc.AgentID,
					Kind:    ResponseAction,
					Text:    idleActions[e.rng.Intn(len(idleActions))],
				}
			}
			return e.commit(resp)
		}

		// An agent that has held the floor for the maximum consecutive turns
		// yields it with a filler action instead of another speech.
		if e.lastSpeakerID == sc.AgentID && e.consecutiveSpeaker >= e.cfg.MaxConsecutiveSpeaker {
			e.intents.add("consecutive_cap", map[string]any{
				"agent_id": sc.AgentID,
				"count":    e.consecutiveSpeaker,
			})
			return e.commit(NPCResponse{
				AgentID: sc.AgentID,
				Kind:    ResponseAction,
				Text:    fillerActions[e.rng.Intn(len(fillerActions))],
			})
		}

		instruction := ""
		if e.assisted {
			opt := assistedOptions[e.rng.Intn(len(assistedOptions))]
			instruction = opt.Instruction
			e.intents.add("assisted_instruction", map[string]any{
				"agent_id": sc.AgentID,
				"label":    opt.Label,
			})
		}

		if gen == nil {
			continue
		}
		if resp := gen(sc.AgentID, event, instruction); resp != nil {
			return e.commit(*resp)
		}
	}
	return nil
}

// commit post-processes an outcome and applies the per-kind bookkeeping. The
// returned response reflects any downgrade the guards applied.
func (e *BehaviorEngine) commit(resp NPCResponse) *NPCResponse {
	state := e.states[resp.AgentID]

	if resp.IsSpeech() {
		// Verbatim repetition of the agent's own last speech never passes,
		// whatever the soft guard would have said.
		if last := e.lastSpeechBy(resp.AgentID); last != "" &&
			normalizeUtterance(resp.Text) == normalizeUtterance(last) {
			e.intents.add("hard_duplicate", map[string]any{"agent_id": resp.AgentID})
			resp = NPCResponse{
				AgentID: resp.AgentID,
				Kind:    ResponseAction,
				Text:    downgradeActions[e.rng.Intn(len(downgradeActions))],
			}
			e.commitAction(resp, state)
			return &resp
		}

		// The proposal is judged before it is recorded, so an agent cannot be
		// penalized against text it has not actually said yet.
		switch e.antiRep.RejectionAction(resp.AgentID, resp.Text) {
		case repetition.Reject:
			e.intents.add("repetition_reject", map[string]any{"agent_id": resp.AgentID})
			if state != nil {
				e.drives.OnAfterSpeech(state, false)
			}
			resp = NPCResponse{AgentID: resp.AgentID, Kind: ResponseNothing}
			e.commitNothing()
			return &resp
		case repetition.DowngradeToThought:
			e.intents.add("repetition_downgrade", map[string]any{"agent_id": resp.AgentID, "to": "thought"})
			resp.Kind = ResponseThought
		case repetition.DowngradeToAction:
			e.intents.add("repetition_downgrade", map[string]any{"agent_id": resp.AgentID, "to": "action"})
			resp = NPCResponse{
				AgentID: resp.AgentID,
				Kind:    ResponseAction,
				Text:    downgradeActions[e.rng.Intn(len(downgradeActions))],
			}
		}
	}

	switch resp.Kind {
	case ResponseSpeech:
		e.commitSpeech(resp, state, false)
	case ResponseGoodbye:
		e.commitSpeech(resp, state, true)
	case ResponseThought:
		e.appendHistory(resp.AgentID, ResponseThought, resp.Text)
		e.sceneCtx.OnThought()
		if state != nil {
			state.OnActed(e.sceneCtx.TurnNumber)
		}
		e.lastSpeakerID = ""
		e.consecutiveSpeaker = 0
	case ResponseAction:
		e.commitAction(resp, state)
	case ResponseNothing:
		e.commitNothing()
	}

	return &resp
}

// commitSpeech applies the full speech bookkeeping. A goodbye is speech that
// additionally zeroes the stay drive: the agent means to leave.
func (e *BehaviorEngine) commitSpeech(resp NPCResponse, state *NPCBehaviorState, leaving bool) {
	if state != nil {
		state.OnSpoke(e.sceneCtx.TurnNumber, e.cfg.EnergyCostSpeech)
		state.CooldownTurns = e.cfg.CooldownAfterSpeech
		e.drives.OnAfterSpeech(state, true)
		if leaving {
			state.StayDrive = 0
		}
	}

	e.sceneCtx.OnSpeech()
	e.assisted = false
	e.antiRep.RecordSpeech(resp.AgentID, resp.Text)
	e.appendHistory(resp.AgentID, resp.Kind, resp.Text)

	if e.lastSpeakerID == resp.AgentID {
		e.consecutiveSpeaker++
	} else {
		e.consecutiveSpeaker = 1
	}
	e.lastSpeakerID = resp.AgentID
}

func (e *BehaviorEngine) commitAction(resp NPCResponse, state *NPCBehaviorState) {
	e.appendHistory(resp.AgentID, ResponseAction, resp.Text)
	e.sceneCtx.OnAction()
	if state != nil {
		state.OnActed(e.sceneCtx.TurnNumber)
	}
	e.lastSpeakerID = ""
	e.consecutiveSpeaker = 0
}

func (e *BehaviorEngine) commitNothing() {
	// AgentID stays empty so a silent agent never becomes the last speaker.
	e.appendHistory("", ResponseNothing, "")
	e.sceneCtx.OnNothing()
	e.lastSpeakerID = ""
	e.consecutiveSpeaker = 0
}

// === helpers ===

func (e *BehaviorEngine) agentIDs() []string {
	ids := make([]string, 0, len(e.states))
	for id := range e.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *BehaviorEngine) appendHistory(agentID string, kind ResponseKind, text string) {
	e.history = append(e.history, TurnRecord{
		AgentID: agentID,
		Kind:    kind,
		Text:    text,
		Turn:    e.sceneCtx.TurnNumber,
	})
	if len(e.history) > e.cfg.HistoryLimit {
		e.history = e.history[len(e.history)-e.cfg.HistoryLimit:]
	}
}

func (e *BehaviorEngine) lastFromHistory() (text, speakerID string) {
	if len(e.history) == 0 {
		return "", ""
	}
	last := e.history[len(e.history)-1]
	return last.Text, last.AgentID
}

// lastSpeechBy returns the agent's most recent committed speech, or "".
func (e *BehaviorEngine) lastSpeechBy(agentID string) string {
	for i := len(e.history) - 1; i >= 0; i-- {
		r := e.history[i]
		if r.AgentID == agentID && (r.Kind == ResponseSpeech || r.Kind == ResponseGoodbye) {
			return r.Text
		}
	}
	return ""
}

var trailingPunct = ",.;:!?…\"'–—)]"

// normalizeUtterance folds case, collapses whitespace and strips trailing
// punctuation repeatedly until stable, so "Pěkný den." and "pěkný  den..."
// compare equal.
func normalizeUtterance(text string) string {
	s := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	for {
		trimmed := strings.TrimSpace(strings.TrimRight(s, trailingPunct))
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// === queries ===

// AgentState returns a copy of one agent's state, or nil if unknown.
func (e *BehaviorEngine) AgentState(agentID string) *NPCBehaviorState {
	state, ok := e.states[agentID]
	if !ok {
		return nil
	}
	cp := *state
	return &cp
}

// SceneSnapshot returns a copy of the scene context, or nil when no scene is
// active.
func (e *BehaviorEngine) SceneSnapshot() *SceneContext {
	if e.sceneCtx == nil {
		return nil
	}
	cp := *e.sceneCtx
	return &cp
}

// AssistedMode reports whether assisted soft prompting is active.
func (e *BehaviorEngine) AssistedMode() bool {
	return e.assisted
}

// AssistedOptions returns the soft prompt catalog.
func (e *BehaviorEngine) AssistedOptions() []AssistedOption {
	out := make([]AssistedOption, len(assistedOptions))
	copy(out, assistedOptions)
	return out
}

// ShouldAgentLeave reports whether the agent's stay drive has collapsed.
func (e *BehaviorEngine) ShouldAgentLeave(agentID string) bool {
	state, ok := e.states[agentID]
	return ok && state.StayDrive <= 0.1
}

// History returns a copy of the committed turn history.
func (e *BehaviorEngine) History() []TurnRecord {
	out := make([]TurnRecord, len(e.history))
	copy(out, e.history)
	return out
}

// IntentLog returns a copy of the decision log.
func (e *BehaviorEngine) IntentLog() []IntentEntry {
	return e.intents.snapshot()
}

// DebugSummary renders a one-line view of the engine for logs and overlays.
func (e *BehaviorEngine) DebugSummary() string {
	if !e.IsActive() {
		return "engine: inactive"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "turn=%d speeches=%d energy=%.2f silence=%d",
		e.sceneCtx.TurnNumber, e.sceneCtx.TotalSpeeches,
		e.sceneCtx.SceneEnergy, e.sceneCtx.ConsecutiveSilence)
	for _, id := range e.agentIDs() {
		s := e.states[id]
		fmt.Fprintf(&b, " | %s: speak=%.2f eng=%.2f energy=%.2f cd=%d",
			id, s.SpeakDrive, s.EngagementDrive, s.Energy, s.CooldownTurns)
	}
	return b.String()
}
