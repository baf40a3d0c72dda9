package scene

// NPCBehaviorState holds the continuous behavior state of one agent for the
// lifetime of a scene. All drive and energy fields live in [0,1] and are
// re-clamped after every mutation.
type NPCBehaviorState struct {
	AgentID string

	SpeakDrive      float64 // how much the agent wants to talk
	StayDrive       float64 // how much the agent wants to remain in the scene
	EngagementDrive float64 // social permission to speak unprompted
	Energy          float64 // depleted by speaking, regenerated each tick

	CooldownTurns int // turns the agent must wait before speaking again

	SpeechCount       int
	LastSpokeTurn     int
	LastActedTurn     int
	LastSelectedTurn  int
	LastAddressedTurn int
}

// newBehaviorState seeds an agent's state at scene start. The initial speak
// drive scales with talkativeness so chatty agents open the scene more often.
func newBehaviorState(agentID string, talkativeness float64) *NPCBehaviorState {
	return &NPCBehaviorState{
		AgentID:           agentID,
		SpeakDrive:        clamp01(0.2 + talkativeness*0.4),
		StayDrive:         0.7,
		EngagementDrive:   0.5,
		Energy:            1.0,
		LastSpokeTurn:     -1,
		LastActedTurn:     -1,
		LastSelectedTurn:  -1,
		LastAddressedTurn: -1,
	}
}

// CanSpeak reports whether the agent is physically able to speak this tick.
func (s *NPCBehaviorState) CanSpeak() bool {
	return s.CooldownTurns <= 0 && s.Energy > 0.1
}

// OnTurnStart decays cooldown and regenerates energy at the top of a tick.
func (s *NPCBehaviorState) OnTurnStart(energyRegen float64) {
	if s.CooldownTurns > 0 {
		s.CooldownTurns--
	}
	s.Energy = clamp01(s.Energy + energyRegen)
}

// OnSpoke records a finalized speech outcome and charges its energy cost.
func (s *NPCBehaviorState) OnSpoke(turn int, energyCost float64) {
	s.SpeechCount++
	s.LastSpokeTurn = turn
	s.LastActedTurn = turn
	s.Energy = clamp01(s.Energy - energyCost)
}

// OnActed records a non-speech activity (action or thought).
func (s *NPCBehaviorState) OnActed(turn int) {
	s.LastActedTurn = turn
}

// OnSelected records that the agent was offered a generation attempt,
// regardless of whether it produced anything.
func (s *NPCBehaviorState) OnSelected(turn int) {
	s.LastSelectedTurn = turn
}

// OnAddressed records that the agent was directly addressed.
func (s *NPCBehaviorState) OnAddressed(turn int) {
	s.LastAddressedTurn = turn
}

// SceneContext tracks scene-wide pacing state. Created at scene start,
// mutated only by the engine, discarded at scene end.
type SceneContext struct {
	TurnNumber int

	TotalSpeeches int
	TotalActions  int
	TotalThoughts int

	SceneEnergy float64 // in [0,1]

	ConsecutiveSilence    int // ticks without speech
	ConsecutiveInactivity int // ticks without any activity at all
}

func newSceneContext() *SceneContext {
	return &SceneContext{SceneEnergy: 0.5}
}

// OnSpeech resets both stagnation counters; speech is the strongest activity.
func (c *SceneContext) OnSpeech() {
	c.TotalSpeeches++
	c.ConsecutiveSilence = 0
	c.ConsecutiveInactivity = 0
	c.SceneEnergy = clamp01(c.SceneEnergy + 0.1)
}

// OnAction resets inactivity only. An action does not break conversational
// silence, but it is activity, so scene energy rises slightly.
func (c *SceneContext) OnAction() {
	c.TotalActions++
	c.ConsecutiveInactivity = 0
	c.SceneEnergy = clamp01(c.SceneEnergy + 0.03)
}

// OnThought is the weakest activity.
func (c *SceneContext) OnThought() {
	c.TotalThoughts++
	c.ConsecutiveInactivity = 0
	c.SceneEnergy = clamp01(c.SceneEnergy + 0.01)
}

// OnSilence records a tick where nobody spoke.
func (c *SceneContext) OnSilence() {
	c.ConsecutiveSilence++
	c.SceneEnergy = clamp01(c.SceneEnergy - 0.05)
}

// OnNothing records complete inactivity, which drains the scene fastest.
func (c *SceneContext) OnNothing() {
	c.ConsecutiveSilence++
	c.ConsecutiveInactivity++
	c.SceneEnergy = clamp01(c.SceneEnergy - 0.07)
}

// OnTurnEnd advances the turn counter. Called exactly once per tick,
// unconditionally.
func (c *SceneContext) OnTurnEnd() {
	c.TurnNumber++
}

// IsDying reports whether the scene has stalled hard enough to warrant
// assisted mode.
func (c *SceneContext) IsDying() bool {
	return c.ConsecutiveInactivity >= 2 && c.SceneEnergy < 0.15
}

// IsStale reports a long stretch without speech while some activity remains.
func (c *SceneContext) IsStale() bool {
	return c.ConsecutiveSilence >= 4 && c.SceneEnergy < 0.3
}
