package scene

// Snapshot is the wire-friendly view of a running scene, built on demand for
// clients. It carries copies only; mutating it never touches engine state.
type Snapshot struct {
	Active       bool            `json:"active"`
	Turn         int             `json:"turn"`
	SceneEnergy  float64         `json:"scene_energy"`
	Speeches     int             `json:"speeches"`
	Actions      int             `json:"actions"`
	Thoughts     int             `json:"thoughts"`
	Silence      int             `json:"consecutive_silence"`
	Inactivity   int             `json:"consecutive_inactivity"`
	Assisted     bool            `json:"assisted"`
	Agents       []AgentSnapshot `json:"agents"`
	DebugSummary string          `json:"debug_summary,omitempty"`
}

// AgentSnapshot is one agent's visible state.
type AgentSnapshot struct {
	AgentID         string  `json:"agent_id"`
	SpeakDrive      float64 `json:"speak_drive"`
	StayDrive       float64 `json:"stay_drive"`
	EngagementDrive float64 `json:"engagement_drive"`
	Energy          float64 `json:"energy"`
	CooldownTurns   int     `json:"cooldown_turns"`
	SpeechCount     int     `json:"speech_count"`
	WantsToLeave    bool    `json:"wants_to_leave"`
}

// BuildSnapshot assembles the current scene view. Inactive engines yield a
// zero snapshot with Active=false.
func (e *BehaviorEngine) BuildSnapshot() Snapshot {
	if !e.IsActive() {
		return Snapshot{}
	}
	snap := Snapshot{
		Active:       true,
		Turn:         e.sceneCtx.TurnNumber,
		SceneEnergy:  e.sceneCtx.SceneEnergy,
		Speeches:     e.sceneCtx.TotalSpeeches,
		Actions:      e.sceneCtx.TotalActions,
		Thoughts:     e.sceneCtx.TotalThoughts,
		Silence:      e.sceneCtx.ConsecutiveSilence,
		Inactivity:   e.sceneCtx.ConsecutiveInactivity,
		Assisted:     e.assisted,
		DebugSummary: e.DebugSummary(),
	}
	for _, id := range e.agentIDs() {
		s := e.states[id]
		snap.Agents = append(snap.Agents, AgentSnapshot{
			AgentID:         id,
			SpeakDrive:      s.SpeakDrive,
			StayDrive:       s.StayDrive,
			EngagementDrive: s.EngagementDrive,
			Energy:          s.Energy,
			CooldownTurns:   s.CooldownTurns,
			SpeechCount:     s.SpeechCount,
			WantsToLeave:    s.StayDrive <= 0.1,
		})
	}
	return snap
}
