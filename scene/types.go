package scene

// EventKind classifies the world event driving a tick.
type EventKind byte

const (
	EventStimulus EventKind = 0 // something happened in the scene (bird, wind, sound)
	EventPressure EventKind = 1 // social pressure to respond (question, direct address)
	EventSilence  EventKind = 2 // nothing happened; room for initiative
)

var EventKindDictionary = map[EventKind]string{
	EventStimulus: "stimulus",
	EventPressure: "pressure",
	EventSilence:  "silence",
}

// WorldEvent is the environmental/social classification for one tick.
// It is ephemeral: a fresh value is generated every tick and never stored.
type WorldEvent struct {
	Kind        EventKind
	Description string
	// PressureTarget is the agent the pressure is aimed at, if any.
	// Empty for untargeted pressure and for non-pressure events.
	PressureTarget string
	// Intensity in [0,1].
	Intensity float64
}

// IsPressureOn reports whether this event is pressure aimed at the given agent.
func (e WorldEvent) IsPressureOn(agentID string) bool {
	return e.Kind == EventPressure && e.PressureTarget != "" && e.PressureTarget == agentID
}

// ResponseKind is the kind of outcome an agent produced for a tick.
type ResponseKind byte

const (
	ResponseSpeech  ResponseKind = 0 // spoken line
	ResponseThought ResponseKind = 1 // inner thought, not audible to others
	ResponseAction  ResponseKind = 2 // physical action (looks around, stands up...)
	ResponseNothing ResponseKind = 3 // stays silent, does nothing
	ResponseGoodbye ResponseKind = 4 // says goodbye and intends to leave
)

var ResponseKindDictionary = map[ResponseKind]string{
	ResponseSpeech:  "speech",
	ResponseThought: "thought",
	ResponseAction:  "action",
	ResponseNothing: "nothing",
	ResponseGoodbye: "goodbye",
}

// NPCResponse is one agent's outcome for a tick, either produced by the
// generation collaborator or substituted by the engine (scripted fallbacks).
type NPCResponse struct {
	AgentID string
	Kind    ResponseKind
	Text    string
}

func (r NPCResponse) IsSpeech() bool  { return r.Kind == ResponseSpeech }
func (r NPCResponse) IsLeaving() bool { return r.Kind == ResponseGoodbye }

// Score is the result of scoring one agent for one tick. Breakdown maps each
// named term to its contribution; it exists for observability only and must
// never feed back into control flow.
type Score struct {
	AgentID   string
	Value     float64
	Breakdown map[string]float64
}

// AssistedOption is one soft prompt offered when the scene has stalled.
type AssistedOption struct {
	Label       string
	Instruction string
}
