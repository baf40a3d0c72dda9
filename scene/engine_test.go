package scene

import (
	"testing"

	"benchtalk/scene/persona"
)

func testAgents() (persona.Agent, persona.Agent) {
	a := persona.Agent{ID: "a", Name: "Vlasta", Talkativeness: 0.9}
	b := persona.Agent{ID: "b", Name: "Karel", Talkativeness: 0.1}
	return a, b
}

func newTestEngine(t *testing.T, mutate func(*Config)) *BehaviorEngine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 1
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine err: %v", err)
	}
	return e
}

func containsLine(catalog []string, text string) bool {
	for _, line := range catalog {
		if line == text {
			return true
		}
	}
	return false
}

func TestProcessTurn_InactiveEngineNoOps(t *testing.T) {
	e := newTestEngine(t, nil)
	if res := e.ProcessTurn(nil, ""); res != nil {
		t.Fatalf("inactive engine should return nil, got %+v", res)
	}
	if e.AgentState("a") != nil {
		t.Fatalf("unknown agent lookup should return nil")
	}
	if e.ShouldAgentLeave("ghost") {
		t.Fatalf("unknown agent never wants to leave")
	}
}

func TestProcessTurn_HardDuplicateForcedToAction(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	gen := func(string, WorldEvent, string) *NPCResponse {
		return &NPCResponse{AgentID: "a", Kind: ResponseSpeech, Text: "Pěkný den."}
	}

	first := e.ProcessTurn(gen, "")
	if first == nil || !first.IsSpeech() {
		t.Fatalf("first utterance should commit as speech, got %+v", first)
	}

	second := e.ProcessTurn(gen, "")
	if second == nil || second.Kind != ResponseAction {
		t.Fatalf("verbatim repeat should be forced into an action, got %+v", second)
	}
	if !containsLine(downgradeActions, second.Text) {
		t.Fatalf("substituted action %q not from the downgrade catalog", second.Text)
	}

	// The duplicate must not have polluted the repetition baseline: only the
	// first utterance's two phrases are on record, below the estimate floor.
	if est := e.antiRep.EstimatePenalties([]string{"a"})["a"]; est != 0 {
		t.Fatalf("duplicate leaked into the repetition history, estimate = %v", est)
	}
}

func TestProcessTurn_RepetitionRejectBecomesNothing(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	lines := []string{
		"Ano sluníčko hezky hřeje",
		"Ano sluníčko hezky hřeje i dnes",
	}
	call := 0
	gen := func(string, WorldEvent, string) *NPCResponse {
		text := lines[call]
		call++
		return &NPCResponse{AgentID: "a", Kind: ResponseSpeech, Text: text}
	}

	if res := e.ProcessTurn(gen, ""); res == nil || !res.IsSpeech() {
		t.Fatalf("first utterance should pass, got %+v", res)
	}

	res := e.ProcessTurn(gen, "")
	if res == nil || res.Kind != ResponseNothing {
		t.Fatalf("near-verbatim repeat should be rejected to nothing, got %+v", res)
	}

	hist := e.History()
	last := hist[len(hist)-1]
	if last.AgentID != "" || last.Kind != ResponseNothing {
		t.Fatalf("nothing outcome must not credit a speaker: %+v", last)
	}
	if snap := e.SceneSnapshot(); snap.ConsecutiveInactivity != 1 {
		t.Fatalf("nothing outcome should count as inactivity, got %d", snap.ConsecutiveInactivity)
	}
}

func TestProcessTurn_ConsecutiveSpeakerCap(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	// Third consecutive turn on the floor for agent a; b cannot speak.
	e.lastSpeakerID = "a"
	e.consecutiveSpeaker = 2
	e.states["a"].SpeakDrive = 0.9
	e.states["a"].EngagementDrive = 0.9
	e.states["b"].Energy = 0.02

	genCalled := false
	gen := func(string, WorldEvent, string) *NPCResponse {
		genCalled = true
		return &NPCResponse{AgentID: "a", Kind: ResponseSpeech, Text: "A ještě jedna věc."}
	}

	res := e.ProcessTurn(gen, "")
	if res == nil || res.Kind != ResponseAction {
		t.Fatalf("capped speaker should yield a filler action, got %+v", res)
	}
	if !containsLine(fillerActions, res.Text) {
		t.Fatalf("filler %q not from the filler catalog", res.Text)
	}
	if genCalled {
		t.Fatalf("generation must not run for a capped speaker")
	}
	if e.lastSpeakerID != "" || e.consecutiveSpeaker != 0 {
		t.Fatalf("filler action should release the floor")
	}
}

func TestProcessTurn_PermissionGateSubstitutes(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	e.states["a"].EngagementDrive = 0.1
	e.states["a"].SpeakDrive = 0.55
	e.states["b"].Energy = 0.02

	genCalled := false
	gen := func(string, WorldEvent, string) *NPCResponse {
		genCalled = true
		return &NPCResponse{AgentID: "a", Kind: ResponseSpeech, Text: "Dobrý den."}
	}

	res := e.ProcessTurn(gen, "")
	if res == nil || res.Kind != ResponseAction {
		t.Fatalf("gated agent with residual urge should produce an idle action, got %+v", res)
	}
	if !containsLine(idleActions, res.Text) {
		t.Fatalf("idle action %q not from the idle catalog", res.Text)
	}
	if genCalled {
		t.Fatalf("generation must not run for a gated agent")
	}
	if e.states["a"].LastSelectedTurn != 0 {
		t.Fatalf("gated agent still counts as selected, got turn %d", e.states["a"].LastSelectedTurn)
	}
}

func TestProcessTurn_DyingSceneActivatesAssistedMode(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) {
		cfg.MinScoreToSpeak = 5 // nobody ever clears it
	})
	a, b := testAgents()
	e.StartScene(a, b)
	e.sceneCtx.ConsecutiveInactivity = 2
	e.sceneCtx.SceneEnergy = 0.22

	if res := e.ProcessTurn(nil, ""); res != nil {
		t.Fatalf("expected silence, got %+v", res)
	}
	if e.AssistedMode() {
		t.Fatalf("assisted mode too early, scene energy %v", e.sceneCtx.SceneEnergy)
	}

	if res := e.ProcessTurn(nil, ""); res != nil {
		t.Fatalf("expected silence, got %+v", res)
	}
	if !e.AssistedMode() {
		t.Fatalf("two silent ticks on a drained scene should activate assisted mode")
	}
	if len(e.AssistedOptions()) == 0 {
		t.Fatalf("assisted options catalog is empty")
	}
}

func TestProcessTurn_NilGeneratorEndsInSilence(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	if res := e.ProcessTurn(nil, ""); res != nil {
		t.Fatalf("absent generation should be a normal silent tick, got %+v", res)
	}
	snap := e.SceneSnapshot()
	if snap.ConsecutiveSilence != 1 {
		t.Fatalf("silence not recorded, got %d", snap.ConsecutiveSilence)
	}
	if snap.TurnNumber != 1 {
		t.Fatalf("turn counter should advance exactly once, got %d", snap.TurnNumber)
	}
}

func TestProcessTurn_GoodbyeZeroesStayDrive(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	gen := func(id string, _ WorldEvent, _ string) *NPCResponse {
		return &NPCResponse{AgentID: id, Kind: ResponseGoodbye, Text: "Tak já už půjdu."}
	}

	res := e.ProcessTurn(gen, "")
	if res == nil || res.Kind != ResponseGoodbye {
		t.Fatalf("expected goodbye outcome, got %+v", res)
	}
	if !e.ShouldAgentLeave(res.AgentID) {
		t.Fatalf("goodbye should collapse the stay drive")
	}
	if snap := e.SceneSnapshot(); snap.TotalSpeeches != 1 {
		t.Fatalf("goodbye counts as speech, got %d speeches", snap.TotalSpeeches)
	}
}

func TestProcessTurn_ForcedQuestionPressuresTheOtherAgent(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	var seen WorldEvent
	gen := func(id string, ev WorldEvent, _ string) *NPCResponse {
		seen = ev
		return &NPCResponse{AgentID: id, Kind: ResponseSpeech, Text: "Asi ano."}
	}

	res := e.ProcessTurn(gen, "Kolemjdoucí se zeptal: bydlíte tady?")
	if res == nil {
		t.Fatalf("forced pressure should produce a speaker")
	}
	if seen.Kind != EventPressure || seen.Intensity != 0.8 {
		t.Fatalf("forced question should arrive as pressure 0.8, got kind=%v intensity=%v",
			EventKindDictionary[seen.Kind], seen.Intensity)
	}
}

func TestStartScene_ResetsEverything(t *testing.T) {
	e := newTestEngine(t, nil)
	a, b := testAgents()
	e.StartScene(a, b)

	gen := func(id string, _ WorldEvent, _ string) *NPCResponse {
		return &NPCResponse{AgentID: id, Kind: ResponseSpeech, Text: "První scéna o počasí venku."}
	}
	e.ProcessTurn(gen, "")

	e.StartScene(a, b)
	if len(e.History()) != 0 {
		t.Fatalf("history should be empty after scene restart")
	}
	if snap := e.SceneSnapshot(); snap.TurnNumber != 0 || snap.TotalSpeeches != 0 {
		t.Fatalf("scene context should be fresh, got %+v", snap)
	}
	if est := e.antiRep.EstimatePenalties([]string{"a"})["a"]; est != 0 {
		t.Fatalf("repetition baseline should be cleared, got %v", est)
	}
	intents := e.IntentLog()
	if len(intents) != 1 || intents[0].Action != "start_scene" {
		t.Fatalf("intent log should hold only the fresh start entry, got %d entries", len(intents))
	}
}
