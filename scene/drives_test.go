package scene

import (
	"math"
	"testing"

	"benchtalk/scene/persona"
)

func silenceEvent() WorldEvent {
	return WorldEvent{Kind: EventSilence, Intensity: 0.3}
}

func TestUpdateDrives_SilenceGrowsOnlyTalkativeAgents(t *testing.T) {
	u := NewDriveUpdater(DefaultDriveParams())
	ctx := newSceneContext()

	a := newBehaviorState("a", 0.8)
	b := newBehaviorState("b", 0.2)
	agentA := persona.Agent{ID: "a", Talkativeness: 0.8}
	agentB := persona.Agent{ID: "b", Talkativeness: 0.2}

	for i := 0; i < 5; i++ {
		prevA := a.SpeakDrive
		prevB := b.SpeakDrive

		u.UpdateDrives(a, agentA, silenceEvent(), ctx, 0, false, false)
		u.UpdateDrives(b, agentB, silenceEvent(), ctx, 0, false, false)

		if a.SpeakDrive <= prevA {
			t.Fatalf("tick %d: talkative agent speak drive did not grow: %v -> %v", i, prevA, a.SpeakDrive)
		}
		if b.SpeakDrive > prevB {
			t.Fatalf("tick %d: quiet agent speak drive grew from silence alone: %v -> %v", i, prevB, b.SpeakDrive)
		}
	}
}

func TestUpdateDrives_AllDrivesStayInRange(t *testing.T) {
	u := NewDriveUpdater(DefaultDriveParams())
	ctx := newSceneContext()
	agent := persona.Agent{ID: "a", Talkativeness: 1.0}

	// Pile every boost on at once.
	s := newBehaviorState("a", 1.0)
	s.SpeakDrive = 0.95
	s.EngagementDrive = 0.9
	ev := WorldEvent{Kind: EventPressure, PressureTarget: "a", Intensity: 1.0}
	u.UpdateDrives(s, agent, ev, ctx, 0, true, true)
	if s.SpeakDrive > 1 || s.EngagementDrive > 1 || s.StayDrive > 1 {
		t.Fatalf("drive exceeded 1: speak=%v eng=%v stay=%v", s.SpeakDrive, s.EngagementDrive, s.StayDrive)
	}

	// Pile every penalty on at once.
	s = newBehaviorState("a", 0.0)
	s.SpeakDrive = 0.02
	s.StayDrive = 0.02
	s.EngagementDrive = 0.02
	s.Energy = 0.05
	s.CooldownTurns = 5
	ctx.ConsecutiveInactivity = 3
	ctx.ConsecutiveSilence = 6
	ctx.SceneEnergy = 0.05
	ctx.TotalSpeeches = 40
	u.UpdateDrives(s, agent, silenceEvent(), ctx, 1.0, false, false)
	if s.SpeakDrive < 0 || s.EngagementDrive < 0 || s.StayDrive < 0 {
		t.Fatalf("drive went negative: speak=%v eng=%v stay=%v", s.SpeakDrive, s.EngagementDrive, s.StayDrive)
	}
}

func TestUpdateDrives_AddressAndQuestionBoostsDoNotStack(t *testing.T) {
	p := DefaultDriveParams()
	u := NewDriveUpdater(p)
	ctx := newSceneContext()
	agent := persona.Agent{ID: "a", Talkativeness: 0.5}

	// Lift the growth cap out of the way so the boost combination is visible.
	p.EngagementGrowthCap = 1.0
	u = NewDriveUpdater(p)

	s := newBehaviorState("a", 0.5)
	s.EngagementDrive = 0.2
	u.UpdateDrives(s, agent, silenceEvent(), ctx, 0, true, true)

	want := clamp01(0.2 + p.EngagementQuestionBoost)
	if s.EngagementDrive != want {
		t.Fatalf("engagement = %v, want %v (max of the two boosts, not their sum)", s.EngagementDrive, want)
	}
}

func TestUpdateDrives_EngagementGrowthIsCapped(t *testing.T) {
	p := DefaultDriveParams()
	u := NewDriveUpdater(p)
	ctx := newSceneContext()
	agent := persona.Agent{ID: "a", Talkativeness: 0.5}

	s := newBehaviorState("a", 0.5)
	s.EngagementDrive = 0.3
	ev := WorldEvent{Kind: EventPressure, PressureTarget: "a", Intensity: 1.0}
	u.UpdateDrives(s, agent, ev, ctx, 0, true, true)

	want := 0.3 + p.EngagementGrowthCap
	if s.EngagementDrive != want {
		t.Fatalf("engagement = %v, want growth capped at %v", s.EngagementDrive, want)
	}
}

func TestUpdateDrives_UnpromptedSelectionErodesEngagement(t *testing.T) {
	p := DefaultDriveParams()
	u := NewDriveUpdater(p)
	ctx := newSceneContext()
	ctx.TurnNumber = 5
	agent := persona.Agent{ID: "a", Talkativeness: 0.5}

	s := newBehaviorState("a", 0.5)
	s.EngagementDrive = 0.5
	s.LastSelectedTurn = 4
	// Never addressed before that selection.
	ev := WorldEvent{Kind: EventStimulus, Intensity: 0.4}
	u.UpdateDrives(s, agent, ev, ctx, 0, false, false)

	want := 0.5 - p.EngagementUnpromptedDecay
	if s.EngagementDrive != want {
		t.Fatalf("engagement = %v, want %v after unprompted selection", s.EngagementDrive, want)
	}

	// The same selection with a prior address does not erode.
	s = newBehaviorState("a", 0.5)
	s.EngagementDrive = 0.5
	s.LastSelectedTurn = 4
	s.LastAddressedTurn = 4
	u.UpdateDrives(s, agent, ev, ctx, 0, false, false)
	if s.EngagementDrive != 0.5 {
		t.Fatalf("engagement = %v, want unchanged when the selection was prompted", s.EngagementDrive)
	}
}

func TestOnAfterSpeech(t *testing.T) {
	u := NewDriveUpdater(DefaultDriveParams())

	s := newBehaviorState("a", 0.5)
	s.SpeakDrive = 0.5
	u.OnAfterSpeech(s, true)
	if math.Abs(s.SpeakDrive-0.4) > 1e-9 {
		t.Fatalf("accepted speech should drop drive by 0.1, got %v", s.SpeakDrive)
	}
	u.OnAfterSpeech(s, false)
	if math.Abs(s.SpeakDrive-0.35) > 1e-9 {
		t.Fatalf("rejected speech should drop drive by 0.05, got %v", s.SpeakDrive)
	}
}
