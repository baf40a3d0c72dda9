package scene

import "testing"

func TestBehaviorState_ClampsAfterEveryMutation(t *testing.T) {
	s := newBehaviorState("a", 2.0)
	if s.SpeakDrive > 1 {
		t.Fatalf("initial speak drive not clamped: %v", s.SpeakDrive)
	}

	s.Energy = 0.02
	s.OnSpoke(3, 0.5)
	if s.Energy < 0 {
		t.Fatalf("energy went negative: %v", s.Energy)
	}

	s.OnTurnStart(5.0)
	if s.Energy > 1 {
		t.Fatalf("energy exceeded 1 after regen: %v", s.Energy)
	}
}

func TestBehaviorState_CanSpeak(t *testing.T) {
	s := newBehaviorState("a", 0.5)
	if !s.CanSpeak() {
		t.Fatalf("fresh agent should be able to speak")
	}

	s.CooldownTurns = 1
	if s.CanSpeak() {
		t.Fatalf("cooldown should block speaking")
	}

	s.CooldownTurns = 0
	s.Energy = 0.1
	if s.CanSpeak() {
		t.Fatalf("energy at the floor should block speaking")
	}
}

func TestBehaviorState_OnTurnStartDecrementsCooldown(t *testing.T) {
	s := newBehaviorState("a", 0.5)
	s.CooldownTurns = 2
	s.OnTurnStart(0.05)
	s.OnTurnStart(0.05)
	s.OnTurnStart(0.05)
	if s.CooldownTurns != 0 {
		t.Fatalf("cooldown should floor at 0, got %d", s.CooldownTurns)
	}
}

func TestSceneContext_ActivityCounters(t *testing.T) {
	c := newSceneContext()

	c.OnNothing()
	c.OnNothing()
	if c.ConsecutiveSilence != 2 || c.ConsecutiveInactivity != 2 {
		t.Fatalf("nothing should bump both counters: silence=%d inactivity=%d",
			c.ConsecutiveSilence, c.ConsecutiveInactivity)
	}

	// An action is activity but not conversation: it resets inactivity only.
	c.OnAction()
	if c.ConsecutiveInactivity != 0 {
		t.Fatalf("action should reset inactivity")
	}
	if c.ConsecutiveSilence != 2 {
		t.Fatalf("action should not reset silence, got %d", c.ConsecutiveSilence)
	}

	c.OnSpeech()
	if c.ConsecutiveSilence != 0 || c.ConsecutiveInactivity != 0 {
		t.Fatalf("speech should reset both counters")
	}
}

func TestSceneContext_DyingAndStale(t *testing.T) {
	c := newSceneContext()
	c.ConsecutiveInactivity = 2
	c.SceneEnergy = 0.1
	if !c.IsDying() {
		t.Fatalf("expected dying scene")
	}

	c = newSceneContext()
	c.ConsecutiveSilence = 4
	c.SceneEnergy = 0.25
	if !c.IsStale() {
		t.Fatalf("expected stale scene")
	}
	if c.IsDying() {
		t.Fatalf("stale is not dying")
	}
}

func TestSceneContext_EnergyStaysInRange(t *testing.T) {
	c := newSceneContext()
	for i := 0; i < 30; i++ {
		c.OnNothing()
	}
	if c.SceneEnergy < 0 {
		t.Fatalf("scene energy went negative: %v", c.SceneEnergy)
	}
	for i := 0; i < 30; i++ {
		c.OnSpeech()
	}
	if c.SceneEnergy > 1 {
		t.Fatalf("scene energy exceeded 1: %v", c.SceneEnergy)
	}
}
