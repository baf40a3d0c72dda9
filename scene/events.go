package scene

import (
	"math/rand"
	"strings"
	"time"
)

// EventParams tunes the world event generator.
type EventParams struct {
	// AmbientTimeCooldown is the minimum wall-clock gap between ambient
	// stimuli; AmbientTurnCooldown the minimum tick gap. Both must have
	// elapsed before the probability roll is even attempted.
	AmbientTimeCooldown time.Duration
	AmbientTurnCooldown int
	AmbientChance       float64

	// PressureKeywords mark a forced event as a speech act aimed at someone.
	// A question mark counts regardless of this list.
	PressureKeywords []string
}

// DefaultEventParams returns the reference tuning.
func DefaultEventParams() EventParams {
	return EventParams{
		AmbientTimeCooldown: 20 * time.Second,
		AmbientTurnCooldown: 3,
		AmbientChance:       0.15,
		PressureKeywords:    []string{"oslovil", "zeptal", "řekl", "křikl"},
	}
}

// WorldEventGenerator produces exactly one WorldEvent per tick. The clock and
// RNG are injected so scenarios replay deterministically.
type WorldEventGenerator struct {
	params EventParams
	rng    *rand.Rand
	now    func() time.Time

	lastAmbientTime time.Time
	lastAmbientTurn int
}

// NewWorldEventGenerator creates a generator with the given tuning.
func NewWorldEventGenerator(params EventParams, rng *rand.Rand, now func() time.Time) *WorldEventGenerator {
	if now == nil {
		now = time.Now
	}
	return &WorldEventGenerator{
		params:          params,
		rng:             rng,
		now:             now,
		lastAmbientTurn: -100,
	}
}

// Generate picks this tick's world event. Priority order, first match wins:
// forced input, pending question, revival of a dying scene, ambient stimulus,
// silence.
func (g *WorldEventGenerator) Generate(
	ctx *SceneContext,
	forcedEvent string,
	lastWasQuestion bool,
	questionTarget string,
) WorldEvent {
	if forcedEvent != "" {
		return g.classifyForced(forcedEvent)
	}

	if lastWasQuestion && questionTarget != "" {
		return WorldEvent{
			Kind:           EventPressure,
			Description:    "Čeká se na odpověď na otázku.",
			PressureTarget: questionTarget,
			Intensity:      0.7,
		}
	}

	if ctx.IsDying() {
		return WorldEvent{
			Kind:        EventStimulus,
			Description: revivalEvents[g.rng.Intn(len(revivalEvents))],
			Intensity:   0.6,
		}
	}

	if g.shouldGenerateAmbient(ctx.TurnNumber) {
		g.lastAmbientTime = g.now()
		g.lastAmbientTurn = ctx.TurnNumber
		return WorldEvent{
			Kind:        EventStimulus,
			Description: ambientEvents[g.rng.Intn(len(ambientEvents))],
			Intensity:   0.4,
		}
	}

	return WorldEvent{
		Kind:        EventSilence,
		Description: "Ticho. Prostor pro iniciativu.",
		Intensity:   0.3,
	}
}

// classifyForced turns user-supplied text into pressure (question or speech
// act) or a plain stimulus.
func (g *WorldEventGenerator) classifyForced(text string) WorldEvent {
	kind := EventStimulus
	lower := strings.ToLower(text)
	if strings.Contains(lower, "?") {
		kind = EventPressure
	} else {
		for _, kw := range g.params.PressureKeywords {
			if strings.Contains(lower, kw) {
				kind = EventPressure
				break
			}
		}
	}
	return WorldEvent{Kind: kind, Description: text, Intensity: 0.8}
}

// shouldGenerateAmbient requires both cooldowns to have elapsed and the
// probability roll to pass. The roll runs last so a failed roll does not
// consume either cooldown.
func (g *WorldEventGenerator) shouldGenerateAmbient(currentTurn int) bool {
	if g.now().Sub(g.lastAmbientTime) < g.params.AmbientTimeCooldown {
		return false
	}
	if currentTurn-g.lastAmbientTurn < g.params.AmbientTurnCooldown {
		return false
	}
	return g.rng.Float64() < g.params.AmbientChance
}

// DetectQuestionTarget returns the agent a trailing question is aimed at, or
// "". With two agents in the scene the target is simply the one who did not
// speak.
func DetectQuestionTarget(lastText, lastSpeakerID string, agentIDs []string) string {
	if !strings.Contains(lastText, "?") {
		return ""
	}
	for _, id := range agentIDs {
		if id != lastSpeakerID {
			return id
		}
	}
	return ""
}
