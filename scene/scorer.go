package scene

import (
	"math/rand"
	"sort"

	"benchtalk/scene/persona"
)

// ScoreParams tunes candidate scoring.
type ScoreParams struct {
	PressureBonus       float64 // being the pressure target
	StimulusBonus       float64 // reacting to a stimulus, scaled by talkativeness
	CooldownPenalty     float64 // spoke very recently
	LowEnergyPenalty    float64 // running on fumes
	JustActedPenalty    float64 // acted this tick or the last
	JustSelectedPenalty float64 // was offered a generation attempt recently

	EngagementBonus      float64 // above-midpoint engagement
	LowEngagementPenalty float64 // engagement near zero

	AntiStarvationChance    float64 // per-tick roll for a starving agent
	AntiStarvationThreshold float64 // engagement below this counts as starving
	AntiStarvationBonus     float64 // base rescue bonus
}

// DefaultScoreParams returns the reference tuning.
func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		PressureBonus:       0.4,
		StimulusBonus:       0.2,
		CooldownPenalty:     0.3,
		LowEnergyPenalty:    0.2,
		JustActedPenalty:    0.25,
		JustSelectedPenalty: 0.15,

		EngagementBonus:      0.15,
		LowEngagementPenalty: 0.20,

		AntiStarvationChance:    0.08,
		AntiStarvationThreshold: 0.25,
		AntiStarvationBonus:     0.20,
	}
}

// SpeakScorer ranks candidate speakers for a tick. Scoring is additive over a
// named breakdown so a decision can always be explained after the fact; the
// breakdown never feeds back into control flow.
type SpeakScorer struct {
	params ScoreParams
	rng    *rand.Rand
}

// NewSpeakScorer creates a scorer with the given tuning and RNG.
func NewSpeakScorer(params ScoreParams, rng *rand.Rand) *SpeakScorer {
	return &SpeakScorer{params: params, rng: rng}
}

// ScoreNPC computes one agent's score for this tick. The total is clamped at
// zero from below but otherwise unbounded.
func (s *SpeakScorer) ScoreNPC(
	state *NPCBehaviorState,
	agent persona.Agent,
	event WorldEvent,
	antiRepPenalty float64,
	currentTurn int,
) Score {
	breakdown := make(map[string]float64)

	base := state.SpeakDrive * state.Energy
	breakdown["base"] = base
	total := base

	pressure := 0.0
	if event.IsPressureOn(state.AgentID) {
		pressure = s.params.PressureBonus * event.Intensity
	}
	breakdown["pressure"] = pressure
	total += pressure

	// Any agent may react to a stimulus; the talkative react harder.
	stimulus := 0.0
	if event.Kind == EventStimulus {
		stimulus = s.params.StimulusBonus * event.Intensity * agent.Talkativeness
	}
	breakdown["stimulus"] = stimulus
	total += stimulus

	cooldown := 0.0
	if state.CooldownTurns > 0 {
		cooldown = -s.params.CooldownPenalty * float64(state.CooldownTurns)
	}
	breakdown["cooldown"] = cooldown
	total += cooldown

	energyPen := 0.0
	if state.Energy < 0.3 {
		energyPen = -s.params.LowEnergyPenalty * (0.3 - state.Energy)
	}
	breakdown["energy_penalty"] = energyPen
	total += energyPen

	antiRep := -antiRepPenalty * 0.3
	breakdown["anti_rep"] = antiRep
	total += antiRep

	// Recent activity penalties decay over two ticks: full the turn it
	// happened, half one turn later, gone after that. Keeps one agent from
	// monologuing with itself through actions or repeated selection.
	justActed := -recencyPenalty(state.LastActedTurn, currentTurn, s.params.JustActedPenalty)
	breakdown["just_acted"] = justActed
	total += justActed

	justSelected := -recencyPenalty(state.LastSelectedTurn, currentTurn, s.params.JustSelectedPenalty)
	breakdown["just_selected"] = justSelected
	total += justSelected

	// Low engagement agents would only be gated after selection anyway, so
	// push them down before wasting a generation slot on them.
	engagementMod := 0.0
	if state.EngagementDrive >= 0.5 {
		engagementMod = s.params.EngagementBonus * (state.EngagementDrive - 0.5) * 2
	} else if state.EngagementDrive < 0.25 {
		engagementMod = -s.params.LowEngagementPenalty * (0.25 - state.EngagementDrive) * 4
	}
	breakdown["engagement"] = engagementMod
	total += engagementMod

	// Starving agents get an occasional rescue so low engagement cannot lock
	// them out forever. The bonus grows with how starved they are.
	antiStarvation := 0.0
	if state.EngagementDrive < s.params.AntiStarvationThreshold &&
		s.rng.Float64() < s.params.AntiStarvationChance {
		hunger := (s.params.AntiStarvationThreshold - state.EngagementDrive) / s.params.AntiStarvationThreshold
		antiStarvation = s.params.AntiStarvationBonus + 0.05*hunger
	}
	breakdown["anti_starvation"] = antiStarvation
	total += antiStarvation

	if total < 0 {
		total = 0
	}
	breakdown["total"] = total

	return Score{AgentID: state.AgentID, Value: total, Breakdown: breakdown}
}

func recencyPenalty(lastTurn, currentTurn int, penalty float64) float64 {
	if lastTurn < 0 {
		return 0
	}
	switch currentTurn - lastTurn {
	case 0:
		return penalty
	case 1:
		return penalty / 2
	}
	return 0
}

// SelectTopK scores every agent that can currently speak and returns the k
// highest scores, best first. Agents are visited in ID order so the RNG
// stream, and therefore a seeded scene, stays reproducible.
func (s *SpeakScorer) SelectTopK(
	states map[string]*NPCBehaviorState,
	agents map[string]persona.Agent,
	event WorldEvent,
	antiRepPenalties map[string]float64,
	k int,
	currentTurn int,
) []Score {
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	scores := make([]Score, 0, len(ids))
	for _, id := range ids {
		state := states[id]
		if !state.CanSpeak() {
			continue
		}
		scores = append(scores, s.ScoreNPC(state, agents[id], event, antiRepPenalties[id], currentTurn))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Value > scores[j].Value
	})
	if len(scores) > k {
		scores = scores[:k]
	}
	return scores
}

// ShouldAnyoneSpeak reports whether the best score clears the floor below
// which the scene stays silent.
func ShouldAnyoneSpeak(scores []Score, minScore float64) bool {
	return len(scores) > 0 && scores[0].Value >= minScore
}
