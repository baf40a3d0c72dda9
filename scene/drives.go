package scene

import "benchtalk/scene/persona"

// DriveParams tunes the per-tick drive dynamics.
type DriveParams struct {
	PressureBoost           float64 // speak boost when the agent is the pressure target
	SilenceGrowthRate       float64 // speak growth during silence for talkative agents
	LowEnergyPenalty        float64 // speak penalty when energy runs low
	RepetitionPenaltyFactor float64 // speak penalty per unit of repetition

	StayDecayDeadScene float64
	StayDecayLowEnergy float64
	StayBoostGoodScene float64

	EngagementAddressedBoost  float64
	EngagementQuestionBoost   float64
	EngagementPressureBoost   float64
	EngagementSilenceDecay    float64
	EngagementUnpromptedDecay float64 // decay after a selection nobody asked for
	EngagementGrowthCap       float64 // max net engagement growth per tick
}

// DefaultDriveParams returns the reference tuning.
func DefaultDriveParams() DriveParams {
	return DriveParams{
		PressureBoost:           0.25,
		SilenceGrowthRate:       0.03,
		LowEnergyPenalty:        0.1,
		RepetitionPenaltyFactor: 0.15,

		StayDecayDeadScene: 0.08,
		StayDecayLowEnergy: 0.05,
		StayBoostGoodScene: 0.02,

		EngagementAddressedBoost:  0.3,
		EngagementQuestionBoost:   0.4,
		EngagementPressureBoost:   0.25,
		EngagementSilenceDecay:    0.04,
		EngagementUnpromptedDecay: 0.1,
		EngagementGrowthCap:       0.35,
	}
}

// DriveUpdater advances the three drives of each agent from the tick's world
// event, the scene context and the repetition estimate. Each drive is clamped
// to [0,1] independently after its update.
type DriveUpdater struct {
	params DriveParams
}

// NewDriveUpdater creates an updater with the given tuning.
func NewDriveUpdater(params DriveParams) *DriveUpdater {
	return &DriveUpdater{params: params}
}

// UpdateDrives mutates state's speak, stay and engagement drives.
func (u *DriveUpdater) UpdateDrives(
	state *NPCBehaviorState,
	agent persona.Agent,
	event WorldEvent,
	ctx *SceneContext,
	antiRepPenalty float64,
	wasAddressed bool,
	wasAskedQuestion bool,
) {
	u.updateSpeakDrive(state, agent.Talkativeness, event, antiRepPenalty, wasAddressed)
	u.updateStayDrive(state, ctx, antiRepPenalty)
	u.updateEngagementDrive(state, event, ctx, wasAddressed, wasAskedQuestion)
}

func (u *DriveUpdater) updateSpeakDrive(
	state *NPCBehaviorState,
	talkativeness float64,
	event WorldEvent,
	antiRepPenalty float64,
	wasAddressed bool,
) {
	drive := state.SpeakDrive

	if event.IsPressureOn(state.AgentID) {
		drive += u.params.PressureBoost * event.Intensity
	}

	if wasAddressed {
		drive += 0.15
	}

	// Silence grows the urge to speak only in talkative agents. An introvert
	// (talkativeness <= 0.3) sits comfortably in silence.
	if event.Kind == EventSilence && talkativeness > 0.3 {
		drive += u.params.SilenceGrowthRate * (talkativeness - 0.3) * 2
	}

	if state.Energy < 0.3 {
		drive -= u.params.LowEnergyPenalty * (0.3 - state.Energy) / 0.3
	}

	if state.CooldownTurns > 0 {
		drive -= 0.05 * float64(state.CooldownTurns)
	}

	if antiRepPenalty > 0 {
		drive -= u.params.RepetitionPenaltyFactor * antiRepPenalty
	}

	state.SpeakDrive = clamp01(drive)
}

func (u *DriveUpdater) updateStayDrive(
	state *NPCBehaviorState,
	ctx *SceneContext,
	antiRepPenalty float64,
) {
	drive := state.StayDrive

	if ctx.IsDying() {
		drive -= u.params.StayDecayDeadScene
	}

	if ctx.ConsecutiveSilence >= 3 {
		drive -= 0.03 * float64(ctx.ConsecutiveSilence-2)
	}

	if state.Energy < 0.2 {
		drive -= u.params.StayDecayLowEnergy
	}

	// Heavy self-repetition is boring; the agent starts wanting to leave.
	if antiRepPenalty > 0.5 {
		drive -= 0.05 * (antiRepPenalty - 0.5)
	}

	if ctx.SceneEnergy > 0.6 {
		drive += u.params.StayBoostGoodScene
	}

	// Very long conversations wear everyone down.
	if ctx.TotalSpeeches > 20 {
		drive -= 0.02 * float64(ctx.TotalSpeeches-20) / 10
	}

	state.StayDrive = clamp01(drive)
}

func (u *DriveUpdater) updateEngagementDrive(
	state *NPCBehaviorState,
	event WorldEvent,
	ctx *SceneContext,
	wasAddressed bool,
	wasAskedQuestion bool,
) {
	before := state.EngagementDrive
	drive := before

	// One utterance can both address and question; take the stronger boost
	// rather than stacking them.
	boost := 0.0
	if wasAddressed {
		boost = u.params.EngagementAddressedBoost
	}
	if wasAskedQuestion && u.params.EngagementQuestionBoost > boost {
		boost = u.params.EngagementQuestionBoost
	}
	drive += boost

	if event.IsPressureOn(state.AgentID) {
		drive += u.params.EngagementPressureBoost * event.Intensity
	}

	if event.Kind == EventSilence && !wasAddressed && !wasAskedQuestion {
		drive -= u.params.EngagementSilenceDecay
	}

	// Selected last tick without anyone having addressed it beforehand:
	// the agent performed for no reason, and permission erodes.
	if state.LastSelectedTurn >= 0 &&
		ctx.TurnNumber-state.LastSelectedTurn == 1 &&
		state.LastAddressedTurn < state.LastSelectedTurn {
		drive -= u.params.EngagementUnpromptedDecay
	}

	if drive-before > u.params.EngagementGrowthCap {
		drive = before + u.params.EngagementGrowthCap
	}

	state.EngagementDrive = clamp01(drive)
}

// OnAfterSpeech drops the urge to speak once an utterance has been handled:
// a full drop when it was accepted, a smaller one when repetition control
// rejected it.
func (u *DriveUpdater) OnAfterSpeech(state *NPCBehaviorState, accepted bool) {
	if accepted {
		state.SpeakDrive = clamp01(state.SpeakDrive - 0.1)
	} else {
		state.SpeakDrive = clamp01(state.SpeakDrive - 0.05)
	}
}
