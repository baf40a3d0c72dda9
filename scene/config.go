package scene

import "fmt"

// Config tunes the behavior engine. The zero value is not valid; start from
// DefaultConfig and override fields as needed.
type Config struct {
	// TopK is how many candidates may be offered a generation attempt per tick.
	TopK int

	// CooldownAfterSpeech is the number of turns an agent waits after speaking.
	CooldownAfterSpeech int

	EnergyCostSpeech float64
	EnergyRegenTurn  float64

	// MinScoreToSpeak is the threshold the top candidate must clear before
	// anyone acts at all.
	MinScoreToSpeak float64

	// MaxConsecutiveSpeaker caps how many speeches in a row one agent may
	// commit before the engine substitutes a scripted filler action.
	MaxConsecutiveSpeaker int

	// HistoryLimit bounds the committed turn history the engine retains.
	HistoryLimit int

	// IntentLogLimit bounds the decision-log ring buffer.
	IntentLogLimit int

	// RNG seed (0 => time-based).
	Seed int64
}

// DefaultConfig returns the tuning used by the reference deployment.
func DefaultConfig() Config {
	return Config{
		TopK:                  1,
		CooldownAfterSpeech:   1,
		EnergyCostSpeech:      0.15,
		EnergyRegenTurn:       0.05,
		MinScoreToSpeak:       0.15,
		MaxConsecutiveSpeaker: 2,
		HistoryLimit:          20,
		IntentLogLimit:        100,
	}
}

func (c Config) validate() error {
	if c.TopK <= 0 {
		return InvalidConfigError("TopK must be > 0")
	}
	if c.CooldownAfterSpeech < 0 {
		return InvalidConfigError("CooldownAfterSpeech must be >= 0")
	}
	if c.EnergyCostSpeech < 0 || c.EnergyCostSpeech > 1 {
		return InvalidConfigError(fmt.Sprintf("EnergyCostSpeech out of range: %v", c.EnergyCostSpeech))
	}
	if c.EnergyRegenTurn < 0 || c.EnergyRegenTurn > 1 {
		return InvalidConfigError(fmt.Sprintf("EnergyRegenTurn out of range: %v", c.EnergyRegenTurn))
	}
	if c.MinScoreToSpeak < 0 {
		return InvalidConfigError("MinScoreToSpeak must be >= 0")
	}
	if c.MaxConsecutiveSpeaker <= 0 {
		return InvalidConfigError("MaxConsecutiveSpeaker must be > 0")
	}
	if c.HistoryLimit <= 0 {
		return InvalidConfigError("HistoryLimit must be > 0")
	}
	if c.IntentLogLimit <= 0 {
		return InvalidConfigError("IntentLogLimit must be > 0")
	}
	return nil
}
