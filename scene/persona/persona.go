// Package persona defines the agent descriptors the behavior engine consumes.
package persona

// Agent describes one conversational agent. The engine only requires ID,
// Name, Title and Talkativeness; everything else is flavor for the content
// generator and defaults safely when absent.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"` // form of address, e.g. "Grandma", "Manager"

	// Talkativeness in [0,1]: how readily the agent initiates speech.
	Talkativeness float64 `json:"talkativeness"`

	// Optional personality flavor.
	Tagline   string  `json:"tagline,omitempty"`
	Warmth    float64 `json:"warmth,omitempty"`
	Curiosity float64 `json:"curiosity,omitempty"`
	Patience  float64 `json:"patience,omitempty"`
}

const (
	defaultTalkativeness = 0.5
	defaultWarmth        = 0.5
	defaultCuriosity     = 0.5
	defaultPatience      = 0.5
)

// WithDefaults returns a copy with unset optional fields filled in. A nil
// receiver yields a fully defaulted descriptor so lookups may degrade
// gracefully.
func (a *Agent) WithDefaults() Agent {
	if a == nil {
		return Agent{
			Talkativeness: defaultTalkativeness,
			Warmth:        defaultWarmth,
			Curiosity:     defaultCuriosity,
			Patience:      defaultPatience,
		}
	}
	out := *a
	if out.Talkativeness <= 0 {
		out.Talkativeness = defaultTalkativeness
	}
	if out.Talkativeness > 1 {
		out.Talkativeness = 1
	}
	if out.Warmth <= 0 {
		out.Warmth = defaultWarmth
	}
	if out.Curiosity <= 0 {
		out.Curiosity = defaultCuriosity
	}
	if out.Patience <= 0 {
		out.Patience = defaultPatience
	}
	return out
}
