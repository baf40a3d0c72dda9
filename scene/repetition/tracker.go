package repetition

// Action is the tracker's verdict on a proposed utterance.
type Action byte

const (
	Accept Action = iota
	DowngradeToThought
	DowngradeToAction
	Reject
)

func (a Action) String() string {
	switch a {
	case Accept:
		return "accept"
	case DowngradeToThought:
		return "downgrade_to_thought"
	case DowngradeToAction:
		return "downgrade_to_action"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// Params bounds the per-agent histories.
type Params struct {
	MaxPhrases            int
	MaxStarts             int
	MaxTopics             int
	TopicFatigueThreshold int // topic occurrences in the window before fatigue kicks in
}

// DefaultParams returns the reference bounds.
func DefaultParams() Params {
	return Params{
		MaxPhrases:            10,
		MaxStarts:             8,
		MaxTopics:             5,
		TopicFatigueThreshold: 2,
	}
}

type agentHistory struct {
	phrases []string
	starts  []string
	topics  []string
}

// Tracker keeps a bounded repetition history per agent and turns a proposed
// utterance into a penalty and a recommended action. Only finalized speech
// goes into the history; rejected or downgraded proposals leave no trace, so
// one bad proposal cannot poison the next.
type Tracker struct {
	params  Params
	history map[string]*agentHistory
}

// NewTracker creates a tracker with the given bounds.
func NewTracker(params Params) *Tracker {
	return &Tracker{params: params, history: make(map[string]*agentHistory)}
}

func (t *Tracker) agent(id string) *agentHistory {
	h, ok := t.history[id]
	if !ok {
		h = &agentHistory{}
		t.history[id] = h
	}
	return h
}

func pushBounded(ring []string, v string, max int) []string {
	ring = append(ring, v)
	if len(ring) > max {
		ring = ring[len(ring)-max:]
	}
	return ring
}

// RecordSpeech commits an accepted utterance to the agent's history.
func (t *Tracker) RecordSpeech(agentID, text string) {
	h := t.agent(agentID)

	words := normalizeWords(text)
	for _, p := range extractPhrases(text) {
		h.phrases = pushBounded(h.phrases, p, t.params.MaxPhrases)
	}
	if start := extractStart(text); start != "" {
		h.starts = pushBounded(h.starts, start, t.params.MaxStarts)
	}
	for _, topic := range detectTopics(words) {
		h.topics = pushBounded(h.topics, topic, t.params.MaxTopics)
	}
}

// Penalty scores a proposed utterance against the agent's history. It is the
// max of three signals, clamped to [0,1]: phrase overlap scaled 1.2x, a tiered
// sentence-start repeat penalty, and topic fatigue.
func (t *Tracker) Penalty(agentID, text string) float64 {
	if text == "" {
		return 0
	}
	h := t.agent(agentID)

	penalty := t.phrasePenalty(h, text) * 1.2
	if p := t.startPenalty(h, text); p > penalty {
		penalty = p
	}
	if p := t.topicPenalty(h, text); p > penalty {
		penalty = p
	}
	if penalty > 1 {
		penalty = 1
	}
	return penalty
}

func (t *Tracker) phrasePenalty(h *agentHistory, text string) float64 {
	proposed := extractPhrases(text)
	if len(proposed) == 0 || len(h.phrases) == 0 {
		return 0
	}
	matches := 0
	for _, p := range proposed {
		for _, old := range h.phrases {
			if phrasesSimilar(p, old) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(proposed))
}

func (t *Tracker) startPenalty(h *agentHistory, text string) float64 {
	start := extractStart(text)
	if start == "" {
		return 0
	}
	count := 0
	for _, s := range h.starts {
		if s == start {
			count++
		}
	}
	switch {
	case count >= 3:
		return 0.8
	case count >= 2:
		return 0.5
	case count >= 1:
		return 0.2
	}
	return 0
}

func (t *Tracker) topicPenalty(h *agentHistory, text string) float64 {
	proposed := detectTopics(normalizeWords(text))
	if len(proposed) == 0 || len(h.topics) == 0 {
		return 0
	}
	worst := 0.0
	for _, topic := range proposed {
		count := 0
		for _, old := range h.topics {
			if old == topic {
				count++
			}
		}
		if count >= t.params.TopicFatigueThreshold {
			if w := topicWeights[topic]; w > worst {
				worst = w
			}
		}
	}
	return worst
}

// RejectionAction maps the penalty onto the downgrade ladder.
func (t *Tracker) RejectionAction(agentID, text string) Action {
	penalty := t.Penalty(agentID, text)
	switch {
	case penalty < 0.4:
		return Accept
	case penalty < 0.6:
		return DowngradeToThought
	case penalty < 0.8:
		return DowngradeToAction
	}
	return Reject
}

// EstimatePenalties returns a text-free self-repetition estimate per agent,
// for feeding into drive updates before any proposal exists. It needs at
// least three recorded phrases to say anything.
func (t *Tracker) EstimatePenalties(agentIDs []string) map[string]float64 {
	out := make(map[string]float64, len(agentIDs))
	for _, id := range agentIDs {
		h := t.agent(id)
		if len(h.phrases) < 3 {
			out[id] = 0
			continue
		}
		unique := make(map[string]bool, len(h.phrases))
		for _, p := range h.phrases {
			unique[p] = true
		}
		ratio := 1 - float64(len(unique))/float64(len(h.phrases))
		out[id] = ratio * 0.5
	}
	return out
}

// Clear drops the history of one agent, or of everyone when agentID is "".
func (t *Tracker) Clear(agentID string) {
	if agentID == "" {
		t.history = make(map[string]*agentHistory)
		return
	}
	delete(t.history, agentID)
}
