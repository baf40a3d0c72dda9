package scene

import (
	"reflect"
	"testing"

	"benchtalk/scene/persona"
)

// Two engines with the same seed, agents and scripted generation must play
// out identical scenes.
func TestProcessTurn_SameSeedSameTranscript(t *testing.T) {
	lines := []string{
		"Dneska to moře nějak hučí.",
		"Taky mi to přijde.",
		"Vlasto, nezdá se vám ta obloha divná?",
		"Divná ne, jen těžká.",
		"Hm. Možná máte pravdu.",
		"Ten racek tam krouží už hodinu.",
	}

	run := func() ([]TurnRecord, string) {
		cfg := DefaultConfig()
		cfg.Seed = 99
		e, err := NewEngine(cfg)
		if err != nil {
			t.Fatalf("NewEngine err: %v", err)
		}
		a := persona.Agent{ID: "a", Name: "Vlasta", Talkativeness: 0.8}
		b := persona.Agent{ID: "b", Name: "Karel", Talkativeness: 0.4}
		e.StartScene(a, b)

		call := 0
		gen := func(id string, _ WorldEvent, _ string) *NPCResponse {
			text := lines[call%len(lines)]
			call++
			return &NPCResponse{AgentID: id, Kind: ResponseSpeech, Text: text}
		}

		for i := 0; i < 12; i++ {
			forced := ""
			if i == 4 {
				forced = "Kolem projde pes."
			}
			e.ProcessTurn(gen, forced)
		}
		return e.History(), e.DebugSummary()
	}

	hist1, sum1 := run()
	hist2, sum2 := run()

	if !reflect.DeepEqual(hist1, hist2) {
		t.Fatalf("histories diverged:\n%+v\n%+v", hist1, hist2)
	}
	if sum1 != sum2 {
		t.Fatalf("final states diverged:\n%s\n%s", sum1, sum2)
	}
}
