package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchtalk/scene"
	"benchtalk/scene/persona"
)

type fakeCompleter struct {
	reply    string
	err      error
	lastMsgs []Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.lastMsgs = messages
	return f.reply, f.err
}

func testRegistry() *persona.Registry {
	r := persona.NewRegistry()
	r.Register(persona.Agent{ID: "a", Name: "Vlasta", Title: "Babička", Talkativeness: 0.8})
	r.Register(persona.Agent{ID: "b", Name: "Karel", Talkativeness: 0.3})
	return r
}

func TestBind_ParsesSpeech(t *testing.T) {
	fake := &fakeCompleter{reply: `{"type": "speech", "text": "Dobré ráno."}`}
	g := NewGenerator(fake, testRegistry(), time.Second)

	gen := g.Bind(context.Background(), func() []scene.TurnRecord { return nil })
	res := gen("a", scene.WorldEvent{Kind: scene.EventSilence}, "")

	require.NotNil(t, res)
	assert.Equal(t, "a", res.AgentID)
	assert.Equal(t, scene.ResponseSpeech, res.Kind)
	assert.Equal(t, "Dobré ráno.", res.Text)
}

func TestBind_CompletionErrorYieldsNil(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("connection refused")}
	g := NewGenerator(fake, testRegistry(), time.Second)

	gen := g.Bind(context.Background(), func() []scene.TurnRecord { return nil })
	assert.Nil(t, gen("a", scene.WorldEvent{}, ""))
}

func TestBind_BrokenCharacterYieldsNil(t *testing.T) {
	fake := &fakeCompleter{reply: `{"type": "speech", "text": "Jako asistent nemohu odpovědět."}`}
	g := NewGenerator(fake, testRegistry(), time.Second)

	gen := g.Bind(context.Background(), func() []scene.TurnRecord { return nil })
	assert.Nil(t, gen("a", scene.WorldEvent{}, ""))
}

func TestBind_PromptCarriesHistoryAndInstruction(t *testing.T) {
	fake := &fakeCompleter{reply: `{"type": "speech", "text": "No jo."}`}
	g := NewGenerator(fake, testRegistry(), time.Second)

	history := []scene.TurnRecord{
		{AgentID: "b", Kind: scene.ResponseSpeech, Text: "Kam se díváš?", Turn: 1},
		{AgentID: "a", Kind: scene.ResponseAction, Text: "přikývne", Turn: 2},
	}
	gen := g.Bind(context.Background(), func() []scene.TurnRecord { return history })

	event := scene.WorldEvent{Kind: scene.EventStimulus, Description: "Kolem proletí racek."}
	res := gen("a", event, "Zeptej se na počasí.")
	require.NotNil(t, res)

	require.Len(t, fake.lastMsgs, 2)
	sys, user := fake.lastMsgs[0], fake.lastMsgs[1]
	assert.Equal(t, "system", sys.Role)
	assert.Contains(t, sys.Content, "Vlasta")
	assert.Contains(t, sys.Content, "Babička")
	assert.Contains(t, user.Content, "Karel: Kam se díváš?")
	assert.Contains(t, user.Content, "(Vlasta přikývne)")
	assert.Contains(t, user.Content, "Kolem proletí racek.")
	assert.Contains(t, user.Content, "Zeptej se na počasí.")
}

func TestBind_HistoryTruncatedToWindow(t *testing.T) {
	fake := &fakeCompleter{reply: `{"type": "speech", "text": "Ano."}`}
	g := NewGenerator(fake, testRegistry(), time.Second)
	g.historyLen = 2

	history := []scene.TurnRecord{
		{AgentID: "a", Kind: scene.ResponseSpeech, Text: "první věta"},
		{AgentID: "b", Kind: scene.ResponseSpeech, Text: "druhá věta"},
		{AgentID: "a", Kind: scene.ResponseSpeech, Text: "třetí věta"},
	}
	gen := g.Bind(context.Background(), func() []scene.TurnRecord { return history })
	require.NotNil(t, gen("b", scene.WorldEvent{}, ""))

	user := fake.lastMsgs[1].Content
	assert.NotContains(t, user, "první věta")
	assert.Contains(t, user, "druhá věta")
	assert.Contains(t, user, "třetí věta")
}
