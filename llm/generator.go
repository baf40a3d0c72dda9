package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"benchtalk/scene"
	"benchtalk/scene/persona"
)

// Completer is the slice of Client the generator needs.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Generator produces in-character replies for the behavior engine. It owns
// prompt assembly, the call timeout and response parsing; the engine only
// ever sees a typed NPCResponse or nil.
type Generator struct {
	client      Completer
	registry    *persona.Registry
	callTimeout time.Duration
	historyLen  int
}

// NewGenerator wires a completion client to a persona registry.
func NewGenerator(client Completer, registry *persona.Registry, callTimeout time.Duration) *Generator {
	if callTimeout <= 0 {
		callTimeout = 20 * time.Second
	}
	return &Generator{
		client:      client,
		registry:    registry,
		callTimeout: callTimeout,
		historyLen:  8,
	}
}

var kindByName = map[string]scene.ResponseKind{
	"speech":  scene.ResponseSpeech,
	"thought": scene.ResponseThought,
	"goodbye": scene.ResponseGoodbye,
}

// Bind adapts the generator to the engine's collaborator signature. The
// history callback keeps prompts current without copying the transcript
// around on every tick.
func (g *Generator) Bind(ctx context.Context, history func() []scene.TurnRecord) scene.GenerateFunc {
	return func(agentID string, event scene.WorldEvent, softInstruction string) *scene.NPCResponse {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()

		agent := g.registry.Get(agentID).WithDefaults()
		messages := g.buildMessages(agent, event, softInstruction, history())

		raw, err := g.client.Complete(callCtx, messages)
		if err != nil {
			log.Printf("[Generator] completion failed for %s: %v", agentID, err)
			return nil
		}

		parsed := Parse(raw)
		if parsed == nil {
			log.Printf("[Generator] unusable reply for %s, dropping turn", agentID)
			return nil
		}
		kind, ok := kindByName[parsed.Type]
		if !ok {
			kind = scene.ResponseSpeech
		}
		return &scene.NPCResponse{AgentID: agentID, Kind: kind, Text: parsed.Text}
	}
}

func (g *Generator) buildMessages(agent persona.Agent, event scene.WorldEvent, softInstruction string, history []scene.TurnRecord) []Message {
	var sys strings.Builder
	fmt.Fprintf(&sys, "Jsi %s", agent.Name)
	if agent.Title != "" {
		fmt.Fprintf(&sys, " (%s)", agent.Title)
	}
	sys.WriteString(", postava v klidné scéně na lavičce.")
	if agent.Tagline != "" {
		fmt.Fprintf(&sys, " %s", agent.Tagline)
	}
	sys.WriteString(" Odpovídej krátce, přirozeně a v první osobě.")
	sys.WriteString(` Odpověz objektem s poli "type" ("speech", "thought" nebo "goodbye") a "text".`)

	var user strings.Builder
	recent := history
	if len(recent) > g.historyLen {
		recent = recent[len(recent)-g.historyLen:]
	}
	if len(recent) > 0 {
		user.WriteString("Poslední dění:\n")
		for _, rec := range recent {
			name := "scéna"
			if rec.AgentID != "" {
				name = g.registry.Get(rec.AgentID).WithDefaults().Name
			}
			switch rec.Kind {
			case scene.ResponseSpeech, scene.ResponseGoodbye:
				fmt.Fprintf(&user, "%s: %s\n", name, rec.Text)
			case scene.ResponseAction:
				fmt.Fprintf(&user, "(%s %s)\n", name, rec.Text)
			}
		}
	}
	if event.Description != "" {
		fmt.Fprintf(&user, "Právě teď: %s\n", event.Description)
	}
	if softInstruction != "" {
		fmt.Fprintf(&user, "Náznak: %s\n", softInstruction)
	}
	user.WriteString("Co uděláš?")

	return []Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: user.String()},
	}
}
