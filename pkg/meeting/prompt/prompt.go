// Package prompt builds the composite multi-persona instruction text and the
// system notices sent to the engine mid-session. Everything here is a pure
// function of its inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// MemoryFetcher returns a persona's formatted memory of prior sessions,
// bounded by its history limit. An empty string means no history.
type MemoryFetcher func(personaID string, limit int) (string, error)

const behaviorRules = `CONVERSATION RULES:
- Prefix every spoken line with the speaking persona's name, as "Name: ".
- Personas may address each other directly and build on each other's points.
- Modulate each persona's speaking pace according to its configured speed.
- When calling a file or image tool, always pass the originating persona's id
  as agent_id.
- When a new persona is announced mid-session, incorporate them immediately.`

// BuildSystemPrompt emits the composite instruction for the active persona
// set. When includeMemory is true and fetch is non-nil, a memory block is
// appended for each persona with memory enabled; personas with no stored
// history are skipped.
func BuildSystemPrompt(personas []types.Persona, includeMemory bool, fetch MemoryFetcher) string {
	var b strings.Builder
	b.WriteString("You are voicing a panel of meeting participants. The participants are:\n\n")

	for _, p := range personas {
		kb := strings.TrimSpace(p.KnowledgeBase)
		if kb == "" {
			kb = "None"
		}
		fmt.Fprintf(&b, "## %s (%s)\n", p.Name, p.Role)
		fmt.Fprintf(&b, "Personality: %s\n", p.Personality.String())
		fmt.Fprintf(&b, "Speaking speed: %s\n", speedOrNormal(p.SpeechSpeed))
		fmt.Fprintf(&b, "Description: %s\n", strings.TrimSpace(p.Description))
		fmt.Fprintf(&b, "Knowledge base: %s\n\n", kb)
	}

	b.WriteString(behaviorRules)

	if includeMemory && fetch != nil {
		for _, p := range personas {
			if !p.Memory.Enabled {
				continue
			}
			memory, err := fetch(p.ID, p.Memory.HistoryLimit)
			if err != nil || strings.TrimSpace(memory) == "" {
				continue
			}
			fmt.Fprintf(&b, "\n\nMEMORY FOR %s (previous sessions):\n%s", p.Name, memory)
		}
	}

	return b.String()
}

// BuildJoinNotification emits the system notice announcing a persona that
// joined mid-session.
func BuildJoinNotification(p types.Persona) string {
	return fmt.Sprintf(
		"SYSTEM: %s (%s) has joined the meeting. Description: %s. Voice: %s. Personality: %s. Welcome them and include them in the conversation from now on.",
		p.Name, p.Role, strings.TrimSpace(p.Description), string(p.Voice.OrDefault()), p.Personality.String(),
	)
}

// BuildDocumentNotice emits the system notice embedding an attached document
// so the engine gains it as context.
func BuildDocumentNotice(doc types.Document) string {
	return fmt.Sprintf(
		"SYSTEM: The user attached a document named %q (type %s). Its full content follows:\n\n%s",
		doc.Name, doc.Type, doc.Content,
	)
}

func speedOrNormal(s types.SpeechSpeed) types.SpeechSpeed {
	switch s {
	case types.SpeedSlow, types.SpeedNormal, types.SpeedFast:
		return s
	default:
		return types.SpeedNormal
	}
}
