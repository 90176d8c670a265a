package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

func testPersonas() []types.Persona {
	return []types.Persona{
		{
			ID:            "alice",
			Name:          "Alice",
			Role:          "CTO",
			Description:   "Deep technical background.",
			Voice:         types.VoiceKore,
			SpeechSpeed:   types.SpeedFast,
			Personality:   types.Personality{Tone: "assertive", Verbosity: "concise", Style: "direct"},
			Memory:        types.MemoryConfig{Enabled: true, HistoryLimit: 5},
			KnowledgeBase: "architecture notes",
		},
		{
			ID:          "bob",
			Name:        "Bob",
			Role:        "CFO",
			Description: "Focused on the numbers.",
			Memory:      types.MemoryConfig{Enabled: false},
		},
	}
}

func TestBuildSystemPromptListsEveryPersona(t *testing.T) {
	got := BuildSystemPrompt(testPersonas(), false, nil)

	for _, want := range []string{
		"## Alice (CTO)",
		"tone=assertive, verbosity=concise, style=direct",
		"Speaking speed: fast",
		"Knowledge base: architecture notes",
		"## Bob (CFO)",
		"Personality: default",
		"Knowledge base: None",
		`as "Name: "`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildSystemPromptDefaultsMissingSpeed(t *testing.T) {
	got := BuildSystemPrompt(testPersonas(), false, nil)
	if !strings.Contains(got, "Speaking speed: normal") {
		t.Fatalf("prompt missing defaulted speed:\n%s", got)
	}
}

func TestBuildSystemPromptAppendsMemoryForEnabledPersonas(t *testing.T) {
	var fetched []string
	fetch := func(personaID string, limit int) (string, error) {
		fetched = append(fetched, personaID)
		if personaID == "alice" {
			if limit != 5 {
				t.Fatalf("limit = %d, want 5", limit)
			}
			return "- [user] hello", nil
		}
		return "", nil
	}

	got := BuildSystemPrompt(testPersonas(), true, fetch)

	if !strings.Contains(got, "MEMORY FOR Alice") {
		t.Fatalf("prompt missing memory block:\n%s", got)
	}
	if strings.Contains(got, "MEMORY FOR Bob") {
		t.Fatal("memory-disabled persona must not get a memory block")
	}
	if len(fetched) != 1 || fetched[0] != "alice" {
		t.Fatalf("fetched = %v, want [alice]", fetched)
	}
}

func TestBuildSystemPromptSkipsEmptyAndFailedMemory(t *testing.T) {
	personas := []types.Persona{
		{ID: "a", Name: "A", Role: "r", Memory: types.MemoryConfig{Enabled: true}},
		{ID: "b", Name: "B", Role: "r", Memory: types.MemoryConfig{Enabled: true}},
	}
	fetch := func(personaID string, _ int) (string, error) {
		if personaID == "a" {
			return "", nil
		}
		return "", errors.New("storage down")
	}

	got := BuildSystemPrompt(personas, true, fetch)
	if strings.Contains(got, "MEMORY FOR") {
		t.Fatalf("prompt must not contain memory blocks:\n%s", got)
	}
}

func TestBuildJoinNotification(t *testing.T) {
	got := BuildJoinNotification(types.Persona{
		Name:        "Carol",
		Role:        "Designer",
		Description: "Owns the product vision.",
		Voice:       "not-a-voice",
	})
	for _, want := range []string{"Carol", "Designer", "Owns the product vision.", string(types.DefaultVoice), "joined"} {
		if !strings.Contains(got, want) {
			t.Fatalf("notification missing %q: %s", want, got)
		}
	}
}

func TestBuildDocumentNotice(t *testing.T) {
	got := BuildDocumentNotice(types.Document{Name: "q3.md", Type: "md", Content: "revenue up"})
	for _, want := range []string{`"q3.md"`, "md", "revenue up"} {
		if !strings.Contains(got, want) {
			t.Fatalf("notice missing %q: %s", want, got)
		}
	}
}
