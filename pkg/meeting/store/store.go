// Package store defines the storage collaborator contract the orchestrator
// depends on, with an in-memory implementation for tests and single-process
// use and a Postgres implementation for real deployments.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// Store is the persistence contract for agent files, transcripts and memory.
type Store interface {
	GetAgentFiles(ctx context.Context, personaID string) ([]types.AgentFile, error)
	CreateFile(ctx context.Context, personaID, name string, ft types.FileType, content, author string) (types.AgentFile, error)
	// UpdateFile appends a new version holding content and makes it current.
	UpdateFile(ctx context.Context, fileID, content, author string) (types.AgentFile, error)
	// RestoreVersion appends a copy of the named version; history stays
	// linear and append-only, it is never rewritten.
	RestoreVersion(ctx context.Context, fileID, versionID, author string) (types.AgentFile, error)
	SaveSessionTranscript(ctx context.Context, personaID string, turns []types.TranscriptTurn) error
	// GetAgentMemory formats the persona's most recent turns, bounded by
	// limit, for prompt injection. Empty string means no history.
	GetAgentMemory(ctx context.Context, personaID string, limit int) (string, error)
}

// MemoryStore is the reference Store implementation backed by process memory.
type MemoryStore struct {
	mu          sync.Mutex
	files       map[string]types.AgentFile
	transcripts map[string][]types.SessionTranscript
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:       make(map[string]types.AgentFile),
		transcripts: make(map[string][]types.SessionTranscript),
		now:         time.Now,
	}
}

// GetAgentFiles returns the persona's files ordered by creation time.
func (s *MemoryStore) GetAgentFiles(_ context.Context, personaID string) ([]types.AgentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AgentFile
	for _, f := range s.files {
		if f.PersonaID == personaID {
			out = append(out, cloneFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateFile persists a new file with its initial version.
func (s *MemoryStore) CreateFile(_ context.Context, personaID, name string, ft types.FileType, content, author string) (types.AgentFile, error) {
	if strings.TrimSpace(name) == "" {
		return types.AgentFile{}, core.NewToolError("file name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	file := types.AgentFile{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      ft,
		Content:   content,
		PersonaID: personaID,
		CreatedAt: now,
		UpdatedAt: now,
		Versions: []types.FileVersion{{
			ID:        uuid.NewString(),
			Content:   content,
			Author:    author,
			CreatedAt: now,
		}},
	}
	s.files[file.ID] = file
	return cloneFile(file), nil
}

// UpdateFile appends a version and updates the current content.
func (s *MemoryStore) UpdateFile(_ context.Context, fileID, content, author string) (types.AgentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileID]
	if !ok {
		return types.AgentFile{}, core.NewNotFoundError(fmt.Sprintf("file %q not found", fileID))
	}
	now := s.now()
	file.Content = content
	file.UpdatedAt = now
	file.Versions = append(file.Versions, types.FileVersion{
		ID:        uuid.NewString(),
		Content:   content,
		Author:    author,
		CreatedAt: now,
	})
	s.files[fileID] = file
	return cloneFile(file), nil
}

// RestoreVersion appends a copy of the restored version as the newest entry.
func (s *MemoryStore) RestoreVersion(_ context.Context, fileID, versionID, author string) (types.AgentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileID]
	if !ok {
		return types.AgentFile{}, core.NewNotFoundError(fmt.Sprintf("file %q not found", fileID))
	}
	var restored *types.FileVersion
	for i := range file.Versions {
		if file.Versions[i].ID == versionID {
			restored = &file.Versions[i]
			break
		}
	}
	if restored == nil {
		return types.AgentFile{}, core.NewNotFoundError(fmt.Sprintf("version %q not found in file %q", versionID, fileID))
	}
	now := s.now()
	file.Content = restored.Content
	file.UpdatedAt = now
	file.Versions = append(file.Versions, types.FileVersion{
		ID:        uuid.NewString(),
		Content:   restored.Content,
		Author:    author,
		CreatedAt: now,
	})
	s.files[fileID] = file
	return cloneFile(file), nil
}

// SaveSessionTranscript appends one transcript record for the persona.
func (s *MemoryStore) SaveSessionTranscript(_ context.Context, personaID string, turns []types.TranscriptTurn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[personaID] = append(s.transcripts[personaID], types.SessionTranscript{
		PersonaID: personaID,
		Timestamp: s.now(),
		Turns:     append([]types.TranscriptTurn(nil), turns...),
	})
	return nil
}

// GetAgentMemory flattens the persona's transcripts in session order and
// formats the last limit turns.
func (s *MemoryStore) GetAgentMemory(_ context.Context, personaID string, limit int) (string, error) {
	s.mu.Lock()
	records := append([]types.SessionTranscript(nil), s.transcripts[personaID]...)
	s.mu.Unlock()
	return FormatMemory(records, limit), nil
}

// FormatMemory renders transcript records into a prompt-ready memory block,
// keeping only the most recent limit turns. Shared by both implementations.
func FormatMemory(records []types.SessionTranscript, limit int) string {
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
	var turns []types.TranscriptTurn
	for _, r := range records {
		turns = append(turns, r.Turns...)
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "- [%s] %s\n", t.Role, t.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func cloneFile(f types.AgentFile) types.AgentFile {
	f.Versions = append([]types.FileVersion(nil), f.Versions...)
	return f
}
