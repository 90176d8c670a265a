package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// PostgresStore persists files, versions and transcripts in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Schema migration tooling is out of scope; the DDL is idempotent and runs
// once per process start.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS boardroom_files (
	id          TEXT PRIMARY KEY,
	persona_id  TEXT NOT NULL,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS boardroom_files_persona_idx ON boardroom_files (persona_id, created_at);

CREATE TABLE IF NOT EXISTS boardroom_file_versions (
	id          TEXT PRIMARY KEY,
	file_id     TEXT NOT NULL REFERENCES boardroom_files (id) ON DELETE CASCADE,
	seq         BIGINT NOT NULL,
	content     TEXT NOT NULL,
	author      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (file_id, seq)
);

CREATE TABLE IF NOT EXISTS boardroom_transcripts (
	id          TEXT PRIMARY KEY,
	persona_id  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	turns       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS boardroom_transcripts_persona_idx ON boardroom_transcripts (persona_id, created_at);
`

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// GetAgentFiles loads a persona's files with their full version history.
func (s *PostgresStore) GetAgentFiles(ctx context.Context, personaID string) ([]types.AgentFile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, persona_id, name, type, content, created_at, updated_at
		 FROM boardroom_files WHERE persona_id = $1 ORDER BY created_at`, personaID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []types.AgentFile
	for rows.Next() {
		var f types.AgentFile
		var ft string
		if err := rows.Scan(&f.ID, &f.PersonaID, &f.Name, &ft, &f.Content, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Type = types.FileType(ft)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	for i := range files {
		versions, err := s.loadVersions(ctx, files[i].ID)
		if err != nil {
			return nil, err
		}
		files[i].Versions = versions
	}
	return files, nil
}

func (s *PostgresStore) loadVersions(ctx context.Context, fileID string) ([]types.FileVersion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, author, created_at
		 FROM boardroom_file_versions WHERE file_id = $1 ORDER BY seq`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var versions []types.FileVersion
	for rows.Next() {
		var v types.FileVersion
		if err := rows.Scan(&v.ID, &v.Content, &v.Author, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// CreateFile inserts a file and its initial version in one transaction.
func (s *PostgresStore) CreateFile(ctx context.Context, personaID, name string, ft types.FileType, content, author string) (types.AgentFile, error) {
	now := time.Now()
	file := types.AgentFile{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      ft,
		Content:   content,
		PersonaID: personaID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	version := types.FileVersion{ID: uuid.NewString(), Content: content, Author: author, CreatedAt: now}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO boardroom_files (id, persona_id, name, type, content, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			file.ID, personaID, name, string(ft), content, now, now); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO boardroom_file_versions (id, file_id, seq, content, author, created_at)
			 VALUES ($1, $2, 1, $3, $4, $5)`,
			version.ID, file.ID, content, author, now)
		return err
	})
	if err != nil {
		return types.AgentFile{}, fmt.Errorf("create file: %w", err)
	}
	file.Versions = []types.FileVersion{version}
	return file, nil
}

// UpdateFile appends a version and refreshes the current content.
func (s *PostgresStore) UpdateFile(ctx context.Context, fileID, content, author string) (types.AgentFile, error) {
	return s.appendVersion(ctx, fileID, content, author)
}

// RestoreVersion appends a copy of the restored version's content.
func (s *PostgresStore) RestoreVersion(ctx context.Context, fileID, versionID, author string) (types.AgentFile, error) {
	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM boardroom_file_versions WHERE file_id = $1 AND id = $2`,
		fileID, versionID).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.AgentFile{}, core.NewNotFoundError(fmt.Sprintf("version %q not found in file %q", versionID, fileID))
	}
	if err != nil {
		return types.AgentFile{}, fmt.Errorf("load version: %w", err)
	}
	return s.appendVersion(ctx, fileID, content, author)
}

func (s *PostgresStore) appendVersion(ctx context.Context, fileID, content, author string) (types.AgentFile, error) {
	now := time.Now()
	versionID := uuid.NewString()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE boardroom_files SET content = $1, updated_at = $2 WHERE id = $3`,
			content, now, fileID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return core.NewNotFoundError(fmt.Sprintf("file %q not found", fileID))
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO boardroom_file_versions (id, file_id, seq, content, author, created_at)
			 SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5
			 FROM boardroom_file_versions WHERE file_id = $2`,
			versionID, fileID, content, author, now)
		return err
	})
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			return types.AgentFile{}, ce
		}
		return types.AgentFile{}, fmt.Errorf("append version: %w", err)
	}

	var file types.AgentFile
	var ft string
	err = s.pool.QueryRow(ctx,
		`SELECT id, persona_id, name, type, content, created_at, updated_at
		 FROM boardroom_files WHERE id = $1`, fileID).
		Scan(&file.ID, &file.PersonaID, &file.Name, &ft, &file.Content, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return types.AgentFile{}, fmt.Errorf("reload file: %w", err)
	}
	file.Type = types.FileType(ft)
	file.Versions, err = s.loadVersions(ctx, fileID)
	if err != nil {
		return types.AgentFile{}, err
	}
	return file, nil
}

// SaveSessionTranscript writes one transcript record.
func (s *PostgresStore) SaveSessionTranscript(ctx context.Context, personaID string, turns []types.TranscriptTurn) error {
	if len(turns) == 0 {
		return nil
	}
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO boardroom_transcripts (id, persona_id, created_at, turns)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), personaID, time.Now(), payload)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// GetAgentMemory loads the persona's transcripts and formats the most recent
// turns for prompt injection.
func (s *PostgresStore) GetAgentMemory(ctx context.Context, personaID string, limit int) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT persona_id, created_at, turns
		 FROM boardroom_transcripts WHERE persona_id = $1 ORDER BY created_at`, personaID)
	if err != nil {
		return "", fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var records []types.SessionTranscript
	for rows.Next() {
		var r types.SessionTranscript
		var payload []byte
		if err := rows.Scan(&r.PersonaID, &r.Timestamp, &payload); err != nil {
			return "", fmt.Errorf("scan transcript: %w", err)
		}
		if err := json.Unmarshal(payload, &r.Turns); err != nil {
			return "", fmt.Errorf("decode turns: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate transcripts: %w", err)
	}
	return FormatMemory(records, limit), nil
}
