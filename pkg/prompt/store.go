package prompt

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// PGStore reads content-addressed templates from Postgres: prompt_templates
// holds every (topic_id, role, version) body ever written; the active
// pointer for a (topic_id, role) pair lives in prompt_active_versions, per
// spec §6.4.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetActive resolves the active version pointer for (topicID, role) and
// returns that version's body. Returns apperr.CodeTemplateNotFound if
// either the pointer or the pointed-to version is missing.
func (s *PGStore) GetActive(ctx context.Context, topicID string, role Role) (string, error) {
	var version int
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM prompt_active_versions WHERE topic_id = $1 AND role = $2`,
		topicID, string(role)).Scan(&version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", apperr.New(apperr.CodeTemplateNotFound,
				fmt.Sprintf("no active template for topic %q role %q", topicID, role))
		}
		return "", fmt.Errorf("query active version: %w", err)
	}

	var body string
	err = s.pool.QueryRow(ctx,
		`SELECT body FROM prompt_templates WHERE topic_id = $1 AND role = $2 AND version = $3`,
		topicID, string(role), version).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", apperr.New(apperr.CodeTemplateNotFound,
				fmt.Sprintf("active version %d for topic %q role %q has no stored body", version, topicID, role))
		}
		return "", fmt.Errorf("query template body: %w", err)
	}
	return body, nil
}

// PutVersion inserts a new immutable template version. It does not touch
// the active pointer — promotion is a separate, explicit step so a new
// version can be staged and tested before it takes traffic.
func (s *PGStore) PutVersion(ctx context.Context, topicID string, role Role, version int, body string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prompt_templates (topic_id, role, version, body) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (topic_id, role, version) DO NOTHING`,
		topicID, string(role), version, body)
	if err != nil {
		return fmt.Errorf("insert template version: %w", err)
	}
	return nil
}

// SetActive points (topicID, role) at version, creating or replacing the
// pointer row.
func (s *PGStore) SetActive(ctx context.Context, topicID string, role Role, version int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prompt_active_versions (topic_id, role, version) VALUES ($1, $2, $3)
		 ON CONFLICT (topic_id, role) DO UPDATE SET version = EXCLUDED.version`,
		topicID, string(role), version)
	if err != nil {
		return fmt.Errorf("set active version: %w", err)
	}
	return nil
}
