package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mhartmann/optima-api/internal/domain"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, user_id, category_id, title, context, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.CategoryID,
		session.Title,
		session.Context,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByOwner loads a session only if it belongs to ownerID. Missing and
// foreign sessions both come back as domain.ErrNotFound.
func (r *SessionRepository) GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*domain.ChatSession, error) {
	query := `
		SELECT id, user_id, category_id, title, context, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1 AND user_id = $2
	`
	var s domain.ChatSession
	err := r.db.Pool.QueryRow(ctx, query, id, ownerID).Scan(
		&s.ID,
		&s.UserID,
		&s.CategoryID,
		&s.Title,
		&s.Context,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// ListByOwner returns sessions ordered by last activity. The message count is
// derived from the log, never stored, so it is always consistent.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.SessionSummary, error) {
	query := `
		SELECT s.id, s.user_id, s.category_id, s.title, s.context, s.created_at, s.updated_at,
		       c.name, c.slug,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)
		FROM chat_sessions s
		JOIN categories c ON c.id = s.category_id
		WHERE s.user_id = $1
		ORDER BY s.updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.SessionSummary
	for rows.Next() {
		var s domain.SessionSummary
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.CategoryID,
			&s.Title,
			&s.Context,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.CategoryName,
			&s.CategorySlug,
			&s.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// DeleteByOwner removes the session and, via FK cascade, all its messages.
func (r *SessionRepository) DeleteByOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`
	tag, err := r.db.Pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
