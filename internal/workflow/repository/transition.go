package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
)

// TransitionRepository handles the append-only workflow transition log.
// Entries are only ever inserted; there is no update or delete path.
type TransitionRepository struct {
	db *database.DB
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *database.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

// CreateTx appends a transition entry inside the given transaction, so the
// log entry commits or rolls back together with the state change.
func (r *TransitionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, t *domain.WorkflowTransition) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO workflow_transitions (
			id, certificate_type, certificate_id, from_state, to_state,
			transition_type, notes, performed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query,
		t.ID, t.CertificateType, t.CertificateID, t.FromState, t.ToState,
		t.TransitionType, t.Notes, t.PerformedBy,
	).Scan(&t.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to record workflow transition: %w", err)
	}

	return nil
}

// ListByCertificate returns the full transition history of a certificate in
// chronological order.
func (r *TransitionRepository) ListByCertificate(ctx context.Context, certType domain.CertificateType, certID int64) ([]domain.WorkflowTransition, error) {
	query := `
		SELECT id, certificate_type, certificate_id, from_state, to_state,
		       transition_type, notes, performed_by, created_at
		FROM workflow_transitions
		WHERE certificate_type = $1 AND certificate_id = $2
		ORDER BY created_at ASC, id ASC
	`

	transitions := []domain.WorkflowTransition{}
	if err := r.db.SelectContext(ctx, &transitions, query, certType, certID); err != nil {
		return nil, fmt.Errorf("failed to list workflow transitions: %w", err)
	}

	return transitions, nil
}
