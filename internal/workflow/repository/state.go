package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
)

// StateRepository handles workflow state persistence
type StateRepository struct {
	db *database.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *database.DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetState returns the current workflow state of a certificate, or nil when
// the certificate has never entered the workflow.
func (r *StateRepository) GetState(ctx context.Context, certType domain.CertificateType, certID int64) (*domain.WorkflowState, error) {
	query := `
		SELECT certificate_type, certificate_id, current_state,
		       verified_by, verified_at, approved_by, approved_at,
		       rejected_by, rejected_at, rejection_reason,
		       created_at, updated_at
		FROM workflow_states
		WHERE certificate_type = $1 AND certificate_id = $2
	`

	var state domain.WorkflowState
	err := r.db.GetContext(ctx, &state, query, certType, certID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow state: %w", err)
	}

	return &state, nil
}

// GetStateForUpdate reads the current state inside the given transaction and
// locks the row until commit. A certificate without a row yields StateNone;
// nothing is locked in that case, the unique key on the upsert settles
// concurrent first submissions instead.
func (r *StateRepository) GetStateForUpdate(ctx context.Context, tx *sqlx.Tx, certType domain.CertificateType, certID int64) (domain.CertificateState, error) {
	query := `
		SELECT current_state
		FROM workflow_states
		WHERE certificate_type = $1 AND certificate_id = $2
		FOR UPDATE
	`

	var state domain.CertificateState
	err := tx.GetContext(ctx, &state, query, certType, certID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StateNone, nil
	}
	if err != nil {
		return domain.StateNone, fmt.Errorf("failed to lock workflow state: %w", err)
	}

	return state, nil
}

// Upsert writes the state row for a validated transition. The statement is
// fixed: optional attribution columns arrive as NULL when the transition does
// not touch them, and COALESCE preserves the previously recorded values.
func (r *StateRepository) Upsert(ctx context.Context, tx *sqlx.Tx, upd domain.StateUpdate) error {
	query := `
		INSERT INTO workflow_states (
			certificate_type, certificate_id, current_state,
			verified_by, verified_at, approved_by, approved_at,
			rejected_by, rejected_at, rejection_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (certificate_type, certificate_id) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			verified_by = COALESCE(EXCLUDED.verified_by, workflow_states.verified_by),
			verified_at = COALESCE(EXCLUDED.verified_at, workflow_states.verified_at),
			approved_by = COALESCE(EXCLUDED.approved_by, workflow_states.approved_by),
			approved_at = COALESCE(EXCLUDED.approved_at, workflow_states.approved_at),
			rejected_by = COALESCE(EXCLUDED.rejected_by, workflow_states.rejected_by),
			rejected_at = COALESCE(EXCLUDED.rejected_at, workflow_states.rejected_at),
			rejection_reason = COALESCE(EXCLUDED.rejection_reason, workflow_states.rejection_reason),
			updated_at = NOW()
	`

	_, err := tx.ExecContext(ctx, query,
		upd.CertificateType, upd.CertificateID, upd.State,
		upd.VerifiedBy, upd.VerifiedAt, upd.ApprovedBy, upd.ApprovedAt,
		upd.RejectedBy, upd.RejectedAt, upd.RejectionReason,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to upsert workflow state: %w", err)
	}

	return nil
}
