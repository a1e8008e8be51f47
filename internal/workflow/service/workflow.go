// Package service implements the certificate workflow operations: applying
// transitions, reading current state, and listing history.
package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	auditrepo "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/audit/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/actor"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/errors"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// EventPublisher publishes domain events after a transition commits
type EventPublisher interface {
	PublishTransitioned(ctx context.Context, record *domain.TransitionRecord)
}

// WorkflowService coordinates workflow transitions across the state row, the
// transition log and the activity log. All three are written in a single
// transaction; the event publish happens after commit.
type WorkflowService struct {
	db          *database.DB
	states      *repository.StateRepository
	transitions *repository.TransitionRepository
	audit       *auditrepo.AuditRepository
	publisher   EventPublisher
	logger      *logger.Logger
}

// NewWorkflowService creates a new workflow service. publisher may be nil
// when the service runs without a message broker.
func NewWorkflowService(
	db *database.DB,
	states *repository.StateRepository,
	transitions *repository.TransitionRepository,
	audit *auditrepo.AuditRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		db:          db,
		states:      states,
		transitions: transitions,
		audit:       audit,
		publisher:   publisher,
		logger:      log,
	}
}

// ApplyTransition validates and applies one workflow transition. The current
// state is read under a row lock and the guard check, state write, transition
// log entry and activity log entry all happen in the same transaction, so a
// concurrent transition on the same certificate either sees this one fully
// applied or not at all.
func (s *WorkflowService) ApplyTransition(ctx context.Context, req domain.TransitionRequest) (*domain.TransitionRecord, error) {
	a, ok := actor.FromContext(ctx)
	if !ok || !a.Valid() {
		return nil, errors.Unauthorized("workflow transitions require an authenticated actor")
	}

	if err := validateCertificateRef(req.CertificateType, req.CertificateID); err != nil {
		return nil, err
	}
	if _, ok := req.TransitionType.TargetState(); !ok {
		return nil, errors.BadRequest("unknown transition type: " + string(req.TransitionType))
	}

	now := time.Now().UTC()
	var record *domain.TransitionRecord

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		from, err := s.states.GetStateForUpdate(ctx, tx, req.CertificateType, req.CertificateID)
		if err != nil {
			return err
		}

		target, err := domain.ValidateTransition(from, req.TransitionType)
		if err != nil {
			return mapTransitionError(err)
		}

		upd := domain.BuildStateUpdate(req.CertificateType, req.CertificateID, target, req.TransitionType, a.ID, now, req.Notes)
		if err := s.states.Upsert(ctx, tx, upd); err != nil {
			return err
		}

		transition := &domain.WorkflowTransition{
			CertificateType: req.CertificateType,
			CertificateID:   req.CertificateID,
			ToState:         target,
			TransitionType:  req.TransitionType,
			PerformedBy:     a.ID,
		}
		if from != domain.StateNone {
			transition.FromState = &from
		}
		if req.Notes != "" {
			transition.Notes = &req.Notes
		}
		if err := s.transitions.CreateTx(ctx, tx, transition); err != nil {
			return err
		}

		details, err := json.Marshal(map[string]interface{}{
			"from_state":      transition.FromState,
			"to_state":        target,
			"transition_type": req.TransitionType,
		})
		if err != nil {
			return err
		}
		entry := &auditrepo.Entry{
			ActorID:    a.ID,
			Action:     "workflow." + string(req.TransitionType),
			EntityType: string(req.CertificateType) + "_certificate",
			EntityID:   strconv.FormatInt(req.CertificateID, 10),
			Details:    details,
		}
		if err := s.audit.CreateTx(ctx, tx, entry); err != nil {
			return err
		}

		record = &domain.TransitionRecord{
			CertificateType: req.CertificateType,
			CertificateID:   req.CertificateID,
			FromState:       transition.FromState,
			ToState:         target,
			TransitionType:  req.TransitionType,
			PerformedBy:     a.ID,
			PerformedAt:     transition.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("certificate_type", string(record.CertificateType)).
		Int64("certificate_id", record.CertificateID).
		Str("to_state", string(record.ToState)).
		Str("transition_type", string(record.TransitionType)).
		Int64("performed_by", record.PerformedBy).
		Msg("workflow transition applied")

	if s.publisher != nil {
		s.publisher.PublishTransitioned(ctx, record)
	}

	return record, nil
}

// GetState returns the current workflow state of a certificate, or nil when
// the certificate has not entered the workflow yet.
func (s *WorkflowService) GetState(ctx context.Context, certType domain.CertificateType, certID int64) (*domain.WorkflowState, error) {
	if err := validateCertificateRef(certType, certID); err != nil {
		return nil, err
	}
	return s.states.GetState(ctx, certType, certID)
}

// GetHistory returns the full transition history of a certificate in
// chronological order.
func (s *WorkflowService) GetHistory(ctx context.Context, certType domain.CertificateType, certID int64) ([]domain.WorkflowTransition, error) {
	if err := validateCertificateRef(certType, certID); err != nil {
		return nil, err
	}
	return s.transitions.ListByCertificate(ctx, certType, certID)
}

func validateCertificateRef(certType domain.CertificateType, certID int64) error {
	details := map[string]string{}
	if !certType.Valid() {
		details["certificate_type"] = "must be one of: birth, marriage, death"
	}
	if certID <= 0 {
		details["certificate_id"] = "must be a positive integer"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// mapTransitionError converts domain validation failures into API errors.
// Guard violations keep the specific from/to pair in the message.
func mapTransitionError(err error) error {
	var illegal *domain.IllegalTransitionError
	switch {
	case errors.Is(err, domain.ErrUnknownTransition):
		return errors.BadRequest(err.Error())
	case errors.Is(err, domain.ErrNotSubmitted):
		return errors.BadRequest(err.Error())
	case errors.As(err, &illegal):
		return errors.BadRequest(err.Error())
	default:
		return err
	}
}
