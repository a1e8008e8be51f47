package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/testutil"
)

func TestTransitionRepository_CreateTx(t *testing.T) {
	db, mockDB := newTestDB(t)
	defer mockDB.Close()

	from := domain.StatePendingReview

	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery("INSERT INTO workflow_transitions").
		WithArgs(testutil.AnyUUID{}, "birth", int64(42), "pending_review", "verified",
			"verify", nil, int64(12)).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	repo := NewTransitionRepository(db)

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	transition := &domain.WorkflowTransition{
		CertificateType: domain.CertificateTypeBirth,
		CertificateID:   42,
		FromState:       &from,
		ToState:         domain.StateVerified,
		TransitionType:  domain.TransitionVerify,
		PerformedBy:     12,
	}
	require.NoError(t, repo.CreateTx(ctx, tx, transition))

	assert.NotEmpty(t, transition.ID)
	assert.False(t, transition.CreatedAt.IsZero())

	require.NoError(t, tx.Commit())
	mockDB.ExpectationsWereMet(t)
}

func TestTransitionRepository_CreateTx_NewRecordHasNilFromState(t *testing.T) {
	db, mockDB := newTestDB(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.Mock.ExpectQuery("INSERT INTO workflow_transitions").
		WithArgs(testutil.AnyUUID{}, "death", int64(7), nil, "pending_review",
			"submit", "initial filing", int64(3)).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	repo := NewTransitionRepository(db)

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	notes := "initial filing"
	transition := &domain.WorkflowTransition{
		CertificateType: domain.CertificateTypeDeath,
		CertificateID:   7,
		FromState:       nil,
		ToState:         domain.StatePendingReview,
		TransitionType:  domain.TransitionSubmit,
		Notes:           &notes,
		PerformedBy:     3,
	}
	require.NoError(t, repo.CreateTx(ctx, tx, transition))

	require.NoError(t, tx.Commit())
	mockDB.ExpectationsWereMet(t)
}

func TestTransitionRepository_ListByCertificate(t *testing.T) {
	db, mockDB := newTestDB(t)
	defer mockDB.Close()

	base := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	rows := testutil.MockRows(
		"id", "certificate_type", "certificate_id", "from_state", "to_state",
		"transition_type", "notes", "performed_by", "created_at",
	).
		AddRow("0d9f6cc1-4a2b-4d0e-9a53-111111111111", "birth", int64(42), nil, "pending_review", "submit", nil, int64(3), base).
		AddRow("0d9f6cc1-4a2b-4d0e-9a53-222222222222", "birth", int64(42), "pending_review", "verified", "verify", nil, int64(12), base.Add(time.Hour))

	mockDB.ExpectQuery("ORDER BY created_at ASC, id ASC").
		WithArgs("birth", int64(42)).
		WillReturnRows(rows)

	repo := NewTransitionRepository(db)
	transitions, err := repo.ListByCertificate(context.Background(), domain.CertificateTypeBirth, 42)

	require.NoError(t, err)
	require.Len(t, transitions, 2)
	assert.Nil(t, transitions[0].FromState)
	assert.Equal(t, domain.StatePendingReview, transitions[0].ToState)
	require.NotNil(t, transitions[1].FromState)
	assert.Equal(t, domain.StatePendingReview, *transitions[1].FromState)
	assert.Equal(t, domain.StateVerified, transitions[1].ToState)
	mockDB.ExpectationsWereMet(t)
}
