package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetState(t *testing.T) {
	tests := []struct {
		transition TransitionType
		want       CertificateState
	}{
		{TransitionSubmit, StatePendingReview},
		{TransitionVerify, StateVerified},
		{TransitionApprove, StateApproved},
		{TransitionReject, StateRejected},
		{TransitionArchive, StateArchived},
		{TransitionReopen, StateDraft},
	}

	for _, tt := range tests {
		t.Run(string(tt.transition), func(t *testing.T) {
			got, ok := tt.transition.TargetState()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetState_Unknown(t *testing.T) {
	_, ok := TransitionType("promote").TargetState()
	assert.False(t, ok)
}

func TestValidateTransition_AllowedPaths(t *testing.T) {
	tests := []struct {
		name       string
		from       CertificateState
		transition TransitionType
		want       CertificateState
	}{
		{"submit new record", StateNone, TransitionSubmit, StatePendingReview},
		{"reopen new record", StateNone, TransitionReopen, StateDraft},
		{"submit draft for review", StateDraft, TransitionSubmit, StatePendingReview},
		{"verify pending", StatePendingReview, TransitionVerify, StateVerified},
		{"reject pending", StatePendingReview, TransitionReject, StateRejected},
		{"approve verified", StateVerified, TransitionApprove, StateApproved},
		{"reject verified", StateVerified, TransitionReject, StateRejected},
		{"resubmit rejected", StateRejected, TransitionSubmit, StatePendingReview},
		{"reopen rejected", StateRejected, TransitionReopen, StateDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTransition(tt.from, tt.transition)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateTransition_ArchiveFromAnyActiveState(t *testing.T) {
	for _, from := range []CertificateState{
		StateDraft, StatePendingReview, StateVerified, StateApproved, StateRejected,
	} {
		t.Run(string(from), func(t *testing.T) {
			got, err := ValidateTransition(from, TransitionArchive)
			require.NoError(t, err)
			assert.Equal(t, StateArchived, got)
		})
	}
}

func TestValidateTransition_ArchivedIsTerminal(t *testing.T) {
	for _, transition := range []TransitionType{
		TransitionSubmit, TransitionVerify, TransitionApprove,
		TransitionReject, TransitionArchive, TransitionReopen,
	} {
		t.Run(string(transition), func(t *testing.T) {
			_, err := ValidateTransition(StateArchived, transition)
			require.Error(t, err)

			var illegal *IllegalTransitionError
			require.ErrorAs(t, err, &illegal)
			assert.Equal(t, StateArchived, illegal.From)
		})
	}
}

func TestValidateTransition_IllegalPaths(t *testing.T) {
	tests := []struct {
		name       string
		from       CertificateState
		transition TransitionType
	}{
		{"approve draft", StateDraft, TransitionApprove},
		{"verify draft", StateDraft, TransitionVerify},
		{"reject draft", StateDraft, TransitionReject},
		{"reopen draft", StateDraft, TransitionReopen},
		{"approve pending directly", StatePendingReview, TransitionApprove},
		{"verify already verified", StateVerified, TransitionVerify},
		{"reopen approved", StateApproved, TransitionReopen},
		{"submit approved", StateApproved, TransitionSubmit},
		{"approve rejected", StateRejected, TransitionApprove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTransition(tt.from, tt.transition)
			require.Error(t, err)

			var illegal *IllegalTransitionError
			require.ErrorAs(t, err, &illegal)
			assert.Equal(t, tt.from, illegal.From)
		})
	}
}

func TestValidateTransition_NewRecordRestriction(t *testing.T) {
	for _, transition := range []TransitionType{
		TransitionVerify, TransitionApprove, TransitionReject, TransitionArchive,
	} {
		t.Run(string(transition), func(t *testing.T) {
			_, err := ValidateTransition(StateNone, transition)
			assert.ErrorIs(t, err, ErrNotSubmitted)
		})
	}
}

func TestValidateTransition_UnknownType(t *testing.T) {
	_, err := ValidateTransition(StateDraft, TransitionType("escalate"))
	assert.ErrorIs(t, err, ErrUnknownTransition)
}

func TestEffects(t *testing.T) {
	assert.Equal(t, Effects{}, TransitionSubmit.Effects())
	assert.Equal(t, Effects{}, TransitionArchive.Effects())
	assert.Equal(t, Effects{}, TransitionReopen.Effects())
	assert.Equal(t, Effects{SetsVerified: true}, TransitionVerify.Effects())
	assert.Equal(t, Effects{SetsApproved: true}, TransitionApprove.Effects())
	assert.Equal(t, Effects{SetsRejected: true, RecordsReason: true}, TransitionReject.Effects())
}

func TestBuildStateUpdate_Reject(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	upd := BuildStateUpdate(CertificateTypeBirth, 42, StateRejected, TransitionReject, 7, now, "registry number unreadable")

	assert.Equal(t, StateRejected, upd.State)
	require.NotNil(t, upd.RejectedBy)
	assert.Equal(t, int64(7), *upd.RejectedBy)
	require.NotNil(t, upd.RejectedAt)
	assert.Equal(t, now, *upd.RejectedAt)
	require.NotNil(t, upd.RejectionReason)
	assert.Equal(t, "registry number unreadable", *upd.RejectionReason)
	assert.Nil(t, upd.VerifiedBy)
	assert.Nil(t, upd.ApprovedBy)
}

func TestBuildStateUpdate_RejectWithoutNotes(t *testing.T) {
	upd := BuildStateUpdate(CertificateTypeDeath, 5, StateRejected, TransitionReject, 3, time.Now(), "")

	require.NotNil(t, upd.RejectedBy)
	assert.Nil(t, upd.RejectionReason)
}

func TestBuildStateUpdate_Submit(t *testing.T) {
	upd := BuildStateUpdate(CertificateTypeMarriage, 9, StatePendingReview, TransitionSubmit, 3, time.Now(), "initial filing")

	assert.Equal(t, StatePendingReview, upd.State)
	assert.Nil(t, upd.VerifiedBy)
	assert.Nil(t, upd.ApprovedBy)
	assert.Nil(t, upd.RejectedBy)
	assert.Nil(t, upd.RejectionReason)
}

func TestCertificateTypeValid(t *testing.T) {
	assert.True(t, CertificateTypeBirth.Valid())
	assert.True(t, CertificateTypeMarriage.Valid())
	assert.True(t, CertificateTypeDeath.Valid())
	assert.False(t, CertificateType("adoption").Valid())
}

func TestCertificateStateValid(t *testing.T) {
	assert.True(t, StateDraft.Valid())
	assert.True(t, StateArchived.Valid())
	assert.False(t, StateNone.Valid())
	assert.False(t, CertificateState("limbo").Valid())
}
