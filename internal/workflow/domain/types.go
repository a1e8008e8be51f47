package domain

import "time"

// CertificateType identifies the kind of civil registry record under review
type CertificateType string

const (
	CertificateTypeBirth    CertificateType = "birth"
	CertificateTypeMarriage CertificateType = "marriage"
	CertificateTypeDeath    CertificateType = "death"
)

// Valid reports whether the certificate type is a known member of the enum
func (t CertificateType) Valid() bool {
	switch t {
	case CertificateTypeBirth, CertificateTypeMarriage, CertificateTypeDeath:
		return true
	}
	return false
}

// CertificateState is the review state of a certificate record
type CertificateState string

const (
	// StateNone is the implicit pseudo-state of a certificate that has no
	// workflow row yet. It is never persisted.
	StateNone CertificateState = ""

	StateDraft         CertificateState = "draft"
	StatePendingReview CertificateState = "pending_review"
	StateVerified      CertificateState = "verified"
	StateApproved      CertificateState = "approved"
	StateRejected      CertificateState = "rejected"
	StateArchived      CertificateState = "archived"
)

// Valid reports whether the state is a persistable member of the enum
func (s CertificateState) Valid() bool {
	switch s {
	case StateDraft, StatePendingReview, StateVerified,
		StateApproved, StateRejected, StateArchived:
		return true
	}
	return false
}

// TransitionType is a named workflow operation
type TransitionType string

const (
	TransitionSubmit  TransitionType = "submit"
	TransitionVerify  TransitionType = "verify"
	TransitionApprove TransitionType = "approve"
	TransitionReject  TransitionType = "reject"
	TransitionArchive TransitionType = "archive"
	TransitionReopen  TransitionType = "reopen"
)

// WorkflowState is the authoritative current state of one certificate.
// There is at most one row per (certificate_type, certificate_id); the row
// is created on the first transition and mutated in place afterwards, never
// deleted (archival is a state, not a deletion).
type WorkflowState struct {
	CertificateType CertificateType  `db:"certificate_type" json:"certificate_type"`
	CertificateID   int64            `db:"certificate_id" json:"certificate_id"`
	CurrentState    CertificateState `db:"current_state" json:"current_state"`
	VerifiedBy      *int64           `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time       `db:"verified_at" json:"verified_at,omitempty"`
	ApprovedBy      *int64           `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	RejectedBy      *int64           `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectedAt      *time.Time       `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// WorkflowTransition is one entry of the append-only transition log.
// Entries are immutable once written.
type WorkflowTransition struct {
	ID              string           `db:"id" json:"id"`
	CertificateType CertificateType  `db:"certificate_type" json:"certificate_type"`
	CertificateID   int64            `db:"certificate_id" json:"certificate_id"`
	FromState       *CertificateState `db:"from_state" json:"from_state"` // nil means "new record"
	ToState         CertificateState `db:"to_state" json:"to_state"`
	TransitionType  TransitionType   `db:"transition_type" json:"transition_type"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	PerformedBy     int64            `db:"performed_by" json:"performed_by"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// TransitionRequest is a request to move a certificate through the workflow
type TransitionRequest struct {
	CertificateType CertificateType
	CertificateID   int64
	TransitionType  TransitionType
	Notes           string
}

// TransitionRecord is returned to the caller after a successful transition
type TransitionRecord struct {
	CertificateType CertificateType   `json:"certificate_type"`
	CertificateID   int64             `json:"certificate_id"`
	FromState       *CertificateState `json:"from_state"`
	ToState         CertificateState  `json:"to_state"`
	TransitionType  TransitionType    `json:"transition_type"`
	PerformedBy     int64             `json:"performed_by"`
	PerformedAt     time.Time         `json:"performed_at"`
}

// StateUpdate describes exactly which columns a transition writes. It is
// consumed by a single fixed upsert statement; which optional fields are set
// is decided by the transition's Effects, never by assembled SQL.
type StateUpdate struct {
	CertificateType CertificateType
	CertificateID   int64
	State           CertificateState
	VerifiedBy      *int64
	VerifiedAt      *time.Time
	ApprovedBy      *int64
	ApprovedAt      *time.Time
	RejectedBy      *int64
	RejectedAt      *time.Time
	RejectionReason *string
}
