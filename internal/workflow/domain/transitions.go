package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownTransition is returned when a transition type is not part of the
// workflow vocabulary.
var ErrUnknownTransition = errors.New("unknown transition type")

// IllegalTransitionError is returned when a transition names a valid target
// state that is not reachable from the certificate's current state.
type IllegalTransitionError struct {
	From CertificateState
	To   CertificateState
}

func (e *IllegalTransitionError) Error() string {
	from := string(e.From)
	if e.From == StateNone {
		from = "none"
	}
	return fmt.Sprintf("illegal transition from %s to %s", from, e.To)
}

// ErrNotSubmitted is returned when a transition other than submit or reopen
// is attempted on a certificate that has no workflow record yet.
var ErrNotSubmitted = errors.New("certificate has no workflow record: only submit or reopen is allowed")

// targetStates maps each transition type to the state it produces. The target
// depends only on the transition, never on the current state.
var targetStates = map[TransitionType]CertificateState{
	TransitionSubmit:  StatePendingReview,
	TransitionVerify:  StateVerified,
	TransitionApprove: StateApproved,
	TransitionReject:  StateRejected,
	TransitionArchive: StateArchived,
	TransitionReopen:  StateDraft,
}

// TargetState returns the state this transition moves a certificate into.
// The second return value is false for unknown transition types.
func (t TransitionType) TargetState() (CertificateState, bool) {
	s, ok := targetStates[t]
	return s, ok
}

// successors lists, per current state, the states directly reachable from it.
// Archival is handled separately in ValidateTransition: it is allowed from
// every state except archived itself, which is terminal.
var successors = map[CertificateState][]CertificateState{
	StateNone:          {StatePendingReview, StateDraft},
	StateDraft:         {StatePendingReview},
	StatePendingReview: {StateVerified, StateRejected},
	StateVerified:      {StateApproved, StateRejected},
	StateApproved:      {},
	StateRejected:      {StateDraft, StatePendingReview},
	StateArchived:      {},
}

// CanTransition reports whether moving from one state to another is permitted
// by the workflow guard table.
func CanTransition(from, to CertificateState) bool {
	if to == StateArchived {
		return from != StateArchived
	}
	for _, s := range successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks a transition against the current state and
// returns the target state. It performs no I/O; callers are expected to hold
// the state row locked while acting on the result.
func ValidateTransition(from CertificateState, t TransitionType) (CertificateState, error) {
	target, ok := t.TargetState()
	if !ok {
		return StateNone, fmt.Errorf("%w: %q", ErrUnknownTransition, t)
	}

	if from == StateNone && t != TransitionSubmit && t != TransitionReopen {
		return StateNone, ErrNotSubmitted
	}

	if !CanTransition(from, target) {
		return StateNone, &IllegalTransitionError{From: from, To: target}
	}

	return target, nil
}

// Effects describes the side fields a transition writes alongside the state
// column. Only the listed transitions touch reviewer attribution columns.
type Effects struct {
	SetsVerified  bool
	SetsApproved  bool
	SetsRejected  bool
	RecordsReason bool
}

var transitionEffects = map[TransitionType]Effects{
	TransitionVerify:  {SetsVerified: true},
	TransitionApprove: {SetsApproved: true},
	TransitionReject:  {SetsRejected: true, RecordsReason: true},
}

// Effects returns the field effects of this transition. Transitions without
// an entry write only the state column.
func (t TransitionType) Effects() Effects {
	return transitionEffects[t]
}

// BuildStateUpdate resolves a validated transition into the exact column set
// to persist. actorID and now populate the attribution fields selected by the
// transition's effects; notes becomes the rejection reason when the effects
// record one and notes is non-empty.
func BuildStateUpdate(certType CertificateType, certID int64, target CertificateState, t TransitionType, actorID int64, now time.Time, notes string) StateUpdate {
	upd := StateUpdate{
		CertificateType: certType,
		CertificateID:   certID,
		State:           target,
	}

	eff := t.Effects()
	if eff.SetsVerified {
		upd.VerifiedBy = &actorID
		upd.VerifiedAt = &now
	}
	if eff.SetsApproved {
		upd.ApprovedBy = &actorID
		upd.ApprovedAt = &now
	}
	if eff.SetsRejected {
		upd.RejectedBy = &actorID
		upd.RejectedAt = &now
	}
	if eff.RecordsReason && notes != "" {
		upd.RejectionReason = &notes
	}

	return upd
}
