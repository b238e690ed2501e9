package model

import "fmt"

// Transition is one status-guarded slot change. It applies only if the
// slot's current status equals Expected.
type Transition struct {
	SlotID   string
	Expected Status
	Next     Slot
}

// ValidTransition encodes the slot state machine. reserved -> reserved is the
// lazy reclaim of an expired reservation immediately claimed by a new holder.
// Nothing leaves submitted.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusAvailable:
		return to == StatusReserved
	case StatusReserved:
		return to == StatusAvailable || to == StatusReserved || to == StatusSubmitted
	}
	return false
}

// Apply returns a copy of s with ts applied and the version bumped by one.
// It fails with ErrConflict if s.Version differs from expectedVersion or a
// slot's status differs from its transition's Expected status. Either every
// transition applies or none does.
func (s ReservationState) Apply(expectedVersion int64, ts ...Transition) (ReservationState, error) {
	if s.Version != expectedVersion {
		return ReservationState{}, fmt.Errorf("%w: cohort %d at version %d, expected %d",
			ErrConflict, s.Cohort, s.Version, expectedVersion)
	}
	if len(ts) == 0 {
		return ReservationState{}, fmt.Errorf("%w: no transitions", ErrInvalidArgument)
	}
	next := s.Clone()
	for _, t := range ts {
		cur, ok := next.Slots[t.SlotID]
		if !ok {
			return ReservationState{}, fmt.Errorf("%w: slot %s in cohort %d", ErrNotFound, t.SlotID, s.Cohort)
		}
		if cur.Status != t.Expected {
			return ReservationState{}, fmt.Errorf("%w: slot %s is %s, expected %s",
				ErrConflict, t.SlotID, cur.Status, t.Expected)
		}
		if !ValidTransition(cur.Status, t.Next.Status) {
			return ReservationState{}, fmt.Errorf("%w: slot %s cannot move from %s to %s",
				ErrInvalidState, t.SlotID, cur.Status, t.Next.Status)
		}
		slot := t.Next
		slot.ID = t.SlotID
		if err := slot.Validate(); err != nil {
			return ReservationState{}, err
		}
		next.Slots[t.SlotID] = slot
	}
	next.Version++
	return next, nil
}
