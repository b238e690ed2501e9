package service

import (
	"fmt"

	"github.com/okian/ghostslot/internal/domain/model"
)

// plan is the outcome of deciding a command against one state snapshot.
type plan struct {
	slotID      string
	transitions []model.Transition
	reclaimed   int
}

// planReserve releases requester's live reservation, claims the lowest
// claimable slot and reclaims every other expired reservation, all in one
// batch.
func planReserve(s model.ReservationState, requester string, now, expiresAt int64) (plan, error) {
	var p plan

	released := ""
	if own, ok := s.ActiveReservation(requester, now); ok {
		released = own.ID
		p.transitions = append(p.transitions, model.Transition{
			SlotID:   own.ID,
			Expected: model.StatusReserved,
			Next:     own.Available(),
		})
	}

	for _, slot := range s.Ordered() {
		if slot.ID != released && !slot.Claimable(now) {
			continue
		}
		expected := slot.Status
		if slot.ID == released {
			expected = model.StatusAvailable
		}
		if p.slotID == "" {
			p.slotID = slot.ID
			p.transitions = append(p.transitions, model.Transition{
				SlotID:   slot.ID,
				Expected: expected,
				Next:     slot.Reserved(requester, expiresAt),
			})
			if slot.Expired(now) {
				p.reclaimed++
			}
			continue
		}
		if slot.Expired(now) {
			p.reclaimed++
			p.transitions = append(p.transitions, model.Transition{
				SlotID:   slot.ID,
				Expected: model.StatusReserved,
				Next:     slot.Available(),
			})
		}
	}

	if p.slotID == "" {
		return plan{}, fmt.Errorf("%w: cohort %d", model.ErrPoolExhausted, s.Cohort)
	}
	return p, nil
}

// planRelease returns slotID to the pool if requester holds a live
// reservation on it. A lapsed hold reads as available and is not releasable.
func planRelease(s model.ReservationState, slotID, requester string, now int64) (plan, error) {
	slot, ok := s.Slots[slotID]
	if !ok {
		return plan{}, fmt.Errorf("%w: slot %s in cohort %d", model.ErrNotFound, slotID, s.Cohort)
	}
	switch {
	case slot.Status == model.StatusSubmitted:
		return plan{}, fmt.Errorf("%w: slot %s is submitted", model.ErrInvalidState, slotID)
	case slot.Status != model.StatusReserved || slot.Holder != requester:
		return plan{}, fmt.Errorf("%w: slot %s", model.ErrNotOwner, slotID)
	case slot.Expired(now):
		return plan{}, fmt.Errorf("%w: reservation on slot %s lapsed at %d", model.ErrNotOwner, slotID, slot.ExpiresAt)
	}
	return plan{
		slotID: slotID,
		transitions: []model.Transition{{
			SlotID:   slotID,
			Expected: model.StatusReserved,
			Next:     slot.Available(),
		}},
	}, nil
}

// planSubmit occupies slotID with skillsetID if requester holds a live
// reservation on it.
func planSubmit(s model.ReservationState, slotID, requester, skillsetID string, now int64) (plan, error) {
	slot, ok := s.Slots[slotID]
	if !ok {
		return plan{}, fmt.Errorf("%w: slot %s in cohort %d", model.ErrNotFound, slotID, s.Cohort)
	}
	switch {
	case slot.Status == model.StatusSubmitted:
		return plan{}, fmt.Errorf("%w: slot %s is already submitted", model.ErrInvalidState, slotID)
	case slot.Status != model.StatusReserved || slot.Holder != requester:
		return plan{}, fmt.Errorf("%w: slot %s", model.ErrNotOwner, slotID)
	case slot.Expired(now):
		return plan{}, fmt.Errorf("%w: slot %s expired at %d", model.ErrExpired, slotID, slot.ExpiresAt)
	}
	return plan{
		slotID: slotID,
		transitions: []model.Transition{{
			SlotID:   slotID,
			Expected: model.StatusReserved,
			Next:     slot.Submitted(skillsetID),
		}},
	}, nil
}
