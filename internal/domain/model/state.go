package model

import (
	"fmt"
	"sort"

	"github.com/okian/ghostslot/internal/domain/pool"
)

// ReservationState is the persisted record of one cohort.
type ReservationState struct {
	Cohort          int             `json:"cohort"`
	TotalGhostSlots int             `json:"totalGhostSlots"`
	Slots           map[string]Slot `json:"slots"`
	// Version increases by one on every applied mutation.
	Version   int64 `json:"version"`
	CreatedAt int64 `json:"createdAt"`
}

// NewReservationState builds a cohort pool with every slot available.
func NewReservationState(cohort, total int, now int64) (ReservationState, error) {
	if err := pool.Validate(cohort, total); err != nil {
		return ReservationState{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	s := ReservationState{
		Cohort:          cohort,
		TotalGhostSlots: total,
		Slots:           make(map[string]Slot, total),
		CreatedAt:       now,
	}
	for _, id := range pool.IDs(cohort, total) {
		s.Slots[id] = Slot{ID: id, Status: StatusAvailable}
	}
	return s, nil
}

// Clone returns a deep copy of s.
func (s ReservationState) Clone() ReservationState {
	c := s
	c.Slots = make(map[string]Slot, len(s.Slots))
	for id, slot := range s.Slots {
		c.Slots[id] = slot
	}
	return c
}

// Ordered returns the slots sorted by sequence, lowest first.
func (s ReservationState) Ordered() []Slot {
	out := make([]Slot, 0, len(s.Slots))
	for _, slot := range s.Slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		return pool.Seq(out[i].ID) < pool.Seq(out[j].ID)
	})
	return out
}

// Validate checks that s holds exactly the pool's slots and that each is consistent.
func (s ReservationState) Validate() error {
	if err := pool.Validate(s.Cohort, s.TotalGhostSlots); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if len(s.Slots) != s.TotalGhostSlots {
		return fmt.Errorf("%w: cohort %d has %d slots, want %d",
			ErrInvalidState, s.Cohort, len(s.Slots), s.TotalGhostSlots)
	}
	for _, id := range pool.IDs(s.Cohort, s.TotalGhostSlots) {
		slot, ok := s.Slots[id]
		if !ok {
			return fmt.Errorf("%w: cohort %d is missing slot %s", ErrInvalidState, s.Cohort, id)
		}
		if err := slot.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ActiveReservation returns the live reservation requester holds at now, if any.
func (s ReservationState) ActiveReservation(requester string, now int64) (Slot, bool) {
	if requester == "" {
		return Slot{}, false
	}
	for _, slot := range s.Ordered() {
		if slot.HeldBy(requester, now) {
			return slot, true
		}
	}
	return Slot{}, false
}

// Counts tallies slots by status with lazily expired reservations counted as available.
func (s ReservationState) Counts(now int64) (available, reserved, submitted int) {
	for _, slot := range s.Slots {
		switch {
		case slot.Claimable(now):
			available++
		case slot.Status == StatusReserved:
			reserved++
		default:
			submitted++
		}
	}
	return available, reserved, submitted
}

// SubmittedSkillsets returns the skillset ids occupying slots of s.
func (s ReservationState) SubmittedSkillsets() []string {
	var ids []string
	for _, slot := range s.Ordered() {
		if slot.Status == StatusSubmitted {
			ids = append(ids, slot.SkillsetID)
		}
	}
	return ids
}

// View is a read-time projection of a cohort for one caller.
type View struct {
	Cohort          int
	TotalGhostSlots int
	Slots           []Slot
	// UserSlot is the id of the caller's live reservation, nil if none.
	UserSlot  *string
	Available int
	Reserved  int
	Submitted int
	Version   int64
}

// View projects s at now for requester. Lazily expired reservations are
// reported available; nothing is persisted.
func (s ReservationState) View(requester string, now int64) View {
	v := View{
		Cohort:          s.Cohort,
		TotalGhostSlots: s.TotalGhostSlots,
		Version:         s.Version,
	}
	v.Slots = s.Ordered()
	for i, slot := range v.Slots {
		if slot.Expired(now) {
			v.Slots[i] = slot.Available()
		}
	}
	if slot, ok := s.ActiveReservation(requester, now); ok {
		id := slot.ID
		v.UserSlot = &id
	}
	v.Available, v.Reserved, v.Submitted = s.Counts(now)
	return v
}
