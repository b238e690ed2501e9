// Package model contains the reservation domain types shared between layers.
package model

import "fmt"

// Status is the lifecycle state of a slot.
type Status string

// Slot statuses.
const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSubmitted Status = "submitted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSubmitted:
		return true
	}
	return false
}

// Slot is the unit of allocation.
type Slot struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	// ExpiresAt is an epoch-seconds deadline, set iff Status is reserved.
	ExpiresAt int64 `json:"expiresAt,omitempty"`
	// SkillsetID identifies the submission, set iff Status is submitted.
	SkillsetID string `json:"skillsetId,omitempty"`
	// Holder is the requester that reserved (and possibly submitted) the slot.
	Holder string `json:"holder,omitempty"`
}

// Validate checks the field invariants of the slot's status.
func (s Slot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: slot without id", ErrInvalidState)
	}
	switch s.Status {
	case StatusAvailable:
		if s.ExpiresAt != 0 || s.SkillsetID != "" || s.Holder != "" {
			return fmt.Errorf("%w: available slot %s carries reservation fields", ErrInvalidState, s.ID)
		}
	case StatusReserved:
		if s.ExpiresAt == 0 || s.Holder == "" {
			return fmt.Errorf("%w: reserved slot %s needs holder and expiry", ErrInvalidState, s.ID)
		}
		if s.SkillsetID != "" {
			return fmt.Errorf("%w: reserved slot %s carries a skillset", ErrInvalidState, s.ID)
		}
	case StatusSubmitted:
		if s.SkillsetID == "" {
			return fmt.Errorf("%w: submitted slot %s needs a skillset", ErrInvalidState, s.ID)
		}
		if s.ExpiresAt != 0 {
			return fmt.Errorf("%w: submitted slot %s carries an expiry", ErrInvalidState, s.ID)
		}
	default:
		return fmt.Errorf("%w: slot %s has unknown status %q", ErrInvalidState, s.ID, s.Status)
	}
	return nil
}

// Expired reports whether s is a reservation whose deadline has passed at now.
func (s Slot) Expired(now int64) bool {
	return s.Status == StatusReserved && now >= s.ExpiresAt
}

// Claimable reports whether a reserve scan may take s at now.
func (s Slot) Claimable(now int64) bool {
	return s.Status == StatusAvailable || s.Expired(now)
}

// HeldBy reports whether requester holds a live reservation on s at now.
func (s Slot) HeldBy(requester string, now int64) bool {
	return s.Status == StatusReserved && s.Holder == requester && !s.Expired(now)
}

// Available returns s reset to the available state.
func (s Slot) Available() Slot {
	return Slot{ID: s.ID, Status: StatusAvailable}
}

// Reserved returns s reserved by holder until expiresAt.
func (s Slot) Reserved(holder string, expiresAt int64) Slot {
	return Slot{ID: s.ID, Status: StatusReserved, ExpiresAt: expiresAt, Holder: holder}
}

// Submitted returns s permanently occupied by skillsetID.
func (s Slot) Submitted(skillsetID string) Slot {
	return Slot{ID: s.ID, Status: StatusSubmitted, SkillsetID: skillsetID, Holder: s.Holder}
}
