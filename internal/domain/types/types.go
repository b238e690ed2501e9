// Package types contains the wire shapes shared by the HTTP API and its client.
package types

import "github.com/okian/ghostslot/internal/domain/model"

// Slot is the public view of a slot. The holder is never exposed.
type Slot struct {
	ID         string       `json:"id" yaml:"id"`
	Status     model.Status `json:"status" yaml:"status"`
	ExpiresAt  int64        `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	SkillsetID string       `json:"skillsetId,omitempty" yaml:"skillsetId,omitempty"`
}

// ReservationState is the public view of a cohort.
type ReservationState struct {
	Cohort          int     `json:"cohort" yaml:"cohort"`
	TotalGhostSlots int     `json:"totalGhostSlots" yaml:"totalGhostSlots"`
	Slots           []Slot  `json:"slots" yaml:"slots"`
	UserSlot        *string `json:"userSlot" yaml:"userSlot"`
	Available       int     `json:"available" yaml:"available"`
	Reserved        int     `json:"reserved" yaml:"reserved"`
	Submitted       int     `json:"submitted" yaml:"submitted"`
	Version         int64   `json:"version" yaml:"version"`
}

// CohortSummary is one row of GET /cohorts.
type CohortSummary struct {
	Cohort          int `json:"cohort" yaml:"cohort"`
	TotalGhostSlots int `json:"totalGhostSlots" yaml:"totalGhostSlots"`
	Available       int `json:"available" yaml:"available"`
	Reserved        int `json:"reserved" yaml:"reserved"`
	Submitted       int `json:"submitted" yaml:"submitted"`
}

// ReleaseRequest is the body of POST /reservation/{cohort}/release.
type ReleaseRequest struct {
	SlotID string `json:"slotId" yaml:"slotId"`
}

// SubmitRequest is the body of POST /reservation/{cohort}/submit.
type SubmitRequest struct {
	SlotID     string `json:"slotId" yaml:"slotId"`
	SkillsetID string `json:"skillsetId" yaml:"skillsetId"`
}

// CreateCohortRequest is the body of POST /cohorts.
type CreateCohortRequest struct {
	Cohort          int `json:"cohort" yaml:"cohort"`
	TotalGhostSlots int `json:"totalGhostSlots" yaml:"totalGhostSlots"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// FromSlot converts a domain slot to its public view.
func FromSlot(s model.Slot) Slot {
	return Slot{ID: s.ID, Status: s.Status, ExpiresAt: s.ExpiresAt, SkillsetID: s.SkillsetID}
}

// FromView converts a domain view to its public shape.
func FromView(v model.View) ReservationState {
	out := ReservationState{
		Cohort:          v.Cohort,
		TotalGhostSlots: v.TotalGhostSlots,
		Slots:           make([]Slot, len(v.Slots)),
		UserSlot:        v.UserSlot,
		Available:       v.Available,
		Reserved:        v.Reserved,
		Submitted:       v.Submitted,
		Version:         v.Version,
	}
	for i, s := range v.Slots {
		out.Slots[i] = FromSlot(s)
	}
	return out
}

// Summarize reduces a view to a cohort summary.
func Summarize(v model.View) CohortSummary {
	return CohortSummary{
		Cohort:          v.Cohort,
		TotalGhostSlots: v.TotalGhostSlots,
		Available:       v.Available,
		Reserved:        v.Reserved,
		Submitted:       v.Submitted,
	}
}
