package service

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateInput(in any) error {
	if err := validate.Struct(in); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

// SlotSpec describes one availability slot to be created.
type SlotSpec struct {
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
	CapacityMax int       `json:"capacity_max" validate:"min=1"`
}

type CreateSlotInput struct {
	SessionID int64 `json:"session_id" validate:"required,gt=0"`
	SlotSpec
}

// UpdateSlotInput patches a slot. Nil fields are left untouched.
type UpdateSlotInput struct {
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	CapacityMax *int       `json:"capacity_max"`
	Inactive    *bool      `json:"inactive"`
}

type CreateReservationInput struct {
	SlotID       int64     `json:"slot_id" validate:"required,gt=0"`
	StudentID    int64     `json:"student_id" validate:"required,gt=0"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	EndsAt       time.Time `json:"ends_at" validate:"required"`
	Modality     string    `json:"modality" validate:"required"`
	Observations string    `json:"observations"`
}

type CreateSessionInput struct {
	TutorID     int64      `json:"tutor_id" validate:"required,gt=0"`
	SubjectID   int64      `json:"subject_id" validate:"required,gt=0"`
	Modality    string     `json:"modality" validate:"required"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Slots       []SlotSpec `json:"slots" validate:"dive"`
}
