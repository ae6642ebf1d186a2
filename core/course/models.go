package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educa/core"
)

type Subject struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Slug  string `json:"slug" db:"slug"`
}

type Course struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	SubjectID string    `json:"subject_id" db:"subject_id"`
	Title     string    `json:"title" db:"title"`
	Slug      string    `json:"slug" db:"slug"`
	Overview  string    `json:"overview" db:"overview"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
// The owner is never taken from the payload; it is set from the acting user.
type NewCourse struct {
	Subject  string `json:"subject" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Slug     string `json:"slug" validate:"required,slug"`
	Overview string `json:"overview" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Subject = core.CleanString(nc.Subject)
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Overview = core.CleanString(nc.Overview)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. The owner is not part of the payload and cannot be changed.
type UpdateCourse struct {
	Subject  string `json:"subject"`
	Title    string `json:"title"`
	Slug     string `json:"slug" validate:"omitempty,slug"`
	Overview string `json:"overview"`
}

func (uc *UpdateCourse) Validate(origCrs Course, validate *validator.Validate) error {
	subject := core.CleanString(uc.Subject)
	if subject != "" {
		uc.Subject = subject
	} else {
		uc.Subject = origCrs.SubjectID
	}

	title := core.CleanString(uc.Title)
	if title != "" {
		uc.Title = title
	} else {
		uc.Title = origCrs.Title
	}

	slug := core.CleanString(uc.Slug, true /* lower */)
	if slug != "" {
		uc.Slug = slug
	} else {
		uc.Slug = origCrs.Slug
	}

	overview := core.CleanString(uc.Overview)
	if overview != "" {
		uc.Overview = overview
	} else {
		uc.Overview = origCrs.Overview
	}

	return validate.Struct(uc)
}

// GetFilter applies AND operation on available fields to find a single Course.
type GetFilter struct {
	ID        string
	OwnerID   string
	StudentID string
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	OwnerID   string
	StudentID string
	SubjectID string
}
