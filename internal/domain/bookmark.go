package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Bookmark is a persisted bookmark row owned by exactly one user.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the backend when the row is created.
	ID string `json:"id"`

	// UserID is the owner. Every query and every feed event is scoped by it.
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// User supplied
	// ─────────────────────────────

	Title string `json:"title"`
	URL   string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is assigned by the backend and is the only sort key (newest first).
	CreatedAt time.Time `json:"created_at"`
}

// Draft is the input of an add request, before the backend assigns identity.
type Draft struct {
	UserID string `json:"user_id" validate:"required"`
	Title  string `json:"title" validate:"required"`
	URL    string `json:"url" validate:"required,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewDraft trims the user input and validates it.
// The returned error wraps ErrValidation.
func NewDraft(userID, title, url string) (Draft, error) {
	d := Draft{
		UserID: strings.TrimSpace(userID),
		Title:  strings.TrimSpace(title),
		URL:    strings.TrimSpace(url),
	}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Validate checks the draft fields.
func (d Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, strings.ToLower(fe.Field())+" is required")
		case "url":
			parts = append(parts, "url must be an absolute URL")
		default:
			parts = append(parts, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return strings.Join(parts, ", ")
}
