package models

import (
	"time"

	"github.com/google/uuid"
)

// ObservationType identifies which extraction path the Reader agent runs.
type ObservationType string

const (
	// ObservationTypeText is a free-text observation note
	ObservationTypeText ObservationType = "text"
	// ObservationTypePhoto is a photo observation (content is a URL)
	ObservationTypePhoto ObservationType = "photo"
	// ObservationTypeVoice is a voice recording (content is a URL)
	ObservationTypeVoice ObservationType = "voice"
	// ObservationTypeVideo is a video recording (content is a URL)
	ObservationTypeVideo ObservationType = "video"
	// ObservationTypeWorksheet is a scanned worksheet (content is a URL)
	ObservationTypeWorksheet ObservationType = "worksheet"
)

// Valid reports whether the observation type is one of the known variants.
func (t ObservationType) Valid() bool {
	switch t {
	case ObservationTypeText, ObservationTypePhoto, ObservationTypeVoice,
		ObservationTypeVideo, ObservationTypeWorksheet:
		return true
	default:
		return false
	}
}

// IsMedia reports whether the observation content is a URL rather than inline text.
func (t ObservationType) IsMedia() bool {
	return t != ObservationTypeText
}

// ObservationMeta carries the child/date metadata attached to every observation input.
type ObservationMeta struct {
	ChildID uuid.UUID `json:"child_id"`
	Date    time.Time `json:"date"`
}

// ObservationInput is the raw material fed to the Reader agent. It is
// constructed per call and never persisted by this subsystem.
type ObservationInput struct {
	Type     ObservationType `json:"type"`
	Content  string          `json:"content"` // text body or media URL depending on Type
	Metadata ObservationMeta `json:"metadata"`
	Context  string          `json:"context,omitempty"` // optional teacher-supplied framing
}

// Observation is a teacher-authored record about a child's activity, read
// from the observations table (with the child birth-date join applied).
type Observation struct {
	ID             uuid.UUID       `json:"id"`
	ChildID        uuid.UUID       `json:"child_id"`
	AuthorID       uuid.UUID       `json:"author_id"`
	Type           ObservationType `json:"type"`
	Content        string          `json:"content"`
	Context        string          `json:"context,omitempty"`
	ChildBirthDate *time.Time      `json:"child_birth_date,omitempty"`
	ObservedAt     time.Time       `json:"observed_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AgeInMonths derives the child's age in months at observation time.
// Returns 0 when the birth date is unknown.
func (o *Observation) AgeInMonths() int {
	if o.ChildBirthDate == nil {
		return 0
	}
	years := o.ObservedAt.Year() - o.ChildBirthDate.Year()
	months := int(o.ObservedAt.Month()) - int(o.ChildBirthDate.Month())
	total := years*12 + months
	if o.ObservedAt.Day() < o.ChildBirthDate.Day() {
		total--
	}
	if total < 0 {
		return 0
	}
	return total
}

// Attachment is an uploaded file linked to an observation or worksheet.
type Attachment struct {
	ID        uuid.UUID `json:"id"`
	ChildID   uuid.UUID `json:"child_id"`
	MimeType  string    `json:"mime_type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
