package models

import (
	"time"

	"github.com/google/uuid"
)

// Application is the submitted job application a candidate record hangs off.
// The full data-entry form lives outside this service; we keep the fields the
// interview pipeline actually reads (SMS templates, OA payloads, audit labels).
type Application struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Phone     string    `gorm:"type:text" json:"phone"`
	Email     string    `gorm:"type:text" json:"email"`
	JobTitle  string    `gorm:"type:text" json:"job_title"`
	Region    string    `gorm:"type:text" json:"region"`
	CreatedAt time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (a *Application) TableName() string {
	return "applications"
}
