package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record the engine resolves participants against.
// Credentials live with the identity provider and are not modelled here.
type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Email       string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name        string     `gorm:"size:128;not null;default:''" json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Religion    string     `gorm:"size:64" json:"religion"`
	FCMToken    string     `gorm:"size:512" json:"-"` // For push notifications
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Someone"
}

// Age returns age in years from DOB, or 0 when DOB is unknown.
func (u *User) Age(t time.Time) int {
	if u.DateOfBirth == nil {
		return 0
	}
	dob := *u.DateOfBirth
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	return age
}
