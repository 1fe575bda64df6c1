package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile holds the public display attributes of a user. The display image
// itself is stored in Cloudinary; only its public id is kept here.
type Profile struct {
	ID                     string    `gorm:"primaryKey;size:36" json:"id"`
	UserID                 string    `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	Location               string    `gorm:"size:255" json:"location"`
	Profession             string    `gorm:"size:255" json:"profession"`
	MaritalStatus          string    `gorm:"size:32" json:"marital_status"`
	ProfilePicturePublicID string    `gorm:"size:255" json:"-"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Profile) HasProfilePicture() bool { return p.ProfilePicturePublicID != "" }
