package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is an independent ledger/shop scope. Every other entity is
// partitioned by it.
type Profile struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Synced    bool      `gorm:"index;not null;default:false" json:"synced"`
}

func (p Profile) RecordID() string    { return p.ID }
func (p Profile) RecordTable() string { return TableProfiles }

type NewProfile struct {
	Name string `json:"name" binding:"required"`
}

func (input *NewProfile) ToProfile() *Profile {
	return &Profile{
		ID:        uuid.NewString(),
		Name:      input.Name,
		CreatedAt: time.Now(),
	}
}
