package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

// ProfileVersion is an append-only audit row. Versions are dense per profile
// and outlive a soft-deleted profile.
type ProfileVersion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID     uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_profile_version_number,priority:1" json:"profile_id"`
	VersionNumber int            `gorm:"column:version_number;not null;uniqueIndex:idx_profile_version_number,priority:2" json:"version_number"`
	ChangeReason  string         `gorm:"column:change_reason;type:text;not null" json:"change_reason"`
	Snapshot      datatypes.JSON `gorm:"column:snapshot;not null" json:"snapshot"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	persisted bool `gorm:"-"`
}

func (ProfileVersion) TableName() string { return "profile_version" }

func (v *ProfileVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// BeforeSave runs for creates too, so only rows that already exist are refused.
func (v *ProfileVersion) BeforeSave(tx *gorm.DB) error {
	if v.persisted {
		return apierr.ImmutableRecord("profile_version")
	}
	return nil
}

func (v *ProfileVersion) BeforeUpdate(tx *gorm.DB) error {
	return apierr.ImmutableRecord("profile_version")
}

func (v *ProfileVersion) BeforeDelete(tx *gorm.DB) error {
	return apierr.ImmutableRecord("profile_version")
}

func (v *ProfileVersion) AfterCreate(tx *gorm.DB) error {
	v.persisted = true
	return nil
}

func (v *ProfileVersion) AfterFind(tx *gorm.DB) error {
	v.persisted = true
	return nil
}
