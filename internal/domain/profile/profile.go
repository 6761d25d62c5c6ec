package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile is the aggregate root for everything materialized from onboarding.
// Children are only written through the root.
type UserProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	IsLocked     bool      `gorm:"column:is_locked;not null;default:true" json:"is_locked"`
	FitnessLevel string    `gorm:"column:fitness_level;not null" json:"fitness_level"`

	Goals                []FitnessGoal         `gorm:"foreignKey:ProfileID" json:"goals,omitempty"`
	Constraints          []PhysicalConstraint  `gorm:"foreignKey:ProfileID" json:"constraints,omitempty"`
	DietaryPreference    *DietaryPreference    `gorm:"foreignKey:ProfileID" json:"dietary_preference,omitempty"`
	MealPlan             *MealPlan             `gorm:"foreignKey:ProfileID" json:"meal_plan,omitempty"`
	MealSchedules        []MealSchedule        `gorm:"foreignKey:ProfileID" json:"meal_schedules,omitempty"`
	WorkoutSchedules     []WorkoutSchedule     `gorm:"foreignKey:ProfileID" json:"workout_schedules,omitempty"`
	HydrationPreference  *HydrationPreference  `gorm:"foreignKey:ProfileID" json:"hydration_preference,omitempty"`
	LifestyleBaseline    *LifestyleBaseline    `gorm:"foreignKey:ProfileID" json:"lifestyle_baseline,omitempty"`
	SupplementPreference *SupplementPreference `gorm:"foreignKey:ProfileID" json:"supplement_preference,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserProfile) TableName() string { return "user_profile" }

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ChildModels lists every preference table owned by a profile.
func ChildModels() []any {
	return []any{
		&FitnessGoal{},
		&PhysicalConstraint{},
		&DietaryPreference{},
		&MealPlan{},
		&MealSchedule{},
		&WorkoutSchedule{},
		&HydrationPreference{},
		&LifestyleBaseline{},
		&SupplementPreference{},
	}
}
