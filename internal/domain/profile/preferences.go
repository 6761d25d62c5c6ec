package profile

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ConstraintEquipment  = "equipment"
	ConstraintInjury     = "injury"
	ConstraintLimitation = "limitation"
)

type FitnessGoal struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID               uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	GoalType                string    `gorm:"column:goal_type;not null" json:"goal_type"`
	TargetWeightKg          *float64  `gorm:"column:target_weight_kg" json:"target_weight_kg,omitempty"`
	TargetBodyFatPercentage *float64  `gorm:"column:target_body_fat_percentage" json:"target_body_fat_percentage,omitempty"`
	Priority                int       `gorm:"column:priority;not null" json:"priority"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FitnessGoal) TableName() string { return "fitness_goal" }

func (m *FitnessGoal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type PhysicalConstraint struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID      uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	ConstraintType string    `gorm:"column:constraint_type;not null" json:"constraint_type"`
	Description    string    `gorm:"column:description;type:text;not null" json:"description"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PhysicalConstraint) TableName() string { return "physical_constraint" }

func (m *PhysicalConstraint) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type DietaryPreference struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID    uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"profile_id"`
	DietType     string                      `gorm:"column:diet_type;not null" json:"diet_type"`
	Allergies    datatypes.JSONSlice[string] `gorm:"column:allergies" json:"allergies"`
	Intolerances datatypes.JSONSlice[string] `gorm:"column:intolerances" json:"intolerances"`
	Dislikes     datatypes.JSONSlice[string] `gorm:"column:dislikes" json:"dislikes"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DietaryPreference) TableName() string { return "dietary_preference" }

func (m *DietaryPreference) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MealPlan stores macros in grams, rounded to two decimals.
type MealPlan struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"profile_id"`
	DailyCalorieTarget int            `gorm:"column:daily_calorie_target;not null" json:"daily_calorie_target"`
	ProteinGrams       float64        `gorm:"column:protein_grams;type:decimal(8,2);not null" json:"protein_grams"`
	CarbsGrams         float64        `gorm:"column:carbs_grams;type:decimal(8,2);not null" json:"carbs_grams"`
	FatsGrams          float64        `gorm:"column:fats_grams;type:decimal(8,2);not null" json:"fats_grams"`
	PlanData           datatypes.JSON `gorm:"column:plan_data" json:"plan_data,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MealPlan) TableName() string { return "meal_plan" }

func (m *MealPlan) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type MealSchedule struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID           uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	MealName            string    `gorm:"column:meal_name;not null" json:"meal_name"`
	ScheduledTime       string    `gorm:"column:scheduled_time;type:varchar(8);not null" json:"scheduled_time"`
	EnableNotifications bool      `gorm:"column:enable_notifications;not null" json:"enable_notifications"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (MealSchedule) TableName() string { return "meal_schedule" }

func (m *MealSchedule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type WorkoutSchedule struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID           uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	DayOfWeek           int       `gorm:"column:day_of_week;not null" json:"day_of_week"`
	ScheduledTime       string    `gorm:"column:scheduled_time;type:varchar(8);not null" json:"scheduled_time"`
	EnableNotifications bool      `gorm:"column:enable_notifications;not null" json:"enable_notifications"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WorkoutSchedule) TableName() string { return "workout_schedule" }

func (m *WorkoutSchedule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type HydrationPreference struct {
	ID                       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID                uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"profile_id"`
	DailyWaterTargetML       int       `gorm:"column:daily_water_target_ml;not null" json:"daily_water_target_ml"`
	ReminderFrequencyMinutes int       `gorm:"column:reminder_frequency_minutes;not null" json:"reminder_frequency_minutes"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (HydrationPreference) TableName() string { return "hydration_preference" }

func (m *HydrationPreference) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// LifestyleBaseline levels are 1..10.
type LifestyleBaseline struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"profile_id"`
	EnergyLevel  int       `gorm:"column:energy_level;not null" json:"energy_level"`
	StressLevel  int       `gorm:"column:stress_level;not null" json:"stress_level"`
	SleepQuality int       `gorm:"column:sleep_quality;not null" json:"sleep_quality"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LifestyleBaseline) TableName() string { return "lifestyle_baseline" }

func (m *LifestyleBaseline) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type SupplementPreference struct {
	ID                      uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID               uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"profile_id"`
	InterestedInSupplements bool                        `gorm:"column:interested_in_supplements;not null" json:"interested_in_supplements"`
	CurrentSupplements      datatypes.JSONSlice[string] `gorm:"column:current_supplements" json:"current_supplements"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SupplementPreference) TableName() string { return "supplement_preference" }

func (m *SupplementPreference) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
