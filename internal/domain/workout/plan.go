package workout

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkoutPlan is owned by the user directly. PlanData keeps the approved
// plan blob; Days mirrors it as rows.
type WorkoutPlan struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	IsLocked bool           `gorm:"column:is_locked;not null;default:false" json:"is_locked"`
	PlanData datatypes.JSON `gorm:"column:plan_data" json:"plan_data,omitempty"`

	Days []WorkoutDay `gorm:"foreignKey:PlanID" json:"days,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WorkoutPlan) TableName() string { return "workout_plan" }

func (m *WorkoutPlan) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type WorkoutDay struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID    uuid.UUID `gorm:"type:uuid;not null;index" json:"plan_id"`
	DayOfWeek int       `gorm:"column:day_of_week;not null" json:"day_of_week"`
	Focus     string    `gorm:"column:focus;not null;default:''" json:"focus"`
	Position  int       `gorm:"column:position;not null" json:"position"`

	Exercises []WorkoutExercise `gorm:"foreignKey:DayID" json:"exercises,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WorkoutDay) TableName() string { return "workout_day" }

func (m *WorkoutDay) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type WorkoutExercise struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DayID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"day_id"`
	ExerciseID  *uuid.UUID `gorm:"type:uuid;index" json:"exercise_id,omitempty"`
	Name        string     `gorm:"column:name;not null" json:"name"`
	Sets        int        `gorm:"column:sets;not null;default:0" json:"sets"`
	Reps        string     `gorm:"column:reps;not null;default:''" json:"reps"`
	RestSeconds int        `gorm:"column:rest_seconds;not null;default:0" json:"rest_seconds"`
	Position    int        `gorm:"column:position;not null" json:"position"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WorkoutExercise) TableName() string { return "workout_exercise" }

func (m *WorkoutExercise) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ExerciseLibrary is shared reference data, not owned by any user.
type ExerciseLibrary struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	MuscleGroup string    `gorm:"column:muscle_group;not null;default:'';index" json:"muscle_group"`
	Equipment   string    `gorm:"column:equipment;not null;default:''" json:"equipment"`
	Popularity  int       `gorm:"column:popularity;not null;default:0;index" json:"popularity"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExerciseLibrary) TableName() string { return "exercise_library" }

func (m *ExerciseLibrary) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
