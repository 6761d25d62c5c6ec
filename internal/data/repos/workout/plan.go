package workout

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type WorkoutPlanRepo interface {
	// Create inserts the plan with its days and exercises.
	Create(dbc dbctx.Context, plan *types.WorkoutPlan) (*types.WorkoutPlan, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.WorkoutPlan, error)
	SetLocked(dbc dbctx.Context, userID uuid.UUID, locked bool) (int64, error)
	// SoftDeleteByUserID hides the plan, its days and their exercises.
	SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (map[string]int64, error)
}

type workoutPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkoutPlanRepo(db *gorm.DB, baseLog *logger.Logger) WorkoutPlanRepo {
	return &workoutPlanRepo{db: db, log: baseLog.With("repo", "WorkoutPlanRepo")}
}

func (r *workoutPlanRepo) Create(dbc dbctx.Context, plan *types.WorkoutPlan) (*types.WorkoutPlan, error) {
	if plan == nil || plan.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if err := dbc.DB(r.db).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *workoutPlanRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.WorkoutPlan, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out types.WorkoutPlan
	err := dbc.DB(r.db).
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Days.Exercises", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *workoutPlanRepo) SetLocked(dbc dbctx.Context, userID uuid.UUID, locked bool) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.WorkoutPlan{}).
		Where("user_id = ?", userID).
		Update("is_locked", locked)
	return res.RowsAffected, res.Error
}

func (r *workoutPlanRepo) SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (map[string]int64, error) {
	db := dbc.DB(r.db)
	affected := map[string]int64{}
	var planIDs []uuid.UUID
	if err := db.Model(&types.WorkoutPlan{}).Where("user_id = ?", userID).Pluck("id", &planIDs).Error; err != nil {
		return nil, err
	}
	if len(planIDs) == 0 {
		return affected, nil
	}
	var dayIDs []uuid.UUID
	if err := db.Model(&types.WorkoutDay{}).Where("plan_id IN ?", planIDs).Pluck("id", &dayIDs).Error; err != nil {
		return nil, err
	}
	cols := map[string]any{"deleted_at": at, "updated_at": at}
	if len(dayIDs) > 0 {
		res := db.Model(&types.WorkoutExercise{}).Where("day_id IN ?", dayIDs).UpdateColumns(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		affected["workout_exercise"] = res.RowsAffected
		res = db.Model(&types.WorkoutDay{}).Where("id IN ?", dayIDs).UpdateColumns(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		affected["workout_day"] = res.RowsAffected
	}
	res := db.Model(&types.WorkoutPlan{}).Where("id IN ?", planIDs).UpdateColumns(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	affected["workout_plan"] = res.RowsAffected
	return affected, nil
}
