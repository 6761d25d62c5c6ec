package profile

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainprofile "github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	// Create inserts the profile together with any children set on it.
	Create(dbc dbctx.Context, p *types.UserProfile) (*types.UserProfile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	GetFullByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error)
	ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, profileID uuid.UUID, updates map[string]any) error

	ReplaceGoals(dbc dbctx.Context, profileID uuid.UUID, goals []types.FitnessGoal) error
	ReplaceConstraints(dbc dbctx.Context, profileID uuid.UUID, constraintType string, descriptions []string) error
	ReplaceMealSchedules(dbc dbctx.Context, profileID uuid.UUID, rows []types.MealSchedule) error
	ReplaceWorkoutSchedules(dbc dbctx.Context, profileID uuid.UUID, rows []types.WorkoutSchedule) error
	// UpsertChild updates the alive singleton row of model's table for the
	// profile, creating row when none exists. row must be a pointer to the
	// same model type.
	UpsertChild(dbc dbctx.Context, profileID uuid.UUID, row any, updates map[string]any) error

	// SoftDeleteByUserID soft-deletes the profile and every owned preference
	// row. Versions are left alone. Returns rows affected per table.
	SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (map[string]int64, error)
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) Create(dbc dbctx.Context, p *types.UserProfile) (*types.UserProfile, error) {
	if p == nil || p.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if err := dbc.DB(r.db).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *userProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out types.UserProfile
	err := dbc.DB(r.db).Where("user_id = ?", userID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userProfileRepo) GetFullByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out types.UserProfile
	err := dbc.DB(r.db).
		Preload("Goals", func(db *gorm.DB) *gorm.DB { return db.Order("priority ASC") }).
		Preload("Constraints", func(db *gorm.DB) *gorm.DB { return db.Order("constraint_type ASC, created_at ASC") }).
		Preload("DietaryPreference").
		Preload("MealPlan").
		Preload("MealSchedules", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_time ASC") }).
		Preload("WorkoutSchedules", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week ASC") }).
		Preload("HydrationPreference").
		Preload("LifestyleBaseline").
		Preload("SupplementPreference").
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

func (r *userProfileRepo) LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByUserID requires dbc.Tx")
	}
	var out types.UserProfile
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
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

func (r *userProfileRepo) ExistsForUser(dbc dbctx.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := dbc.DB(r.db).
		Model(&types.UserProfile{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userProfileRepo) UpdateFields(dbc dbctx.Context, profileID uuid.UUID, updates map[string]any) error {
	if profileID == uuid.Nil {
		return fmt.Errorf("missing profile_id")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.UserProfile{}).
		Where("id = ?", profileID).
		Updates(updates).Error
}

func (r *userProfileRepo) ReplaceGoals(dbc dbctx.Context, profileID uuid.UUID, goals []types.FitnessGoal) error {
	db := dbc.DB(r.db)
	if err := db.Where("profile_id = ?", profileID).Delete(&types.FitnessGoal{}).Error; err != nil {
		return err
	}
	if len(goals) == 0 {
		return nil
	}
	for i := range goals {
		goals[i].ID = uuid.Nil
		goals[i].ProfileID = profileID
	}
	return db.Create(&goals).Error
}

func (r *userProfileRepo) ReplaceConstraints(dbc dbctx.Context, profileID uuid.UUID, constraintType string, descriptions []string) error {
	db := dbc.DB(r.db)
	if err := db.Where("profile_id = ? AND constraint_type = ?", profileID, constraintType).
		Delete(&types.PhysicalConstraint{}).Error; err != nil {
		return err
	}
	if len(descriptions) == 0 {
		return nil
	}
	rows := make([]types.PhysicalConstraint, 0, len(descriptions))
	for _, d := range descriptions {
		rows = append(rows, types.PhysicalConstraint{ProfileID: profileID, ConstraintType: constraintType, Description: d})
	}
	return db.Create(&rows).Error
}

func (r *userProfileRepo) ReplaceMealSchedules(dbc dbctx.Context, profileID uuid.UUID, rows []types.MealSchedule) error {
	db := dbc.DB(r.db)
	if err := db.Where("profile_id = ?", profileID).Delete(&types.MealSchedule{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ID = uuid.Nil
		rows[i].ProfileID = profileID
	}
	return db.Create(&rows).Error
}

func (r *userProfileRepo) ReplaceWorkoutSchedules(dbc dbctx.Context, profileID uuid.UUID, rows []types.WorkoutSchedule) error {
	db := dbc.DB(r.db)
	if err := db.Where("profile_id = ?", profileID).Delete(&types.WorkoutSchedule{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ID = uuid.Nil
		rows[i].ProfileID = profileID
	}
	return db.Create(&rows).Error
}

func (r *userProfileRepo) UpsertChild(dbc dbctx.Context, profileID uuid.UUID, row any, updates map[string]any) error {
	if profileID == uuid.Nil {
		return fmt.Errorf("missing profile_id")
	}
	if row == nil || reflect.TypeOf(row).Kind() != reflect.Pointer {
		return fmt.Errorf("UpsertChild requires a model pointer")
	}
	db := dbc.DB(r.db)
	elem := reflect.ValueOf(row).Elem()
	if f := elem.FieldByName("ProfileID"); f.IsValid() && f.CanSet() {
		f.Set(reflect.ValueOf(profileID))
	}
	model := reflect.New(elem.Type()).Interface()
	if len(updates) > 0 {
		res := db.Model(model).Where("profile_id = ?", profileID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}
	var count int64
	if err := db.Model(model).Where("profile_id = ?", profileID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(row).Error
}

func (r *userProfileRepo) SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (map[string]int64, error) {
	db := dbc.DB(r.db)
	affected := map[string]int64{}
	p, err := r.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return affected, nil
	}
	for _, m := range domainprofile.ChildModels() {
		res := db.Model(m).
			Where("profile_id = ?", p.ID).
			UpdateColumns(map[string]any{"deleted_at": at, "updated_at": at})
		if res.Error != nil {
			return nil, res.Error
		}
		affected[tableName(m)] = res.RowsAffected
	}
	res := db.Model(&types.UserProfile{}).
		Where("id = ?", p.ID).
		UpdateColumns(map[string]any{"deleted_at": at, "updated_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	affected[tableName(&types.UserProfile{})] = res.RowsAffected
	return affected, nil
}

func tableName(model any) string {
	if t, ok := model.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}
