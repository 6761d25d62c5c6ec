package onboarding

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type OnboardingStateRepo interface {
	Create(dbc dbctx.Context, st *types.OnboardingState) (*types.OnboardingState, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingState, error)
	// LockByUserID takes a row lock (FOR UPDATE) and requires dbc.Tx.
	LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingState, error)
	SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type onboardingStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOnboardingStateRepo(db *gorm.DB, baseLog *logger.Logger) OnboardingStateRepo {
	return &onboardingStateRepo{db: db, log: baseLog.With("repo", "OnboardingStateRepo")}
}

func (r *onboardingStateRepo) Create(dbc dbctx.Context, st *types.OnboardingState) (*types.OnboardingState, error) {
	if st == nil || st.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if err := dbc.DB(r.db).Create(st).Error; err != nil {
		return nil, err
	}
	return st, nil
}

func (r *onboardingStateRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingState, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out types.OnboardingState
	err := dbc.DB(r.db).Where("user_id = ?", userID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *onboardingStateRepo) LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingState, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByUserID requires dbc.Tx")
	}
	var out types.OnboardingState
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

func (r *onboardingStateRepo) SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.OnboardingState{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{"deleted_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}
