package profile

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// ProfileVersionRepo is insert-and-read only. The model's hooks refuse
// updates and deletes.
type ProfileVersionRepo interface {
	Create(dbc dbctx.Context, v *types.ProfileVersion) (*types.ProfileVersion, error)
	MaxVersion(dbc dbctx.Context, profileID uuid.UUID) (int, error)
	ListByProfileID(dbc dbctx.Context, profileID uuid.UUID) ([]*types.ProfileVersion, error)
	GetByNumber(dbc dbctx.Context, profileID uuid.UUID, number int) (*types.ProfileVersion, error)
}

type profileVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileVersionRepo(db *gorm.DB, baseLog *logger.Logger) ProfileVersionRepo {
	return &profileVersionRepo{db: db, log: baseLog.With("repo", "ProfileVersionRepo")}
}

func (r *profileVersionRepo) Create(dbc dbctx.Context, v *types.ProfileVersion) (*types.ProfileVersion, error) {
	if v == nil || v.ProfileID == uuid.Nil {
		return nil, fmt.Errorf("missing profile_id")
	}
	if v.VersionNumber < 1 {
		return nil, fmt.Errorf("version_number must be >= 1")
	}
	if err := dbc.DB(r.db).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *profileVersionRepo) MaxVersion(dbc dbctx.Context, profileID uuid.UUID) (int, error) {
	var max int
	if err := dbc.DB(r.db).
		Model(&types.ProfileVersion{}).
		Unscoped().
		Where("profile_id = ?", profileID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *profileVersionRepo) ListByProfileID(dbc dbctx.Context, profileID uuid.UUID) ([]*types.ProfileVersion, error) {
	var out []*types.ProfileVersion
	if err := dbc.DB(r.db).
		Where("profile_id = ?", profileID).
		Order("version_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileVersionRepo) GetByNumber(dbc dbctx.Context, profileID uuid.UUID, number int) (*types.ProfileVersion, error) {
	var out types.ProfileVersion
	err := dbc.DB(r.db).
		Where("profile_id = ? AND version_number = ?", profileID, number).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
