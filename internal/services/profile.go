package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	rediscache "github.com/yungbote/fitcoach-backend/internal/clients/redis"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	Update(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.UserProfile, error)
	Lock(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	Unlock(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	ListVersions(ctx context.Context, userID uuid.UUID) ([]*types.ProfileVersion, error)
	GetVersion(ctx context.Context, userID uuid.UUID, number int) (*types.ProfileVersion, error)
}

type profileService struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles repos.UserProfileRepo
	versions repos.ProfileVersionRepo
	agg      domainagg.ProfileAggregate
	plans    rediscache.PlanCache
}

func NewProfileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.UserProfileRepo,
	versions repos.ProfileVersionRepo,
	agg domainagg.ProfileAggregate,
	plans rediscache.PlanCache,
) ProfileService {
	if plans == nil {
		plans = rediscache.NoopPlanCache{}
	}
	return &profileService{
		db:       db,
		log:      baseLog.With("service", "ProfileService"),
		profiles: profiles,
		versions: versions,
		agg:      agg,
		plans:    plans,
	}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	p, err := s.profiles.GetFullByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if p == nil {
		return nil, apierr.UserNotFound(userID.String())
	}
	return p, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, update types.ProfileUpdate) (*types.UserProfile, error) {
	m := observability.Current()
	res, err := s.agg.Update(ctx, domainagg.UpdateProfileInput{UserID: userID, Update: update, EventAt: time.Now().UTC()})
	if err != nil {
		err = toAPIError(err)
		m.IncProfileMutation(apierr.CodeOf(err))
		return nil, err
	}
	m.IncProfileMutation("applied")
	s.plans.Invalidate(ctx, userID)
	s.log.Info("profile updated",
		"user_id", userID,
		"version", res.VersionNumber,
		"unlocked", res.Unlocked,
		"reason", update.Reason(),
	)
	return s.Get(ctx, userID)
}

func (s *profileService) Lock(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	return s.setLock(ctx, userID, true)
}

func (s *profileService) Unlock(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	return s.setLock(ctx, userID, false)
}

func (s *profileService) setLock(ctx context.Context, userID uuid.UUID, locked bool) (*types.UserProfile, error) {
	res, err := s.agg.SetLock(ctx, domainagg.SetLockInput{UserID: userID, Locked: locked})
	if err != nil {
		return nil, toAPIError(err)
	}
	if res.Changed {
		s.log.Info("profile lock changed", "user_id", userID, "locked", locked)
	}
	return s.Get(ctx, userID)
}

func (s *profileService) ListVersions(ctx context.Context, userID uuid.UUID) ([]*types.ProfileVersion, error) {
	p, err := s.root(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, err := s.versions.ListByProfileID(dbctx.Context{Ctx: ctx}, p.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return out, nil
}

func (s *profileService) GetVersion(ctx context.Context, userID uuid.UUID, number int) (*types.ProfileVersion, error) {
	if number < 1 {
		return nil, apierr.Validation("version_number", "version_number must be at least 1")
	}
	p, err := s.root(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, err := s.versions.GetByNumber(dbctx.Context{Ctx: ctx}, p.ID, number)
	if err != nil {
		return nil, toAPIError(err)
	}
	if v == nil {
		return nil, apierr.NotFound("profile version")
	}
	return v, nil
}

func (s *profileService) root(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	p, err := s.profiles.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if p == nil {
		return nil, apierr.UserNotFound(userID.String())
	}
	return p, nil
}
