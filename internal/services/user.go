package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	rediscache "github.com/yungbote/fitcoach-backend/internal/clients/redis"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// UserInfo is the payload of the user-info endpoint.
type UserInfo struct {
	User                *types.User   `json:"user"`
	OnboardingCompleted bool          `json:"onboarding_completed"`
	AccessControl       AccessControl `json:"access_control"`
}

type UserService interface {
	GetInfo(ctx context.Context, userID uuid.UUID) (*UserInfo, error)
	UpdateName(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*types.User, error)
	Delete(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
}

type userService struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	states repos.OnboardingStateRepo
	agg    domainagg.UserAggregate
	plans  rediscache.PlanCache
}

func NewUserService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	states repos.OnboardingStateRepo,
	agg domainagg.UserAggregate,
	plans rediscache.PlanCache,
) UserService {
	if plans == nil {
		plans = rediscache.NoopPlanCache{}
	}
	return &userService{
		db:     db,
		log:    baseLog.With("service", "UserService"),
		users:  users,
		states: states,
		agg:    agg,
		plans:  plans,
	}
}

func (s *userService) GetInfo(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if u == nil {
		return nil, apierr.UserNotFound(userID.String())
	}
	st, err := s.states.GetByUserID(dbc, userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	completed := st != nil && st.IsComplete
	var progress *ProgressResponse
	if st != nil && !completed {
		if progress, err = progressOf(st); err != nil {
			return nil, err
		}
	}
	return &UserInfo{
		User:                u,
		OnboardingCompleted: completed,
		AccessControl:       DeriveAccessControl(completed, progress),
	}, nil
}

func (s *userService) UpdateName(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*types.User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return nil, apierr.Validation("first_name", "first_name or last_name is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if u == nil {
		return nil, apierr.UserNotFound(userID.String())
	}
	if firstName == "" {
		firstName = u.FirstName
	}
	if lastName == "" {
		lastName = u.LastName
	}
	if err := s.users.UpdateName(dbc, userID, firstName, lastName); err != nil {
		return nil, toAPIError(err)
	}
	u.FirstName, u.LastName = firstName, lastName
	return u, nil
}

// Delete soft-deletes the user and everything it owns in one transaction.
func (s *userService) Delete(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	res, err := s.agg.SoftDelete(ctx, domainagg.SoftDeleteUserInput{UserID: userID, EventAt: time.Now().UTC()})
	if err != nil {
		return nil, toAPIError(err)
	}
	s.plans.Invalidate(ctx, userID)
	s.log.Info("user deleted", "user_id", userID, "affected", res.Affected)
	return res.Affected, nil
}
