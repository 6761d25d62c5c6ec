package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

type UserAggregateDeps struct {
	Base BaseDeps

	Users         repos.UserRepo
	States        repos.OnboardingStateRepo
	Profiles      repos.UserProfileRepo
	WorkoutPlans  repos.WorkoutPlanRepo
	Conversations repos.ConversationMessageRepo
}

type userAggregate struct {
	deps UserAggregateDeps
}

func NewUserAggregate(deps UserAggregateDeps) domainagg.UserAggregate {
	deps.Base = deps.Base.withDefaults()
	return &userAggregate{deps: deps}
}

func (a *userAggregate) Contract() domainagg.Contract {
	return domainagg.UserAggregateContract
}

// SoftDelete stamps deleted_at on the user and everything it owns. Profile
// versions stay behind for audit.
func (a *userAggregate) SoftDelete(ctx context.Context, in domainagg.SoftDeleteUserInput) (domainagg.SoftDeleteUserResult, error) {
	const op = "Users.User.SoftDelete"
	var out domainagg.SoftDeleteUserResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	d := a.deps
	if d.Users == nil || d.States == nil || d.Profiles == nil || d.WorkoutPlans == nil || d.Conversations == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "user aggregate repos not configured", nil)
	}
	at := eventTime(in.EventAt)
	affected := map[string]int64{}

	err := executeWrite(ctx, d.Base, op, func(dbc dbctx.Context) error {
		n, err := d.Users.SoftDelete(dbc, in.UserID, at)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierr.UserNotFound(in.UserID.String())
		}
		affected["user"] = n

		if n, err = d.States.SoftDeleteByUserID(dbc, in.UserID, at); err != nil {
			return err
		}
		affected[onboardingStateTable] = n

		profileRows, err := d.Profiles.SoftDeleteByUserID(dbc, in.UserID, at)
		if err != nil {
			return err
		}
		for k, v := range profileRows {
			affected[k] = v
		}
		planRows, err := d.WorkoutPlans.SoftDeleteByUserID(dbc, in.UserID, at)
		if err != nil {
			return err
		}
		for k, v := range planRows {
			affected[k] = v
		}

		if n, err = d.Conversations.SoftDeleteByUserID(dbc, in.UserID, at); err != nil {
			return err
		}
		affected["conversation_message"] = n
		return nil
	})
	if err != nil {
		return domainagg.SoftDeleteUserResult{}, err
	}
	out.UserID = in.UserID
	out.Affected = affected
	return out, nil
}
