package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

type OnboardingAggregateDeps struct {
	Base BaseDeps

	States       repos.OnboardingStateRepo
	Profiles     repos.UserProfileRepo
	Versions     repos.ProfileVersionRepo
	WorkoutPlans repos.WorkoutPlanRepo
	Exercises    repos.ExerciseLibraryRepo
}

type onboardingAggregate struct {
	deps OnboardingAggregateDeps
}

func NewOnboardingAggregate(deps OnboardingAggregateDeps) domainagg.OnboardingAggregate {
	deps.Base = deps.Base.withDefaults()
	return &onboardingAggregate{deps: deps}
}

func (a *onboardingAggregate) Contract() domainagg.Contract {
	return domainagg.OnboardingAggregateContract
}

func (a *onboardingAggregate) configured(op string) error {
	d := a.deps
	if d.States == nil || d.Profiles == nil || d.Versions == nil || d.WorkoutPlans == nil || d.Exercises == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "onboarding aggregate repos not configured", nil)
	}
	return nil
}

func (a *onboardingAggregate) Start(ctx context.Context, in domainagg.StartOnboardingInput) (domainagg.StartOnboardingResult, error) {
	const op = "Onboarding.State.Start"
	var out domainagg.StartOnboardingResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if err := a.configured(op); err != nil {
		return out, err
	}
	at := eventTime(in.EventAt)
	agent := strings.TrimSpace(in.AgentType)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.deps.States.GetByUserID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			out.State = existing
			return nil
		}
		st := &types.OnboardingState{UserID: in.UserID}
		if agent != "" {
			st.CurrentAgent = &agent
			if err := st.AppendHistory(types.HistoryEntry{State: 0, Agent: agent, Timestamp: at}); err != nil {
				return err
			}
		}
		created, err := a.deps.States.Create(dbc, st)
		if err != nil {
			return err
		}
		out.State = created
		out.Created = true
		return nil
	})
	return out, err
}

func (a *onboardingAggregate) SaveStep(ctx context.Context, in domainagg.SaveStepInput) (domainagg.SaveStepResult, error) {
	const op = "Onboarding.State.SaveStep"
	var out domainagg.SaveStepResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if err := a.configured(op); err != nil {
		return out, err
	}
	at := eventTime(in.EventAt)
	agent := strings.TrimSpace(in.AgentType)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		st, err := a.lockState(dbc, in.UserID)
		if err != nil {
			return err
		}
		if st.IsComplete {
			return apierr.AlreadyCompleted()
		}
		normalized, err := onboarding.ValidateStep(in.Step, in.Payload)
		if err != nil {
			return err
		}
		steps, err := st.Steps()
		if err != nil {
			return err
		}
		steps[onboarding.StepKey(in.Step)] = normalized
		if err := st.SetSteps(steps); err != nil {
			return err
		}

		updates := map[string]any{
			"step_data":  st.StepData,
			"updated_at": at,
		}
		current := st.CurrentState
		if in.Step > current {
			updates["current_state"] = in.Step
			if agent != "" {
				prev := current
				if err := st.AppendHistory(types.HistoryEntry{State: in.Step, Agent: agent, PreviousState: &prev, Timestamp: at}); err != nil {
					return err
				}
				updates["agent_history"] = st.AgentHistory
				updates["current_agent"] = agent
			}
			current = in.Step
			out.Advanced = true
		}
		if err := a.deps.Base.Guard.Advance(dbc, st, updates); err != nil {
			return err
		}
		out.CurrentState = current
		out.Version = st.Version
		if current < onboarding.TotalStates {
			next := current + 1
			out.NextState = &next
		}
		return nil
	})
	return out, err
}

func (a *onboardingAggregate) Regress(ctx context.Context, in domainagg.RegressInput) (domainagg.RegressResult, error) {
	const op = "Onboarding.State.Regress"
	var out domainagg.RegressResult
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if err := a.configured(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		st, err := a.lockState(dbc, in.UserID)
		if err != nil {
			return err
		}
		if st.IsComplete {
			return apierr.AlreadyCompleted()
		}
		if in.ToState < 1 || in.ToState >= st.CurrentState {
			return apierr.Validation("to_state", "to_state must be between 1 and %d", st.CurrentState-1)
		}
		fromAgent, _ := onboarding.AgentForState(st.CurrentState)
		toAgent, _ := onboarding.AgentForState(in.ToState)
		if fromAgent != toAgent {
			return apierr.Validation("to_state", "cannot regress from the %s agent's states into the %s agent's states", fromAgent, toAgent)
		}

		steps, err := st.Steps()
		if err != nil {
			return err
		}
		var cleared []string
		for n := in.ToState + 1; n <= onboarding.TotalStates; n++ {
			key := onboarding.StepKey(n)
			if _, ok := steps[key]; ok {
				delete(steps, key)
				cleared = append(cleared, key)
			}
		}
		if err := st.SetSteps(steps); err != nil {
			return err
		}
		if err := a.deps.Base.Guard.Advance(dbc, st, map[string]any{
			"step_data":     st.StepData,
			"current_state": in.ToState,
			"updated_at":    time.Now().UTC(),
		}); err != nil {
			return err
		}
		out.FromState = st.CurrentState
		out.CurrentState = in.ToState
		out.ClearedSteps = cleared
		return nil
	})
	return out, err
}

func (a *onboardingAggregate) MergeAgentContext(ctx context.Context, in domainagg.MergeAgentContextInput) (domainagg.MergeAgentContextResult, error) {
	const op = "Onboarding.State.MergeAgentContext"
	var out domainagg.MergeAgentContextResult
	bucket := strings.TrimSpace(in.Bucket)
	if in.UserID == uuid.Nil {
		return out, apierr.Validation("user_id", "user_id is required")
	}
	if bucket == "" {
		return out, apierr.Validation("bucket", "bucket is required")
	}
	if err := a.configured(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		st, err := a.lockState(dbc, in.UserID)
		if err != nil {
			return err
		}
		ctxs, err := st.Contexts()
		if err != nil {
			return err
		}
		merged := ctxs[bucket]
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range in.Data {
			merged[k] = v
		}
		canonicalizePlanKey(merged)
		ctxs[bucket] = merged
		if err := st.SetContexts(ctxs); err != nil {
			return err
		}
		if err := a.deps.Base.Guard.Advance(dbc, st, map[string]any{
			"agent_context": st.AgentContext,
			"updated_at":    time.Now().UTC(),
		}); err != nil {
			return err
		}
		out.Bucket = merged
		return nil
	})
	return out, err
}

func (a *onboardingAggregate) AppendConversation(ctx context.Context, in domainagg.AppendConversationInput) error {
	const op = "Onboarding.State.AppendConversation"
	if in.UserID == uuid.Nil {
		return apierr.Validation("user_id", "user_id is required")
	}
	if len(in.Entries) == 0 {
		return nil
	}
	if err := a.configured(op); err != nil {
		return err
	}
	now := time.Now().UTC()
	entries := make([]types.ConversationEntry, 0, len(in.Entries))
	for _, e := range in.Entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		entries = append(entries, e)
	}

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		st, err := a.lockState(dbc, in.UserID)
		if err != nil {
			return err
		}
		if err := st.AppendConversation(entries...); err != nil {
			return err
		}
		return a.deps.Base.Guard.Advance(dbc, st, map[string]any{
			"conversation_history": st.ConversationHistory,
			"updated_at":           now,
		})
	})
}

func (a *onboardingAggregate) lockState(dbc dbctx.Context, userID uuid.UUID) (*types.OnboardingState, error) {
	st, err := a.deps.States.LockByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, apierr.StateNotFound(userID.String())
	}
	return st, nil
}

// canonicalizePlanKey stores a proposed plan under "plan". Both keys are
// accepted on read.
func canonicalizePlanKey(bucket map[string]any) {
	proposed, ok := bucket["proposed_plan"]
	if !ok {
		return
	}
	if _, has := bucket["plan"]; !has {
		bucket["plan"] = proposed
	}
	delete(bucket, "proposed_plan")
}

func eventTime(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}
