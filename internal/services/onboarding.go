package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

// saveStepAttempts bounds optimistic retries of a step save that lost its CAS.
const saveStepAttempts = 3

type SaveStepResponse struct {
	CurrentState int  `json:"current_state"`
	NextState    *int `json:"next_state"`
}

type StateInfo struct {
	Agent       string `json:"agent"`
	Description string `json:"description"`
}

type ProgressResponse struct {
	CurrentState         int       `json:"current_state"`
	TotalStates          int       `json:"total_states"`
	CompletionPercentage int       `json:"completion_percentage"`
	CompletedStates      []int     `json:"completed_states"`
	CanComplete          bool      `json:"can_complete"`
	CurrentStateInfo     StateInfo `json:"current_state_info"`
}

type OnboardingService interface {
	Start(ctx context.Context, userID uuid.UUID, agentType string) (*types.OnboardingState, error)
	GetState(ctx context.Context, userID uuid.UUID) (*types.OnboardingState, error)
	SaveStep(ctx context.Context, userID uuid.UUID, step int, payload json.RawMessage, agentType string) (*SaveStepResponse, error)
	GetProgress(ctx context.Context, userID uuid.UUID) (*ProgressResponse, error)
	Complete(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	Regress(ctx context.Context, userID uuid.UUID, toState int) (*types.OnboardingState, error)
	SaveAgentContext(ctx context.Context, userID uuid.UUID, bucket string, data map[string]any) (map[string]any, error)
	AppendConversation(ctx context.Context, userID uuid.UUID, entries ...types.ConversationEntry) error
	Verify(ctx context.Context, userID uuid.UUID) (VerifyResult, error)
	IsComplete(ctx context.Context, userID uuid.UUID) (bool, error)
}

type onboardingService struct {
	db     *gorm.DB
	log    *logger.Logger
	states repos.OnboardingStateRepo
	agg    domainagg.OnboardingAggregate
}

func NewOnboardingService(db *gorm.DB, baseLog *logger.Logger, states repos.OnboardingStateRepo, agg domainagg.OnboardingAggregate) OnboardingService {
	return &onboardingService{
		db:     db,
		log:    baseLog.With("service", "OnboardingService"),
		states: states,
		agg:    agg,
	}
}

func (s *onboardingService) Start(ctx context.Context, userID uuid.UUID, agentType string) (*types.OnboardingState, error) {
	res, err := s.agg.Start(ctx, domainagg.StartOnboardingInput{UserID: userID, AgentType: agentType})
	if err != nil {
		// A concurrent Start won the unique user_id; hand back its row.
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			return s.GetState(ctx, userID)
		}
		return nil, toAPIError(err)
	}
	if res.Created {
		s.log.Info("onboarding started", "user_id", userID, "agent_type", agentType)
	}
	return res.State, nil
}

func (s *onboardingService) GetState(ctx context.Context, userID uuid.UUID) (*types.OnboardingState, error) {
	st, err := s.states.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if st == nil {
		return nil, apierr.StateNotFound(userID.String())
	}
	return st, nil
}

func (s *onboardingService) SaveStep(ctx context.Context, userID uuid.UUID, step int, payload json.RawMessage, agentType string) (*SaveStepResponse, error) {
	m := observability.Current()
	in := domainagg.SaveStepInput{UserID: userID, Step: step, Payload: payload, AgentType: agentType, EventAt: time.Now().UTC()}
	var (
		res domainagg.SaveStepResult
		err error
	)
	for attempt := 1; attempt <= saveStepAttempts; attempt++ {
		res, err = s.agg.SaveStep(ctx, in)
		if err == nil || !lostStepRace(err) || ctx.Err() != nil {
			break
		}
		s.log.Warn("step save lost version race", "user_id", userID, "step", step, "attempt", attempt, "reason", string(domainagg.CodeOf(err)))
	}
	if err != nil {
		outcome := apierr.CodeOf(toAPIError(err))
		m.IncOnboardingStep(step, outcome)
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			return nil, apierr.Conflict("onboarding state is being updated concurrently", err)
		}
		return nil, toAPIError(err)
	}
	m.IncOnboardingStep(step, "saved")
	if res.Advanced {
		s.log.Info("onboarding advanced", "user_id", userID, "state", res.CurrentState, "agent_type", agentType)
	}
	return &SaveStepResponse{CurrentState: res.CurrentState, NextState: res.NextState}, nil
}

func (s *onboardingService) GetProgress(ctx context.Context, userID uuid.UUID) (*ProgressResponse, error) {
	st, err := s.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progressOf(st)
}

func progressOf(st *types.OnboardingState) (*ProgressResponse, error) {
	completed, err := st.CompletedSteps()
	if err != nil {
		return nil, apierr.Unexpected(err)
	}
	agent, _ := onboarding.AgentForState(st.CurrentState)
	return &ProgressResponse{
		CurrentState:         st.CurrentState,
		TotalStates:          onboarding.TotalStates,
		CompletionPercentage: st.CurrentState * 100 / onboarding.TotalStates,
		CompletedStates:      completed,
		CanComplete:          !st.IsComplete && len(completed) == onboarding.TotalStates,
		CurrentStateInfo: StateInfo{
			Agent:       agent,
			Description: onboarding.DescribeState(st.CurrentState),
		},
	}, nil
}

// lostStepRace reports a save that lost to another writer: a version CAS
// miss, or sqlite refusing to upgrade a stale read snapshot.
func lostStepRace(err error) bool {
	return domainagg.IsCode(err, domainagg.CodeConflict) || domainagg.IsCode(err, domainagg.CodeRetryable)
}

func (s *onboardingService) Complete(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	m := observability.Current()
	res, err := s.agg.Complete(ctx, domainagg.CompleteOnboardingInput{UserID: userID, EventAt: time.Now().UTC()})
	if err != nil {
		err = toAPIError(err)
		code := apierr.CodeOf(err)
		m.IncOnboardingCompletion(code)
		switch code {
		case apierr.CodeStorage, apierr.CodeMaterializationConflict:
			m.IncMaterialization(code)
			s.log.Error("profile materialization failed", "user_id", userID, "error", err)
		case apierr.CodeConflict:
			s.log.Warn("onboarding state changed during completion", "user_id", userID)
		}
		return nil, err
	}
	m.IncOnboardingCompletion("completed")
	m.IncMaterialization("success")
	s.log.Info("onboarding completed", "user_id", userID, "profile_id", res.Profile.ID, "version", res.VersionNumber)
	return res.Profile, nil
}

func (s *onboardingService) Regress(ctx context.Context, userID uuid.UUID, toState int) (*types.OnboardingState, error) {
	res, err := s.agg.Regress(ctx, domainagg.RegressInput{UserID: userID, ToState: toState})
	if err != nil {
		return nil, toAPIError(err)
	}
	s.log.Info("onboarding regressed", "user_id", userID, "from", res.FromState, "to", res.CurrentState, "cleared", res.ClearedSteps)
	return s.GetState(ctx, userID)
}

func (s *onboardingService) SaveAgentContext(ctx context.Context, userID uuid.UUID, bucket string, data map[string]any) (map[string]any, error) {
	res, err := s.agg.MergeAgentContext(ctx, domainagg.MergeAgentContextInput{UserID: userID, Bucket: bucket, Data: data})
	if err != nil {
		return nil, toAPIError(err)
	}
	return res.Bucket, nil
}

func (s *onboardingService) AppendConversation(ctx context.Context, userID uuid.UUID, entries ...types.ConversationEntry) error {
	return toAPIError(s.agg.AppendConversation(ctx, domainagg.AppendConversationInput{UserID: userID, Entries: entries}))
}

func (s *onboardingService) Verify(ctx context.Context, userID uuid.UUID) (VerifyResult, error) {
	st, err := s.GetState(ctx, userID)
	if err != nil {
		return VerifyResult{}, err
	}
	ctxs, err := st.Contexts()
	if err != nil {
		return VerifyResult{}, apierr.Unexpected(err)
	}
	return VerifyAgentContext(ctxs), nil
}

// IsComplete reports false, not StateNotFound, for users who never started.
func (s *onboardingService) IsComplete(ctx context.Context, userID uuid.UUID) (bool, error) {
	st, err := s.states.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return false, toAPIError(err)
	}
	return st != nil && st.IsComplete, nil
}
