package orchestrator

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/fitcoach-backend/internal/agents"
	rediscache "github.com/yungbote/fitcoach-backend/internal/clients/redis"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/domain/profile"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const (
	textHistoryWindow  = 10
	voiceHistoryWindow = 5

	defaultFitnessLevel = onboarding.FitnessBeginner
	defaultGoal         = "general_fitness"
)

type LoadRequest struct {
	UserID         uuid.UUID
	OnboardingMode bool
	VoiceMode      bool
}

type LoaderDeps struct {
	Log           *logger.Logger
	Users         repos.UserRepo
	States        repos.OnboardingStateRepo
	Profiles      repos.UserProfileRepo
	WorkoutPlans  repos.WorkoutPlanRepo
	Conversations repos.ConversationMessageRepo
	Plans         rediscache.PlanCache
}

// ContextLoader assembles the per-turn UserContext. Independent reads run
// concurrently; plan blobs go through the plan cache.
type ContextLoader struct {
	deps LoaderDeps
	log  *logger.Logger
}

func NewContextLoader(deps LoaderDeps) *ContextLoader {
	if deps.Plans == nil {
		deps.Plans = rediscache.NoopPlanCache{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &ContextLoader{deps: deps, log: deps.Log.With("component", "ContextLoader")}
}

func (l *ContextLoader) Load(ctx context.Context, req LoadRequest) (agents.UserContext, error) {
	var (
		user     *types.User
		state    *types.OnboardingState
		prof     *types.UserProfile
		workout  map[string]any
		mealBlob []byte
		messages []*types.ConversationMessage
	)
	window := textHistoryWindow
	if req.VoiceMode {
		window = voiceHistoryWindow
	}

	g, gctx := errgroup.WithContext(ctx)
	dbc := func() dbctx.Context { return dbctx.Context{Ctx: gctx} }
	g.Go(func() error {
		var err error
		user, err = l.deps.Users.GetByID(dbc(), req.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		state, err = l.deps.States.GetByUserID(dbc(), req.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		prof, err = l.deps.Profiles.GetFullByUserID(dbc(), req.UserID)
		return err
	})
	if !req.OnboardingMode {
		g.Go(func() error {
			var err error
			workout, err = l.workoutPlan(gctx, req.UserID)
			return err
		})
		g.Go(func() error {
			if blob, ok := l.deps.Plans.Get(gctx, req.UserID, rediscache.PlanMeal); ok {
				mealBlob = blob
			}
			return nil
		})
		if l.deps.Conversations != nil {
			g.Go(func() error {
				var err error
				messages, err = l.deps.Conversations.ListRecent(dbc(), req.UserID, window)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return agents.UserContext{}, ctx.Err()
		}
		l.log.Error("load user context failed", "user_id", req.UserID, "error", err)
		return agents.UserContext{}, apierr.Storage(err)
	}
	if user == nil {
		return agents.UserContext{}, apierr.UserNotFound(req.UserID.String())
	}

	data := agents.UserContextData{
		UserID:         req.UserID,
		FirstName:      user.FirstName,
		OnboardingMode: req.OnboardingMode,
		WorkoutPlan:    workout,
	}
	if state != nil {
		data.OnboardingState = state.CurrentState
		if ctxs, err := state.Contexts(); err == nil {
			data.AgentContext = ctxs
		}
	}

	if req.OnboardingMode {
		fillFromOnboarding(&data, state, window)
		return agents.NewUserContext(data), nil
	}

	if prof == nil {
		return agents.UserContext{}, apierr.UserNotFound(req.UserID.String())
	}
	fillFromProfile(&data, prof)
	data.MealPlan = l.mealPlan(ctx, req.UserID, prof, mealBlob)
	data.History = historyFromMessages(messages)
	return agents.NewUserContext(data), nil
}

func (l *ContextLoader) workoutPlan(ctx context.Context, userID uuid.UUID) (map[string]any, error) {
	if blob, ok := l.deps.Plans.Get(ctx, userID, rediscache.PlanWorkout); ok {
		if m := decodeObject(blob); m != nil {
			return m, nil
		}
	}
	if l.deps.WorkoutPlans == nil {
		return nil, nil
	}
	plan, err := l.deps.WorkoutPlans.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil || plan == nil {
		return nil, err
	}
	m := decodeObject(plan.PlanData)
	if m != nil {
		l.deps.Plans.Set(ctx, userID, rediscache.PlanWorkout, plan.PlanData)
	}
	return m, nil
}

func (l *ContextLoader) mealPlan(ctx context.Context, userID uuid.UUID, prof *types.UserProfile, cached []byte) map[string]any {
	if m := decodeObject(cached); m != nil {
		return m
	}
	mp := prof.MealPlan
	if mp == nil {
		return nil
	}
	m := map[string]any{
		"daily_calorie_target": mp.DailyCalorieTarget,
		"protein_grams":        mp.ProteinGrams,
		"carbs_grams":          mp.CarbsGrams,
		"fats_grams":           mp.FatsGrams,
	}
	if details := decodeObject(mp.PlanData); details != nil {
		m["plan"] = details
	}
	if blob, err := json.Marshal(m); err == nil {
		l.deps.Plans.Set(ctx, userID, rediscache.PlanMeal, blob)
	}
	return m
}

func fillFromProfile(d *agents.UserContextData, p *types.UserProfile) {
	d.FitnessLevel = p.FitnessLevel
	snap := profile.NewSnapshot(p, p.UpdatedAt)
	for i, g := range snap.Goals {
		if i == 0 {
			d.PrimaryGoal = g.GoalType
			continue
		}
		d.SecondaryGoals = append(d.SecondaryGoals, g.GoalType)
	}
	for _, c := range snap.Constraints {
		if c.ConstraintType == profile.ConstraintInjury || c.ConstraintType == profile.ConstraintLimitation {
			d.Limitations = append(d.Limitations, c.Description)
		}
	}
	if p.LifestyleBaseline != nil {
		d.EnergyLevel = agents.EnergyBucket(p.LifestyleBaseline.EnergyLevel)
	}
}

// fillFromOnboarding reads what has been gathered so far. Missing steps fall
// back to beginner / general_fitness.
func fillFromOnboarding(d *agents.UserContextData, st *types.OnboardingState, window int) {
	d.FitnessLevel = defaultFitnessLevel
	d.PrimaryGoal = defaultGoal
	if st == nil {
		return
	}
	steps, err := st.Steps()
	if err == nil {
		if s1, err := onboarding.Decode[onboarding.Step1](steps[onboarding.StepKey(1)]); err == nil && s1.FitnessLevel != "" {
			d.FitnessLevel = s1.FitnessLevel
		}
		if s2, err := onboarding.Decode[onboarding.Step2](steps[onboarding.StepKey(2)]); err == nil {
			goals := orderedGoals(s2.Goals)
			if len(goals) > 0 {
				d.PrimaryGoal = goals[0].GoalType
				for _, g := range goals[1:] {
					d.SecondaryGoals = append(d.SecondaryGoals, g.GoalType)
				}
			}
		}
		if s3, err := onboarding.Decode[onboarding.Step3](steps[onboarding.StepKey(3)]); err == nil {
			d.Limitations = append(append(d.Limitations, s3.Injuries...), s3.Limitations...)
		}
	}
	if fa := d.AgentContext[onboarding.AgentFitnessAssessment]; fa != nil {
		if lvl, ok := fa["energy_level"].(float64); ok {
			d.EnergyLevel = agents.EnergyBucket(int(lvl))
		}
	}
	if conv, err := st.Conversation(); err == nil {
		if len(conv) > window {
			conv = conv[len(conv)-window:]
		}
		for _, e := range conv {
			d.History = append(d.History, llm.Message{Role: e.Role, Content: e.Content})
		}
	}
}

func orderedGoals(goals []onboarding.GoalInput) []onboarding.GoalInput {
	out := append([]onboarding.GoalInput(nil), goals...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func historyFromMessages(rows []*types.ConversationMessage) []llm.Message {
	out := make([]llm.Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func decodeObject(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil
	}
	return m
}
