package aggregates_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/fitcoach-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/fitcoach-backend/internal/data/repos"
	repotest "github.com/yungbote/fitcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	domainagg "github.com/yungbote/fitcoach-backend/internal/domain/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

type fixture struct {
	ctx  context.Context
	tx   *gorm.DB
	set  repos.Set
	base aggregates.BaseDeps
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	return fixture{
		ctx: context.Background(),
		tx:  tx,
		set: repos.NewSet(tx, repotest.Logger(t)),
		base: aggregates.BaseDeps{
			DB:     tx,
			Runner: aggregates.NewGormTxRunner(tx),
			Guard:  aggregates.NewStateGuard(tx),
		},
	}
}

func (f fixture) onboarding(base aggregates.BaseDeps) domainagg.OnboardingAggregate {
	return aggregates.NewOnboardingAggregate(aggregates.OnboardingAggregateDeps{
		Base:         base,
		States:       f.set.Onboarding,
		Profiles:     f.set.Profiles,
		Versions:     f.set.Versions,
		WorkoutPlans: f.set.WorkoutPlans,
		Exercises:    f.set.Exercises,
	})
}

func (f fixture) dbc() dbctx.Context { return dbctx.Context{Ctx: f.ctx, Tx: f.tx} }

func requireCode(t *testing.T, err error, code string) *apierr.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	e, ok := apierr.As(err)
	if !ok || e.Code != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
	return e
}

func TestOnboardingStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "start@example.com")

	first, err := agg.Start(f.ctx, domainagg.StartOnboardingInput{UserID: u.ID, AgentType: onboarding.AgentFitnessAssessment})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !first.Created || first.State.CurrentState != 0 {
		t.Fatalf("first start: created=%v state=%d", first.Created, first.State.CurrentState)
	}
	second, err := agg.Start(f.ctx, domainagg.StartOnboardingInput{UserID: u.ID})
	if err != nil {
		t.Fatalf("Start again: %v", err)
	}
	if second.Created || second.State.ID != first.State.ID {
		t.Fatalf("second start should return the existing row")
	}
}

func TestSaveStepAdvancesAndRecordsHistory(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "save@example.com")
	if _, err := agg.Start(f.ctx, domainagg.StartOnboardingInput{UserID: u.ID, AgentType: onboarding.AgentFitnessAssessment}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	payloads := repotest.StepPayloads()

	res, err := agg.SaveStep(f.ctx, domainagg.SaveStepInput{
		UserID:    u.ID,
		Step:      1,
		Payload:   payloads[1],
		AgentType: onboarding.AgentFitnessAssessment,
	})
	if err != nil {
		t.Fatalf("SaveStep 1: %v", err)
	}
	if !res.Advanced || res.CurrentState != 1 || res.NextState == nil || *res.NextState != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	again, err := agg.SaveStep(f.ctx, domainagg.SaveStepInput{
		UserID:  u.ID,
		Step:    1,
		Payload: json.RawMessage(`{"fitness_level":"advanced"}`),
	})
	if err != nil {
		t.Fatalf("SaveStep overwrite: %v", err)
	}
	if again.Advanced || again.CurrentState != 1 {
		t.Fatalf("overwrite should not advance: %+v", again)
	}
	if again.Version != res.Version+1 {
		t.Fatalf("version: want=%d got=%d", res.Version+1, again.Version)
	}

	st, err := f.set.Onboarding.GetByUserID(f.dbc(), u.ID)
	if err != nil || st == nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	steps, err := st.Steps()
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	s1, err := onboarding.Decode[onboarding.Step1](steps[onboarding.StepKey(1)])
	if err != nil {
		t.Fatalf("decode step 1: %v", err)
	}
	if s1.FitnessLevel != "advanced" {
		t.Fatalf("step 1 not overwritten: %q", s1.FitnessLevel)
	}
	hist, err := st.History()
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history len: want=2 got=%d", len(hist))
	}
	if hist[1].State != 1 || hist[1].PreviousState == nil || *hist[1].PreviousState != 0 {
		t.Fatalf("unexpected history entry: %+v", hist[1])
	}
	if st.CurrentAgent == nil || *st.CurrentAgent != onboarding.AgentFitnessAssessment {
		t.Fatalf("current_agent not recorded")
	}
}

func TestSaveStepRejectsInvalidPayloadWithoutWriting(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "invalid@example.com")
	seeded := repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 0)

	_, err := agg.SaveStep(f.ctx, domainagg.SaveStepInput{
		UserID:  u.ID,
		Step:    5,
		Payload: json.RawMessage(`{"daily_calorie_target":2500,"protein_percentage":40,"carbs_percentage":40,"fats_percentage":30}`),
	})
	requireCode(t, err, apierr.CodeValidation)

	st, err := f.set.Onboarding.GetByUserID(f.dbc(), u.ID)
	if err != nil || st == nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if st.CurrentState != 0 || st.Version != seeded.Version {
		t.Fatalf("state changed after rejected save: state=%d version=%d", st.CurrentState, st.Version)
	}
}

func TestSaveStepMissingStateAndCompleted(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)

	_, err := agg.SaveStep(f.ctx, domainagg.SaveStepInput{UserID: uuid.New(), Step: 1, Payload: repotest.StepPayloads()[1]})
	requireCode(t, err, apierr.CodeStateNotFound)

	u := repotest.SeedUser(t, f.ctx, f.tx, "done@example.com")
	st := repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 9)
	if err := f.tx.Model(st).Update("is_complete", true).Error; err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	_, err = agg.SaveStep(f.ctx, domainagg.SaveStepInput{UserID: u.ID, Step: 1, Payload: repotest.StepPayloads()[1]})
	requireCode(t, err, apierr.CodeAlreadyCompleted)
}

func TestRegressClearsLaterSteps(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "regress@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 8)

	res, err := agg.Regress(f.ctx, domainagg.RegressInput{UserID: u.ID, ToState: 6})
	if err != nil {
		t.Fatalf("Regress: %v", err)
	}
	if res.FromState != 8 || res.CurrentState != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.ClearedSteps) != 2 || res.ClearedSteps[0] != onboarding.StepKey(7) || res.ClearedSteps[1] != onboarding.StepKey(8) {
		t.Fatalf("cleared: %v", res.ClearedSteps)
	}

	// 6 -> 5 crosses from the scheduler's states into the diet agent's.
	_, err = agg.Regress(f.ctx, domainagg.RegressInput{UserID: u.ID, ToState: 5})
	requireCode(t, err, apierr.CodeValidation)

	_, err = agg.Regress(f.ctx, domainagg.RegressInput{UserID: u.ID, ToState: 6})
	requireCode(t, err, apierr.CodeValidation)
}

func TestMergeAgentContextCanonicalizesPlanKey(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "ctx@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 2)

	if _, err := agg.MergeAgentContext(f.ctx, domainagg.MergeAgentContextInput{
		UserID: u.ID,
		Bucket: onboarding.AgentWorkoutPlanning,
		Data:   map[string]any{"proposed_plan": map[string]any{"name": "Upper/Lower"}},
	}); err != nil {
		t.Fatalf("MergeAgentContext: %v", err)
	}
	res, err := agg.MergeAgentContext(f.ctx, domainagg.MergeAgentContextInput{
		UserID: u.ID,
		Bucket: onboarding.AgentWorkoutPlanning,
		Data:   map[string]any{"approved": true},
	})
	if err != nil {
		t.Fatalf("MergeAgentContext second: %v", err)
	}
	if _, ok := res.Bucket["proposed_plan"]; ok {
		t.Fatalf("proposed_plan should be stored under plan")
	}
	if res.Bucket["plan"] == nil || res.Bucket["approved"] != true {
		t.Fatalf("unexpected bucket: %v", res.Bucket)
	}
}

func TestAppendConversationStampsTimestamps(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "conv@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 0)

	err := agg.AppendConversation(f.ctx, domainagg.AppendConversationInput{
		UserID: u.ID,
		Entries: []types.ConversationEntry{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello", AgentType: onboarding.AgentFitnessAssessment},
		},
	})
	if err != nil {
		t.Fatalf("AppendConversation: %v", err)
	}
	st, err := f.set.Onboarding.GetByUserID(f.dbc(), u.ID)
	if err != nil || st == nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	conv, err := st.Conversation()
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(conv) != 2 || conv[0].Timestamp.IsZero() || conv[1].Role != "assistant" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
}

func TestCompleteMaterializesLockedProfile(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "complete@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 9)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID, EventAt: at})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.VersionNumber != 1 {
		t.Fatalf("version: want=1 got=%d", res.VersionNumber)
	}
	p := res.Profile
	if p == nil || !p.IsLocked || p.FitnessLevel != "intermediate" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.Goals) != 2 || p.Goals[0].Priority != 1 {
		t.Fatalf("goals: %+v", p.Goals)
	}
	if p.MealPlan == nil || p.MealPlan.ProteinGrams != 187.5 || p.MealPlan.FatsGrams != 69.44 {
		t.Fatalf("meal plan: %+v", p.MealPlan)
	}
	if len(p.MealSchedules) != 2 || p.MealSchedules[0].ScheduledTime != "07:30:00" {
		t.Fatalf("meal schedules: %+v", p.MealSchedules)
	}
	if len(p.WorkoutSchedules) != 2 || p.WorkoutSchedules[0].DayOfWeek != 0 {
		t.Fatalf("workout schedules: %+v", p.WorkoutSchedules)
	}
	if p.HydrationPreference == nil || p.HydrationPreference.DailyWaterTargetML != 2500 {
		t.Fatalf("hydration: %+v", p.HydrationPreference)
	}

	st, err := f.set.Onboarding.GetByUserID(f.dbc(), u.ID)
	if err != nil || st == nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if !st.IsComplete || st.CurrentState != onboarding.TotalStates {
		t.Fatalf("state not completed: complete=%v state=%d", st.IsComplete, st.CurrentState)
	}
	v, err := f.set.Versions.GetByNumber(f.dbc(), p.ID, 1)
	if err != nil || v == nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if v.ChangeReason != aggregates.InitialVersionReason {
		t.Fatalf("change reason: %q", v.ChangeReason)
	}

	_, err = agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID})
	requireCode(t, err, apierr.CodeAlreadyCompleted)
}

func TestCompleteReportsMissingSteps(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "partial@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 5)

	_, err := agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID})
	e := requireCode(t, err, apierr.CodeOnboardingIncomplete)
	want := []string{"step_6", "step_7", "step_8", "step_9"}
	if len(e.Missing) != len(want) {
		t.Fatalf("missing: want=%v got=%v", want, e.Missing)
	}
	for i := range want {
		if e.Missing[i] != onboarding.StepKey(i+6) {
			t.Fatalf("missing[%d]: want=%s got=%s", i, onboarding.StepKey(i+6), e.Missing[i])
		}
	}
	exists, err := f.set.Profiles.ExistsForUser(f.dbc(), u.ID)
	if err != nil || exists {
		t.Fatalf("profile should not exist: exists=%v err=%v", exists, err)
	}
}

func TestCompleteConflictsWithExistingProfile(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "twice@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 9)
	repotest.SeedProfile(t, f.ctx, f.tx, u.ID)

	_, err := agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID})
	requireCode(t, err, apierr.CodeMaterializationConflict)
}

func TestCompleteReportsStaleStateAsConflict(t *testing.T) {
	f := newFixture(t)
	agg := f.onboarding(f.base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "stale@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 9)

	// Another writer moves the state version after Complete has read it.
	err := f.tx.Callback().Create().Before("gorm:create").Register("test:bump_state_version", func(tx *gorm.DB) {
		if tx.Statement.Table != "profile_version" {
			return
		}
		if err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE onboarding_state SET version = version + 1 WHERE user_id = ?", u.ID).Error; err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID})
	requireCode(t, err, apierr.CodeConflict)
	exists, err := f.set.Profiles.ExistsForUser(f.dbc(), u.ID)
	if err != nil || exists {
		t.Fatalf("profile should not exist: exists=%v err=%v", exists, err)
	}
	st, err := f.set.Onboarding.GetByUserID(f.dbc(), u.ID)
	if err != nil || st == nil || st.IsComplete {
		t.Fatalf("state must stay incomplete: st=%+v err=%v", st, err)
	}
}

func TestCompleteRetriesRetryableFailureOnce(t *testing.T) {
	f := newFixture(t)
	runner := &aggtest.FlakyRunner{
		DB:             f.tx,
		CommitErr:      aggregates.RetryableError("database is locked"),
		CommitFailures: 1,
	}
	hooks := &aggtest.HooksRecorder{}
	base := f.base
	base.Runner = runner
	base.Hooks = hooks
	agg := f.onboarding(base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "retry@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 9)

	res, err := agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.VersionNumber != 1 {
		t.Fatalf("version after retry: want=1 got=%d", res.VersionNumber)
	}
	if attempts, commits, rollbacks := runner.Calls(); attempts != 2 || commits != 1 || rollbacks != 1 {
		t.Fatalf("runner calls: attempts=%d commits=%d rollbacks=%d", attempts, commits, rollbacks)
	}
	if got := hooks.Statuses("Onboarding.State.Complete"); len(got) != 2 || got[0] != "retryable" || got[1] != "success" {
		t.Fatalf("hook statuses: %v", got)
	}
	if hooks.Retries("Onboarding.State.Complete") != 1 {
		t.Fatalf("retry hook: want=1 got=%d", hooks.Retries("Onboarding.State.Complete"))
	}
	versions, err := f.set.Versions.ListByProfileID(f.dbc(), res.Profile.ID)
	if err != nil {
		t.Fatalf("ListByProfileID: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("rolled back attempt left rows behind: %d versions", len(versions))
	}
}

func TestCompleteSurfacesStorageErrorAfterRetries(t *testing.T) {
	f := newFixture(t)
	base := f.base
	base.Runner = &aggtest.FlakyRunner{DB: f.tx, CommitErr: aggregates.RetryableError("database is locked")}
	agg := f.onboarding(base)
	u := repotest.SeedUser(t, f.ctx, f.tx, "storage@example.com")
	repotest.SeedOnboarding(t, f.ctx, f.tx, u.ID, 9)

	_, err := agg.Complete(f.ctx, domainagg.CompleteOnboardingInput{UserID: u.ID})
	requireCode(t, err, apierr.CodeStorage)
	exists, err := f.set.Profiles.ExistsForUser(f.dbc(), u.ID)
	if err != nil || exists {
		t.Fatalf("profile should not exist: exists=%v err=%v", exists, err)
	}
}
