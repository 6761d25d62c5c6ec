package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm/mock"
)

func TestFitnessAssessmentSavesStepAndBucket(t *testing.T) {
	client := mock.New(
		mock.Call("c1", "save_fitness_assessment", `{"fitness_level":"Intermediate","experience_details":"lifting 2 years","energy_level":7}`),
		mock.Text("Great, you're intermediate."),
	)
	store := newFakeOnboarding()
	a, err := newTestFactory(t, client, store, nil).New(AgentFitnessAssessment)
	require.NoError(t, err)

	resp, err := a.ProcessText(context.Background(), Query{Text: "I lift a bit", User: testUser(true)})
	require.NoError(t, err)
	assert.Equal(t, "Great, you're intermediate.", resp.Content)
	assert.Equal(t, AgentFitnessAssessment, resp.AgentType)
	assert.Equal(t, []string{"save_fitness_assessment"}, resp.ToolsUsed)

	calls := store.stepCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Step)
	assert.Equal(t, "workout", calls[0].Agent)
	assert.JSONEq(t, `{"fitness_level":"intermediate"}`, string(calls[0].Payload))
	assert.Equal(t, "lifting 2 years", store.ctxs[AgentFitnessAssessment]["experience_details"])
	assert.Equal(t, 7.0, store.ctxs[AgentFitnessAssessment]["energy_level"])

	res := toolResult(t, client, "c1")
	assert.True(t, res.Success)

	reqs := client.Requests()
	require.Len(t, reqs, 2)
	assert.NotEmpty(t, reqs[0].Tools)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
}

func TestRejectedStepLeavesAgentContextUntouched(t *testing.T) {
	cases := []struct {
		name  string
		tool  string
		args  string
		field string
	}{
		{"meal time", "save_meal_schedule", `{"meals":[{"meal_name":"Lunch","scheduled_time":"25:00"}]}`, "meals[0].scheduled_time"},
		{"duplicate day", "save_workout_schedule", `{"workouts":[{"day_of_week":2,"scheduled_time":"06:00"},{"day_of_week":2,"scheduled_time":"07:00"}]}`, "workouts[1].day_of_week"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := mock.New(mock.Call("c1", tc.tool, tc.args), mock.Text("Let's fix that."))
			store := newFakeOnboarding()
			a, err := newTestFactory(t, client, store, nil).New(AgentScheduling)
			require.NoError(t, err)

			_, err = a.ProcessText(context.Background(), Query{Text: "here is my schedule", User: testUser(true)})
			require.NoError(t, err)

			res := toolResult(t, client, "c1")
			assert.False(t, res.Success)
			assert.Equal(t, apierr.CodeValidation, res.ErrorCode)
			assert.Equal(t, tc.field, res.Field)
			assert.Empty(t, store.stepCalls())
			assert.Nil(t, store.ctxs[AgentScheduling], "agent context written for a rejected step")
		})
	}
}

func TestInvalidToolArgsReachTheModel(t *testing.T) {
	client := mock.New(
		mock.Call("c1", "save_hydration_preferences", `{"target_ml":900,"frequency_hours":2}`),
		mock.Text("That target is too low."),
	)
	store := newFakeOnboarding()
	a, err := newTestFactory(t, client, store, nil).New(AgentScheduling)
	require.NoError(t, err)

	_, err = a.ProcessText(context.Background(), Query{Text: "900ml please", User: testUser(true)})
	require.NoError(t, err)

	res := toolResult(t, client, "c1")
	assert.False(t, res.Success)
	assert.Equal(t, apierr.CodeValidation, res.ErrorCode)
	assert.Equal(t, "target_ml", res.Field)
	assert.Empty(t, store.stepCalls())
}

func TestUnknownToolAndBadJSON(t *testing.T) {
	client := mock.New(
		mock.Step{Completion: llm.Completion{ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "drop_tables", Arguments: `{}`},
			{ID: "c2", Name: "save_fitness_goals", Arguments: `{"primary_goal":`},
		}}},
		mock.Text("Sorry."),
	)
	a, err := newTestFactory(t, client, newFakeOnboarding(), nil).New(AgentGoalSetting)
	require.NoError(t, err)

	resp, err := a.ProcessText(context.Background(), Query{Text: "x", User: testUser(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"drop_tables", "save_fitness_goals"}, resp.ToolsUsed)
	assert.Equal(t, "tool", toolResult(t, client, "c1").Field)
	assert.Equal(t, "arguments", toolResult(t, client, "c2").Field)
}

func TestToolLoopStopsAfterMaxRounds(t *testing.T) {
	var steps []mock.Step
	for i := 0; i < MaxToolRounds+2; i++ {
		steps = append(steps, mock.Call("c", "save_fitness_goals", `{"primary_goal":"strength"}`))
	}
	client := mock.New(steps...)
	a, err := newTestFactory(t, client, newFakeOnboarding(), nil).New(AgentGoalSetting)
	require.NoError(t, err)

	resp, err := a.ProcessText(context.Background(), Query{Text: "loop", User: testUser(true)})
	require.NoError(t, err)
	assert.Len(t, resp.ToolsUsed, MaxToolRounds)

	reqs := client.Requests()
	require.Len(t, reqs, MaxToolRounds+1)
	assert.Nil(t, reqs[MaxToolRounds].Tools)
	assert.Equal(t, MaxToolRounds, resp.Metadata["tool_rounds"])
}

func TestGoalSettingBuildsPrioritizedGoals(t *testing.T) {
	client := mock.New(
		mock.Call("c1", "save_fitness_goals", `{"primary_goal":"fat_loss","secondary_goal":"strength","target_weight_kg":72.5}`),
		mock.Text("Saved."),
	)
	store := newFakeOnboarding()
	a, err := newTestFactory(t, client, store, nil).New(AgentGoalSetting)
	require.NoError(t, err)
	_, err = a.ProcessText(context.Background(), Query{Text: "lose fat", User: testUser(true)})
	require.NoError(t, err)

	calls := store.stepCalls()
	require.Len(t, calls, 1)
	var step struct {
		Goals []struct {
			GoalType       string   `json:"goal_type"`
			Priority       int      `json:"priority"`
			TargetWeightKg *float64 `json:"target_weight_kg"`
		} `json:"goals"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Payload, &step))
	require.Len(t, step.Goals, 2)
	assert.Equal(t, "fat_loss", step.Goals[0].GoalType)
	assert.Equal(t, 1, step.Goals[0].Priority)
	require.NotNil(t, step.Goals[0].TargetWeightKg)
	assert.Equal(t, 72.5, *step.Goals[0].TargetWeightKg)
	assert.Equal(t, "strength", step.Goals[1].GoalType)
}

func TestWorkoutPlanApprovalRequiresProposal(t *testing.T) {
	plan := `{"frequency":2,"split":"full_body","days":[` +
		`{"day_of_week":0,"focus":"full body A","exercises":[{"name":"Squat","sets":3,"reps":"5","rest_seconds":120}]},` +
		`{"day_of_week":3,"focus":"full body B","exercises":[{"name":"Deadlift","sets":3,"reps":"5"}]}]}`
	client := mock.New(
		mock.Call("c1", "approve_workout_plan", `{}`),
		mock.Call("c2", "propose_workout_plan", plan),
		mock.Call("c3", "approve_workout_plan", `{}`),
		mock.Text("Plan approved."),
	)
	store := newFakeOnboarding()
	a, err := newTestFactory(t, client, store, nil).New(AgentWorkoutPlanning)
	require.NoError(t, err)

	_, err = a.ProcessText(context.Background(), Query{Text: "looks good", User: testUser(true)})
	require.NoError(t, err)

	assert.Equal(t, "plan", toolResult(t, client, "c1").Field)
	assert.True(t, toolResult(t, client, "c2").Success)
	assert.True(t, toolResult(t, client, "c3").Success)

	bucket := store.ctxs[AgentWorkoutPlanning]
	assert.Equal(t, true, bucket["user_approved"])
	schedule, ok := bucket["schedule"].([]any)
	require.True(t, ok)
	assert.Len(t, schedule, 2)
}

func TestSchedulingCompletesVerification(t *testing.T) {
	store := newFakeOnboarding()
	uc := testUser(true)
	ctx := context.Background()
	for step, payload := range map[int]string{
		1: `{"fitness_level":"beginner"}`,
		2: `{"goals":[{"goal_type":"strength","priority":1}]}`,
		3: `{"equipment":[],"injuries":[],"limitations":[]}`,
		4: `{"diet_type":"omnivore","allergies":[],"intolerances":[],"dislikes":[]}`,
		5: `{"daily_calorie_target":2200,"protein_percentage":30,"carbs_percentage":45,"fats_percentage":25}`,
		6: `{"meals":[{"meal_name":"Lunch","scheduled_time":"12:00"}]}`,
		7: `{"workouts":[{"day_of_week":1,"scheduled_time":"18:00"}]}`,
	} {
		_, err := store.SaveStep(ctx, uc.UserID(), step, json.RawMessage(payload), "")
		require.NoError(t, err)
	}
	for bucket, data := range map[string]map[string]any{
		AgentFitnessAssessment: {"fitness_level": "beginner", "experience_details": "new"},
		AgentWorkoutPlanning:   {"plan": map[string]any{"split": "full_body"}, "user_approved": true, "schedule": []any{1}},
		AgentDietPlanning:      {"plan": map[string]any{"daily_calorie_target": 2200}, "user_approved": true, "schedule": []any{"lunch"}},
	} {
		_, err := store.SaveAgentContext(ctx, uc.UserID(), bucket, data)
		require.NoError(t, err)
	}

	client := mock.New(
		mock.Call("c1", "save_hydration_preferences", `{"target_ml":2500,"frequency_hours":1.5}`),
		mock.Call("c2", "save_supplement_preferences", `{"interested_in_supplements":true,"current_supplements":["creatine"," "]}`),
		mock.Text("All set."),
	)
	a, err := newTestFactory(t, client, store, nil).New(AgentScheduling)
	require.NoError(t, err)
	_, err = a.ProcessText(ctx, Query{Text: "2.5 litres", User: uc})
	require.NoError(t, err)

	calls := store.stepCalls()
	assert.JSONEq(t, `{"daily_water_target_ml":2500,"reminder_frequency_minutes":90}`, string(calls[len(calls)-2].Payload))
	assert.Equal(t, "supplement", calls[len(calls)-1].Agent)

	res := toolResult(t, client, "c2")
	require.True(t, res.Success, res.Error)
	data := res.Data.(map[string]any)
	assert.Equal(t, true, data["can_complete"])
	assert.Equal(t, true, data["verification"].(map[string]any)["ok"])
}

func TestStreamResponseStopsWhenConsumerFails(t *testing.T) {
	client := mock.New(mock.Text(strings.Repeat("a", 64)), mock.Text("never"))
	client.ChunkSize = 8
	a, err := newTestFactory(t, client, nil, &fakeProfiles{}).New(AgentGeneral)
	require.NoError(t, err)

	var chunks []string
	gone := errors.New("client gone")
	_, err = a.StreamResponse(context.Background(), Query{Text: "hi", User: testUser(false)}, func(c string) error {
		chunks = append(chunks, c)
		if len(chunks) == 2 {
			return gone
		}
		return nil
	})
	require.ErrorIs(t, err, gone)
	assert.Len(t, chunks, 2)
	assert.Len(t, client.Requests(), 1)
}

func TestStreamResponseHonoursCancelledContext(t *testing.T) {
	client := mock.New(mock.Text("hello"))
	a, err := newTestFactory(t, client, nil, &fakeProfiles{}).New(AgentGeneral)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.StreamResponse(ctx, Query{Text: "hi", User: testUser(false)}, func(string) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCancellation(err))
	assert.Empty(t, client.Requests())
}

func TestLockedProfileAsksForConfirmation(t *testing.T) {
	profiles := &fakeProfiles{profile: &types.UserProfile{IsLocked: true, FitnessLevel: "beginner"}}
	client := mock.New(
		mock.Call("c1", "update_fitness_level", `{"fitness_level":"advanced"}`),
		mock.Text("Your profile is locked. Unlock it?"),
		mock.Call("c2", "update_fitness_level", `{"fitness_level":"advanced","unlock":true,"change_reason":"user confirmed"}`),
		mock.Text("Done."),
	)
	a, err := newTestFactory(t, client, nil, profiles).New(AgentWorkout)
	require.NoError(t, err)

	uc := testUser(false)
	resp, err := a.ProcessText(context.Background(), Query{Text: "I'm advanced now", User: uc})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "locked")
	locked := toolResult(t, client, "c1")
	assert.Equal(t, apierr.CodeProfileLocked, locked.ErrorCode)
	assert.Equal(t, true, locked.Metadata["requires_confirmation"])
	assert.Equal(t, "beginner", profiles.profile.FitnessLevel)

	_, err = a.ProcessText(context.Background(), Query{Text: "yes unlock", User: uc})
	require.NoError(t, err)
	assert.True(t, toolResult(t, client, "c2").Success)
	assert.Equal(t, "advanced", profiles.profile.FitnessLevel)
	assert.False(t, profiles.profile.IsLocked)
	require.Len(t, profiles.updates, 2)
	assert.Equal(t, "user confirmed", profiles.updates[1].ChangeReason)
}

type staticClassifier struct{ domain string }

func (c staticClassifier) Classify(context.Context, string) (Classification, error) {
	return Classification{Domain: c.domain, Confidence: 0.9, Source: "test"}, nil
}

func TestGeneralDelegatesToSpecialist(t *testing.T) {
	client := mock.New(
		mock.Call("c1", "classify_query", `{"query":"how many sets for legs?"}`),
		mock.Call("c2", "ask_workout", `{"question":"how many sets for legs?"}`),
		mock.Text("Do 3 sets of squats."),
		mock.Text("The workout coach suggests 3 sets of squats."),
	)
	f, err := NewFactory(Deps{LLM: client, Profiles: &fakeProfiles{}, Classifier: staticClassifier{domain: AgentWorkout}})
	require.NoError(t, err)
	a, err := f.New(AgentGeneral)
	require.NoError(t, err)

	resp, err := a.ProcessText(context.Background(), Query{Text: "how many sets for legs?", User: testUser(false)})
	require.NoError(t, err)
	assert.Equal(t, "The workout coach suggests 3 sets of squats.", resp.Content)
	assert.Equal(t, []string{"classify_query", "ask_workout"}, resp.ToolsUsed)

	classified := toolResult(t, client, "c1").Data.(map[string]any)
	assert.Equal(t, AgentWorkout, classified["domain"])
	answer := toolResult(t, client, "c2").Data.(map[string]any)
	assert.Equal(t, "Do 3 sets of squats.", answer["answer"])
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	f := newTestFactory(t, mock.New(), newFakeOnboarding(), &fakeProfiles{})
	_, err := f.New("astrologer")
	assert.True(t, apierr.Is(err, apierr.CodeValidation))
	for _, typ := range append(append([]string{AgentGeneral}, OnboardingTypes...), Specialists...) {
		a, err := f.New(typ)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, a.Type())
	}
}

func TestProcessVoiceUsesBrevityClause(t *testing.T) {
	client := mock.New(mock.Text("Short answer."))
	a, err := newTestFactory(t, client, nil, &fakeProfiles{}).New(AgentGeneral)
	require.NoError(t, err)
	out, err := a.ProcessVoice(context.Background(), Query{Text: "hi", User: testUser(false)})
	require.NoError(t, err)
	assert.Equal(t, "Short answer.", out)
	assert.Contains(t, client.Requests()[0].System, "75 words")
}
