package agents

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/domain/onboarding"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm/mock"
	"github.com/yungbote/fitcoach-backend/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stepCall struct {
	Step    int
	Payload json.RawMessage
	Agent   string
}

// fakeOnboarding keeps state in memory and validates steps the same way the
// real service does.
type fakeOnboarding struct {
	mu    sync.Mutex
	steps map[int]json.RawMessage
	ctxs  map[string]map[string]any
	calls []stepCall
}

func newFakeOnboarding() *fakeOnboarding {
	return &fakeOnboarding{steps: map[int]json.RawMessage{}, ctxs: map[string]map[string]any{}}
}

func (f *fakeOnboarding) GetState(_ context.Context, userID uuid.UUID) (*types.OnboardingState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &types.OnboardingState{UserID: userID}
	steps := map[string]json.RawMessage{}
	for n, raw := range f.steps {
		steps[onboarding.StepKey(n)] = raw
		if n > st.CurrentState {
			st.CurrentState = n
		}
	}
	if err := st.SetSteps(steps); err != nil {
		return nil, err
	}
	if err := st.SetContexts(f.ctxs); err != nil {
		return nil, err
	}
	return st, nil
}

func (f *fakeOnboarding) SaveStep(_ context.Context, _ uuid.UUID, step int, payload json.RawMessage, agentType string) (*services.SaveStepResponse, error) {
	norm, err := onboarding.ValidateStep(step, payload)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[step] = norm
	f.calls = append(f.calls, stepCall{Step: step, Payload: norm, Agent: agentType})
	cur := 0
	for n := range f.steps {
		if n > cur {
			cur = n
		}
	}
	res := &services.SaveStepResponse{CurrentState: cur}
	if cur < onboarding.TotalStates {
		next := cur + 1
		res.NextState = &next
	}
	return res, nil
}

func (f *fakeOnboarding) SaveAgentContext(_ context.Context, _ uuid.UUID, bucket string, data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.ctxs[bucket]
	if b == nil {
		b = map[string]any{}
		f.ctxs[bucket] = b
	}
	for k, v := range decoded {
		b[k] = v
	}
	return cloneMap(b), nil
}

func (f *fakeOnboarding) Verify(_ context.Context, _ uuid.UUID) (services.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return services.VerifyAgentContext(f.ctxs), nil
}

func (f *fakeOnboarding) stepCalls() []stepCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stepCall(nil), f.calls...)
}

type fakeProfiles struct {
	mu      sync.Mutex
	profile *types.UserProfile
	updates []types.ProfileUpdate
}

func (f *fakeProfiles) Get(_ context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return nil, apierr.UserNotFound(userID.String())
	}
	cp := *f.profile
	return &cp, nil
}

func (f *fakeProfiles) Update(_ context.Context, userID uuid.UUID, upd types.ProfileUpdate) (*types.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	if f.profile == nil {
		return nil, apierr.UserNotFound(userID.String())
	}
	if f.profile.IsLocked && !upd.Unlock {
		return nil, apierr.ProfileLocked()
	}
	if upd.Unlock {
		f.profile.IsLocked = false
	}
	if upd.FitnessLevel != nil {
		f.profile.FitnessLevel = *upd.FitnessLevel
	}
	cp := *f.profile
	return &cp, nil
}

func newTestFactory(t *testing.T, client *mock.Client, onb OnboardingStore, profiles ProfileStore) *Factory {
	t.Helper()
	f, err := NewFactory(Deps{LLM: client, Onboarding: onb, Profiles: profiles})
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	return f
}

func testUser(onboardingMode bool) UserContext {
	return NewUserContext(UserContextData{
		UserID:         uuid.New(),
		FitnessLevel:   "beginner",
		PrimaryGoal:    "general_fitness",
		OnboardingMode: onboardingMode,
	})
}

// toolResult decodes the tool message answering callID in a recorded request.
func toolResult(t *testing.T, client *mock.Client, callID string) ToolResult {
	t.Helper()
	for _, req := range client.Requests() {
		for _, m := range req.Messages {
			if m.ToolCallID == callID {
				var res ToolResult
				if err := json.Unmarshal([]byte(m.Content), &res); err != nil {
					t.Fatalf("decode tool result: %v", err)
				}
				return res
			}
		}
	}
	t.Fatalf("no tool result for %s", callID)
	return ToolResult{}
}
