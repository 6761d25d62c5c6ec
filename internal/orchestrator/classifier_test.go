package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fitcoach-backend/internal/agents"
	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
	"github.com/yungbote/fitcoach-backend/internal/platform/llm/mock"
)

func TestClassifyUsesModelAnswer(t *testing.T) {
	client := mock.New()
	client.JSON = map[string]any{"domain": "Diet", "confidence": 0.92}
	c := NewClassifier(client, nil)

	got, err := c.Classify(context.Background(), "How much protein should I eat?")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentDiet, got.Domain)
	assert.Equal(t, "llm", got.Source)
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, "protein")
}

func TestClassifyFallsBackToKeywords(t *testing.T) {
	client := mock.New()
	client.JSON = map[string]any{"domain": "astrology"}
	c := NewClassifier(client, nil)

	got, err := c.Classify(context.Background(), "Should I take creatine and omega 3?")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentSupplement, got.Domain)
	assert.Equal(t, "keyword", got.Source)
}

func TestClassifyModelFailure(t *testing.T) {
	client := mock.New()
	client.JSONErr = errors.New("provider down")
	c := NewClassifier(client, nil)

	got, err := c.Classify(context.Background(), "Plan my squat day")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeClassificationFailed, apierr.CodeOf(err))
	assert.Equal(t, agents.AgentGeneral, got.Domain)
}

func TestClassifyEmptyQuerySkipsModel(t *testing.T) {
	client := mock.New()
	got, err := NewClassifier(client, nil).Classify(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, agents.AgentGeneral, got.Domain)
	assert.Empty(t, client.Requests())
}

func TestKeywordClassify(t *testing.T) {
	cases := map[string]string{
		"Add more squats and deadlifts":  agents.AgentWorkout,
		"Swap my dinner recipe":          agents.AgentDiet,
		"Is whey better than a vitamin?": agents.AgentSupplement,
		"My sleep and stress are bad":    agents.AgentTracker,
		"Move my reminder please":        agents.AgentScheduler,
		"Hello there":                    agents.AgentGeneral,
	}
	for q, want := range cases {
		got := KeywordClassify(q)
		if got.Domain != want {
			t.Fatalf("KeywordClassify(%q) = %q, want %q", q, got.Domain, want)
		}
		if want == agents.AgentGeneral && got.Confidence != 0 {
			t.Fatalf("expected zero confidence for %q", q)
		}
	}
}
