package onboarding

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OnboardingState is the per-user progress record. Version is bumped on
// every write and used as a compare-and-swap token.
type OnboardingState struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	CurrentState int  `gorm:"column:current_state;not null;default:0;check:chk_onboarding_current_state,current_state >= 0 AND current_state <= 9" json:"current_state"`
	IsComplete   bool `gorm:"column:is_complete;not null;default:false" json:"is_complete"`

	StepData            datatypes.JSON `gorm:"column:step_data;not null" json:"step_data"`
	AgentContext        datatypes.JSON `gorm:"column:agent_context;not null" json:"agent_context"`
	AgentHistory        datatypes.JSON `gorm:"column:agent_history;not null" json:"agent_history"`
	CurrentAgent        *string        `gorm:"column:current_agent" json:"current_agent,omitempty"`
	ConversationHistory datatypes.JSON `gorm:"column:conversation_history;not null" json:"conversation_history"`

	Version int `gorm:"column:version;not null;default:1" json:"version"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OnboardingState) TableName() string { return "onboarding_state" }

func (s *OnboardingState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	for _, col := range []*datatypes.JSON{&s.StepData, &s.AgentContext} {
		if len(*col) == 0 {
			*col = datatypes.JSON("{}")
		}
	}
	for _, col := range []*datatypes.JSON{&s.AgentHistory, &s.ConversationHistory} {
		if len(*col) == 0 {
			*col = datatypes.JSON("[]")
		}
	}
	return nil
}

// HistoryEntry records one agent-driven state advance.
type HistoryEntry struct {
	State         int       `json:"state"`
	Agent         string    `json:"agent"`
	PreviousState *int      `json:"previous_state"`
	Timestamp     time.Time `json:"timestamp"`
}

type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	AgentType string    `json:"agent_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Steps decodes step_data, skipping the migration escape hatch and any key
// that is not step_1..step_9.
func (s *OnboardingState) Steps() (map[string]json.RawMessage, error) {
	raw := map[string]json.RawMessage{}
	if err := decodeInto(s.StepData, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if _, ok := ParseStepKey(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// SetSteps encodes steps back into step_data.
func (s *OnboardingState) SetSteps(steps map[string]json.RawMessage) error {
	clean := make(map[string]json.RawMessage, len(steps))
	for k, v := range steps {
		if _, ok := ParseStepKey(k); ok {
			clean[k] = v
		}
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	s.StepData = datatypes.JSON(b)
	return nil
}

// CompletedSteps returns the sorted step numbers present in step_data.
func (s *OnboardingState) CompletedSteps() ([]int, error) {
	steps, err := s.Steps()
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(steps))
	for k := range steps {
		n, _ := ParseStepKey(k)
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

func (s *OnboardingState) History() ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := decodeInto(s.AgentHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OnboardingState) AppendHistory(entry HistoryEntry) error {
	hist, err := s.History()
	if err != nil {
		return err
	}
	hist = append(hist, entry)
	b, err := json.Marshal(hist)
	if err != nil {
		return err
	}
	s.AgentHistory = datatypes.JSON(b)
	return nil
}

// Contexts decodes agent_context into per-bucket objects.
func (s *OnboardingState) Contexts() (map[string]map[string]any, error) {
	out := map[string]map[string]any{}
	if err := decodeInto(s.AgentContext, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OnboardingState) SetContexts(ctxs map[string]map[string]any) error {
	if ctxs == nil {
		ctxs = map[string]map[string]any{}
	}
	b, err := json.Marshal(ctxs)
	if err != nil {
		return err
	}
	s.AgentContext = datatypes.JSON(b)
	return nil
}

func (s *OnboardingState) Conversation() ([]ConversationEntry, error) {
	var out []ConversationEntry
	if err := decodeInto(s.ConversationHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OnboardingState) AppendConversation(entries ...ConversationEntry) error {
	conv, err := s.Conversation()
	if err != nil {
		return err
	}
	conv = append(conv, entries...)
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	s.ConversationHistory = datatypes.JSON(b)
	return nil
}

func decodeInto(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
