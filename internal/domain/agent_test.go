package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestAgentPatchValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		patch   AgentPatch
		wantErr string
	}{
		{"empty patch valid", AgentPatch{}, ""},
		{"valid name", AgentPatch{Name: strPtr("Support bot")}, ""},
		{"empty name", AgentPatch{Name: strPtr("")}, "Name must be a non-empty string"},
		{"empty model", AgentPatch{Model: strPtr("")}, "Model must be a non-empty string"},
		{"temperature lower bound", AgentPatch{Temperature: f64Ptr(0)}, ""},
		{"temperature upper bound", AgentPatch{Temperature: f64Ptr(1)}, ""},
		{"temperature negative", AgentPatch{Temperature: f64Ptr(-0.1)}, "Temperature must be a number between 0 and 1"},
		{"temperature too high", AgentPatch{Temperature: f64Ptr(1.5)}, "Temperature must be a number between 0 and 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.patch.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var derr *Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, KindBadRequest, derr.Kind)
			assert.Equal(t, tt.wantErr, derr.Message)
		})
	}
}

func TestAgentPatchApply(t *testing.T) {
	t.Parallel()

	agent := &Agent{Name: "Old", Model: "gpt-4o-mini", Temperature: 0.2, SystemPrompt: "keep"}
	patch := AgentPatch{Name: strPtr("New"), Temperature: f64Ptr(0.7)}
	patch.Apply(agent)

	assert.Equal(t, "New", agent.Name)
	assert.InDelta(t, 0.7, agent.Temperature, 0.0001)
	// Отсутствующие в патче поля не тронуты
	assert.Equal(t, "gpt-4o-mini", agent.Model)
	assert.Equal(t, "keep", agent.SystemPrompt)
}

func TestAgentPatchIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, AgentPatch{}.IsEmpty())
	assert.False(t, AgentPatch{Model: strPtr("gpt-4o")}.IsEmpty())
}
