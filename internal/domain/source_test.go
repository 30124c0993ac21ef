package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to SourceStatus
		allowed  bool
	}{
		{StatusUploadPending, StatusProcessing, true},
		{StatusUploadPending, StatusFailed, true},
		{StatusProcessing, StatusActive, true},
		{StatusProcessing, StatusFailed, true},

		// Терминальные статусы назад не возвращаются
		{StatusActive, StatusProcessing, false},
		{StatusActive, StatusUploadPending, false},
		{StatusFailed, StatusProcessing, false},

		// Прыжок через стадию запрещён
		{StatusUploadPending, StatusActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestSourceStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []SourceStatus{StatusUploadPending, StatusProcessing, StatusActive, StatusFailed, StatusDisabled} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, SourceStatus("uploading").Valid())
	assert.False(t, SourceStatus("").Valid())
}
