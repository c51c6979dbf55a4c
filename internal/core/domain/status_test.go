package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/basis/internal/core/domain"
)

func TestTaskStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.TaskStatus
		isTerminal bool
		succeeded  bool
	}{
		{"Pending", domain.TaskStatusPending, false, false},
		{"Running", domain.TaskStatusRunning, false, false},
		{"Completed", domain.TaskStatusCompleted, true, true},
		{"Failed", domain.TaskStatusFailed, true, false},
		{"Cached", domain.TaskStatusCached, true, true},
		{"Blocked", domain.TaskStatusBlocked, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTerminal, tt.status.IsTerminal())
			assert.Equal(t, tt.succeeded, tt.status.Succeeded())
		})
	}
}
