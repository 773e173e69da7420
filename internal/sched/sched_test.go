package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	calls int
	count int
	err   error
}

func (m *mockSweeper) Sweep(_ context.Context, _ time.Time) (int, error) {
	m.calls++
	return m.count, m.err
}

func TestHandleSweep_InvokesSweeper(t *testing.T) {
	// Arrange
	sweeper := &mockSweeper{count: 7}
	s := &Scheduler{config: DefaultConfig(), sweeper: sweeper}

	// Act
	err := s.handleSweep(context.Background(), asynq.NewTask(TypeQueueSweep, nil))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, sweeper.calls)
}

func TestHandleSweep_PropagatesErrorForRetry(t *testing.T) {
	// Arrange
	sweeper := &mockSweeper{err: errors.New("db down")}
	s := &Scheduler{config: DefaultConfig(), sweeper: sweeper}

	// Act
	err := s.handleSweep(context.Background(), asynq.NewTask(TypeQueueSweep, nil))

	// Assert
	assert.EqualError(t, err, "db down")
}
