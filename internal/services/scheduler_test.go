package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"visme-go/internal/config"
)

type countingRerunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRerunner) Rerun(context.Context) (int, error) {
	r.calls.Add(1)
	return 0, r.err
}

func TestSchedulerRerunCheck(t *testing.T) {
	r := &countingRerunner{}
	s := NewScheduler(zaptest.NewLogger(t), r, time.Hour)
	ctx := context.Background()

	s.runRerunCheck(ctx)
	assert.Equal(t, int32(0), r.calls.Load(), "nothing changed")

	s.MarkDirty()
	s.runRerunCheck(ctx)
	assert.Equal(t, int32(1), r.calls.Load())

	s.runRerunCheck(ctx)
	assert.Equal(t, int32(1), r.calls.Load(), "dirty flag is consumed")

	r.err = errors.New("database down")
	s.MarkDirty()
	s.runRerunCheck(ctx)
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t), &countingRerunner{}, 0)
	assert.Equal(t, time.Minute, s.interval)
}

func TestSchedulerReactsToConfigChange(t *testing.T) {
	r := &countingRerunner{}
	s := NewScheduler(zaptest.NewLogger(t), r, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	config.Set(config.Current())

	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}
