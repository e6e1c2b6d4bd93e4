package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJob Job のモック
type MockJob struct {
	mock.Mock
}

func (m *MockJob) Execute(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// countingJob 実行回数を数える
type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Execute(context.Context) (bool, error) {
	j.runs.Add(1)
	return false, nil
}

// blockingJob ctx が終わるまで戻らない
type blockingJob struct {
	started chan struct{}
	err     atomic.Value
}

func (j *blockingJob) Execute(ctx context.Context) (bool, error) {
	select {
	case j.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	j.err.Store(ctx.Err())
	return false, ctx.Err()
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("not a cron spec", &countingJob{}, time.UTC, time.Minute, log.NewNopLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cron式")
}

func TestNext_DailySpec(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	s, err := New("0 7 * * *", &countingJob{}, jst, time.Minute, log.NewNopLogger())
	require.NoError(t, err)

	next := s.Next().In(jst)
	assert.Equal(t, 7, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(25*time.Hour)))
}

func TestRunOnce_PassesDeadline(t *testing.T) {
	job := new(MockJob)
	job.On("Execute", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(false, nil)

	s, err := New("@daily", job, time.UTC, time.Minute, log.NewNopLogger())
	require.NoError(t, err)

	s.runOnce()
	job.AssertExpectations(t)
}

func TestRunOnce_LogsError(t *testing.T) {
	job := new(MockJob)
	job.On("Execute", mock.Anything).Return(false, errors.New("LINE API error"))

	var buf bytes.Buffer
	s, err := New("@daily", job, time.UTC, 0, log.NewLogfmtLogger(&buf))
	require.NoError(t, err)

	s.runOnce()
	assert.Contains(t, buf.String(), "LINE API error")
}

func TestRun_ExecutesUntilCanceled(t *testing.T) {
	job := &countingJob{}
	s, err := New("@every 1s", job, time.UTC, time.Second, log.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run が終了しませんでした")
	}
}

func TestRun_CancelReachesRunningJob(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}, 1)}
	s, err := New("@every 1s", job, time.UTC, time.Hour, log.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-job.started:
	case <-time.After(3 * time.Second):
		t.Fatal("Job が開始されませんでした")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("実行中の Job にキャンセルが伝わりませんでした")
	}
	assert.ErrorIs(t, job.err.Load().(error), context.Canceled)
}
