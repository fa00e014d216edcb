package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewCronScheduler(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	scheduler := NewCronScheduler(nil, 30*time.Second, logger)

	if scheduler == nil {
		t.Fatal("Expected non-nil scheduler")
	}

	if scheduler.interval != 30*time.Second {
		t.Errorf("Expected interval of 30 seconds, got %v", scheduler.interval)
	}

	if scheduler.cron == nil {
		t.Error("Expected non-nil cron instance")
	}
}

func TestCronScheduler_GetSchedulerStatus(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	scheduler := NewCronScheduler(nil, 30*time.Second, logger)
	status := scheduler.GetSchedulerStatus()

	if status == nil {
		t.Fatal("Expected non-nil status")
	}

	if _, ok := status["running"]; !ok {
		t.Error("Expected 'running' key in status")
	}

	if _, ok := status["job_count"]; !ok {
		t.Error("Expected 'job_count' key in status")
	}

	if _, ok := status["jobs"]; !ok {
		t.Error("Expected 'jobs' key in status")
	}
}

func TestCronScheduler_JobWrapperRunsJob(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	scheduler := NewCronScheduler(nil, 30*time.Second, logger)

	ran := false
	var jobCtx context.Context
	wrapped := scheduler.createJobWrapper("test job", func(ctx context.Context) error {
		ran = true
		jobCtx = ctx
		return nil
	})
	wrapped()

	if !ran {
		t.Fatal("Expected wrapped job to run")
	}
	if jobCtx == nil {
		t.Fatal("Expected job to receive a context")
	}
	if jobCtx.Err() != nil {
		t.Errorf("Expected live context before Stop, got %v", jobCtx.Err())
	}

	// A failing job is logged, never propagated.
	scheduler.createJobWrapper("failing job", func(ctx context.Context) error {
		return errors.New("cycle failed")
	})()
}

func TestCronScheduler_JobWrapperRecoversPanic(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	scheduler := NewCronScheduler(nil, 30*time.Second, logger)

	wrapped := scheduler.createJobWrapper("panicking job", func(ctx context.Context) error {
		panic("boom")
	})

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Expected panic to be recovered inside the wrapper, got %v", r)
		}
	}()
	wrapped()
}

func TestCronScheduler_StopCancelsAndDrainsJobs(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	scheduler := NewCronScheduler(nil, 30*time.Second, logger)

	started := make(chan struct{})
	canceled := make(chan struct{})
	wrapped := scheduler.createJobWrapper("blocking job", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	})

	go wrapped()
	<-started

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-canceled:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected Stop to cancel the running job's context")
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected Stop to return after the job drained")
	}
}
