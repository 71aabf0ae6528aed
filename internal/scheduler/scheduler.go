package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/assist-by/strategylab/internal/logger"
)

// Task는 스케줄러가 실행하는 작업입니다
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc는 함수를 Task 인터페이스에 맞춥니다
type TaskFunc func(ctx context.Context) error

// Execute는 f를 호출합니다
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Scheduler는 주기 경계마다 작업을 실행합니다
type Scheduler struct {
	name      string
	interval  time.Duration
	task      Task
	immediate bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option은 스케줄러 설정입니다
type Option func(*Scheduler)

// WithImmediate는 스케줄러 시작 시 작업을 한 번 더 실행합니다
func WithImmediate() Option {
	return func(s *Scheduler) {
		s.immediate = true
	}
}

// WithName은 로그에 쓰는 이름을 설정합니다
func WithName(name string) Option {
	return func(s *Scheduler) {
		s.name = name
	}
}

// NewScheduler는 스케줄러를 생성합니다. interval은 양수여야 합니다
func NewScheduler(interval time.Duration, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:     "task",
		interval: interval,
		task:     task,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start는 interval의 배수 시각마다 작업을 실행하며 ctx가 취소되거나
// (ctx.Err() 반환) Stop이 호출될 때까지(nil 반환) 블록됩니다.
// 작업 에러는 로그로 남기고 스케줄러를 멈추지 않습니다.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.immediate {
		s.execute(ctx)
	}

	timer := time.NewTimer(s.untilNextRun())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			s.execute(ctx)
			timer.Reset(s.untilNextRun())
		}
	}
}

// Stop은 Start를 종료합니다. 여러 번 호출해도 안전합니다
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Scheduler) execute(ctx context.Context) {
	start := time.Now()
	if err := s.task.Execute(ctx); err != nil {
		logger.Warnf("%s failed: %v", s.name, err)
		return
	}
	logger.Debugf("%s done in %v", s.name, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) untilNextRun() time.Duration {
	now := time.Now()
	nextRun := now.Truncate(s.interval).Add(s.interval)
	wait := nextRun.Sub(now)
	logger.Debugf("%s: next run in %v (%s)", s.name, wait.Round(time.Second), nextRun.Format("15:04:05"))
	return wait
}
