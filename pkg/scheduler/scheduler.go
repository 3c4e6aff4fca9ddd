// Package scheduler 基于 gocron/v2 调度定时任务，并记录每个任务的运行状态供接口查询.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/gradevault/pkg/log"
)

// ErrJobNotFound 任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusError     JobStatus = "error"
)

// JobFunc 任务函数，返回的错误记录到 JobInfo.Error.
type JobFunc func(ctx context.Context) error

// JobInfo 任务快照.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cronExpr"`
	NextRun     time.Time `json:"nextRun"`
	LastRun     time.Time `json:"lastRun,omitzero"`
	LastSuccess time.Time `json:"lastSuccess,omitzero"`
	Runs        int64     `json:"runs"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

// Scheduler 包装 gocron.Scheduler，按名称管理任务.
type Scheduler struct {
	cron   gocron.Scheduler
	mu     sync.RWMutex
	jobs   map[string]*entry
	logger zerolog.Logger
}

// NewScheduler 创建调度器，需要调用 Start 后任务才会运行.
func NewScheduler() (*Scheduler, error) {
	c, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:   c,
		jobs:   make(map[string]*entry),
		logger: log.Component("scheduler"),
	}, nil
}

// AddCron 以 cron 表达式注册任务，同名任务只能注册一次.
// 同一任务不会并发执行，上一轮未结束时跳过本轮.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already exists", name)
	}

	j, err := s.cron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() { s.run(ctx, name, fn) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	next, _ := j.NextRun()

	s.jobs[name] = &entry{
		job: j,
		info: JobInfo{
			ID:       j.ID().String(),
			Name:     name,
			CronExpr: cronExpr,
			NextRun:  next,
			Status:   StatusScheduled,
		},
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("job added")

	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, fn JobFunc) {
	started := time.Now()
	s.update(name, func(info *JobInfo) {
		info.Status = StatusRunning
		info.LastRun = started
	})

	err := safeRun(ctx, fn)

	s.update(name, func(info *JobInfo) {
		info.Runs++
		if err != nil {
			info.Status = StatusError
			info.Error = err.Error()

			return
		}

		info.Status = StatusScheduled
		info.Error = ""
		info.LastSuccess = time.Now()
	})

	l := s.logger.With().Str("job", name).Dur("took", time.Since(started)).Logger()
	if err != nil {
		l.Error().Err(err).Msg("job failed")
		return
	}

	l.Debug().Msg("job done")
}

func safeRun(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job: %v", r)
		}
	}()

	return fn(ctx)
}

func (s *Scheduler) update(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.jobs[name]; ok {
		fn(&e.info)
	}
}

// RunNow 立即触发一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return e.job.RunNow()
}

// RemoveJobByName 移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	if err := s.cron.RemoveJob(e.job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)

	return nil
}

// GetJobInfoByName 返回任务快照.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[name]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return s.snapshot(e), nil
}

// GetJobInfos 返回所有任务快照，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		infos = append(infos, s.snapshot(e))
	}

	slices.SortFunc(infos, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })

	return infos
}

func (s *Scheduler) snapshot(e *entry) JobInfo {
	info := e.info
	if next, err := e.job.NextRun(); err == nil {
		info.NextRun = next
	}

	return info
}

// JobsWaitingInQueue 返回排队等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.cron.JobsWaitingInQueue()
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.GetJobInfos())).Msg("scheduler started")
	s.cron.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("scheduler stopping")
	return s.cron.Shutdown()
}
