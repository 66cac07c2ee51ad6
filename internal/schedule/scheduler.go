package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	Interval time.Duration
	// CycleTimeout 单轮最长耗时, 默认取 Interval
	CycleTimeout time.Duration
}

// Scheduler 固定间隔驱动一个 Task, 周期严格串行, 手动触发与定时触发合并在同一条执行路径上
type Scheduler struct {
	cfg  Config
	task Task

	trigger chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(cfg Config, task Task) *Scheduler {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	return &Scheduler{
		cfg:  cfg,
		task: task,
		// 容量1: 周期进行中再触发只排队一次, 多次触发合并
		trigger: make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	slog.Info("scheduler started", "task", s.task.Name(), "interval", s.cfg.Interval)
}

// TriggerNow 请求一次带外周期, 绝不与进行中的周期并发
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop 等待进行中的周期收尾, ctx 到期则放弃等待
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("scheduler stopped", "task", s.task.Name())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// 启动即跑一轮
	s.runCycle()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		case <-s.trigger:
			s.runCycle()
		}
	}
}

func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.CycleTimeout)
	defer cancel()

	start := time.Now()
	if err := s.task.Run(ctx); err != nil {
		slog.Error("cycle failed", "task", s.task.Name(), "error", err)
		return
	}
	slog.Debug("cycle finished", "task", s.task.Name(), "took", time.Since(start))
}
