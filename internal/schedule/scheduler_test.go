package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingTask 记录执行次数, 并探测是否有并发执行
type countingTask struct {
	runs     atomic.Int64
	inFlight atomic.Int64
	overlap  atomic.Bool
	delay    time.Duration
}

func (t *countingTask) Run(ctx context.Context) error {
	if t.inFlight.Add(1) > 1 {
		t.overlap.Store(true)
	}
	defer t.inFlight.Add(-1)

	t.runs.Add(1)
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
		}
	}
	return nil
}

func (t *countingTask) Name() string {
	return "counting task"
}

func TestScheduler_RunsImmediatelyAndPeriodically(t *testing.T) {
	task := &countingTask{}
	s := NewScheduler(Config{Interval: 20 * time.Millisecond}, task)

	s.Start(context.Background())
	time.Sleep(90 * time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))

	// 启动立跑一轮 + 若干定时轮
	assert.GreaterOrEqual(t, task.runs.Load(), int64(3))
	assert.False(t, task.overlap.Load())
}

func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	// 单轮耗时远超间隔, 周期必须串行
	task := &countingTask{delay: 30 * time.Millisecond}
	s := NewScheduler(Config{Interval: 5 * time.Millisecond, CycleTimeout: time.Second}, task)

	s.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))

	assert.False(t, task.overlap.Load())
}

func TestScheduler_TriggerNowCoalesced(t *testing.T) {
	task := &countingTask{delay: 30 * time.Millisecond}
	s := NewScheduler(Config{Interval: time.Hour, CycleTimeout: time.Second}, task)

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond) // 首轮进行中

	// 连环触发只排队一次
	s.TriggerNow()
	s.TriggerNow()
	s.TriggerNow()

	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, int64(2), task.runs.Load())
	assert.False(t, task.overlap.Load())
}

func TestScheduler_TriggerNeverConcurrentWithCycle(t *testing.T) {
	task := &countingTask{delay: 20 * time.Millisecond}
	s := NewScheduler(Config{Interval: 25 * time.Millisecond, CycleTimeout: time.Second}, task)

	s.Start(context.Background())
	for i := 0; i < 10; i++ {
		s.TriggerNow()
		time.Sleep(5 * time.Millisecond)
	}
	assert.NoError(t, s.Stop(context.Background()))

	assert.False(t, task.overlap.Load())
}

func TestScheduler_StopWaitsForInFlightCycle(t *testing.T) {
	task := &countingTask{delay: 50 * time.Millisecond}
	s := NewScheduler(Config{Interval: time.Hour, CycleTimeout: time.Second}, task)

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int64(0), task.inFlight.Load())
}

func TestScheduler_StopTimeout(t *testing.T) {
	block := make(chan struct{})
	task := TaskFunc{
		Label: "blocking task",
		F: func(ctx context.Context) error {
			<-block
			return nil
		},
	}
	s := NewScheduler(Config{Interval: time.Hour, CycleTimeout: time.Hour}, task)

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Stop(ctx))
	close(block)
}
