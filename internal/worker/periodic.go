package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one run of a periodic job. now is the tick time.
type Task func(ctx context.Context, now time.Time) error

// Periodic runs a Task on a fixed interval from a single goroutine, so runs
// never overlap; ticks that fire while a run is in progress are dropped by the
// ticker.
type Periodic struct {
	name     string
	interval time.Duration
	task     Task

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewPeriodic(name string, interval time.Duration, task Task) *Periodic {
	ctx, cancel := context.WithCancel(context.Background())
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (p *Periodic) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		slog.Info("periodic task started", "task", p.name, "interval", p.interval.String())
		for {
			select {
			case now := <-ticker.C:
				p.run(now)
			case <-p.done:
				return
			}
		}
	}()
}

func (p *Periodic) run(now time.Time) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("periodic task panicked", "task", p.name, "panic", r)
		}
	}()
	if err := p.task(p.ctx, now); err != nil {
		slog.Error("periodic task failed", "task", p.name, "error", err,
			"latency_ms", float64(time.Since(start).Milliseconds()))
	}
}

// Stop signals the loop and waits for an in-flight run to return.
func (p *Periodic) Stop() {
	p.once.Do(func() {
		close(p.done)
		p.cancel()
	})
	p.wg.Wait()
}
