package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
)

// DefaultTickPeriod is the status heartbeat when none is configured.
const DefaultTickPeriod = time.Second

// Ticker drives OnTimer on every registry once per period. Registries are
// ticked concurrently, at most workers at a time; a panic in one registry is
// contained and the others still tick.
type Ticker struct {
	engine     *Engine
	logger     *logger.Logger
	period     time.Duration
	workers    int
	tickNumber atomic.Int64
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTicker creates a tick driver for the engine.
func NewTicker(e *Engine, period time.Duration, workers int, log *logger.Logger) *Ticker {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ticker{
		engine:   e,
		logger:   log.Named("ticker"),
		period:   period,
		workers:  max(workers, 1),
		stopChan: make(chan struct{}),
	}
}

// Start runs the heartbeat until ctx is done or Stop is called.
func (t *Ticker) Start(ctx context.Context) error {
	t.logger.Info("status ticker started", zap.Duration("period", t.period), zap.Int("workers", t.workers))

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("status ticker stopped by context")
			return nil
		case <-t.stopChan:
			t.logger.Info("status ticker stopped manually")
			return nil
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// TickNumber returns how many passes have run.
func (t *Ticker) TickNumber() int64 {
	return t.tickNumber.Load()
}

// Tick runs one pass over every registry.
func (t *Ticker) Tick(ctx context.Context) {
	start := time.Now()
	n := t.tickNumber.Add(1)

	var g errgroup.Group
	g.SetLimit(t.workers)
	for _, set := range t.engine.Sets() {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					t.engine.svc.metrics.RecordTickFault()
					t.logger.Critical("status registry tick panicked",
						zap.Uint32("role", set.owner.ID), zap.Error(fmt.Errorf("%v", r)))
				}
			}()
			set.OnTimer(ctx)
			return nil
		})
	}
	_ = g.Wait()

	latency := time.Since(start)
	t.engine.svc.metrics.RecordTick(latency)
	if latency > t.period {
		t.logger.Warn("status tick overran its period", zap.Int64("tick", n), zap.Duration("latency", latency))
	}
}
