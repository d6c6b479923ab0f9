package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
)

// ConventionLister lists every stored convention
type ConventionLister interface {
	ListConventions(ctx context.Context) ([]*domain.Convention, error)
}

// SweepScheduler periodically queues a reconciliation of every convention,
// picking up members whose join or rename events were missed.
type SweepScheduler struct {
	lister     ConventionLister
	dispatcher usecase.ReconcileDispatcher
	interval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *log.Logger
}

// NewSweepScheduler creates a new sweep scheduler. A non-positive interval
// disables it.
func NewSweepScheduler(lister ConventionLister, dispatcher usecase.ReconcileDispatcher, interval time.Duration) *SweepScheduler {
	return &SweepScheduler{
		lister:     lister,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     log.WithPrefix("Sweep"),
	}
}

// Start starts the sweep loop
func (s *SweepScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Debug("Disabled")
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("Started", "interval", s.interval)
}

// Stop stops the sweep loop
func (s *SweepScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Stopped")
}

func (s *SweepScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep queues one job per convention and returns how many were queued.
// A full queue stops the sweep early; the rest waits for the next tick.
func (s *SweepScheduler) Sweep(ctx context.Context) int {
	convs, err := s.lister.ListConventions(ctx)
	if err != nil {
		s.logger.Error("Failed to list conventions", "err", err)
		return 0
	}

	queued := 0
	for _, c := range convs {
		_, err := s.dispatcher.Dispatch(ctx, domain.ReconcileJob{ChannelID: c.ChannelID, Pattern: c.Pattern})
		if err != nil {
			if errors.Is(err, ErrQueueFull) {
				s.logger.Warn("Queue full, sweep cut short", "queued", queued, "total", len(convs))
				break
			}
			s.logger.Error("Failed to queue sweep job", "channel", c.ChannelID, "err", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		queued++
	}

	s.logger.Info("Sweep queued", "jobs", queued, "conventions", len(convs))
	return queued
}
