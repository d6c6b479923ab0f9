package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
)

type stubLister struct {
	convs []*domain.Convention
	err   error
}

func (s *stubLister) ListConventions(ctx context.Context) ([]*domain.Convention, error) {
	return s.convs, s.err
}

type recordingDispatcher struct {
	jobs   []domain.ReconcileJob
	failAt int // 1-based call that returns ErrQueueFull, 0 never
	calls  int
	jobCh  chan domain.ReconcileJob
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, job domain.ReconcileJob) (string, error) {
	r.calls++
	if r.failAt > 0 && r.calls >= r.failAt {
		return "", ErrQueueFull
	}
	r.jobs = append(r.jobs, job)
	if r.jobCh != nil {
		r.jobCh <- job
	}
	return "job", nil
}

func testConventions() []*domain.Convention {
	return []*domain.Convention{
		{ChannelID: "oc_a", Pattern: "a*"},
		{ChannelID: "oc_b", Pattern: "b*"},
		{ChannelID: "oc_c", Pattern: "c*"},
	}
}

func TestSweep_QueuesEveryConvention(t *testing.T) {
	disp := &recordingDispatcher{}
	s := NewSweepScheduler(&stubLister{convs: testConventions()}, disp, time.Hour)

	n := s.Sweep(context.Background())

	assert.Equal(t, 3, n)
	assert.Equal(t, []domain.ReconcileJob{
		{ChannelID: "oc_a", Pattern: "a*"},
		{ChannelID: "oc_b", Pattern: "b*"},
		{ChannelID: "oc_c", Pattern: "c*"},
	}, disp.jobs)
}

func TestSweep_StopsOnFullQueue(t *testing.T) {
	disp := &recordingDispatcher{failAt: 2}
	s := NewSweepScheduler(&stubLister{convs: testConventions()}, disp, time.Hour)

	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Equal(t, 2, disp.calls)
}

func TestSweep_ListError(t *testing.T) {
	disp := &recordingDispatcher{}
	s := NewSweepScheduler(&stubLister{err: errors.New("db down")}, disp, time.Hour)

	assert.Equal(t, 0, s.Sweep(context.Background()))
	assert.Empty(t, disp.jobs)
}

func TestSweepScheduler_TicksUntilStopped(t *testing.T) {
	disp := &recordingDispatcher{jobCh: make(chan domain.ReconcileJob, 16)}
	s := NewSweepScheduler(&stubLister{convs: testConventions()[:1]}, disp, 10*time.Millisecond)

	s.Start(context.Background())
	select {
	case job := <-disp.jobCh:
		assert.Equal(t, "oc_a", job.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}
	s.Stop()
}

func TestSweepScheduler_DisabledIsNoop(t *testing.T) {
	s := NewSweepScheduler(&stubLister{}, &recordingDispatcher{}, 0)
	s.Start(context.Background())
	s.Stop()
}
