/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/jsonutil"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const (
	claimBatchSize = 20

	// taskLeaseMs is the claim visibility window. A claimed task whose
	// handler has not acknowledged within this window is redelivered.
	taskLeaseMs = 60_000
)

// HandlerFunc executes one durably scheduled invocation. Delivery is
// at-least-once across crashes, so handlers must be idempotent.
type HandlerFunc func(ctx context.Context, payload []byte) error

// taskStore is the slice of the database client the scheduler needs.
type taskStore interface {
	InsertScheduledTask(ctx context.Context, task *dbclient.ScheduledTask) error
	ClaimDueScheduledTasks(ctx context.Context, now, leaseMs int64, limit int) ([]*dbclient.ScheduledTask, error)
	DeleteScheduledTask(ctx context.Context, taskId string) error
}

// Scheduler provides durable delayed callbacks over the scheduled-task
// table, plus in-process cron entries. Deferred work survives restarts; the
// poll loop picks up whatever is due.
type Scheduler struct {
	db           taskStore
	pollInterval time.Duration
	cron         *cron.Cron

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler polling at the given interval.
func NewScheduler(db taskStore, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		db:           db,
		pollInterval: pollInterval,
		cron:         cron.New(),
		handlers:     map[string]HandlerFunc{},
		done:         make(chan struct{}),
	}
}

// Register binds a handler name to its function. Names are stable wire
// identifiers stored on task rows; queued tasks whose name no longer
// resolves are dropped at dispatch.
func (s *Scheduler) Register(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = fn
}

// RunAfter enqueues a durable invocation of the named handler after the
// delay. The payload is stored as JSON.
func (s *Scheduler) RunAfter(ctx context.Context, delayMs int64, fnName string, payload interface{}) error {
	s.mu.RLock()
	_, ok := s.handlers[fnName]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for %q", fnName)
	}
	now := timeutil.NowMs()
	task := &dbclient.ScheduledTask{
		Id:        uuid.NewString(),
		FnName:    fnName,
		Payload:   datatypes.JSON(jsonutil.MarshalSilently(payload)),
		DueAt:     now + delayMs,
		CreatedAt: now,
	}
	return s.db.InsertScheduledTask(ctx, task)
}

// AddCron registers a recurring in-process entry.
func (s *Scheduler) AddCron(spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, fn)
	return err
}

// Start launches the poll loop and the cron runner.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	go s.pollLoop(ctx)
	klog.Infof("scheduler started, poll interval %s", s.pollInterval)
}

// Stop halts the poll loop and the cron runner, waiting for in-flight
// dispatches to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	<-s.done
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.done)
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		tasks, err := s.db.ClaimDueScheduledTasks(ctx, timeutil.NowMs(), taskLeaseMs, claimBatchSize)
		if err != nil {
			wait := retry.NextBackOff()
			klog.ErrorS(err, "failed to claim scheduled tasks", "retryIn", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()
		for _, task := range tasks {
			s.dispatch(ctx, task)
		}
	}
}

// dispatch runs one claimed task. The row is acknowledged only after the
// handler returns nil; a failed handler keeps the row so the task
// redelivers once its claim lease expires.
func (s *Scheduler) dispatch(ctx context.Context, task *dbclient.ScheduledTask) {
	s.mu.RLock()
	fn, ok := s.handlers[task.FnName]
	s.mu.RUnlock()
	if !ok {
		klog.Errorf("dropping scheduled task %s: no handler for %q", task.Id, task.FnName)
		s.ack(ctx, task)
		return
	}
	if err := fn(ctx, []byte(task.Payload)); err != nil {
		klog.ErrorS(err, "scheduled task failed, will redeliver", "task", task.Id, "fn", task.FnName)
		return
	}
	s.ack(ctx, task)
}

func (s *Scheduler) ack(ctx context.Context, task *dbclient.ScheduledTask) {
	if err := s.db.DeleteScheduledTask(ctx, task.Id); err != nil {
		klog.ErrorS(err, "failed to acknowledge scheduled task", "task", task.Id)
	}
}
