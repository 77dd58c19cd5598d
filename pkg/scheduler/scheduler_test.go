/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks []*dbclient.ScheduledTask
}

func (f *fakeTaskStore) InsertScheduledTask(_ context.Context, task *dbclient.ScheduledTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeTaskStore) ClaimDueScheduledTasks(_ context.Context, now, leaseMs int64, limit int) ([]*dbclient.ScheduledTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*dbclient.ScheduledTask
	for _, task := range f.tasks {
		if task.DueAt <= now && len(due) < limit {
			task.DueAt = now + leaseMs
			due = append(due, task)
		}
	}
	return due, nil
}

func (f *fakeTaskStore) DeleteScheduledTask(_ context.Context, taskId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*dbclient.ScheduledTask
	for _, task := range f.tasks {
		if task.Id != taskId {
			kept = append(kept, task)
		}
	}
	f.tasks = kept
	return nil
}

func (f *fakeTaskStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func TestRunAfterRequiresRegisteredHandler(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, time.Hour)

	err := sched.RunAfter(context.Background(), 0, "missing", nil)
	require.Error(t, err)
	assert.Empty(t, store.tasks)
}

func TestRunAfterStoresPayloadAndDueTime(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, time.Hour)
	sched.Register("demo", func(context.Context, []byte) error { return nil })

	before := timeutil.NowMs()
	err := sched.RunAfter(context.Background(), 5_000, "demo", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.Len(t, store.tasks, 1)

	task := store.tasks[0]
	assert.Equal(t, "demo", task.FnName)
	assert.GreaterOrEqual(t, task.DueAt, before+5_000)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, "v", payload["k"])
}

func TestDispatchRunsRegisteredHandler(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, time.Hour)

	var got []byte
	sched.Register("demo", func(_ context.Context, payload []byte) error {
		got = payload
		return nil
	})
	sched.dispatch(context.Background(), &dbclient.ScheduledTask{
		Id: "t1", FnName: "demo", Payload: []byte(`{"n":1}`),
	})
	assert.JSONEq(t, `{"n":1}`, string(got))

	// unknown handler names are dropped without panicking
	sched.dispatch(context.Background(), &dbclient.ScheduledTask{Id: "t2", FnName: "gone"})
}

func TestDispatchAcknowledgesOnSuccess(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, time.Hour)
	sched.Register("demo", func(context.Context, []byte) error { return nil })

	ctx := context.Background()
	require.NoError(t, sched.RunAfter(ctx, 0, "demo", nil))

	tasks, err := store.ClaimDueScheduledTasks(ctx, timeutil.NowMs(), taskLeaseMs, claimBatchSize)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	sched.dispatch(ctx, tasks[0])
	assert.Equal(t, 0, store.count())
}

func TestFailedTaskIsRedelivered(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, time.Hour)

	calls := 0
	sched.Register("flaky", func(context.Context, []byte) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("transient failure")
		}
		return nil
	})

	ctx := context.Background()
	require.NoError(t, sched.RunAfter(ctx, 0, "flaky", nil))
	now := timeutil.NowMs()

	tasks, err := store.ClaimDueScheduledTasks(ctx, now, taskLeaseMs, claimBatchSize)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	sched.dispatch(ctx, tasks[0])

	// the failed task stays in the table, invisible until its lease expires
	assert.Equal(t, 1, store.count())
	tasks, err = store.ClaimDueScheduledTasks(ctx, now+1, taskLeaseMs, claimBatchSize)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, err = store.ClaimDueScheduledTasks(ctx, now+taskLeaseMs+1, taskLeaseMs, claimBatchSize)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	sched.dispatch(ctx, tasks[0])

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, store.count())
}

func TestUnknownHandlerTaskIsDropped(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, time.Hour)
	store.tasks = append(store.tasks, &dbclient.ScheduledTask{Id: "t1", FnName: "gone", DueAt: 1})

	sched.dispatch(context.Background(), store.tasks[0])
	assert.Equal(t, 0, store.count())
}

func TestPollLoopDeliversDueTasks(t *testing.T) {
	store := &fakeTaskStore{}
	sched := NewScheduler(store, 5*time.Millisecond)

	delivered := make(chan struct{})
	var once sync.Once
	sched.Register("demo", func(context.Context, []byte) error {
		once.Do(func() { close(delivered) })
		return nil
	})
	require.NoError(t, sched.RunAfter(context.Background(), 0, "demo", nil))

	sched.Start(context.Background())
	defer sched.Stop()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task was not delivered")
	}
}
