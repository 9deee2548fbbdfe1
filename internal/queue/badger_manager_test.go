package queue

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestQueue(t *testing.T, visibility time.Duration, maxReceive int) *BadgerManager {
	t.Helper()
	manager, err := NewBadgerManager(newTestDB(t), "jobs", visibility, maxReceive)
	require.NoError(t, err)
	return manager
}

func TestEnqueueReceiveDelete(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_1", Source: "api"}))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	trigger, deleteFn, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_1", trigger.JobID)
	assert.Equal(t, "api", trigger.Source)
	assert.NotEmpty(t, trigger.MessageID)
	assert.False(t, trigger.EnqueuedAt.IsZero())

	require.NoError(t, deleteFn())

	length, err = q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestReceiveEmptyQueue(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)

	_, _, err := q.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestInFlightTriggerIsInvisible(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_1"}))

	_, _, err := q.Receive(ctx)
	require.NoError(t, err)

	// Still counted, but not deliverable until the timeout lapses
	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestUndeletedTriggerRedelivers(t *testing.T) {
	q := newTestQueue(t, 20*time.Millisecond, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_1"}))

	first, _, err := q.Receive(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	second, deleteFn, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, first.MessageID, second.MessageID)
	require.NoError(t, deleteFn())
}

func TestPoisonTriggerDroppedAfterMaxReceive(t *testing.T) {
	q := newTestQueue(t, 10*time.Millisecond, 2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_poison"}))

	for i := 0; i < 2; i++ {
		_, _, err := q.Receive(ctx)
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)
	}

	// Third receive drops the trigger instead of delivering it
	_, _, err := q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestPoisonDropPersistsAcrossReceives(t *testing.T) {
	q := newTestQueue(t, 10*time.Millisecond, 1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_poison"}))

	_, _, err := q.Receive(ctx)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_good"}))

	// The same receive that drops the poison trigger delivers the next
	// visible one
	trigger, deleteFn, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_good", trigger.JobID)

	// The drop committed, only the claimed trigger remains
	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	require.NoError(t, deleteFn())

	length, err = q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestExtendKeepsTriggerInvisible(t *testing.T) {
	q := newTestQueue(t, 20*time.Millisecond, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_1"}))

	trigger, deleteFn, err := q.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Extend(ctx, trigger.MessageID, time.Minute))
	time.Sleep(50 * time.Millisecond)

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	require.NoError(t, deleteFn())
}

func TestOldestVisibleDeliveredFirst(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_first"}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, &JobTrigger{JobID: "job_second"}))

	trigger, deleteFn, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_first", trigger.JobID)
	require.NoError(t, deleteFn())
}

func TestEnqueueValidation(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)

	assert.Error(t, q.Enqueue(context.Background(), nil))
	assert.Error(t, q.Enqueue(context.Background(), &JobTrigger{}))
}
