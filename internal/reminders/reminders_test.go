package reminders

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/config"
	"github.com/gmsas95/aria/internal/store"
)

func setupScheduler(t *testing.T, schedule string) (*Scheduler, *store.Store, *[]string) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DataDir:    dir,
			SQLitePath: filepath.Join(dir, "test.db"),
			BadgerPath: filepath.Join(dir, "badger"),
		},
	}

	st, err := store.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	var announced []string
	announce := func(ctx context.Context, message string) {
		announced = append(announced, message)
	}

	return NewScheduler(schedule, st, announce, zap.NewNop()), st, &announced
}

func TestPendingSummary(t *testing.T) {
	s, st, _ := setupScheduler(t, "0 9 * * *")

	summary, err := s.PendingSummary()
	require.NoError(t, err)
	assert.Empty(t, summary)

	_, err = st.CreateTask("buy milk")
	require.NoError(t, err)

	summary, err = s.PendingSummary()
	require.NoError(t, err)
	assert.Equal(t, "You have 1 pending task: buy milk.", summary)

	_, err = st.CreateTask("walk the dog")
	require.NoError(t, err)

	summary, err = s.PendingSummary()
	require.NoError(t, err)
	assert.Equal(t, "You have 2 pending tasks: buy milk, walk the dog.", summary)
}

func TestPendingSummary_SkipsCompleted(t *testing.T) {
	s, st, _ := setupScheduler(t, "0 9 * * *")

	id, err := st.CreateTask("done already")
	require.NoError(t, err)
	require.NoError(t, st.CompleteTask(id))

	summary, err := s.PendingSummary()
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestStartStop(t *testing.T) {
	s, _, _ := setupScheduler(t, "0 9 * * *")

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	// Double start fails.
	assert.Error(t, s.Start())

	s.Stop()
	assert.False(t, s.IsRunning())

	// Stopping again is a no-op.
	s.Stop()
}

func TestStart_BadSchedule(t *testing.T) {
	s, _, _ := setupScheduler(t, "not a schedule")
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestRunOnce_Announces(t *testing.T) {
	s, st, announced := setupScheduler(t, "0 9 * * *")

	_, err := st.CreateTask("buy milk")
	require.NoError(t, err)

	s.runOnce()
	require.Len(t, *announced, 1)
	assert.Contains(t, (*announced)[0], "buy milk")
}
