package tools

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/aria/internal/config"
	apperrors "github.com/gmsas95/aria/internal/errors"
	"github.com/gmsas95/aria/internal/store"
)

func setupRegistry(t *testing.T) (*Registry, *store.Store) {
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

	clock := func() time.Time {
		return time.Date(2025, time.March, 14, 9, 26, 0, 0, time.UTC)
	}
	return NewAssistantRegistry(st, clock), st
}

func TestDefinitions_DeterministicOrder(t *testing.T) {
	r, _ := setupRegistry(t)

	want := []string{
		"save_memory",
		"get_memory",
		"list_memories",
		"create_task",
		"list_tasks",
		"complete_task",
		"delete_task",
		"get_current_time",
	}
	assert.Equal(t, want, r.Names())

	// Definitions must come back in the same order every time.
	for i := 0; i < 3; i++ {
		defs := r.Definitions()
		require.Len(t, defs, len(want))
		for j, def := range defs {
			fn := def["function"].(map[string]interface{})
			assert.Equal(t, want[j], fn["name"])
			assert.Equal(t, "function", def["type"])
			assert.NotEmpty(t, fn["description"])
			assert.NotNil(t, fn["parameters"])
		}
	}
}

func TestInvoke_UnknownTool(t *testing.T) {
	r, _ := setupRegistry(t)

	_, err := r.Invoke(context.Background(), "launch_rockets", `{}`)
	require.Error(t, err)
	assert.Equal(t, "TOOL_001", apperrors.GetCode(err))
}

func TestInvoke_InvalidArguments(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name string
		tool string
		args string
	}{
		{"malformed json", "save_memory", `{"key": `},
		{"missing required", "save_memory", `{"key": "name"}`},
		{"wrong type", "complete_task", `{"task_id": "one"}`},
		{"fractional integer", "complete_task", `{"task_id": 1.5}`},
		{"undeclared field", "get_memory", `{"key": "name", "loud": true}`},
		{"enum violation", "list_tasks", `{"filter": "overdue"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Invoke(ctx, tc.tool, tc.args)
			require.Error(t, err)
			assert.Equal(t, "TOOL_002", apperrors.GetCode(err))
		})
	}
}

func TestMemoryTools(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	out, err := r.Invoke(ctx, "save_memory", `{"key": "Favorite  Color", "value": "blue"}`)
	require.NoError(t, err)
	assert.Equal(t, `Memory "favorite color" saved.`, out)

	// Keys are case- and whitespace-insensitive on the way in.
	out, err = r.Invoke(ctx, "get_memory", `{"key": "favorite color"}`)
	require.NoError(t, err)
	assert.Equal(t, "favorite color: blue", out)

	out, err = r.Invoke(ctx, "list_memories", `{}`)
	require.NoError(t, err)
	assert.Contains(t, out, "1 memories:")
	assert.Contains(t, out, "- favorite color: blue")
}

func TestGetMemory_NotFound(t *testing.T) {
	r, _ := setupRegistry(t)

	_, err := r.Invoke(context.Background(), "get_memory", `{"key": "nothing here"}`)
	require.Error(t, err)
	assert.Equal(t, "STORE_002", apperrors.GetCode(err))
}

func TestListMemories_Empty(t *testing.T) {
	r, _ := setupRegistry(t)

	out, err := r.Invoke(context.Background(), "list_memories", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "No memories stored yet.", out)
}

func TestTaskTools(t *testing.T) {
	r, st := setupRegistry(t)
	ctx := context.Background()

	out, err := r.Invoke(ctx, "create_task", `{"description": "buy milk"}`)
	require.NoError(t, err)
	assert.Equal(t, "Created task 1: buy milk", out)

	out, err = r.Invoke(ctx, "create_task", `{"description": "walk the dog"}`)
	require.NoError(t, err)
	assert.Equal(t, "Created task 2: walk the dog", out)

	out, err = r.Invoke(ctx, "complete_task", `{"task_id": 1}`)
	require.NoError(t, err)
	assert.Equal(t, "Task 1 marked as completed.", out)

	out, err = r.Invoke(ctx, "list_tasks", `{"filter": "pending"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Task 2: walk the dog (pending)")
	assert.NotContains(t, out, "buy milk")

	out, err = r.Invoke(ctx, "list_tasks", `{}`)
	require.NoError(t, err)
	assert.Contains(t, out, "2 tasks:")

	out, err = r.Invoke(ctx, "delete_task", `{"task_id": 2}`)
	require.NoError(t, err)
	assert.Equal(t, "Deleted task 2.", out)

	_, err = st.GetTask(2)
	assert.Equal(t, "STORE_002", apperrors.GetCode(err))
}

func TestTaskTools_MissingID(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := r.Invoke(ctx, "complete_task", `{"task_id": 99}`)
	require.Error(t, err)
	assert.Equal(t, "STORE_002", apperrors.GetCode(err))

	_, err = r.Invoke(ctx, "delete_task", `{"task_id": 99}`)
	require.Error(t, err)
	assert.Equal(t, "STORE_002", apperrors.GetCode(err))
}

func TestListTasks_Empty(t *testing.T) {
	r, _ := setupRegistry(t)

	out, err := r.Invoke(context.Background(), "list_tasks", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "No tasks found.", out)
}

func TestCurrentTimeTool(t *testing.T) {
	r, _ := setupRegistry(t)

	out, err := r.Invoke(context.Background(), "get_current_time", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "It is 09:26 on Friday, March 14, 2025.", out)
}

func TestInvoke_EmptyArguments(t *testing.T) {
	r, _ := setupRegistry(t)

	// Models sometimes send no arguments at all for zero-arg tools.
	out, err := r.Invoke(context.Background(), "list_memories", "")
	require.NoError(t, err)
	assert.Equal(t, "No memories stored yet.", out)
}
