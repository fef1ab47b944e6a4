package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gmsas95/aria/internal/store"
)

// Clock lets the current-time tool be pinned in tests.
type Clock func() time.Time

// NewAssistantRegistry builds the registry the conversation controller
// exposes to the model: memory and task operations bound to the store,
// plus a read-only clock query. Handlers touch nothing but the store.
func NewAssistantRegistry(st *store.Store, clock Clock) *Registry {
	if clock == nil {
		clock = time.Now
	}

	r := NewRegistry()
	r.Register(&SaveMemoryTool{store: st})
	r.Register(&GetMemoryTool{store: st})
	r.Register(&ListMemoriesTool{store: st})
	r.Register(&CreateTaskTool{store: st})
	r.Register(&ListTasksTool{store: st})
	r.Register(&CompleteTaskTool{store: st})
	r.Register(&DeleteTaskTool{store: st})
	r.Register(&CurrentTimeTool{clock: clock})
	return r
}

// normalizeKey folds memory keys so "Favorite Color " and "favorite color"
// address the same record. The store itself does exact lookups only.
func normalizeKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

// ==================== Memory Tools ====================

// SaveMemoryTool upserts a free-form memory.
type SaveMemoryTool struct {
	store *store.Store
}

func (t *SaveMemoryTool) Name() string { return "save_memory" }
func (t *SaveMemoryTool) Description() string {
	return "Save information to memory for later retrieval"
}
func (t *SaveMemoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"key": map[string]interface{}{
				"type":        "string",
				"description": "The key to store the memory under",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "The information to remember",
			},
		},
		"required": []string{"key", "value"},
	}
}

func (t *SaveMemoryTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	key := normalizeKey(args["key"].(string))
	value := args["value"].(string)

	if err := t.store.SaveMemory(key, value); err != nil {
		return "", err
	}

	return fmt.Sprintf("Memory %q saved.", key), nil
}

// GetMemoryTool recalls a memory by exact (normalized) key.
type GetMemoryTool struct {
	store *store.Store
}

func (t *GetMemoryTool) Name() string        { return "get_memory" }
func (t *GetMemoryTool) Description() string { return "Retrieve information from memory" }
func (t *GetMemoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"key": map[string]interface{}{
				"type":        "string",
				"description": "The key to retrieve",
			},
		},
		"required": []string{"key"},
	}
}

func (t *GetMemoryTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	key := normalizeKey(args["key"].(string))

	value, err := t.store.GetMemory(key)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s: %s", key, value), nil
}

// ListMemoriesTool lists everything stored.
type ListMemoriesTool struct {
	store *store.Store
}

func (t *ListMemoriesTool) Name() string        { return "list_memories" }
func (t *ListMemoriesTool) Description() string { return "List all stored memories" }
func (t *ListMemoriesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ListMemoriesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	memories, err := t.store.ListMemories()
	if err != nil {
		return "", err
	}

	if len(memories) == 0 {
		return "No memories stored yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d memories:\n", len(memories))
	for _, m := range memories {
		fmt.Fprintf(&sb, "- %s: %s\n", m.Key, m.Value)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ==================== Task Tools ====================

// CreateTaskTool adds a pending task.
type CreateTaskTool struct {
	store *store.Store
}

func (t *CreateTaskTool) Name() string        { return "create_task" }
func (t *CreateTaskTool) Description() string { return "Create a new task" }
func (t *CreateTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"description": map[string]interface{}{
				"type":        "string",
				"description": "What the task is about",
			},
		},
		"required": []string{"description"},
	}
}

func (t *CreateTaskTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	description := strings.TrimSpace(args["description"].(string))

	id, err := t.store.CreateTask(description)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Created task %d: %s", id, description), nil
}

// ListTasksTool lists tasks, optionally filtered by status.
type ListTasksTool struct {
	store *store.Store
}

func (t *ListTasksTool) Name() string        { return "list_tasks" }
func (t *ListTasksTool) Description() string { return "List all tasks or filter by status" }
func (t *ListTasksTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"filter": map[string]interface{}{
				"type":        "string",
				"description": "Filter by status: all, pending, completed",
				"enum":        []string{"all", "pending", "completed"},
			},
		},
	}
}

func (t *ListTasksTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	filter := store.FilterAll
	if f, ok := args["filter"].(string); ok && f != "" {
		filter = store.TaskFilter(f)
	}

	tasks, err := t.store.ListTasks(filter)
	if err != nil {
		return "", err
	}

	if len(tasks) == 0 {
		return "No tasks found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d tasks:\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&sb, "- Task %d: %s (%s)\n", task.ID, task.Description, task.Status)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// CompleteTaskTool marks a task done.
type CompleteTaskTool struct {
	store *store.Store
}

func (t *CompleteTaskTool) Name() string        { return "complete_task" }
func (t *CompleteTaskTool) Description() string { return "Mark a task as completed" }
func (t *CompleteTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "The ID of the task to complete",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *CompleteTaskTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	id := uint64(args["task_id"].(float64))

	if err := t.store.CompleteTask(id); err != nil {
		return "", err
	}

	return fmt.Sprintf("Task %d marked as completed.", id), nil
}

// DeleteTaskTool removes a task permanently.
type DeleteTaskTool struct {
	store *store.Store
}

func (t *DeleteTaskTool) Name() string        { return "delete_task" }
func (t *DeleteTaskTool) Description() string { return "Delete a task permanently" }
func (t *DeleteTaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_id": map[string]interface{}{
				"type":        "integer",
				"description": "The ID of the task to delete",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *DeleteTaskTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	id := uint64(args["task_id"].(float64))

	if err := t.store.DeleteTask(id); err != nil {
		return "", err
	}

	return fmt.Sprintf("Deleted task %d.", id), nil
}

// ==================== System Tools ====================

// CurrentTimeTool answers "what time is it" without leaving the process.
type CurrentTimeTool struct {
	clock Clock
}

func (t *CurrentTimeTool) Name() string        { return "get_current_time" }
func (t *CurrentTimeTool) Description() string { return "Get the current date and time" }
func (t *CurrentTimeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	now := t.clock()
	return fmt.Sprintf("It is %s on %s.", now.Format("15:04"), now.Format("Monday, January 2, 2006")), nil
}
