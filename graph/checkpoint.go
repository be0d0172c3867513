package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/nodes"
	"github.com/autoweb/agent/state"
)

// Checkpoint is everything the orchestrator needs to resume a suspended
// task: the AgentState snapshot and the node that should run next. Next
// is empty once a run reaches nodes.NodeEnd.
type Checkpoint struct {
	State state.AgentState `json:"state"`
	Next  nodes.Next       `json:"next"`
}

// Checkpointer persists AgentState across HITL interrupts, keyed by
// thread_id (spec §4.12, §4.1 "persisted across HITL interrupts via a
// checkpointer keyed by thread_id").
type Checkpointer interface {
	Save(ctx context.Context, threadID string, cp Checkpoint) error
	Load(ctx context.Context, threadID string) (Checkpoint, bool, error)
	Delete(ctx context.Context, threadID string) error
}

// InMemoryCheckpointer is the default for single-process runs and tests.
type InMemoryCheckpointer struct {
	mu    sync.Mutex
	store map[string]Checkpoint
}

// NewInMemoryCheckpointer returns a ready-to-use checkpointer.
func NewInMemoryCheckpointer() *InMemoryCheckpointer {
	return &InMemoryCheckpointer{store: make(map[string]Checkpoint)}
}

func (c *InMemoryCheckpointer) Save(ctx context.Context, threadID string, cp Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[threadID] = cp
	return nil
}

func (c *InMemoryCheckpointer) Load(ctx context.Context, threadID string) (Checkpoint, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp, ok := c.store[threadID]
	return cp, ok, nil
}

func (c *InMemoryCheckpointer) Delete(ctx context.Context, threadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, threadID)
	return nil
}

// redisCheckpointTTL bounds how long a suspended thread's state survives
// without a resume — mirrors the teacher's 24h execution-history TTL.
const redisCheckpointTTL = 24 * time.Hour

// RedisCheckpointer persists checkpoints in Redis so a task can be
// resumed across Supervisor restarts, grounded on the teacher's
// RedisStateStore (orchestration/workflow_state.go).
type RedisCheckpointer struct {
	client *core.RedisClient
}

// NewRedisCheckpointer wraps an already-configured Redis client.
func NewRedisCheckpointer(client *core.RedisClient) *RedisCheckpointer {
	return &RedisCheckpointer{client: client}
}

func checkpointKey(threadID string) string {
	return fmt.Sprintf("thread:%s", threadID)
}

func (c *RedisCheckpointer) Save(ctx context.Context, threadID string, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("graph: marshal checkpoint: %w", err)
	}
	if err := c.client.Set(ctx, checkpointKey(threadID), data, redisCheckpointTTL); err != nil {
		return fmt.Errorf("graph: save checkpoint: %w", err)
	}
	return nil
}

func (c *RedisCheckpointer) Load(ctx context.Context, threadID string) (Checkpoint, bool, error) {
	raw, err := c.client.Get(ctx, checkpointKey(threadID))
	if err == redis.Nil {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("graph: load checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("graph: unmarshal checkpoint: %w", err)
	}
	return cp, true, nil
}

func (c *RedisCheckpointer) Delete(ctx context.Context, threadID string) error {
	return c.client.Del(ctx, checkpointKey(threadID))
}
