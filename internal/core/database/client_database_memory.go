package db

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/markdave123-py/ivyready/internal/core"
	"github.com/markdave123-py/ivyready/internal/models"
)

type taskKey struct {
	selectionID string
	taskTitle   string
}

type taskPageKey struct {
	taskKey
	taskPage string
}

// MemoryClient keeps threads in process. It enforces the same two uniqueness
// constraints as the database backends: byPage for threads with a page and
// byTask for threads without.
type MemoryClient struct {
	mu      sync.RWMutex
	threads map[string]*models.Thread
	byPage  map[taskPageKey]string
	byTask  map[taskKey]string
	now     func() time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		threads: make(map[string]*models.Thread),
		byPage:  make(map[taskPageKey]string),
		byTask:  make(map[taskKey]string),
		now:     time.Now,
	}
}

func (c *MemoryClient) FindThread(ctx context.Context, key models.TaskKey) (*models.Thread, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.lookup(key.Normalized())
	if !ok {
		return nil, nil
	}
	return cloneThread(c.threads[id]), nil
}

func (c *MemoryClient) CreateThread(ctx context.Context, thread *models.Thread) error {
	if thread == nil {
		return errors.New("nil thread")
	}
	thread.TaskPage = models.NormalizeTaskPage(thread.TaskPage)
	key := thread.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.threads[thread.ID]; exists {
		return errors.Errorf("thread id %s already used", thread.ID)
	}
	if _, exists := c.lookup(key); exists {
		if key.HasPage() {
			return errors.Wrap(core.ErrThreadExists, "constraint task_page_key")
		}
		return errors.Wrap(core.ErrThreadExists, "constraint task_key")
	}

	stored := cloneThread(thread)
	if stored.Messages == nil {
		stored.Messages = []models.Message{}
	}
	c.threads[stored.ID] = stored
	tk := taskKey{selectionID: key.SelectionID, taskTitle: key.TaskTitle}
	if key.HasPage() {
		c.byPage[taskPageKey{taskKey: tk, taskPage: key.TaskPage}] = stored.ID
	} else {
		c.byTask[tk] = stored.ID
	}
	return nil
}

func (c *MemoryClient) AppendMessage(ctx context.Context, threadID string, msg models.Message) (*models.Thread, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.threads[threadID]
	if !ok {
		return nil, errors.Wrapf(core.ErrThreadNotFound, "thread %s", threadID)
	}
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = c.now().UTC()
	return cloneThread(t), nil
}

func (c *MemoryClient) Close() error { return nil }

func (c *MemoryClient) lookup(key models.TaskKey) (string, bool) {
	tk := taskKey{selectionID: key.SelectionID, taskTitle: key.TaskTitle}
	if key.HasPage() {
		id, ok := c.byPage[taskPageKey{taskKey: tk, taskPage: key.TaskPage}]
		return id, ok
	}
	id, ok := c.byTask[tk]
	return id, ok
}

func cloneThread(t *models.Thread) *models.Thread {
	cp := *t
	cp.Messages = append([]models.Message(nil), t.Messages...)
	for i := range cp.Messages {
		if a := cp.Messages[i].Attachment; a != nil {
			ac := *a
			cp.Messages[i].Attachment = &ac
		}
	}
	if cp.Messages == nil {
		cp.Messages = []models.Message{}
	}
	return &cp
}

var _ core.ConversationStore = (*MemoryClient)(nil)
