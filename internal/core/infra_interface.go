package core

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/markdave123-py/ivyready/internal/models"
)

var (
	// ErrThreadExists is returned when a create collides with the unique task key.
	ErrThreadExists = errors.New("conversation thread already exists for this task")
	// ErrThreadNotFound is returned when appending to an unknown thread id.
	ErrThreadNotFound = errors.New("conversation thread not found")
)

// ConversationStore defines the persistence operations of task conversations.
// Implementations enforce that a task key identifies at most one thread: one
// constraint over (selection, title, page) for threads with a page and one over
// (selection, title) for threads without.
type ConversationStore interface {
	// FindThread returns nil, nil when no thread matches the normalized key.
	FindThread(ctx context.Context, key models.TaskKey) (*models.Thread, error)
	CreateThread(ctx context.Context, thread *models.Thread) error
	// AppendMessage atomically appends msg and returns the updated thread.
	AppendMessage(ctx context.Context, threadID string, msg models.Message) (*models.Thread, error)

	Close() error
}

// SavedFile describes an attachment written by an ObjectClient.
type SavedFile struct {
	Reference  string // path or URL the file can be retrieved from
	StoredName string // <unix-millis>-<sanitized original name>
	SizeLabel  string
}

// ObjectClient persists uploaded attachment bytes.
type ObjectClient interface {
	Save(ctx context.Context, data io.Reader, originalName string, size int64, subfolder string) (*SavedFile, error)
	Delete(ctx context.Context, reference string) error
}
