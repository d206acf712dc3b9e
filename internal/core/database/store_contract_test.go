package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
	"github.com/markdave123-py/ivyready/internal/models"
)

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) core.ConversationStore {
		return NewMemoryClient()
	})
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	runStoreContract(t, func(t *testing.T) core.ConversationStore {
		c, err := NewDatabaseClient(context.Background(), &config.Config{DatabaseURL: dsn})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	runStoreContract(t, func(t *testing.T) core.ConversationStore {
		c, err := NewMongoClient(context.Background(), &config.Config{MongoURI: uri, MongoDatabase: "ivyready_test"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func newThread(selectionID, title, page string, msgs ...models.Message) *models.Thread {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if msgs == nil {
		msgs = []models.Message{}
	}
	return &models.Thread{
		ID:                  uuid.NewString(),
		StudentIvyServiceID: "svc-1",
		SelectionID:         selectionID,
		TaskTitle:           title,
		TaskPage:            page,
		Messages:            msgs,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func textMessage(sender models.Sender, text string) models.Message {
	return models.Message{
		Sender:      sender,
		SenderName:  string(sender) + "-name",
		Text:        text,
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		MessageType: models.MessageTypeNormal,
	}
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) core.ConversationStore) {
	ctx := context.Background()

	t.Run("find missing returns nil", func(t *testing.T) {
		s := newStore(t)
		th, err := s.FindThread(ctx, models.TaskKey{SelectionID: uuid.NewString(), TaskTitle: "Essay Draft"})
		require.NoError(t, err)
		assert.Nil(t, th)
	})

	t.Run("page-less thread matches every no-page spelling", func(t *testing.T) {
		s := newStore(t)
		sel := uuid.NewString()
		require.NoError(t, s.CreateThread(ctx, newThread(sel, "Essay Draft", "undefined", textMessage(models.SenderStudent, "hi"))))

		for _, page := range []string{"", "  ", "undefined"} {
			th, err := s.FindThread(ctx, models.TaskKey{SelectionID: sel, TaskTitle: "Essay Draft", TaskPage: page})
			require.NoError(t, err)
			require.NotNil(t, th, "page %q", page)
			assert.Equal(t, "", th.TaskPage)
			require.Len(t, th.Messages, 1)
			assert.Equal(t, "hi", th.Messages[0].Text)
		}

		th, err := s.FindThread(ctx, models.TaskKey{SelectionID: sel, TaskTitle: "Essay Draft", TaskPage: "p1"})
		require.NoError(t, err)
		assert.Nil(t, th)
	})

	t.Run("pages are distinct threads", func(t *testing.T) {
		s := newStore(t)
		sel := uuid.NewString()
		p1 := newThread(sel, "Essay Draft", "p1")
		p2 := newThread(sel, "Essay Draft", "p2")
		none := newThread(sel, "Essay Draft", "")
		require.NoError(t, s.CreateThread(ctx, p1))
		require.NoError(t, s.CreateThread(ctx, p2))
		require.NoError(t, s.CreateThread(ctx, none))

		got, err := s.FindThread(ctx, models.TaskKey{SelectionID: sel, TaskTitle: "Essay Draft", TaskPage: "p2"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, p2.ID, got.ID)

		got, err = s.FindThread(ctx, models.TaskKey{SelectionID: sel, TaskTitle: "Essay Draft"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, none.ID, got.ID)
	})

	t.Run("duplicate keys are rejected", func(t *testing.T) {
		s := newStore(t)
		sel := uuid.NewString()
		require.NoError(t, s.CreateThread(ctx, newThread(sel, "Essay Draft", "")))
		require.NoError(t, s.CreateThread(ctx, newThread(sel, "Essay Draft", "p1")))

		err := s.CreateThread(ctx, newThread(sel, "Essay Draft", ""))
		assert.True(t, errors.Is(err, core.ErrThreadExists), "got %v", err)

		err = s.CreateThread(ctx, newThread(sel, "Essay Draft", "p1"))
		assert.True(t, errors.Is(err, core.ErrThreadExists), "got %v", err)
	})

	t.Run("append keeps order", func(t *testing.T) {
		s := newStore(t)
		sel := uuid.NewString()
		th := newThread(sel, "Essay Draft", "", textMessage(models.SenderStudent, "Please review"))
		require.NoError(t, s.CreateThread(ctx, th))

		updated, err := s.AppendMessage(ctx, th.ID, textMessage(models.SenderCounselor, "Looks good"))
		require.NoError(t, err)
		require.Len(t, updated.Messages, 2)
		assert.Equal(t, "Please review", updated.Messages[0].Text)
		assert.Equal(t, models.SenderCounselor, updated.Messages[1].Sender)
		assert.False(t, updated.UpdatedAt.Before(th.UpdatedAt))

		withFile := textMessage(models.SenderStudent, "")
		withFile.Attachment = &models.Attachment{Name: "essay.pdf", URL: "/uploads/conversations/1-essay.pdf", Size: "2.00 KB"}
		_, err = s.AppendMessage(ctx, th.ID, withFile)
		require.NoError(t, err)

		got, err := s.FindThread(ctx, models.TaskKey{SelectionID: sel, TaskTitle: "Essay Draft"})
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		require.NotNil(t, got.Messages[2].Attachment)
		assert.Equal(t, "essay.pdf", got.Messages[2].Attachment.Name)
	})

	t.Run("append to unknown thread", func(t *testing.T) {
		s := newStore(t)
		_, err := s.AppendMessage(ctx, uuid.NewString(), textMessage(models.SenderStudent, "hi"))
		assert.True(t, errors.Is(err, core.ErrThreadNotFound), "got %v", err)
	})

	t.Run("concurrent creates leave one winner", func(t *testing.T) {
		s := newStore(t)
		sel := uuid.NewString()

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			wins   int
			losses int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.CreateThread(ctx, newThread(sel, "Race", "p1"))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
				} else if errors.Is(err, core.ErrThreadExists) {
					losses++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
		assert.Equal(t, 7, losses)
	})
}
