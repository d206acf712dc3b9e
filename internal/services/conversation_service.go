package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/ivyready/internal/core"
	"github.com/markdave123-py/ivyready/internal/models"
)

// AttachmentSubfolder namespaces conversation uploads inside the attachment store.
const AttachmentSubfolder = "conversations"

// UploadedFile is an attachment received with a message.
type UploadedFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

type PostMessageInput struct {
	StudentIvyServiceID string
	SelectionID         string
	TaskTitle           string
	TaskPage            string
	Sender              string
	SenderName          string
	Text                string
	MessageType         string
	File                *UploadedFile
}

type ConversationService struct {
	store core.ConversationStore
	files core.ObjectClient
	now   func() time.Time
}

func NewConversationService(store core.ConversationStore, files core.ObjectClient) *ConversationService {
	return &ConversationService{store: store, files: files, now: time.Now}
}

// GetOrEmpty looks up the thread of a task. found is false when the task has
// no conversation yet; nothing is created in that case.
func (s *ConversationService) GetOrEmpty(ctx context.Context, selectionID, taskTitle, taskPage string) (thread *models.Thread, found bool, err error) {
	var missing []string
	if selectionID == "" {
		missing = append(missing, "selectionId")
	}
	if taskTitle == "" {
		missing = append(missing, "taskTitle")
	}
	if len(missing) > 0 {
		return nil, false, missingFields(missing)
	}

	key := models.TaskKey{SelectionID: selectionID, TaskTitle: taskTitle, TaskPage: taskPage}.Normalized()
	thread, err = s.store.FindThread(ctx, key)
	if err != nil {
		return nil, false, errors.Wrap(err, "fetch conversation")
	}
	return thread, thread != nil, nil
}

// PostMessage appends a message to the task's thread, creating the thread on
// the first message. An attached file is written before the thread is saved.
func (s *ConversationService) PostMessage(ctx context.Context, in PostMessageInput) (*models.Thread, error) {
	if err := validatePostMessage(in); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	key := models.TaskKey{SelectionID: in.SelectionID, TaskTitle: in.TaskTitle, TaskPage: in.TaskPage}.Normalized()

	existing, err := s.store.FindThread(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "fetch conversation")
	}

	msg := models.Message{
		Sender:      models.Sender(in.Sender),
		SenderName:  in.SenderName,
		Text:        in.Text,
		Timestamp:   s.now().UTC(),
		MessageType: models.MessageType(in.MessageType),
	}
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeNormal
	}

	var saved *core.SavedFile
	if in.File != nil {
		saved, err = s.files.Save(ctx, in.File.Content, in.File.Name, in.File.Size, AttachmentSubfolder)
		if err != nil {
			return nil, errors.Wrap(err, "save attachment")
		}
		attachmentsSaved.Inc()
		msg.Attachment = &models.Attachment{
			Name: in.File.Name,
			URL:  saved.Reference,
			Size: saved.SizeLabel,
		}
	}

	var thread *models.Thread
	if existing == nil {
		now := msg.Timestamp
		thread = &models.Thread{
			ID:                  uuid.NewString(),
			StudentIvyServiceID: in.StudentIvyServiceID,
			SelectionID:         key.SelectionID,
			TaskTitle:           key.TaskTitle,
			TaskPage:            key.TaskPage,
			Messages:            []models.Message{msg},
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.store.CreateThread(ctx, thread); err != nil {
			s.discardAttachment(ctx, saved)
			return nil, errors.Wrap(err, "create conversation")
		}
		threadsCreated.Inc()
		logger.Info().Str("thread_id", thread.ID).Str("selection_id", key.SelectionID).
			Str("task_title", key.TaskTitle).Str("task_page", key.TaskPage).Msg("conversation thread created")
	} else {
		thread, err = s.store.AppendMessage(ctx, existing.ID, msg)
		if err != nil {
			s.discardAttachment(ctx, saved)
			return nil, errors.Wrap(err, "append message")
		}
	}

	messagesAppended.WithLabelValues(string(msg.Sender), string(msg.MessageType)).Inc()
	logger.Debug().Str("thread_id", thread.ID).Str("sender", string(msg.Sender)).
		Bool("attachment", msg.Attachment != nil).Int("messages", len(thread.Messages)).Msg("message appended")
	return thread, nil
}

// discardAttachment removes a file whose message could not be saved.
func (s *ConversationService) discardAttachment(ctx context.Context, saved *core.SavedFile) {
	if saved == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	if err := s.files.Delete(context.WithoutCancel(ctx), saved.Reference); err != nil {
		attachmentsOrphaned.Inc()
		logger.Error().Err(err).Str("reference", saved.Reference).Msg("orphaned attachment")
		return
	}
	logger.Warn().Str("reference", saved.Reference).Msg("attachment removed after failed save")
}

func validatePostMessage(in PostMessageInput) error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"studentIvyServiceId", in.StudentIvyServiceID},
		{"selectionId", in.SelectionID},
		{"taskTitle", in.TaskTitle},
		{"sender", in.Sender},
		{"senderName", in.SenderName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return missingFields(missing)
	}

	if !models.Sender(in.Sender).Valid() {
		return &ValidationError{Message: `sender must be "student" or "counselor"`, Fields: []string{"sender"}}
	}
	if in.MessageType != "" && !models.MessageType(in.MessageType).Valid() {
		return &ValidationError{
			Message: `messageType must be one of "normal", "feedback", "action", "resource"`,
			Fields:  []string{"messageType"},
		}
	}
	if in.Text == "" && in.File == nil {
		return &ValidationError{Message: "either text or file is required", Fields: []string{"text", "file"}}
	}
	return nil
}
