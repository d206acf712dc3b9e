package handlers

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/ivyready/internal/api/response"
	"github.com/markdave123-py/ivyready/internal/models"
	"github.com/markdave123-py/ivyready/internal/services"
)

// ConversationService is what the handler needs from the service layer.
type ConversationService interface {
	GetOrEmpty(ctx context.Context, selectionID, taskTitle, taskPage string) (*models.Thread, bool, error)
	PostMessage(ctx context.Context, in services.PostMessageInput) (*models.Thread, error)
}

type ConversationHandler struct {
	svc ConversationService
}

func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// emptyConversation is returned for tasks that have no thread yet.
type emptyConversation struct {
	Messages []models.Message `json:"messages"`
}

// GetConversation returns the thread of a task, or an empty message list.
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	thread, found, err := h.svc.GetOrEmpty(r.Context(), q.Get("selectionId"), q.Get("taskTitle"), q.Get("taskPage"))
	if err != nil {
		h.fail(w, r, err, "failed to fetch conversation")
		return
	}
	if !found {
		response.OK(w, emptyConversation{Messages: []models.Message{}})
		return
	}
	response.OK(w, thread)
}

// PostMessage appends a message, with an optional "file" part, to a task's thread.
func (h *ConversationHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	in := services.PostMessageInput{
		StudentIvyServiceID: r.FormValue("studentIvyServiceId"),
		SelectionID:         r.FormValue("selectionId"),
		TaskTitle:           r.FormValue("taskTitle"),
		TaskPage:            r.FormValue("taskPage"),
		Sender:              r.FormValue("sender"),
		SenderName:          r.FormValue("senderName"),
		Text:                r.FormValue("text"),
		MessageType:         r.FormValue("messageType"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		in.File = &services.UploadedFile{Name: header.Filename, Size: header.Size, Content: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("unreadable file part")
		response.Error(w, http.StatusBadRequest, "invalid file")
		return
	}

	thread, err := h.svc.PostMessage(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "failed to send message")
		return
	}
	response.OK(w, thread)
}

func (h *ConversationHandler) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		response.Error(w, http.StatusBadRequest, verr.Message)
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(action)
	response.Error(w, http.StatusInternalServerError, action+": "+err.Error())
}
