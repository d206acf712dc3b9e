package models

import (
	"strings"
	"time"
)

// Sender identifies who wrote a conversation message.
type Sender string

const (
	SenderStudent   Sender = "student"
	SenderCounselor Sender = "counselor"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderStudent || s == SenderCounselor
}

// MessageType categorizes a message inside a task thread.
type MessageType string

const (
	MessageTypeNormal   MessageType = "normal"
	MessageTypeFeedback MessageType = "feedback"
	MessageTypeAction   MessageType = "action"
	MessageTypeResource MessageType = "resource"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeNormal, MessageTypeFeedback, MessageTypeAction, MessageTypeResource:
		return true
	}
	return false
}

// Attachment is a file reference embedded in a single message.
type Attachment struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
	Size string `json:"size" bson:"size"` // human readable, e.g. "2.00 KB"
}

// Message is one entry of a thread. Messages are never edited after append.
type Message struct {
	Sender      Sender      `json:"sender" bson:"sender"`
	SenderName  string      `json:"senderName" bson:"senderName"`
	Text        string      `json:"text" bson:"text"`
	Timestamp   time.Time   `json:"timestamp" bson:"timestamp"`
	MessageType MessageType `json:"messageType" bson:"messageType"`
	Attachment  *Attachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
}

// Thread is the conversation attached to one task of a student's service.
// TaskPage is left empty (and omitted from stored records) when the task has no page.
type Thread struct {
	ID                  string    `db:"id" json:"id" bson:"_id"`
	StudentIvyServiceID string    `db:"student_ivy_service_id" json:"studentIvyServiceId" bson:"studentIvyServiceId"`
	SelectionID         string    `db:"selection_id" json:"selectionId" bson:"selectionId"`
	TaskTitle           string    `db:"task_title" json:"taskTitle" bson:"taskTitle"`
	TaskPage            string    `db:"task_page" json:"taskPage,omitempty" bson:"taskPage,omitempty"`
	Messages            []Message `db:"messages" json:"messages" bson:"messages"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// Key returns the lookup key of the thread.
func (t *Thread) Key() TaskKey {
	return TaskKey{SelectionID: t.SelectionID, TaskTitle: t.TaskTitle, TaskPage: t.TaskPage}.Normalized()
}

// TaskKey addresses at most one thread.
type TaskKey struct {
	SelectionID string
	TaskTitle   string
	TaskPage    string
}

// Normalized returns a copy of k with its page passed through NormalizeTaskPage.
func (k TaskKey) Normalized() TaskKey {
	k.TaskPage = NormalizeTaskPage(k.TaskPage)
	return k
}

// HasPage reports whether the (normalized) key carries a task page.
func (k TaskKey) HasPage() bool {
	return NormalizeTaskPage(k.TaskPage) != ""
}

// NormalizeTaskPage collapses the "no page" spellings clients send (empty,
// whitespace, the literal "undefined") into the empty string.
func NormalizeTaskPage(page string) string {
	if strings.TrimSpace(page) == "" || page == "undefined" {
		return ""
	}
	return page
}
