package services

import "github.com/prometheus/client_golang/prometheus"

var (
	threadsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ivyready_conversation_threads_created_total",
		Help: "Conversation threads created by a first message.",
	})

	messagesAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ivyready_conversation_messages_total",
		Help: "Messages appended to conversation threads.",
	}, []string{"sender", "message_type"})

	attachmentsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ivyready_conversation_attachments_total",
		Help: "Attachments written for conversation messages.",
	})

	attachmentsOrphaned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ivyready_conversation_attachments_orphaned_total",
		Help: "Attachments left behind because both the thread save and the cleanup failed.",
	})
)

func init() {
	prometheus.MustRegister(threadsCreated, messagesAppended, attachmentsSaved, attachmentsOrphaned)
}
