package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTaskPage(t *testing.T) {
	assert.Equal(t, "", NormalizeTaskPage(""))
	assert.Equal(t, "", NormalizeTaskPage("   "))
	assert.Equal(t, "", NormalizeTaskPage("undefined"))
	assert.Equal(t, "p1", NormalizeTaskPage("p1"))
	assert.Equal(t, "Undefined", NormalizeTaskPage("Undefined"))
}

func TestTaskKeyHasPage(t *testing.T) {
	assert.False(t, TaskKey{SelectionID: "S1", TaskTitle: "Essay", TaskPage: "undefined"}.HasPage())
	assert.True(t, TaskKey{SelectionID: "S1", TaskTitle: "Essay", TaskPage: "p2"}.HasPage())

	k := TaskKey{SelectionID: "S1", TaskTitle: "Essay", TaskPage: " "}.Normalized()
	assert.Equal(t, TaskKey{SelectionID: "S1", TaskTitle: "Essay"}, k)
}

func TestSenderAndMessageTypeValid(t *testing.T) {
	assert.True(t, SenderStudent.Valid())
	assert.True(t, SenderCounselor.Valid())
	assert.False(t, Sender("parent").Valid())

	assert.True(t, MessageTypeResource.Valid())
	assert.False(t, MessageType("urgent").Valid())
	assert.False(t, MessageType("").Valid())
}
