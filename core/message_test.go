package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 4, PriorityUrgent.Weight())
	assert.Equal(t, 3, PriorityHigh.Weight())
	assert.Equal(t, 2, PriorityNormal.Weight())
	assert.Equal(t, 1, PriorityLow.Weight())
	assert.Equal(t, 2, Priority("bogus").Weight())
}

func TestNewMessage_Defaults(t *testing.T) {
	m := NewMessage("user", "coord", MessageTask, "hello")

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "user", m.From)
	assert.Equal(t, "coord", m.To)
	assert.Equal(t, MessageTask, m.Type)
	assert.Equal(t, PriorityNormal, m.Priority)
	assert.Equal(t, "hello", m.Content)
	assert.False(t, m.Timestamp.IsZero())
}

func TestNewMessage_Options(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMessage("a", "b", MessageResult, "done",
		WithPriority(PriorityUrgent),
		WithContext(MessageContext{TaskID: "t1", OriginalRequest: "do it"}),
		WithParent("parent-1"),
		WithTimestamp(ts),
	)

	assert.Equal(t, PriorityUrgent, m.Priority)
	assert.Equal(t, "t1", m.Context.TaskID)
	assert.Equal(t, "do it", m.Context.OriginalRequest)
	assert.Equal(t, "parent-1", m.ParentID)
	assert.Equal(t, ts, m.Timestamp)
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewMessage("x", "y", MessageStatus, "one")
	b := NewMessage("x", "y", MessageStatus, "two")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewHandoff_PreservesHistory(t *testing.T) {
	h := NewHandoff("eng", "res", "need research", MessageContext{TaskID: "t2"})
	assert.True(t, h.PreserveHistory)
	assert.Equal(t, "eng", h.FromAgent)
	assert.Equal(t, "res", h.ToAgent)
	assert.Equal(t, "t2", h.Context.TaskID)
}

func TestAgentStatusSortOrder(t *testing.T) {
	assert.Less(t, StatusWorking.SortOrder(), StatusIdle.SortOrder())
	assert.Less(t, StatusReviewing.SortOrder(), StatusDelegating.SortOrder())
	assert.Less(t, StatusBlocked.SortOrder(), StatusOffline.SortOrder())
}
