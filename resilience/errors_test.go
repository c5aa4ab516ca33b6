package resilience

import (
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/crewmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_Defaults(t *testing.T) {
	e := NewError(CategoryQueue, SeverityWarning, "queue overflow", WithAgent("eng"), WithTask("t1"))

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, CategoryQueue, e.Category)
	assert.Equal(t, SeverityWarning, e.Severity)
	assert.Equal(t, "eng", e.AgentID)
	assert.Equal(t, "t1", e.TaskID)
	assert.True(t, e.Recoverable)
}

func TestNewError_Unrecoverable(t *testing.T) {
	e := NewError(CategoryExecution, SeverityCritical, "gave up", Unrecoverable(), WithRecoveryAction("restart the crew"))
	assert.False(t, e.Recoverable)
	assert.Equal(t, "restart the crew", e.RecoveryAction)
}

func TestErrorLog_RingBufferEviction(t *testing.T) {
	l := NewErrorLog(WithCapacity(3))
	for i := 0; i < 5; i++ {
		l.Log(NewError(CategoryUnknown, SeverityError, fmt.Sprintf("err-%d", i)))
	}

	recent := l.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "err-2", recent[0].Message)
	assert.Equal(t, "err-4", recent[2].Message)
}

func TestErrorLog_FilterByAgentAndCategory(t *testing.T) {
	l := NewErrorLog()
	l.Log(NewError(CategoryQueue, SeverityWarning, "a", WithAgent("eng")))
	l.Log(NewError(CategoryRouting, SeverityError, "b", WithAgent("res")))
	l.Log(NewError(CategoryQueue, SeverityError, "c", WithAgent("eng")))

	assert.Len(t, l.ForAgent("eng"), 2)
	assert.Len(t, l.ForAgent("res"), 1)
	assert.Len(t, l.ByCategory(CategoryQueue), 2)
	assert.Empty(t, l.ByCategory(CategoryMemory))
}

func TestErrorLog_Rate(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	l := NewErrorLog(WithLogClock(clock))

	old := NewError(CategoryQueue, SeverityError, "stale")
	old.Timestamp = clock.Now().Add(-10 * time.Minute)
	l.Log(old)

	for i := 0; i < 10; i++ {
		e := NewError(CategoryQueue, SeverityError, "fresh")
		e.Timestamp = clock.Now()
		l.Log(e)
	}

	// 10 errors in a 5 minute window: 2 per minute.
	assert.InDelta(t, 2.0, l.Rate(5*time.Minute), 1e-9)
	assert.False(t, l.HasSystemicIssue(5))
	assert.True(t, l.HasSystemicIssue(1))
}

func TestErrorLog_Summary(t *testing.T) {
	l := NewErrorLog()
	l.Log(NewError(CategoryQueue, SeverityWarning, "a", WithAgent("eng")))
	l.Log(NewError(CategoryQueue, SeverityError, "b", WithAgent("eng")))
	l.Log(NewError(CategoryReview, SeverityCritical, "c"))

	s := l.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.BySeverity[SeverityWarning])
	assert.Equal(t, 1, s.BySeverity[SeverityError])
	assert.Equal(t, 1, s.BySeverity[SeverityCritical])
	assert.Equal(t, 2, s.ByCategory[CategoryQueue])
	assert.Equal(t, 2, s.ByAgent["eng"])
	require.NotNil(t, s.LastError)
	assert.Equal(t, "c", s.LastError.Message)
}

func TestErrorLog_Clear(t *testing.T) {
	l := NewErrorLog()
	l.Log(NewError(CategoryQueue, SeverityError, "x"))
	l.Clear()
	assert.Empty(t, l.Recent(10))
	assert.Zero(t, l.Summary().Total)
}
