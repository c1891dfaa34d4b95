package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_TakeEndsDialog(t *testing.T) {
	sm := NewManager(nil)

	sm.Start(7, StateRejectReason, "token")
	assert.Equal(t, StateRejectReason, sm.GetState(7))

	data, ok := sm.Take(7)
	require.True(t, ok)
	assert.Equal(t, "token", data.Subject)
	assert.Equal(t, StateNone, sm.GetState(7))

	_, ok = sm.Take(7)
	assert.False(t, ok)
}

func TestManager_DialogExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	sm := NewManager(func() time.Time { return now })

	sm.Start(7, StateCancelReason, "12")
	now = now.Add(DialogTTL + time.Second)

	assert.Equal(t, StateNone, sm.GetState(7))
	_, ok := sm.Take(7)
	assert.False(t, ok)
}

func TestManager_StartNoneClears(t *testing.T) {
	sm := NewManager(nil)

	sm.Start(7, StateCancelSlotReason, "3")
	sm.Start(7, StateNone, "")

	assert.Equal(t, StateNone, sm.GetState(7))
}
