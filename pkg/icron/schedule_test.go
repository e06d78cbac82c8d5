package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfoDaily(t *testing.T) {
	ref := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 3 * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 9*time.Hour, info.TimeSinceLast)
	assert.Equal(t, 15*time.Hour, info.TimeUntilNext)
	assert.Equal(t, "0 3 * * *", info.Expression)
}

func TestGetTriggerInfoEveryMinute(t *testing.T) {
	ref := time.Date(2025, 6, 15, 12, 30, 30, 0, time.UTC)

	info, err := GetTriggerInfo("* * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 15, 12, 31, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC), info.Last)
}

func TestGetTriggerInfoDescriptor(t *testing.T) {
	ref := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@daily", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), info.Next)
}

func TestGetTriggerInfoInvalidExpression(t *testing.T) {
	_, err := GetTriggerInfo("every now and then", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
